package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/erp/ordercore/internal/application/transaction"
	"github.com/erp/ordercore/internal/domain/catalog"
	"github.com/erp/ordercore/internal/domain/inventory"
	"github.com/erp/ordercore/internal/domain/shared"
	"github.com/erp/ordercore/internal/domain/trade"
	"github.com/erp/ordercore/internal/infrastructure/event"
	"github.com/erp/ordercore/internal/infrastructure/logger"
	"github.com/erp/ordercore/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type txContextKey struct{}

// TxFromContext returns the transaction carried by ctx, if any
func TxFromContext(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(txContextKey{}).(*gorm.DB)
	return tx, ok && tx != nil
}

// TxOptions configures the transactions opened by GormTransactionScope
type TxOptions struct {
	Isolation sql.IsolationLevel
	// LockTimeout is applied with SET LOCAL on postgres; zero leaves the server default
	LockTimeout time.Duration
}

// GormTransactionScope implements transaction.Scope on GORM transactions
type GormTransactionScope struct {
	db      *gorm.DB
	opts    TxOptions
	metrics *telemetry.ConsistencyMetrics
}

// ScopeOption configures a GormTransactionScope
type ScopeOption func(*GormTransactionScope)

// WithTxOptions sets isolation and lock timeout
func WithTxOptions(opts TxOptions) ScopeOption {
	return func(s *GormTransactionScope) {
		s.opts = opts
	}
}

// WithScopeMetrics records scope duration and outcome
func WithScopeMetrics(m *telemetry.ConsistencyMetrics) ScopeOption {
	return func(s *GormTransactionScope) {
		s.metrics = m
	}
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB, opts ...ScopeOption) *GormTransactionScope {
	s := &GormTransactionScope{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunAtomic runs fn inside one database transaction.
// When ctx already carries a transaction, fn joins it and the outer scope decides the outcome.
func (s *GormTransactionScope) RunAtomic(ctx context.Context, fn func(ctx context.Context, repos transaction.Repositories) error) error {
	if tx, ok := TxFromContext(ctx); ok {
		return fn(ctx, newTxRepositories(tx))
	}

	ctx, span := telemetry.StartSpan(ctx, "transaction.run_atomic")
	defer span.End()
	start := time.Now()

	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.applyLockTimeout(tx); err != nil {
			return err
		}
		if fnErr = fn(context.WithValue(ctx, txContextKey{}, tx), newTxRepositories(tx)); fnErr != nil {
			return fnErr
		}
		// gorm commits whenever the callback returns nil, so cancellation is checked here
		if fnErr = ctx.Err(); fnErr != nil {
			fnErr = shared.NewInfrastructureError("commit transaction", fnErr)
			return fnErr
		}
		return nil
	}, s.txOptions()...)

	committed := err == nil
	s.metrics.RecordAtomicScope(ctx, time.Since(start), committed)

	switch {
	case committed:
		telemetry.SetOK(span)
		return nil
	case fnErr != nil:
		telemetry.RecordError(span, fnErr)
		return fnErr
	default:
		err = shared.NewInfrastructureError("run transaction", err)
		telemetry.RecordError(span, err)
		logger.L(ctx).Error("transaction failed outside the operation", zap.Error(err))
		return err
	}
}

func (s *GormTransactionScope) txOptions() []*sql.TxOptions {
	if s.opts.Isolation == sql.LevelDefault || s.db.Dialector.Name() != "postgres" {
		return nil
	}
	return []*sql.TxOptions{{Isolation: s.opts.Isolation}}
}

func (s *GormTransactionScope) applyLockTimeout(tx *gorm.DB) error {
	if s.opts.LockTimeout <= 0 || tx.Dialector.Name() != "postgres" {
		return nil
	}
	stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.opts.LockTimeout.Milliseconds())
	if err := tx.Exec(stmt).Error; err != nil {
		return shared.NewInfrastructureError("set lock timeout", err)
	}
	return nil
}

// IsolationLevel maps a configured isolation name to database/sql
func IsolationLevel(name string) (sql.IsolationLevel, error) {
	switch name {
	case "", "default":
		return sql.LevelDefault, nil
	case "read committed":
		return sql.LevelReadCommitted, nil
	case "repeatable read":
		return sql.LevelRepeatableRead, nil
	case "serializable":
		return sql.LevelSerializable, nil
	}
	return sql.LevelDefault, errors.New("unsupported isolation level " + name)
}

// txRepositories hands out repositories bound to one transaction
type txRepositories struct {
	tx *gorm.DB
}

func newTxRepositories(tx *gorm.DB) *txRepositories {
	return &txRepositories{tx: tx}
}

func (r *txRepositories) Products() catalog.ProductRepository {
	return NewGormProductRepository(r.tx)
}

func (r *txRepositories) StockMovements() inventory.StockMovementRepository {
	return NewGormStockMovementRepository(r.tx)
}

func (r *txRepositories) SalesOrders() trade.SalesOrderRepository {
	return NewGormSalesOrderRepository(r.tx)
}

func (r *txRepositories) SalesOrderItems() trade.SalesOrderItemRepository {
	return NewGormSalesOrderItemRepository(r.tx)
}

func (r *txRepositories) Taxes() trade.TaxRepository {
	return NewGormTaxRepository(r.tx)
}

func (r *txRepositories) Outbox() shared.OutboxRepository {
	return event.NewGormOutboxRepository(r.tx)
}

var (
	_ transaction.Scope        = (*GormTransactionScope)(nil)
	_ transaction.Repositories = (*txRepositories)(nil)
)
