// Package models contains GORM persistence models that map to database tables.
// Domain entities carry no ORM tags; repositories convert with ToDomain/FromDomain.
//
// Every business table carries is_not_deleted. Rows are never physically removed,
// and every repository query filters on that column.
package models
