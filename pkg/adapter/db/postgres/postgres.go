// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package postgres provides the PostgreSQL connection pool, connection,
// and transaction types which implement the repo.Pool, repo.Conn, and
// repo.Tx interfaces using the GORM framework (and its pgx driver).
// Repository packages, such as the instancerp, take these types and
// use their embedded *gorm.DB in order to run their queries.
package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes which are examined by the repository packages.
// See https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
	CodeNotNullViolation    = "23502"
	CodeCheckViolation      = "23514"
	CodeInvalidTextRepr     = "22P02"
	CodeUndefinedTable      = "42P01"
	CodeCannotConnectNow    = "57P03"
)

// SQLState returns the SQLSTATE code of err if it wraps a
// *pgconn.PgError, or an empty string otherwise.
func SQLState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.SQLState()
	}
	return ""
}

// IsUndefinedTable returns true if err reports a missing relation.
func IsUndefinedTable(err error) bool {
	return SQLState(err) == CodeUndefinedTable
}

// DescribeViolation wraps err with a short description of the violated
// integrity constraint (if err is an integrity constraint violation).
// Other errors are returned as is.
func DescribeViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	var kind string
	switch pgErr.Code {
	case CodeUniqueViolation:
		kind = "unique"
	case CodeForeignKeyViolation:
		kind = "foreign key"
	case CodeNotNullViolation:
		kind = "not null"
	case CodeCheckViolation:
		kind = "check"
	case CodeInvalidTextRepr:
		return fmt.Errorf("invalid value for %s.%s: %w",
			pgErr.TableName, pgErr.ColumnName, err)
	default:
		return err
	}
	return fmt.Errorf("%s constraint %q of %q is violated: %w",
		kind, pgErr.ConstraintName, pgErr.TableName, err)
}
