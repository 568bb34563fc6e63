// Package repository implements persistence for ticket types and bookings on
// database/sql. Driver errors are translated into the sentinel errors of
// package model so that services and handlers never inspect driver types.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// isDuplicateKey reports whether err is a unique constraint violation. MySQL
// reports ER_DUP_ENTRY; the embedded SQLite engine used by the test suite
// only exposes the violation through its message.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDuplicateEntry
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
