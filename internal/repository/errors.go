// Package repository holds the MySQL persistence of the portal.  Each
// repo wraps a *sql.DB; methods with a Tx suffix run inside a
// transaction owned by the caller, who must commit or roll back.
//
// The sentinel errors below let handlers and the lifecycle engine tell
// failure scenarios apart without inspecting driver errors.  The three
// store sentinels are shared with the lifecycle package so that a
// failure surfaced through its Store port keeps its identity.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/civic-service-portal/internal/lifecycle"
)

var (
	// ErrNotFound is returned when a row does not exist (or is soft deleted).
	ErrNotFound = lifecycle.ErrRecordNotFound
	// ErrDuplicateReference is returned when a request reference number
	// is already taken.
	ErrDuplicateReference = lifecycle.ErrDuplicateReference
	// ErrStaleStatus is returned by conditional status updates that
	// matched no row because the status moved.
	ErrStaleStatus = lifecycle.ErrStaleStatus
)

// ErrConflict is returned when an insert or update violates a unique
// key other than the request reference, e.g. a duplicate department
// name.  Handlers translate it into HTTP 409.
var ErrConflict = errors.New("conflict")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// isDuplicate reports whether err is a unique-key violation reported
// by the driver.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// duplicateOn reports whether err is a unique-key violation on key.
func duplicateOn(err error, key string) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry && strings.Contains(me.Message, key)
}
