// Package repository defines the MySQL-backed catalog, ledger and shop
// stores plus the sentinel errors they return.  Higher layers classify
// failures with errors.Is instead of inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrSectionNotFound is returned when no catalog row matches a slug or id.
var ErrSectionNotFound = errors.New("section not found")

// ErrInstallationNotFound is returned when the ledger has no row for the
// requested installation or (shop, section) pair.
var ErrInstallationNotFound = errors.New("installation not found")

// ErrInstallationExists is returned by Create when the (shop, section)
// unique key is already taken.
var ErrInstallationExists = errors.New("installation already exists")

// ErrShopNotFound is returned when no shop is registered for a domain.
var ErrShopNotFound = errors.New("shop not found")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// isDuplicateKey reports whether err is a MySQL unique key violation.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
