package mysql

import (
	"errors"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// MySQL server error numbers.
const (
	errDuplicateEntry  = 1062
	errOutOfRange      = 1690
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
)

func errNumber(err error) uint16 {
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number
	}
	return 0
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || errNumber(err) == errDuplicateEntry
}

// IsRetryable reports deadlocks and lock wait timeouts, after which the whole
// operation can be re-run.
func IsRetryable(err error) bool {
	switch errNumber(err) {
	case errDeadlock, errLockWaitTimeout:
		return true
	}
	return false
}
