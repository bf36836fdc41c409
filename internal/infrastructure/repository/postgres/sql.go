package postgres

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"

	"github.com/oddsmux/lineledger/internal/usecase"
)

func isNotFound(err error) bool {
	return err == sql.ErrNoRows
}

// isUnavailable classifies connection-class failures that a bounded retry
// may recover from, as opposed to query errors that never will.
func isUnavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 08: connection exceptions; 57P03: cannot_connect_now.
		return pqErr.Code.Class() == "08" || pqErr.Code == "57P03"
	}
	return false
}

func wrapQueryErr(op string, err error) error {
	if isUnavailable(err) {
		return fmt.Errorf("%s: %w: %v", op, usecase.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
