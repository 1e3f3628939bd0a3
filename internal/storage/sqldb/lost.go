package sqldb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/go-sql-driver/mysql"
)

// lostMessages are driver messages that mean the handle is unusable but
// carry no typed error to match on.
var lostMessages = []string{
	"database is closed",
	"statement is closed",
	"bad connection",
	"connection reset",
	"broken pipe",
	"server closed the connection",
	"connection is already closed",
}

// IsConnectionLost reports whether err means the connection is gone, as
// opposed to a query or logic error. Context cancellation never counts.
func IsConnectionLost(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, sql.ErrTxDone) {
		return false
	}
	switch {
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, mysql.ErrInvalidConn),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EPIPE):
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range lostMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
