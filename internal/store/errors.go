package store

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

var ErrRecordNotFound = errors.New("record not found")

// IsConnectivityError reports whether err means the database could not be reached,
// as opposed to a statement being rejected.
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded)
}
