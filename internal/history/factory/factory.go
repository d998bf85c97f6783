// Package factory builds history sinks from DSN strings.
package factory

import (
	"fmt"
	"strings"

	"github.com/loykin/spawnd/internal/history"
	"github.com/loykin/spawnd/internal/history/sqlite"
)

// FromDSN returns a sink for the given DSN, or (nil, nil) when dsn is empty.
// Only sqlite DSNs are supported.
func FromDSN(dsn string) (history.Sink, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, nil
	}
	if strings.HasPrefix(strings.ToLower(dsn), "sqlite://") || !strings.Contains(dsn, "://") {
		return sqlite.New(dsn)
	}
	return nil, fmt.Errorf("unsupported history DSN: %s", dsn)
}
