package audit

import (
	"context"
	"fmt"
)

// Open returns the store named by driver: "memory" (default) or "sqlite".
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemoryStore(DefaultMemoryCapacity), nil
	case "sqlite":
		if dsn == "" {
			dsn = "audit.db"
		}
		return OpenSQLite(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown audit driver %q", driver)
	}
}
