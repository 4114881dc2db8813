package monitors

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const DefaultTimeout = 2 * time.Second

// CheckDatabase pings the connection pool behind conn.
func CheckDatabase(ctx context.Context, conn *gorm.DB, timeout time.Duration) error {
	if conn == nil {
		return fmt.Errorf("database is not connected")
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sqlDB, err := conn.DB()

	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}
