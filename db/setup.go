package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/bloomforlungs/bloom/internal/models"
	"github.com/bloomforlungs/bloom/internal/realtime"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

var DB *gorm.DB

// NormalizeDriver maps accepted spellings of a driver name to its constant.
func NormalizeDriver(driver string) string {
	driver = strings.ToLower(strings.TrimSpace(driver))

	switch driver {
	case "postgresql", "pg":
		return DriverPostgres
	case "sqlite3":
		return DriverSQLite
	default:
		return driver
	}
}

func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver = NormalizeDriver(driver); driver {
	case DriverPostgres:
		return postgres.Open(dsn), nil
	case DriverMySQL:
		return mysql.Open(dsn), nil
	case DriverSQLite:
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// Open connects without touching the package-level handle.
func Open(driver, dsn string) (*gorm.DB, error) {
	dialector, err := Dialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	return conn, nil
}

func ConnectDatabase(driver, dsn string) error {
	var err error

	DB, err = Open(driver, dsn)

	if err != nil {
		return err
	}

	return nil
}

func MigrateDatabase() error {
	return Migrate(DB)
}

func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(&models.Pledge{}, &models.Referral{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if conn.Dialector.Name() == DriverPostgres {
		if err := conn.Exec(notifyFunctionSQL).Error; err != nil {
			return fmt.Errorf("install pledge notify function: %w", err)
		}
		if err := conn.Exec(dropNotifyTriggerSQL).Error; err != nil {
			return fmt.Errorf("drop pledge notify trigger: %w", err)
		}
		if err := conn.Exec(createNotifyTriggerSQL).Error; err != nil {
			return fmt.Errorf("create pledge notify trigger: %w", err)
		}
	}

	return nil
}

var notifyFunctionSQL = `
CREATE OR REPLACE FUNCTION notify_pledge_insert() RETURNS trigger AS $$
BEGIN
	PERFORM pg_notify('` + realtime.InsertChannel + `', row_to_json(NEW)::text);
	RETURN NEW;
END;
$$ LANGUAGE plpgsql`

const dropNotifyTriggerSQL = `DROP TRIGGER IF EXISTS pledges_notify_insert ON pledges`

const createNotifyTriggerSQL = `
CREATE TRIGGER pledges_notify_insert
AFTER INSERT ON pledges
FOR EACH ROW EXECUTE FUNCTION notify_pledge_insert()`
