package storage

import "fmt"

// Supported storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

// Open returns the Storage for driver at path. An empty driver means SQLite.
func Open(driver, path string) (Storage, error) {
	switch driver {
	case "", DriverSQLite:
		return NewSQLiteStorage(path)
	case DriverBolt:
		return NewBoltStorage(path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
