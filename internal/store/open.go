package store

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Corner-Boxing/corner-backend/internal/config"
)

// Open returns the job store selected by cfg.Driver. redisClient is only
// used by the redis driver.
func Open(cfg config.StoreConfig, redisClient *redis.Client) (JobStore, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		if redisClient == nil {
			return nil, errors.New("redis store requires a redis client")
		}
		return NewRedisStore(redisClient, cfg.RedisPrefix), nil
	case DriverSQLite, "sqlite":
		return NewSQLiteStore(cfg.SQLitePath)
	case DriverMySQL:
		if cfg.MySQLDSN == "" {
			return nil, errors.New("MYSQL_DSN is required for the mysql store")
		}
		return NewMySQLStore(cfg.MySQLDSN)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
