package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Database drivers.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Queue drivers for the statistics retry queue.
const (
	MQDriverInline   = "inline"
	MQDriverRedis    = "redis"
	MQDriverRocketMQ = "rocketmq"
)

// Validate performs business-rule validation on the loaded configuration.
// Load calls it automatically.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535 (got %d)", c.Server.Port)
	}

	switch c.Database.Driver {
	case DriverMySQL:
	case DriverSQLite:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q (got %q)", DriverMySQL, DriverSQLite, c.Database.Driver)
	}

	switch c.MQ.Driver {
	case MQDriverInline:
	case MQDriverRedis:
		if !c.Redis.Enabled {
			return fmt.Errorf("mq.driver %q requires redis.enabled", MQDriverRedis)
		}
	case MQDriverRocketMQ:
		if c.MQ.NameServer == "" {
			return fmt.Errorf("mq.name_server is required for the rocketmq driver")
		}
	default:
		return fmt.Errorf("mq.driver must be one of inline, redis, rocketmq (got %q)", c.MQ.Driver)
	}

	if c.MQ.MaxRetries < 0 {
		return fmt.Errorf("mq.max_retries must be >= 0 (got %d)", c.MQ.MaxRetries)
	}

	if c.Voting.IPWindow <= 0 {
		return fmt.Errorf("voting.ip_window must be > 0 (got %s)", c.Voting.IPWindow)
	}
	if c.Voting.LockTTL <= 0 {
		return fmt.Errorf("voting.lock_ttl must be > 0 (got %s)", c.Voting.LockTTL)
	}

	if c.Admin.SessionTTL < time.Minute {
		return fmt.Errorf("admin.session_ttl must be at least 1m (got %s)", c.Admin.SessionTTL)
	}

	if c.RateLimit.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0) {
		return fmt.Errorf("rate_limit requires requests > 0 and window > 0")
	}

	return nil
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// MySQLDSN builds a go-sql-driver DSN from the individual connection fields.
func (d DatabaseConfig) MySQLDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.User, d.Password, d.Host, d.Port, d.Name)
}
