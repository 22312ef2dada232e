package config

import "time"

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	MQ        MQConfig        `yaml:"mq"`
	Voting    VotingConfig    `yaml:"voting"`
	Admin     AdminConfig     `yaml:"admin"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8090"`
	Mode            string        `yaml:"mode"             env:"GIN_MODE"                env-default:"debug"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"5s"`
}

// DatabaseConfig holds relational store settings. When DSN is empty and the driver is
// mysql, the DSN is assembled from the individual connection fields.
type DatabaseConfig struct {
	Driver        string        `yaml:"driver"         env:"DB_DRIVER"         env-default:"mysql"`
	DSN           string        `yaml:"dsn"            env:"DB_DSN"`
	User          string        `yaml:"user"           env:"DB_USER"           env-default:"voteuser"`
	Password      string        `yaml:"password"       env:"DB_PASSWORD"       env-default:"votepassword"`
	Host          string        `yaml:"host"           env:"DB_HOST"           env-default:"mysql"`
	Port          int           `yaml:"port"           env:"DB_PORT"           env-default:"3306"`
	Name          string        `yaml:"name"           env:"DB_NAME"           env-default:"chilidb"`
	MaxOpenConns  int           `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	MaxIdleConns  int           `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"5"`
	SlowThreshold time.Duration `yaml:"slow_threshold" env:"DB_SLOW_THRESHOLD" env-default:"1s"`
	Seed          bool          `yaml:"seed"           env:"DB_SEED"           env-default:"false"`
}

// RedisConfig holds Redis settings. Redis is optional; without it the service
// falls back to in-process locks and limiters and database-backed admin sessions.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"  env:"REDIS_ENABLED"  env-default:"true"`
	Addr     string `yaml:"addr"     env:"REDIS_ADDR"     env-default:"localhost:16379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db"       env:"REDIS_DB"       env-default:"0"`
}

// MQConfig selects the queue used to retry failed statistics recomputes.
type MQConfig struct {
	Driver     string        `yaml:"driver"      env:"MQ_DRIVER"            env-default:"inline"`
	NameServer string        `yaml:"name_server" env:"ROCKETMQ_NAMESRV_ADDR" env-default:"localhost:9876"`
	Group      string        `yaml:"group"       env:"ROCKETMQ_GROUP"       env-default:"chili_stats"`
	Topic      string        `yaml:"topic"       env:"ROCKETMQ_TOPIC"       env-default:"chili_stats_recompute"`
	MaxRetries int           `yaml:"max_retries" env:"MQ_MAX_RETRIES"       env-default:"3"`
	RetryDelay time.Duration `yaml:"retry_delay" env:"MQ_RETRY_DELAY"       env-default:"5s"`
}

// VotingConfig tunes the duplicate-vote checks.
type VotingConfig struct {
	FailOpen   bool          `yaml:"fail_open"    env:"VOTING_FAIL_OPEN"    env-default:"true"`
	IPWindow   time.Duration `yaml:"ip_window"    env:"VOTING_IP_WINDOW"    env-default:"5m"`
	LockTTL    time.Duration `yaml:"lock_ttl"     env:"VOTING_LOCK_TTL"     env-default:"5s"`
	IPHashSalt string        `yaml:"ip_hash_salt" env:"VOTING_IP_HASH_SALT" env-default:"chili-cookoff"`
}

// AdminConfig holds operator credentials.
type AdminConfig struct {
	Password      string        `yaml:"password"       env:"ADMIN_PASSWORD"       env-required:"true"`
	SessionTTL    time.Duration `yaml:"session_ttl"    env:"ADMIN_SESSION_TTL"    env-default:"24h"`
	WebhookSecret string        `yaml:"webhook_secret" env:"ADMIN_WEBHOOK_SECRET"`
}

// RateLimitConfig limits requests per client IP on the vote endpoint.
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled"  env:"ENABLE_RATE_LIMIT"   env-default:"true"`
	Requests int           `yaml:"requests" env:"RATE_LIMIT_REQUESTS" env-default:"20"`
	Window   time.Duration `yaml:"window"   env:"RATE_LIMIT_WINDOW"   env-default:"1m"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string      `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"*"`
	MaxAge         time.Duration `yaml:"max_age"         env:"CORS_MAX_AGE"         env-default:"12h"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}
