package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	game_constants "Scorekeep/constants/game"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Postgres    PostgresConfig    `mapstructure:"postgres"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Log         LogConfig         `mapstructure:"log"`
	Invitations InvitationsConfig `mapstructure:"invitations"`
	Realtime    RealtimeConfig    `mapstructure:"realtime"`
	Jobs        JobsConfig        `mapstructure:"jobs"`
}

type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Production     bool     `mapstructure:"production"`
	UseHTTPS       bool     `mapstructure:"use_https"`
	CertFile       string   `mapstructure:"cert_file"`
	KeyFile        string   `mapstructure:"key_file"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type PostgresConfig struct {
	URL          string `mapstructure:"url"`
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	SSLMode      string `mapstructure:"sslmode"`
	Verbose      bool   `mapstructure:"verbose"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// RedisConfig: an empty URL disables the snapshot cache.
type RedisConfig struct {
	URL      string        `mapstructure:"url"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type AuthConfig struct {
	SessionKey    string        `mapstructure:"session_key"`
	JWTSecret     string        `mapstructure:"jwt_secret"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	SecureCookies bool          `mapstructure:"secure_cookies"`
}

type LogConfig struct {
	Output     string `mapstructure:"output"`
	Path       string `mapstructure:"path"`
	Filename   string `mapstructure:"filename"`
	Level      string `mapstructure:"level"`
	RotateSize int    `mapstructure:"rotate_size"`
	RotateNum  int    `mapstructure:"rotate_num"`
	KeepDays   int    `mapstructure:"keep_days"`
}

type InvitationsConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	EnforceExpiry bool          `mapstructure:"enforce_expiry"`
}

type RealtimeConfig struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	RequireAuth     bool          `mapstructure:"require_auth"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
	ResponseTimeout time.Duration `mapstructure:"response_timeout"`
	Debug           bool          `mapstructure:"debug"`
}

type JobsConfig struct {
	SweepSchedule string        `mapstructure:"sweep_schedule"`
	SessionMaxAge time.Duration `mapstructure:"session_max_age"`
}

const (
	devJWTSecret  = "scorekeep-dev-secret"
	devSessionKey = "scorekeep-dev-session-key"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.production", false)
	v.SetDefault("server.use_https", false)
	v.SetDefault("server.cert_file", "")
	v.SetDefault("server.key_file", "")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("postgres.url", "")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.database", "scorekeep")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.verbose", false)
	v.SetDefault("postgres.auto_migrate", false)
	v.SetDefault("postgres.max_idle_conns", 10)
	v.SetDefault("postgres.max_open_conns", 100)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_ttl", "30m")

	v.SetDefault("auth.session_key", devSessionKey)
	v.SetDefault("auth.jwt_secret", devJWTSecret)
	v.SetDefault("auth.token_ttl", "168h")
	v.SetDefault("auth.secure_cookies", false)

	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.path", "./logs")
	v.SetDefault("log.filename", "scorekeep.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.rotate_size", 100)
	v.SetDefault("log.rotate_num", 10)
	v.SetDefault("log.keep_days", 7)

	v.SetDefault("invitations.ttl", game_constants.DefaultInvitationTTL.String())
	v.SetDefault("invitations.enforce_expiry", false)

	v.SetDefault("realtime.poll_interval", game_constants.DefaultPollInterval.String())
	v.SetDefault("realtime.require_auth", true)
	v.SetDefault("realtime.ping_interval", "5s")
	v.SetDefault("realtime.ping_timeout", "3s")
	v.SetDefault("realtime.response_timeout", "10s")
	v.SetDefault("realtime.debug", false)

	v.SetDefault("jobs.sweep_schedule", "@every 1m")
	v.SetDefault("jobs.session_max_age", game_constants.DefaultSessionMaxAge.String())
}

// Environment names the service was first deployed with.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"server.port":           {"SERVER_PORT", "PORT"},
		"server.production":     {"SERVER_PRODUCTION", "PROD"},
		"server.use_https":      {"SERVER_USE_HTTPS", "USE_HTTPS"},
		"auth.session_key":      {"AUTH_SESSION_KEY", "KEY"},
		"auth.jwt_secret":       {"AUTH_JWT_SECRET", "JWT_SECRET"},
		"postgres.verbose":      {"POSTGRES_VERBOSE", "VERBOSE_POSTGRES"},
		"postgres.auto_migrate": {"POSTGRES_AUTO_MIGRATE", "MIGRATE_POSTGRES"},
		"postgres.url":          {"POSTGRES_URL", "DATABASE_URL"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return err
		}
	}
	return nil
}

// Load reads .env, then the optional TOML file, then the environment.
// configFile may be empty, in which case config.toml is looked up in the
// working directory and ./config.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindLegacyEnv(v); err != nil {
		return nil, errors.Wrap(err, "binding environment")
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Production {
		if c.Auth.JWTSecret == devJWTSecret || c.Auth.JWTSecret == "" {
			return errors.New("auth.jwt_secret must be set in production")
		}
		if c.Auth.SessionKey == devSessionKey || c.Auth.SessionKey == "" {
			return errors.New("auth.session_key must be set in production")
		}
	}
	if c.Server.UseHTTPS && (c.Server.CertFile == "" || c.Server.KeyFile == "") {
		return errors.New("server.cert_file and server.key_file are required with server.use_https")
	}
	if c.Invitations.TTL <= 0 {
		return errors.New("invitations.ttl must be positive")
	}
	if c.Realtime.PollInterval <= 0 {
		return errors.New("realtime.poll_interval must be positive")
	}
	return nil
}

// DSN builds the postgres connection string unless postgres.url is set.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	u := url.URL{
		Scheme:   "postgresql",
		User:     url.UserPassword(p.User, p.Password),
		Host:     fmt.Sprintf("%s:%s", p.Host, p.Port),
		Path:     "/" + p.Database,
		RawQuery: url.Values{"sslmode": {p.SSLMode}}.Encode(),
	}
	return u.String()
}
