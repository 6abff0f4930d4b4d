package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage and transfer drivers.
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	TransferDriverCustody = "custody"
	TransferDriverStellar = "stellar"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Transfer TransferConfig `mapstructure:"transfer"`
	Stellar  StellarConfig  `mapstructure:"stellar"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug, release, test
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type StorageConfig struct {
	Driver  string `mapstructure:"driver"` // postgres, memory
	Migrate bool   `mapstructure:"migrate"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	EventsKey string `mapstructure:"events_key"`
	EventsMax int64  `mapstructure:"events_max"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

// AuthConfig tunes signed-request verification.
type AuthConfig struct {
	MaxClockDrift time.Duration `mapstructure:"max_clock_drift"`
	NonceTTL      time.Duration `mapstructure:"nonce_ttl"`
}

// LedgerConfig identifies the ledger's own custody and bootstrap admin.
type LedgerConfig struct {
	CustodyAddress string `mapstructure:"custody_address"`
	Admin          string `mapstructure:"admin"`
}

// OpeningBalance seeds the in-process custody book.
type OpeningBalance struct {
	Token   string `mapstructure:"token"`
	Address string `mapstructure:"address"`
	Amount  string `mapstructure:"amount"`
}

type TransferConfig struct {
	Driver          string           `mapstructure:"driver"` // custody, stellar
	OpeningBalances []OpeningBalance `mapstructure:"opening_balances"`
}

type StellarConfig struct {
	HorizonURL        string   `mapstructure:"horizon_url"`
	NetworkPassphrase string   `mapstructure:"network_passphrase"`
	SignerSeeds       []string `mapstructure:"signer_seeds"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: MLG_ (Merchant LedGer).
// Nested keys use underscore: MLG_DATABASE_HOST, MLG_LEDGER_ADMIN, etc.
// A .env file in the working directory is loaded into the environment first.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("storage.driver", StorageDriverPostgres)
	v.SetDefault("storage.migrate", true)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "merchant_ledger")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.events_key", "ledger:events")
	v.SetDefault("redis.events_max", 100000)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "1h")
	v.SetDefault("jwt.issuer", "merchant-ledger")
	v.SetDefault("auth.max_clock_drift", "60s")
	v.SetDefault("auth.nonce_ttl", "120s")
	v.SetDefault("ledger.custody_address", "")
	v.SetDefault("ledger.admin", "")
	v.SetDefault("transfer.driver", TransferDriverCustody)
	v.SetDefault("stellar.horizon_url", "https://horizon-testnet.stellar.org")
	v.SetDefault("stellar.network_passphrase", "Test SDF Network ; September 2015")
	v.SetDefault("stellar.signer_seeds", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: MLG_DATABASE_HOST -> database.host
	v.SetEnvPrefix("MLG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the settings the process cannot start without.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Transfer.Driver {
	case TransferDriverCustody:
	case TransferDriverStellar:
		if len(c.Stellar.SignerSeeds) == 0 {
			return errors.New("stellar transfer driver requires stellar.signer_seeds")
		}
	default:
		return fmt.Errorf("unknown transfer driver %q", c.Transfer.Driver)
	}
	if c.Ledger.CustodyAddress == "" {
		return errors.New("ledger.custody_address is required")
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	return nil
}
