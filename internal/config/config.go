package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	AppMode     string
	Port        string
	Timezone    string
	LockTimeout time.Duration
	Origins     string
	Database    DatabaseConfig
	JWT         JWTConfig
	Booking     BookingConfig
	Worker      WorkerConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string // mysql | sqlite
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	Path     string // sqlite file
}

// JWTConfig holds bearer token verification settings
type JWTConfig struct {
	Secret string
	Issuer string
}

// BookingConfig holds the business constants of tickets, rooms and points
type BookingConfig struct {
	RoomMaxCapacity   int
	StayDuration      time.Duration
	ExtensionCost     int64
	SignupPoints      int64
	DiaryRewardPoints int64
	RetireEmptyRooms  bool
}

// WorkerConfig holds task queue and sweeper settings
type WorkerConfig struct {
	Enabled       bool
	SweepSchedule string
	RecoveryGrace time.Duration
	MaxRetries    int
	Backoff       time.Duration
	Workers       int
	StorePath     string
}

// Global config instance
var AppConfig *Config

// RegisterFlags declares the command line flags Load understands
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "optional config file (yaml, json or toml)")
	fs.String("port", "", "HTTP port, overrides PORT")
	fs.Bool("migrate-only", false, "run migrations and seeders, then exit")
	fs.Bool("no-worker", false, "serve HTTP without the task queue and sweeper")
}

// Load reads configuration from .env, environment variables, an optional
// config file and command line flags, in increasing priority
func Load(fs *pflag.FlagSet) (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	setDefaults(v)

	if fs != nil {
		if f := fs.Lookup("port"); f != nil && f.Changed {
			v.Set("PORT", f.Value.String())
		}
		if f := fs.Lookup("no-worker"); f != nil && f.Changed {
			v.Set("WORKER_ENABLED", f.Value.String() != "true")
		}
		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	config, err := FromViper(v)
	if err != nil {
		return nil, err
	}

	// Set global config
	AppConfig = config

	log.Printf("✅ Configuration loaded successfully [MODE: %s, DB: %s]", config.AppMode, config.Database.Driver)
	return config, nil
}

// FromViper builds a Config from an already populated viper instance
func FromViper(v *viper.Viper) (*Config, error) {
	// Get APP_MODE (default to "dev") - trim spaces for Windows compatibility
	appMode := strings.TrimSpace(v.GetString("APP_MODE"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	database := loadDatabaseConfig(v, appMode)
	if database.Driver != "mysql" && database.Driver != "sqlite" {
		return nil, fmt.Errorf("invalid DB_DRIVER: '%s' (must be 'mysql' or 'sqlite')", database.Driver)
	}

	booking := BookingConfig{
		RoomMaxCapacity:   v.GetInt("ROOM_MAX_CAPACITY"),
		StayDuration:      time.Duration(v.GetInt("STAY_HOURS")) * time.Hour,
		ExtensionCost:     v.GetInt64("EXTENSION_COST"),
		SignupPoints:      v.GetInt64("SIGNUP_POINTS"),
		DiaryRewardPoints: v.GetInt64("DIARY_REWARD_POINTS"),
		RetireEmptyRooms:  v.GetBool("ROOM_RETIRE_WHEN_EMPTY"),
	}
	if booking.RoomMaxCapacity < 1 {
		return nil, fmt.Errorf("invalid ROOM_MAX_CAPACITY: %d", booking.RoomMaxCapacity)
	}

	return &Config{
		AppMode:     appMode,
		Port:        v.GetString("PORT"),
		Timezone:    v.GetString("TIMEZONE"),
		LockTimeout: v.GetDuration("LOCK_TIMEOUT"),
		Origins:     v.GetString("ALLOWED_ORIGINS"),
		Database:    database,
		JWT:         loadJWTConfig(v, appMode),
		Booking:     booking,
		Worker: WorkerConfig{
			Enabled:       v.GetBool("WORKER_ENABLED"),
			SweepSchedule: v.GetString("SWEEP_SCHEDULE"),
			RecoveryGrace: v.GetDuration("RECOVERY_GRACE"),
			MaxRetries:    v.GetInt("TASK_MAX_RETRIES"),
			Backoff:       v.GetDuration("TASK_BACKOFF"),
			Workers:       v.GetInt("TASK_WORKERS"),
			StorePath:     v.GetString("TASK_STORE_PATH"),
		},
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_MODE", "dev")
	v.SetDefault("PORT", "3000")
	v.SetDefault("TIMEZONE", "Asia/Seoul")
	v.SetDefault("LOCK_TIMEOUT", "10s")
	v.SetDefault("DB_DRIVER", "mysql")

	v.SetDefault("ROOM_MAX_CAPACITY", 6)
	v.SetDefault("STAY_HOURS", 24)
	v.SetDefault("EXTENSION_COST", 300)
	v.SetDefault("SIGNUP_POINTS", 1000)
	v.SetDefault("DIARY_REWARD_POINTS", 50)
	v.SetDefault("ROOM_RETIRE_WHEN_EMPTY", true)

	v.SetDefault("WORKER_ENABLED", true)
	v.SetDefault("SWEEP_SCHEDULE", "@every 1m")
	v.SetDefault("RECOVERY_GRACE", "5m")
	v.SetDefault("TASK_MAX_RETRIES", 3)
	v.SetDefault("TASK_BACKOFF", "1s")
	v.SetDefault("TASK_WORKERS", 4)
	v.SetDefault("TASK_STORE_PATH", "data/tasks.db")
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(v *viper.Viper, mode string) DatabaseConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	return DatabaseConfig{
		Driver:   strings.ToLower(v.GetString("DB_DRIVER")),
		Host:     getString(v, prefix+"DB_HOST", "localhost"),
		Port:     getString(v, prefix+"DB_PORT", "3306"),
		User:     getString(v, prefix+"DB_USER", "root"),
		Password: getString(v, prefix+"DB_PASS", ""),
		DBName:   getString(v, prefix+"DB_NAME", "bzero"),
		Path:     getString(v, prefix+"DB_PATH", "data/bzero.db"),
	}
}

// loadJWTConfig loads JWT config based on mode
func loadJWTConfig(v *viper.Viper, mode string) JWTConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	return JWTConfig{
		Secret: getString(v, prefix+"JWT_SECRET", "default_secret"),
		Issuer: getString(v, "JWT_ISSUER", ""),
	}
}

// getString gets a key with default value
func getString(v *viper.Viper, key, defaultValue string) string {
	if value := v.GetString(key); value != "" {
		return value
	}
	return defaultValue
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// Location resolves Timezone, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := c.Origins
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "https://bzero.app"
	}
	return origins
}
