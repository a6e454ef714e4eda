package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Split    SplitConfig    `mapstructure:"split"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds the HTTP server settings
type ServerConfig struct {
	Host string `mapstructure:"host"` // listen host
	Port int    `mapstructure:"port"` // listen port
}

// StorageConfig holds the dataset and artifact storage settings
type StorageConfig struct {
	Type      string `mapstructure:"type"`     // local or minio
	Path      string `mapstructure:"path"`     // local storage root
	Bucket    string `mapstructure:"bucket"`   // MinIO bucket
	Endpoint  string `mapstructure:"endpoint"` // MinIO endpoint
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// DatabaseConfig holds the metadata database settings
type DatabaseConfig struct {
	Type string `mapstructure:"type"` // sqlite
	DSN  string `mapstructure:"dsn"`  // data source name
}

// CacheConfig holds the report cache settings
type CacheConfig struct {
	Enable   bool   `mapstructure:"enable"`   // enable caching
	Type     string `mapstructure:"type"`     // memory or redis
	Address  string `mapstructure:"address"`  // redis address
	Password string `mapstructure:"password"` // redis password
	DB       int    `mapstructure:"db"`       // redis database
	TTL      int    `mapstructure:"ttl"`      // cache TTL in seconds
}

// QueueConfig holds the task queue settings
type QueueConfig struct {
	Enable        bool   `mapstructure:"enable"`         // enable async processing
	Type          string `mapstructure:"type"`           // queue backend, redis
	RedisAddr     string `mapstructure:"redis_addr"`     // redis address
	RedisPassword string `mapstructure:"redis_password"` // redis password
	RedisDB       int    `mapstructure:"redis_db"`       // redis database
	Concurrency   int    `mapstructure:"concurrency"`    // worker concurrency
	RetryLimit    int    `mapstructure:"retry_limit"`    // max retries per task
	RetryDelay    int    `mapstructure:"retry_delay"`    // retry delay in seconds
}

// SplitConfig holds the default split parameters
type SplitConfig struct {
	TestSize  float64 `mapstructure:"test_size"`  // claim share routed to test, in (0, 1)
	KeepRatio bool    `mapstructure:"keep_ratio"` // preserve the global claim-doc ratio
	Seed      int64   `mapstructure:"seed"`       // shuffle seed
}

// LogConfig holds the logging settings
type LogConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	File       string `mapstructure:"file"`        // log file path, empty for stdout
	MaxSizeMB  int    `mapstructure:"max_size_mb"` // rotate after this size
	MaxBackups int    `mapstructure:"max_backups"` // rotated files to keep
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"` // gzip rotated files
}

// Load reads the configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	var config Config

	if configPath == "" {
		configPath = "config.yaml"
	}

	v := viper.New()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		// Missing file falls back to defaults and writes them out.
		if _, ok := err.(*os.PathError); ok {
			log.Printf("Warning: Config file not found at %s, using defaults", configPath)
			setDefaults(v)
			dir := filepath.Dir(configPath)
			if err := os.MkdirAll(dir, 0755); err == nil {
				if err := v.WriteConfigAs(configPath); err != nil {
					log.Printf("Warning: Could not write default config to %s: %v", configPath, err)
				}
			}
		} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("Warning: Config file not found at %s, using defaults", configPath)
			setDefaults(v)
		} else {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}
	} else {
		log.Printf("Using config file: %s", v.ConfigFileUsed())
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %v", err)
	}

	if config.Split.TestSize <= 0 || config.Split.TestSize >= 1 {
		return nil, fmt.Errorf("split.test_size must be in the open interval (0, 1), got %v", config.Split.TestSize)
	}

	return &config, nil
}

// setDefaults installs the default values
func setDefaults(v *viper.Viper) {
	// server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	// storage
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.path", "./uploads")
	v.SetDefault("storage.bucket", "claimpt")
	v.SetDefault("storage.use_ssl", false)

	// database
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "data/claimpt.db")

	// cache
	v.SetDefault("cache.enable", true)
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", 86400) // one day

	// queue
	v.SetDefault("queue.enable", false)
	v.SetDefault("queue.type", "redis")
	v.SetDefault("queue.redis_addr", "localhost:6379")
	v.SetDefault("queue.redis_db", 0)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.retry_limit", 3)
	v.SetDefault("queue.retry_delay", 60)

	// split parameters, matching the command line defaults
	v.SetDefault("split.test_size", 0.20)
	v.SetDefault("split.keep_ratio", false)
	v.SetDefault("split.seed", 42)

	// logging
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", true)
}
