package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPath = ".env"

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// Поддерживаемые драйверы хранилища.
const (
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

type Config struct {
	Env     string
	DB      db
	Storage storage
	Server  server
	Sync    sync
	Logger  logger
}

type db struct {
	DatabaseURI string `env:"DATABASE_URI"`
	Migrations  string `env:"MIGRATIONS_PATH"`
}

type storage struct {
	Driver     string `env:"STORAGE_DRIVER"`
	SQLitePath string `env:"SQLITE_PATH"`
}

type server struct {
	RunAddress string `env:"RUN_ADDRESS"`
}

type sync struct {
	ConflictWindowSeconds int `env:"SYNC_CONFLICT_WINDOW_SECONDS"`
	PresenceTTLSeconds    int `env:"SYNC_PRESENCE_TTL_SECONDS"`
	CleanupAfterDays      int `env:"SYNC_CLEANUP_AFTER_DAYS"`
	ChangesLimit          int `env:"SYNC_CHANGES_LIMIT"`
}

type logger struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

type defaultConfig struct {
	Env                   string
	DatabaseURI           string
	Migrations            string
	StorageDriver         string
	SQLitePath            string
	RunAddress            string
	ConflictWindowSeconds int
	PresenceTTLSeconds    int
	CleanupAfterDays      int
	ChangesLimit          int
	LogLevel              string
}

// MustLoad читает конфигурацию из .env файла и переменных окружения.
// Отсутствие .env не является ошибкой: значения берутся из окружения.
func MustLoad() *Config {
	path := os.Getenv("ENV_PATH")
	if path == "" {
		path = envPath
	}

	if err := godotenv.Load(path); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	viper.AutomaticEnv()
	d := defaultConfig{
		Env:                   viper.GetString("app_env"),
		DatabaseURI:           viper.GetString("database_uri"),
		Migrations:            viper.GetString("migrations_path"),
		StorageDriver:         viper.GetString("storage_driver"),
		SQLitePath:            viper.GetString("sqlite_path"),
		RunAddress:            viper.GetString("run_address"),
		ConflictWindowSeconds: viper.GetInt("sync_conflict_window_seconds"),
		PresenceTTLSeconds:    viper.GetInt("sync_presence_ttl_seconds"),
		CleanupAfterDays:      viper.GetInt("sync_cleanup_after_days"),
		ChangesLimit:          viper.GetInt("sync_changes_limit"),
		LogLevel:              viper.GetString("log_level"),
	}

	if d.Env == "" {
		d.Env = EnvLocal
	}
	if d.Migrations == "" {
		d.Migrations = "migrations"
	}
	if d.StorageDriver == "" {
		d.StorageDriver = StoragePostgres
	}
	if d.SQLitePath == "" {
		d.SQLitePath = "termsync.db"
	}
	if d.RunAddress == "" {
		d.RunAddress = ":8080"
	}
	if d.ConflictWindowSeconds <= 0 {
		d.ConflictWindowSeconds = 5
	}
	if d.PresenceTTLSeconds <= 0 {
		d.PresenceTTLSeconds = 3600
	}
	if d.CleanupAfterDays <= 0 {
		d.CleanupAfterDays = 30
	}
	if d.ChangesLimit <= 0 {
		d.ChangesLimit = 500
	}
	if d.LogLevel == "" {
		d.LogLevel = "info"
	}

	config := Config{
		Env: d.Env,
		DB: db{
			DatabaseURI: d.DatabaseURI,
			Migrations:  d.Migrations,
		},
		Storage: storage{
			Driver:     d.StorageDriver,
			SQLitePath: d.SQLitePath,
		},
		Server: server{RunAddress: d.RunAddress},
		Sync: sync{
			ConflictWindowSeconds: d.ConflictWindowSeconds,
			PresenceTTLSeconds:    d.PresenceTTLSeconds,
			CleanupAfterDays:      d.CleanupAfterDays,
			ChangesLimit:          d.ChangesLimit,
		},
		Logger: logger{LogLevel: d.LogLevel},
	}

	return &config
}
