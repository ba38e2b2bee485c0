package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
)

type StoreBackend string

const (
	StoreFile   StoreBackend = "file"
	StoreSQLite StoreBackend = "sqlite"
)

type Config struct {
	TelegramBotToken string  `env:"TELEGRAM_BOT_TOKEN,required"`
	AllowedUsers     []int64 `env:"ALLOWED_USERS" envSeparator:":"`
	AdminUserID      int64   `env:"ADMIN_USER"`

	// Nutrition API
	APIBaseURL string        `env:"API_BASE_URL" envDefault:"http://localhost:8000"`
	APITimeout time.Duration `env:"API_TIMEOUT" envDefault:"30s"`

	// Local storage
	StoreBackend      StoreBackend `env:"STORE_BACKEND" envDefault:"file"`
	StoreFilePath     string       `env:"STORE_FILE_PATH" envDefault:"data/local_store.json"`
	SQLitePath        string       `env:"SQLITE_PATH" envDefault:"data/local_store.db"`
	AllowlistFilePath string       `env:"ALLOWLIST_FILE_PATH" envDefault:"data/allowlist.json"`

	// Meal plan PDFs are saved here before being sent back
	DownloadDir string `env:"DOWNLOAD_DIR" envDefault:"data/downloads"`

	// Daily meal reminder, cron spec in UTC
	ReminderCron string `env:"REMINDER_CRON" envDefault:"0 9 * * *"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func New() *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}
