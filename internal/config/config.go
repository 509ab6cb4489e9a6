package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	defaultPath = "config/config.yaml"
	envPrefix   = "EVENTCRM"
)

type FilesConfig struct {
	RootDir  string `yaml:"root_dir"`
	FontPath string `yaml:"font_path"`
}

type EmailConfig struct {
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	FromEmail    string `yaml:"from_email"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
}

// NotificationsConfig seeds the notification settings until an admin saves their own.
type NotificationsConfig struct {
	EmailEnabled             bool     `yaml:"email_enabled"`
	TelegramEnabled          bool     `yaml:"telegram_enabled"`
	ManagementSummaryEnabled bool     `yaml:"management_summary_enabled"`
	ManagementEmails         []string `yaml:"management_emails"`
	ManagementTelegramChatID int64    `yaml:"management_telegram_chat_id"`
	Workers                  int      `yaml:"workers"`
}

type RemindersConfig struct {
	MorningHour      int           `yaml:"morning_hour"`
	MorningMinute    int           `yaml:"morning_minute"`
	Timezone         string        `yaml:"timezone"`
	DispatchInterval time.Duration `yaml:"dispatch_interval"`
	BatchSize        int           `yaml:"batch_size"`
	MaxLateness      time.Duration `yaml:"max_lateness"`
	Disabled         bool          `yaml:"disabled"`
}

// Location resolves Timezone, falling back to UTC.
func (r RemindersConfig) Location() *time.Location {
	if r.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`
	Email         EmailConfig         `yaml:"email"`
	Telegram      TelegramConfig      `yaml:"telegram"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Reminders     RemindersConfig     `yaml:"reminders"`
	Files         FilesConfig         `yaml:"files"`
	Auth          AuthConfig          `yaml:"auth"`
}

// envOverrides are the secrets and deployment knobs that may come from the environment.
// Empty values leave the file setting alone.
type envOverrides struct {
	Port          int    `envconfig:"PORT"`
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	SMTPPassword  string `envconfig:"SMTP_PASSWORD"`
	TelegramToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	JWTSecret     string `envconfig:"JWT_SECRET"`
}

// Load reads the YAML file at path, applies environment overrides and fills defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	cfg.applyEnv(env)
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadConfig loads config/config.yaml and panics on failure.
func LoadConfig() *Config {
	cfg, err := Load(defaultPath)
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}
	return cfg
}

func (c *Config) applyEnv(env envOverrides) {
	if env.Port != 0 {
		c.Server.Port = env.Port
	}
	if env.DatabaseURL != "" {
		c.Database.DSN = env.DatabaseURL
	}
	if env.SMTPPassword != "" {
		c.Email.SMTPPassword = env.SMTPPassword
	}
	if env.TelegramToken != "" {
		c.Telegram.BotToken = env.TelegramToken
	}
	if env.JWTSecret != "" {
		c.Auth.JWTSecret = env.JWTSecret
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 4000
	}
	if c.Files.RootDir == "" {
		c.Files.RootDir = "./files"
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.Notifications.Workers <= 0 {
		c.Notifications.Workers = 4
	}
	if c.Reminders.MorningHour == 0 && c.Reminders.MorningMinute == 0 {
		c.Reminders.MorningHour = 8
	}
	if c.Reminders.DispatchInterval <= 0 {
		c.Reminders.DispatchInterval = time.Minute
	}
	if c.Reminders.BatchSize <= 0 {
		c.Reminders.BatchSize = 100
	}
	if c.Reminders.MaxLateness <= 0 {
		c.Reminders.MaxLateness = 12 * time.Hour
	}
}
