package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// minutesPerDay bounds draw modes: every mode must tile a day exactly.
const minutesPerDay = 1440

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Draw        DrawConfig
	AdminSecret string
	LogLevel    string
}

type ServerConfig struct {
	Host string
	Port string
}

func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

type DatabaseConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	AutoMigrate bool
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

// DrawConfig drives the settlement scheduler.
type DrawConfig struct {
	Modes         []int
	Tick          string
	LookbackSlots int
}

// env maps config keys to the environment variables that override them.
var env = map[string]string{
	"server.host":         "HOST",
	"server.port":         "PORT",
	"db.host":             "DB_HOST",
	"db.port":             "DB_PORT",
	"db.user":             "DB_USER",
	"db.password":         "DB_PASSWORD",
	"db.name":             "DB_NAME",
	"db.sslmode":          "DB_SSLMODE",
	"db.auto_migrate":     "DB_AUTO_MIGRATE",
	"admin.secret":        "ADMIN_SECRET",
	"draw.modes":          "DRAW_MODES",
	"draw.tick":           "DRAW_TICK",
	"draw.lookback_slots": "DRAW_LOOKBACK_SLOTS",
	"log.level":           "LOG_LEVEL",
}

// Load loads configuration from an optional config.yaml and the environment.
// Environment variables win over the file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)
	for key, name := range env {
		if err := v.BindEnv(key, name); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	modes, err := ParseModes(v.GetString("draw.modes"))
	if err != nil {
		return nil, err
	}

	tick := v.GetString("draw.tick")
	if _, err := cron.ParseStandard(tick); err != nil {
		return nil, fmt.Errorf("invalid DRAW_TICK %q: %w", tick, err)
	}

	lookback := v.GetInt("draw.lookback_slots")
	if lookback < 1 {
		return nil, fmt.Errorf("invalid DRAW_LOOKBACK_SLOTS %d: must be at least 1", lookback)
	}

	return &Config{
		Server: ServerConfig{
			Host: v.GetString("server.host"),
			Port: v.GetString("server.port"),
		},
		Database: DatabaseConfig{
			Host:        v.GetString("db.host"),
			Port:        v.GetString("db.port"),
			User:        v.GetString("db.user"),
			Password:    v.GetString("db.password"),
			Name:        v.GetString("db.name"),
			SSLMode:     v.GetString("db.sslmode"),
			AutoMigrate: v.GetBool("db.auto_migrate"),
		},
		Draw: DrawConfig{
			Modes:         modes,
			Tick:          tick,
			LookbackSlots: lookback,
		},
		AdminSecret: v.GetString("admin.secret"),
		LogLevel:    v.GetString("log.level"),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "3000")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.auto_migrate", false)
	v.SetDefault("draw.modes", "5,10,15")
	v.SetDefault("draw.tick", "@every 10s")
	v.SetDefault("draw.lookback_slots", 2)
	v.SetDefault("log.level", "info")
}

// ParseModes parses a comma separated list of draw intervals in minutes.
// Duplicates are collapsed; every mode must divide a day evenly.
func ParseModes(raw string) ([]int, error) {
	var modes []int
	seen := map[int]bool{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		m, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid draw mode %q: %w", part, err)
		}
		if m <= 0 || minutesPerDay%m != 0 {
			return nil, fmt.Errorf("invalid draw mode %d: must be a positive divisor of %d", m, minutesPerDay)
		}
		if !seen[m] {
			seen[m] = true
			modes = append(modes, m)
		}
	}
	if len(modes) == 0 {
		return nil, errors.New("no draw modes configured")
	}
	return modes, nil
}
