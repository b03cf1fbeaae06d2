package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "CERTIFY"

// Config holds all runtime configuration, loaded from the environment.
type Config struct {
	App AppConfig
	DB  DBConfig
	JWT JWTConfig
}

type AppConfig struct {
	Port        string   `envconfig:"CERTIFY_APP_PORT" default:"8080"`
	LogLevel    string   `envconfig:"CERTIFY_LOG_LEVEL" default:"info"`
	LogFormat   string   `envconfig:"CERTIFY_LOG_FORMAT" default:"json"`
	CORSOrigins []string `envconfig:"CERTIFY_CORS_ORIGINS" default:"http://localhost:5173"`
}

type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"`
	Name     string `envconfig:"DB_NAME" default:"postgres"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
}

// DSN assembles the PostgreSQL connection string.
func (d DBConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}

type JWTConfig struct {
	Secret string `envconfig:"JWT_SECRET" default:""`
}

// Load reads configs/.env when present, then parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}
