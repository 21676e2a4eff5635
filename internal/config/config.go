package config

import (
	"fmt"
	"time"

	"github.com/gotify/configor"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config is the whole runtime configuration. Values come from config.yml (optional),
// then environment variables, then the defaults in the tags.
type Config struct {
	App struct {
		Port        int      `default:"8080" env:"PORT"`
		Mode        string   `default:"debug" env:"GIN_MODE"`
		CORSOrigins []string `default:"[http://localhost:5173, http://127.0.0.1:5173]" env:"CORS_ORIGINS"`
	}
	Database struct {
		Host           string `default:"localhost" env:"DB_HOST"`
		Port           string `default:"5432" env:"DB_PORT"`
		User           string `default:"postgres" env:"DB_USER"`
		Password       string `default:"postgres" env:"DB_PASSWORD"`
		Name           string `default:"postgres" env:"DB_NAME"`
		SSLMode        string `default:"disable" env:"DB_SSLMODE"`
		MigrateOnStart *bool  `default:"true" env:"DB_MIGRATE_ON_START"`
		DebugMode      *bool  `default:"false" env:"DB_DEBUG_MODE"`
	}
	Auth struct {
		JWTSecret string `default:"" env:"JWT_SECRET"`
	}
	Storage struct {
		Endpoint         string `default:"localhost:9000" env:"S3_ENDPOINT"`
		AccessKeyID      string `default:"" env:"S3_ACCESS_KEY_ID"`
		SecretAccessKey  string `default:"" env:"S3_SECRET_ACCESS_KEY"`
		Bucket           string `default:"evidence" env:"S3_BUCKET"`
		Region           string `default:"us-east-1" env:"S3_REGION"`
		UseSSL           *bool  `default:"false" env:"S3_USE_SSL"`
		SignedURLTTLSecs int    `default:"3600" env:"S3_SIGNED_URL_TTL"`
	}
	Log struct {
		Level string `default:"info" env:"LOG_LEVEL"`
	}
	Roles struct {
		Admins     []string `default:"[admin]" env:"ROLES_ADMIN"`
		Approvers  []string `default:"[ketua]" env:"ROLES_APPROVER"`
		Processors []string `default:"[bendahara]" env:"ROLES_PROCESSOR"`
	}
}

func configFiles() []string {
	return []string{"config.yml"}
}

// Load reads configs/.env into the environment (if present) and fills Config.
func Load() (*Config, error) {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Info("No configs/.env file found, using environment only")
	}

	conf := new(Config)
	if err := configor.New(&configor.Config{}).Load(conf, configFiles()...); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return conf, nil
}

// DSN builds the postgres connection string.
func (c *Config) DSN() string {
	db := c.Database
	return "postgres://" + db.User + ":" + db.Password + "@" + db.Host + ":" + db.Port + "/" + db.Name + "?sslmode=" + db.SSLMode
}

func (c *Config) SignedURLTTL() time.Duration {
	if c.Storage.SignedURLTTLSecs <= 0 {
		return time.Hour
	}
	return time.Duration(c.Storage.SignedURLTTLSecs) * time.Second
}

func (c *Config) IsRelease() bool {
	return c.App.Mode == "release"
}
