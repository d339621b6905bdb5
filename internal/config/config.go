package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	DBHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DBPort     string `envconfig:"DATABASE_PORT" default:"5432"`
	DBUser     string `envconfig:"DATABASE_USER" default:"postgres"`
	DBPassword string `envconfig:"DATABASE_PASSWORD" default:"password"`
	DBName     string `envconfig:"DATABASE_NAME" default:"vending"`

	ServerPort string `envconfig:"SERVER_PORT" default:"8080"`
	JWTSecret  string `envconfig:"JWT_SECRET" default:"mysecret"`
}

func NewConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}
