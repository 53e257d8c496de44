package database

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds database configuration.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// NewConfig creates a new database configuration from the environment.
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// Missing .env is fine; fall back to the environment.
		fmt.Println("Warning: .env file not found")
	}

	return &Config{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "moneta"),
		Password: getEnv("DB_PASSWORD", "moneta"),
		DBName:   getEnv("DB_NAME", "moneta"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// URL returns the postgres:// form used by golang-migrate.
func (c *Config) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
