package config

import (
	"os"
	"sync"
)

const (
	StoreDriverREST     = "rest"
	StoreDriverPostgres = "postgres"
)

type DBConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

var (
	dbConfig *DBConfig
	dbOnce   sync.Once
)

func LoadDBConfig() *DBConfig {
	dbOnce.Do(func() {
		dbConfig = &DBConfig{
			Driver:   getEnv("STORE_DRIVER", StoreDriverREST),
			Host:     os.Getenv("DB_HOST"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			SSLMode:  getEnv("DB_SSLMODE", "require"),
		}
	})
	return dbConfig
}
