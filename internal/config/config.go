package config

import (
	"fmt"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	JWTExpiryH  int    `env:"JWT_EXPIRY_H" envDefault:"24"`
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`

	// Monetary policy. Amounts are parsed as decimals at startup.
	TransferLimit      string `env:"TRANSFER_LIMIT" envDefault:"2000"`
	DailyTransferLimit string `env:"DAILY_TRANSFER_LIMIT" envDefault:"10000"`
	ReversalWindowS    int    `env:"REVERSAL_WINDOW_S" envDefault:"60"`

	// Bootstrap seeding.
	HouseAccountNumber string `env:"HOUSE_ACCOUNT_NUMBER" envDefault:"0000000001"`
	HouseSeedBalance   string `env:"HOUSE_SEED_BALANCE" envDefault:"10000000"`
	AdminEmail         string `env:"ADMIN_EMAIL" envDefault:"admin@banca.internal"`
	AdminPassword      string `env:"ADMIN_PASSWORD" envDefault:"ADMINB"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}
