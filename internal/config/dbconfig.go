package config

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	DBDriverSQLite   = "sqlite"
	DBDriverPostgres = "postgres"
)

type DBConfig struct {
	DBDriver     string `env:"DB_DRIVER,default=sqlite"`
	DBUser       string `env:"DB_USER"`
	DBPassword   string `env:"DB_PASSWORD"`
	DBName       string `env:"DB_NAME,default=omnik"`
	DBHost       string `env:"DB_HOST,default=localhost"`
	DBReaderHost string `env:"DB_READER_HOST"`
}

func NewDBConfig(ctx context.Context, envpath string) (*DBConfig, error) {
	if envpath != "" {
		log.Default().Println("loading env from file: ", envpath)
		err := godotenv.Load(envpath)
		if err != nil {
			return nil, err
		}
	}

	cfg := &DBConfig{}
	err := envconfig.Process(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.DBReaderHost == "" {
		cfg.DBReaderHost = cfg.DBHost
	}

	return cfg, nil
}
