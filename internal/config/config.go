package config

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	ChainID    int64  `env:"CHAIN_ID,default=1337"`
	APIKEY     string `env:"API_KEY"`
	SentryURL  string `env:"SENTRY_URL"`
	DiscordURL string `env:"DISCORD_URL"`
	Notify     bool   `env:"NOTIFY,default=false"`

	Genesis *Genesis
}

func New(ctx context.Context, envpath, confpath string) (*Config, error) {
	if envpath != "" {
		log.Default().Println("loading env from file: ", envpath)
		err := godotenv.Load(envpath)
		if err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	err := envconfig.Process(ctx, cfg)
	if err != nil {
		return nil, err
	}

	g, err := LoadGenesis(fmt.Sprintf("%s/genesis.json", confpath))
	if err != nil {
		return nil, err
	}

	if g.ChainID == 0 {
		g.ChainID = cfg.ChainID
	}

	if g.ChainID != cfg.ChainID {
		return nil, fmt.Errorf("genesis chain id %d does not match CHAIN_ID %d", g.ChainID, cfg.ChainID)
	}

	cfg.Genesis = g

	return cfg, nil
}
