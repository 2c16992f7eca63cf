package pg

import (
	"context"

	"github.com/code19m/errx"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool opens a pgx connection pool for the given configuration.
func NewPool(cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := cfg.poolConfig()
	if err != nil {
		return nil, errx.Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, errx.Wrap(err)
	}

	return pool, nil
}

// poolConfig translates the Config into pgxpool settings.
func (c Config) poolConfig() (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(c.dsn())
	if err != nil {
		return nil, err
	}

	poolCfg.MaxConns = c.PoolMaxConns
	poolCfg.MinConns = c.PoolMinConns
	poolCfg.MaxConnLifetime = c.PoolMaxConnLifetime
	poolCfg.MaxConnIdleTime = c.PoolMaxConnIdleTime

	return poolCfg, nil
}
