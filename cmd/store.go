package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/buyawarranty/warranty-quote/internal/matrix"
	"github.com/buyawarranty/warranty-quote/internal/pricing"
	"github.com/buyawarranty/warranty-quote/internal/resilience"
	"github.com/buyawarranty/warranty-quote/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "warranty.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		retry := resilience.RetryConfig{
			MaxAttempts:    cfg.Store.ConnectAttempts,
			InitialBackoff: time.Second,
			JitterFraction: 0.25,
			OnRetry:        resilience.RetryLogger("postgres", "connect"),
		}
		return resilience.DoVal(ctx, retry, func(ctx context.Context) (store.Store, error) {
			st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
				MaxConns: cfg.Store.MaxConns,
				MinConns: cfg.Store.MinConns,
			})
			if err != nil {
				return nil, err
			}
			return st, nil
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore opens and migrates the configured store.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// initResolver builds the resolver from the configured pricing source. src is
// only consulted for the "store" source and may be nil otherwise.
func initResolver(ctx context.Context, src matrix.Source) (*pricing.Resolver, error) {
	table, err := matrix.Load(ctx, cfg.Pricing, src)
	if err != nil {
		return nil, err
	}
	return pricing.NewResolver(table), nil
}
