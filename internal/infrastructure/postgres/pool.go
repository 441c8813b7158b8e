package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jhoicas/epp-ledger/pkg/config"
)

const (
	defaultMaxConns = 25
	pingAttempts    = 5
	pingBackoff     = 500 * time.Millisecond
)

// NewPool abre el pool del ledger. Todas las sesiones corren en UTC (las fechas de ingreso son DATE)
// y con application_name = appName para identificarlas en pg_stat_activity.
func NewPool(ctx context.Context, cfg config.DBConfig, appName string) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	pc.MaxConns = int32(maxConns)
	pc.MinConns = int32(min(2, maxConns))
	pc.MaxConnIdleTime = 15 * time.Minute
	pc.HealthCheckPeriod = 30 * time.Second

	rp := pc.ConnConfig.RuntimeParams
	rp["timezone"] = "UTC"
	if appName != "" {
		rp["application_name"] = appName
	}

	// NUMERIC <-> decimal.Decimal en cada conexión.
	pc.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("crear pool: %w", err)
	}
	if err := ping(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// ping espera a que la base responda, con backoff lineal.
func ping(ctx context.Context, pool *pgxpool.Pool) error {
	var err error
	for i := 1; i <= pingAttempts; i++ {
		if err = pool.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("ping DB: %w", ctx.Err())
		case <-time.After(time.Duration(i) * pingBackoff):
		}
	}
	return fmt.Errorf("ping DB tras %d intentos: %w", pingAttempts, err)
}
