package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/config"
)

const (
	applicationName  = "exam-portal"
	statementTimeout = 15 * time.Second
)

// NewPostgresPool opens the connection pool and blocks until PostgreSQL
// answers or cfg.ConnectRetries pings have failed. Slow or failing queries
// are logged through log; every query is logged at trace level.
func NewPostgresPool(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxDBConns
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute

	rp := poolCfg.ConnConfig.RuntimeParams
	rp["application_name"] = applicationName
	rp["statement_timeout"] = strconv.FormatInt(statementTimeout.Milliseconds(), 10)

	sqlLog := log.With().Str("component", "sql").Logger()
	poolCfg.ConnConfig.Tracer = &tracelog.TraceLog{
		Logger:   queryLogger{sqlLog},
		LogLevel: traceLevel(max(sqlLog.GetLevel(), zerolog.GlobalLevel())),
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pingWithRetry(ctx, log, "postgres", cfg.ConnectRetries, pool.Ping); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info().
		Str("host", poolCfg.ConnConfig.Host).
		Str("database", poolCfg.ConnConfig.Database).
		Int32("max_conns", poolCfg.MaxConns).
		Msg("PostgreSQL connected")
	return pool, nil
}

// queryLogger adapts zerolog to pgx's tracelog.
type queryLogger struct {
	log zerolog.Logger
}

func (q queryLogger) Log(_ context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	var ev *zerolog.Event
	switch level {
	case tracelog.LogLevelError:
		ev = q.log.Error()
	case tracelog.LogLevelWarn:
		ev = q.log.Warn()
	case tracelog.LogLevelInfo:
		ev = q.log.Info()
	case tracelog.LogLevelDebug:
		ev = q.log.Debug()
	default:
		ev = q.log.Trace()
	}
	// Query arguments can carry password hashes.
	delete(data, "args")
	ev.Fields(data).Msg(msg)
}

func traceLevel(l zerolog.Level) tracelog.LogLevel {
	switch {
	case l <= zerolog.TraceLevel:
		return tracelog.LogLevelTrace
	case l == zerolog.DebugLevel:
		return tracelog.LogLevelDebug
	case l == zerolog.InfoLevel:
		// pgx logs every successful query at info; keep those out of the
		// normal log stream.
		return tracelog.LogLevelWarn
	case l == zerolog.WarnLevel:
		return tracelog.LogLevelWarn
	default:
		return tracelog.LogLevelError
	}
}
