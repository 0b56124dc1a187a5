package db

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats is the pool section of the /health/db response.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
}

func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
	}
}

// HealthReport is the body of GET /health/db.
type HealthReport struct {
	Status        string     `json:"status"`
	Error         string     `json:"error,omitempty"`
	SchemaVersion int        `json:"schema_version"`
	LatestVersion int        `json:"latest_version"`
	Pending       int        `json:"pending_migrations"`
	Pool          *PoolStats `json:"pool,omitempty"`
}

// Checker is what the health check needs from the database.
type Checker interface {
	Ping(ctx context.Context) error
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// SchemaVersion returns the highest applied migration, or 0 on a database
// that has never been migrated.
func SchemaVersion(ctx context.Context, q Checker) (int, error) {
	var version int
	err := q.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	if err != nil {
		var missing bool
		if qerr := q.QueryRow(ctx, `SELECT to_regclass('schema_migrations') IS NULL`).Scan(&missing); qerr == nil && missing {
			return 0, nil
		}
		return 0, err
	}
	return version, nil
}

// HealthHandler pings the database and compares the applied schema version
// with the newest migration the binary ships. A database that is reachable
// but behind reports "degraded" with status 200.
func HealthHandler(pool *pgxpool.Pool, migrations []Migration) echo.HandlerFunc {
	if pool == nil {
		return func(c echo.Context) error {
			return c.JSON(http.StatusServiceUnavailable, HealthReport{Status: "unhealthy", Error: "database not configured"})
		}
	}
	return healthHandler(pool, migrations, func() *PoolStats { return GetPoolStats(pool) })
}

func healthHandler(db Checker, migrations []Migration, stats func() *PoolStats) echo.HandlerFunc {
	latest := 0
	if n := len(migrations); n > 0 {
		latest = migrations[n-1].Version
	}
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		report := HealthReport{Status: "healthy", LatestVersion: latest, Pool: stats()}
		err := db.Ping(ctx)
		if err == nil {
			report.SchemaVersion, err = SchemaVersion(ctx, db)
		}
		if err != nil {
			report.Status = "unhealthy"
			report.Error = err.Error()
			if errors.Is(err, context.DeadlineExceeded) {
				report.Error = "database did not answer in time"
			}
			return c.JSON(http.StatusServiceUnavailable, report)
		}

		for _, m := range migrations {
			if m.Version > report.SchemaVersion {
				report.Pending++
			}
		}
		if report.Pending > 0 {
			report.Status = "degraded"
		}
		return c.JSON(http.StatusOK, report)
	}
}
