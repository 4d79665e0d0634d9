package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
)

var (
	once    sync.Once
	pool    *sql.DB
	initErr error
)

// Init opens the process-wide pool on first use and bootstraps the schema.
// Later calls return the same pool, or the same error if the first attempt
// failed. There is no teardown: the pool lives as long as the container.
func Init(ctx context.Context, databaseURL string, requireTLS bool) (*sql.DB, error) {
	once.Do(func() {
		pool, initErr = open(ctx, databaseURL, requireTLS)
	})
	return pool, initErr
}

func open(ctx context.Context, databaseURL string, requireTLS bool) (*sql.DB, error) {
	dsn, err := BuildDSN(databaseURL, requireTLS)
	if err != nil {
		return nil, fmt.Errorf("error parsing DATABASE_URL: %v", err)
	}

	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error connecting to the database: %v", err)
	}

	if err := createTables(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error creating tables: %v", err)
	}

	return conn, nil
}

// BuildDSN converts a postgres:// URL into a key=value connection string and
// adds an sslmode when the caller did not pick one.
func BuildDSN(databaseURL string, requireTLS bool) (string, error) {
	dsn := strings.TrimSpace(databaseURL)
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		kv, err := pq.ParseURL(dsn)
		if err != nil {
			return "", err
		}
		dsn = kv
	}

	if strings.Contains(dsn, "sslmode=") {
		return dsn, nil
	}

	mode := "disable"
	if requireTLS {
		mode = "require"
	}
	if dsn == "" {
		return "sslmode=" + mode, nil
	}
	return dsn + " sslmode=" + mode, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS allowed_users (
		id SERIAL PRIMARY KEY,
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(255),
		notes TEXT,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS clinic_locations (
		id SERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS appointment (
		id SERIAL PRIMARY KEY,
		appointment_date_time TIMESTAMP WITH TIME ZONE NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'scheduled'
			CHECK (status IN ('scheduled', 'completed', 'cancelled')),
		patient_name VARCHAR(100) NOT NULL,
		patient_phone_number VARCHAR(15),
		clinic_location INTEGER NOT NULL REFERENCES clinic_locations(id),
		diagnosis TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		amount NUMERIC(10, 2) NOT NULL DEFAULT 0,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_by VARCHAR(255)
	)`,
	`CREATE INDEX IF NOT EXISTS appointment_date_time_idx ON appointment (appointment_date_time)`,
}

func createTables(ctx context.Context, conn *sql.DB) error {
	for _, query := range schema {
		if _, err := conn.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}
