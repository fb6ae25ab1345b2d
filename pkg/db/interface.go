package db

import (
	"database/sql"
	"time"
)

// DBProvider is an interface for database clients that provide access to a sql.DB handle.
// This allows both PostgresClient and SupabaseClient to be used interchangeably.
type DBProvider interface {
	DB() *sql.DB
}

// PoolConfig holds optional sql.DB pool tuning. Zero values keep the driver defaults.
type PoolConfig struct {
	MaxOpenConns int
	MaxIdleConns int
	ConnMaxIdle  time.Duration
	ConnMaxLife  time.Duration
}

func (p PoolConfig) apply(db *sql.DB) {
	if p.MaxOpenConns > 0 {
		db.SetMaxOpenConns(p.MaxOpenConns)
	}
	if p.MaxIdleConns > 0 {
		db.SetMaxIdleConns(p.MaxIdleConns)
	}
	if p.ConnMaxIdle > 0 {
		db.SetConnMaxIdleTime(p.ConnMaxIdle)
	}
	if p.ConnMaxLife > 0 {
		db.SetConnMaxLifetime(p.ConnMaxLife)
	}
}
