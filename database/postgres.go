package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"portfolio/api/config"
)

type DBClient struct {
	DB  *sql.DB
	log *zap.Logger
}

func NewPostgresDB(ctx context.Context, cfg config.PostgresConfig, log *zap.Logger) (*DBClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("error opening database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database (ping failed): %w", err)
	}

	log.Info("connected to PostgreSQL")
	return &DBClient{DB: db, log: log}, nil
}

func (c *DBClient) Close() {
	if c.DB == nil {
		return
	}
	if err := c.DB.Close(); err != nil {
		c.log.Warn("error closing PostgreSQL connection", zap.Error(err))
		return
	}
	c.log.Info("PostgreSQL connection closed")
}
