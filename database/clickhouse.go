package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"

	"portfolio/api/config"
)

type ClickHouseClient struct {
	Conn clickhouse.Conn
	log  *zap.Logger
}

func NewClickHouseDB(ctx context.Context, cfg config.ClickHouseConfig, version string, log *zap.Logger) (*ClickHouseClient, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("CLICKHOUSE_HOST is not set")
	}

	options := &clickhouse.Options{
		Addr: []string{cfg.Addr()},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		ClientInfo: clickhouse.ClientInfo{
			Products: []struct {
				Name    string
				Version string
			}{{Name: "portfolio-api", Version: version}},
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout:     5 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse via Native TCP: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := conn.Ping(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	log.Info("connected to ClickHouse", zap.String("addr", cfg.Addr()), zap.String("database", cfg.Database))
	return &ClickHouseClient{Conn: conn, log: log}, nil
}

func (c *ClickHouseClient) Close() {
	if c.Conn == nil {
		return
	}
	if err := c.Conn.Close(); err != nil {
		c.log.Warn("error closing ClickHouse connection", zap.Error(err))
		return
	}
	c.log.Info("ClickHouse connection closed")
}
