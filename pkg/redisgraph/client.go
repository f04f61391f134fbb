// Package redisgraph sends queries to RESP-speaking graph servers such as
// FalkorDB or RedisGraph through the GRAPH.QUERY command.
package redisgraph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/orneryd/cypherfuzz/pkg/fuzz"
)

// Config holds connection settings for the graph server.
type Config struct {
	Address  string
	Password string
	Graph    string
	Timeout  time.Duration
	PoolSize int
}

// Client executes queries against one named graph.
type Client struct {
	client *redis.Client
	graph  string
	log    *logrus.Entry
}

// New creates a client and checks that the server answers PING.
func New(ctx context.Context, cfg Config, log *logrus.Entry) (*Client, error) {
	if cfg.Graph == "" {
		cfg.Graph = "fuzz"
	}
	if log == nil {
		log = logrus.WithField("component", "redisgraph")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach %s: %w", cfg.Address, err)
	}
	return &Client{
		client: client,
		graph:  cfg.Graph,
		log:    log.WithFields(logrus.Fields{"address": cfg.Address, "graph": cfg.Graph}),
	}, nil
}

// Execute runs GRAPH.QUERY in compact mode. A server error reply is the
// query's outcome; only connection problems are returned as errors.
func (c *Client) Execute(ctx context.Context, query string) (fuzz.Outcome, error) {
	res, err := c.client.Do(ctx, "GRAPH.QUERY", c.graph, query, "--compact").Result()
	if err != nil {
		var rerr redis.Error
		if errors.As(err, &rerr) && !errors.Is(err, redis.Nil) {
			c.log.WithField("error", err.Error()).Trace("query rejected")
			return fuzz.Outcome{Errors: []string{err.Error()}}, nil
		}
		return fuzz.Outcome{}, fmt.Errorf("GRAPH.QUERY failed: %w", err)
	}
	return fuzz.Outcome{Rows: rowCount(res)}, nil
}

// rowCount reads a compact reply: [header, rows, statistics] for queries that
// return data, [statistics] otherwise.
func rowCount(res any) int {
	parts, ok := res.([]any)
	if !ok || len(parts) < 3 {
		return 0
	}
	rows, _ := parts[1].([]any)
	return len(rows)
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.client.Close()
}
