package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bassista/go_reel/internal/config"
	"github.com/bassista/go_reel/internal/logger"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const defaultRetryInterval = 5 * time.Second

// ConnectMongo dials MongoDB and pings the primary, retrying every RetryInterval.
// MaxConnectAttempts <= 0 keeps trying until ctx is cancelled.
func ConnectMongo(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongo uri is required")
	}
	log := logger.WithComponent("mongo-connect")

	clientOpts := options.Client().ApplyURI(cfg.URI)
	if cfg.ConnectTimeout > 0 {
		clientOpts.SetConnectTimeout(cfg.ConnectTimeout)
	}
	if cfg.ServerSelectionTimeout > 0 {
		clientOpts.SetServerSelectionTimeout(cfg.ServerSelectionTimeout)
	}

	retry := cfg.RetryInterval
	if retry <= 0 {
		retry = defaultRetryInterval
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		client, err := tryConnect(ctx, clientOpts, cfg.ServerSelectionTimeout)
		if err == nil {
			log.Infof("connected to MongoDB after %d attempt(s)", attempt)
			return client, nil
		}
		lastErr = err
		log.Warnf("MongoDB connection attempt %d failed: %v", attempt, err)

		if cfg.MaxConnectAttempts > 0 && attempt >= cfg.MaxConnectAttempts {
			return nil, fmt.Errorf("connect to mongo after %d attempts: %w", attempt, lastErr)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connect to mongo: %w (last error: %v)", ctx.Err(), lastErr)
		case <-time.After(retry):
		}
	}
}

func tryConnect(ctx context.Context, opts *options.ClientOptions, pingTimeout time.Duration) (*mongo.Client, error) {
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, err
	}

	pctx := ctx
	if pingTimeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, pingTimeout)
		defer cancel()
	}
	if err := client.Ping(pctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, err
	}
	return client, nil
}
