package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cashbook/internal/amqp"
	"cashbook/internal/credentials"
	"cashbook/internal/storage"
	"cashbook/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// Create builds the store, the credential store and, when configured, the
// event publisher. On error everything already opened is closed.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (res *Result, err error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var closers []func() error
	defer func() {
		if err != nil {
			runClosers(closers)
		}
	}()

	store, err := f.createStore(config)
	if err != nil {
		return nil, err
	}
	closers = append(closers, store.Close)

	creds, closeCreds, err := f.createCredentials(ctx, config, store)
	if err != nil {
		return nil, err
	}
	if closeCreds != nil {
		closers = append(closers, closeCreds)
	}

	res = &Result{Store: store, Credentials: creds}
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without ledger events", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			res.Publisher = client
			closers = append(closers, client.Close)
		}
	}

	res.Cleanup = func() error { return runClosers(closers) }
	f.logger.Info("Backend ready",
		"data", config.Data,
		"credentials", config.Credentials,
		"ledger_events", res.Publisher != nil)
	return res, nil
}

func (f *DefaultFactory) createStore(config Config) (Store, error) {
	switch config.Data {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)
		return repo, nil
	default:
		f.logger.Warn("Using in-memory store, data is lost on restart")
		return memory.New(), nil
	}
}

func (f *DefaultFactory) createCredentials(ctx context.Context, config Config, store Store) (credentials.Store, func() error, error) {
	switch config.Credentials {
	case RedisBackend:
		client, err := credentials.NewRedisClient(config.RedisAddr, config.RedisPassword, config.RedisDB)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize redis credentials: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized redis credential store", "addr", config.RedisAddr)
		return credentials.NewRedisStore(client), client.Close, nil
	case SQLiteBackend:
		cs, ok := store.(credentials.Store)
		if !ok {
			return nil, nil, errors.New("store does not keep credentials")
		}
		return cs, nil, nil
	default:
		if ms, ok := store.(*memory.Store); ok {
			return ms, nil, nil
		}
		return memory.New(), nil, nil
	}
}

// runClosers closes in reverse order of opening.
func runClosers(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
