package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"album-engine/internal/database"
	"album-engine/internal/engine"
	"album-engine/internal/events"
	"album-engine/internal/logging"
	"album-engine/internal/startup"
)

// shutdownTimeout bounds waiting for running tasks on exit.
const shutdownTimeout = 30 * time.Second

// app is an engine opened for one command.
type app struct {
	cfg *startup.Config
	db  *database.Database
	eng *engine.Engine
}

// openApp loads quiet configuration, opens the database and starts an
// engine. Extra options are passed to the engine.
func openApp(ctx context.Context, opts ...engine.Option) (*app, error) {
	cfg, err := startup.LoadConfigQuiet()
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	db, err := database.New(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	eng := engine.New(engineConfig(cfg), db, opts...)
	return &app{cfg: cfg, db: db, eng: eng}, nil
}

func engineConfig(cfg *startup.Config) engine.Config {
	return engine.Config{
		TrashDir:        cfg.TrashDir,
		ImportDir:       cfg.ImportDir,
		PoolWorkers:     cfg.PoolWorkers,
		PoolIdleTimeout: cfg.PoolIdleTimeout,
		PageSize:        cfg.PageSize,
	}
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.eng.Shutdown(ctx); err != nil {
		logging.Warn("engine shutdown: %v", err)
	}
	if err := a.db.Close(); err != nil {
		logging.Warn("failed to close database: %v", err)
	}
}

// await reads events until done reports true. WaitingRequested events
// drive the spinner; ImportCompleted events are delivered to their
// listener first.
func (a *app) await(ctx context.Context, stderr io.Writer, done func(events.Event) (bool, error)) error {
	sp := newSpinner(stderr)
	defer sp.stop()

	for {
		select {
		case <-ctx.Done():
			a.eng.RequestStop()
			return ctx.Err()
		case ev, ok := <-a.eng.Events():
			if !ok {
				return engine.ErrShutdown
			}
			switch e := ev.(type) {
			case events.WaitingRequested:
				if e.Progress {
					sp.start(e.Message)
				}
				continue
			case events.ImportCompleted:
				a.eng.Deliver(e)
			}
			finished, err := done(ev)
			if finished {
				return err
			}
		}
	}
}
