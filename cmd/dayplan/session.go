package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arthur-debert/dayplan/dayplan"
	"github.com/arthur-debert/dayplan/dayplan/engine"
	"github.com/arthur-debert/dayplan/dayplan/persist"
	"github.com/arthur-debert/dayplan/dayplan/undo"
	"github.com/arthur-debert/dayplan/types"
)

// session is an open engine plus everything it depends on. One-shot
// commands open and close one; the shell keeps one for its lifetime.
type session struct {
	cfg       Config
	eng       *engine.Engine
	logger    *slog.Logger
	debouncer *persist.Debouncer
	closers   []io.Closer
	loaded    map[types.Date]bool
}

// openSession wires logger, gateway, cache and engine, then loads the
// configured range
func openSession(ctx context.Context, cfg Config, out, stderr io.Writer, now func() time.Time) (*session, error) {
	var logErr io.Writer
	if cfg.LogStderr {
		logErr = stderr
	}
	logger, logFile, err := initLogging(cfg.LogLevel, logErr)
	if err != nil {
		return nil, NewConfigError("start", err.Error(), "Check that the cache directory is writable")
	}
	s := &session{cfg: cfg, logger: logger, closers: []io.Closer{logFile}, loaded: make(map[types.Date]bool)}

	gw, gwCloser, err := dayplan.OpenGateway(ctx, dayplan.BackendOptions{
		Backend: cfg.Backend,
		Path:    cfg.DB,
		DSN:     cfg.DSN,
		Logger:  logger,
	})
	if err != nil {
		s.closeAll()
		return nil, NewBackendError("open the database", err, CommonSuggestions.CheckDB)
	}
	s.closers = append(s.closers, gwCloser)

	hooks := engine.Hooks{
		TaskCompleted: func(t types.Task) {
			fmt.Fprintf(out, "Completed %q\n", t.Title)
		},
		DayCompleted: func(d types.Date) {
			fmt.Fprintf(out, "Everything done for %s!\n", dayLabel(d))
		},
	}

	sink := s.openSink()
	if sink != nil {
		s.debouncer = persist.NewDebouncer(sink, func() persist.Snapshot { return persist.Capture(s.eng) },
			persist.WithDelay(cfg.Debounce),
			persist.WithClock(now),
			persist.WithLogger(logger),
		)
		hooks.StoreChanged = s.debouncer.Trigger
	}

	s.eng, err = engine.New(gw, cfg.Owner,
		engine.WithLogger(logger),
		engine.WithHooks(hooks),
		engine.WithClock(now),
		engine.WithSyncTimeout(cfg.SyncTimeout),
		engine.WithUndoManager(undo.NewManager(
			undo.WithTimeout(cfg.UndoTimeout),
			undo.WithClock(now),
			undo.WithLogger(logger),
		)),
	)
	if err != nil {
		s.closeAll()
		return nil, NewConfigError("start", err.Error())
	}

	if sink != nil {
		if _, err := persist.Warm(ctx, sink, s.eng); err != nil {
			logger.Warn("ignoring unreadable snapshot", "error", err)
		}
	}
	if err := s.eng.Load(ctx, cfg.From, cfg.To); err != nil {
		s.close(ctx)
		return nil, NewBackendError("load tasks", err, CommonSuggestions.CheckDB)
	}
	for d := cfg.From; !cfg.To.Before(d); {
		s.loaded[d] = true
		next, err := d.AddDays(1)
		if err != nil {
			break
		}
		d = next
	}
	return s, nil
}

func (s *session) openSink() persist.Sink {
	switch s.cfg.Cache {
	case cacheFile:
		return persist.NewFileSink(s.cfg.CachePath)
	case cacheRedis:
		client := redis.NewClient(&redis.Options{Addr: s.cfg.RedisAddr})
		s.closers = append(s.closers, client)
		return persist.NewRedisSink(client, s.cfg.Owner, 0)
	}
	return nil
}

// ensureLoaded loads days outside the startup range on first use
func (s *session) ensureLoaded(ctx context.Context, dates ...types.Date) error {
	for _, d := range dates {
		if s.loaded[d] {
			continue
		}
		if err := s.eng.Load(ctx, d, d); err != nil {
			return err
		}
		s.loaded[d] = true
	}
	return nil
}

// resolveID accepts a full id or any unique prefix of one
func (s *session) resolveID(operation, ref string) (string, error) {
	tasks := s.eng.View().Tasks()
	var matches []string
	for _, t := range tasks {
		if t.ID == ref {
			return t.ID, nil
		}
		if ref != "" && strings.HasPrefix(t.ID, ref) {
			matches = append(matches, t.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", NewNotFoundError(operation, ref, CommonSuggestions.CheckID, CommonSuggestions.CheckRange)
	case 1:
		return matches[0], nil
	}
	return "", NewValidationError(operation, "id", ref,
		fmt.Sprintf("%q matches %d tasks, use a longer prefix", ref, len(matches)))
}

// task resolves ref and returns the task
func (s *session) task(operation, ref string) (types.Task, error) {
	id, err := s.resolveID(operation, ref)
	if err != nil {
		return types.Task{}, err
	}
	t, _ := s.eng.View().Task(id)
	return t, nil
}

// settle waits for a command's remote half
func settle(operation string, p *engine.Pending, err error) error {
	if err != nil {
		return WrapError(operation, err, CommonSuggestions.RunHelp)
	}
	if err := p.Wait(); err != nil {
		return WrapError(operation, err, "Your local view was restored; try again once the database is reachable")
	}
	return nil
}

// close waits for in-flight syncs, flushes the cache and releases
// everything in reverse order
func (s *session) close(ctx context.Context) {
	if s.eng != nil {
		s.eng.Wait()
	}
	if s.debouncer != nil {
		if err := s.debouncer.Close(ctx); err != nil {
			s.logger.Warn("failed to save snapshot", "error", err)
		}
	}
	if s.eng != nil {
		s.eng.Close()
	}
	s.closeAll()
}

func (s *session) closeAll() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil && s.logger != nil {
			s.logger.Warn("close failed", "error", err)
		}
	}
	s.closers = nil
}
