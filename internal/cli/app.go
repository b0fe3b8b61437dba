package cli

import (
	"context"
	"fmt"

	"github.com/roach88/hull/internal/archive"
	"github.com/roach88/hull/internal/board"
	"github.com/roach88/hull/internal/config"
	"github.com/roach88/hull/internal/metrics"
	"github.com/roach88/hull/internal/notify"
	"github.com/roach88/hull/internal/replay"
	"github.com/roach88/hull/internal/store"
)

// app is everything a command needs, built from RootOptions.
type app struct {
	store      *store.Store
	gateway    *board.Gateway
	engine     *replay.Engine
	dispatcher *notify.Dispatcher
}

// openApp opens the database and starts the hook dispatcher. close drains
// pending hooks before closing the database.
func openApp(ctx context.Context, opts *RootOptions, rec metrics.Recorder) (*app, error) {
	st, err := store.Open(opts.Config.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	d := newDispatcher(opts.Config.Hooks, opts)
	d.Start(ctx)

	a := &app{
		store:      st,
		dispatcher: d,
		gateway: board.New(st,
			board.WithNotifier(d),
			board.WithMetrics(rec),
			board.WithLogger(opts.Logger),
		),
		engine: replay.NewEngine(st,
			replay.WithOptions(opts.Config.ReplayOptions()),
			replay.WithNotifier(d),
			replay.WithMetrics(rec),
			replay.WithLogger(opts.Logger),
		),
	}
	return a, nil
}

func (a *app) close() {
	a.dispatcher.Close()
	a.store.Close()
}

func newDispatcher(h config.HooksConfig, opts *RootOptions) *notify.Dispatcher {
	d := notify.NewDispatcher(h.Buffer,
		notify.WithLogger(opts.Logger),
		notify.WithHookTimeout(h.Timeout.Std()),
	)
	routes := map[notify.Topic][]string{
		notify.TopicGroupReassigned: h.GroupReassigned,
		notify.TopicEmergencyBlow:   h.EmergencyBlow,
		notify.TopicRewound:         h.Rewound,
	}
	for topic, argv := range routes {
		if len(argv) > 0 {
			d.Subscribe(topic, notify.CommandHook{Argv: argv})
		}
	}
	return d
}

// openSink returns the configured archive sink, preferring S3.
func openSink(ctx context.Context, cfg config.ArchiveConfig) (archive.Sink, error) {
	switch {
	case cfg.S3 != nil:
		return archive.NewS3Sink(ctx, *cfg.S3)
	case cfg.Dir != "":
		return archive.NewDirSink(cfg.Dir)
	default:
		return nil, fmt.Errorf("no archive destination configured (set archive.dir or archive.s3)")
	}
}
