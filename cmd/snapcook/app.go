package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdlog "log"

	"github.com/hammamikhairi/snapcook/internal/config"
	"github.com/hammamikhairi/snapcook/internal/conversation"
	"github.com/hammamikhairi/snapcook/internal/domain"
	"github.com/hammamikhairi/snapcook/internal/dualstore"
	"github.com/hammamikhairi/snapcook/internal/engine"
	"github.com/hammamikhairi/snapcook/internal/gpt"
	"github.com/hammamikhairi/snapcook/internal/logger"
	"github.com/hammamikhairi/snapcook/internal/metrics"
	"github.com/hammamikhairi/snapcook/internal/nutrition"
	"github.com/hammamikhairi/snapcook/internal/refresh"
	"github.com/hammamikhairi/snapcook/internal/speech"
	"github.com/hammamikhairi/snapcook/internal/storage"
)

var (
	errNoModel = errors.New("no language model configured: set SNAPCOOK_MODEL_API_KEY (and SNAPCOOK_MODEL_ENDPOINT for openai)")
	errOffline = errors.New("no remote store configured: set SNAPCOOK_STORE_POSTGRES_DSN to sync")
)

// app is every wired component a command may need.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics

	store     *dualstore.Engine
	agent     *gpt.Agent           // nil when no model is configured
	gen       *engine.Orchestrator // nil when no model is configured
	nutrition *nutrition.Service   // nil when no model is configured
	notifier  domain.Notifier
	chime     *speech.ChimeNotifier // nil when chimes are off or no audio device

	// offline is set when the remote store only lives for this run. It
	// holds none of the cached recipes, so it is never pulled from.
	offline bool

	session domain.Session
	closers []io.Closer
}

// newApp wires the stack. printFn receives notifications; nil prints to
// stdout.
func newApp(ctx context.Context, cfg *config.Config, printFn conversation.PrintFunc) (*app, error) {
	out, closer := logger.OpenOutput(cfg.Log.File, logger.DefaultFileOptions)
	log := logger.New(logger.ParseLevel(cfg.Log.Level), out)

	// Third-party libraries (the whisper transcriber) log through the
	// standard logger; keep them off the terminal.
	stdlog.SetOutput(log.Writer())
	stdlog.SetFlags(stdlog.Ltime)

	a := &app{cfg: cfg, log: log, metrics: metrics.New(nil), closers: []io.Closer{closer}}

	cache, err := storage.OpenSQLiteCache(cfg.Store.SQLitePath, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, cache)

	var remote domain.RemoteStore
	if cfg.Store.PostgresDSN != "" {
		pg, err := storage.OpenPostgresRemote(ctx, cfg.Store.PostgresDSN, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, pg)
		remote = pg
	} else {
		log.Warn("no postgres dsn configured: remote store is in-memory for this run")
		remote = storage.NewMemoryRemote(log)
		a.offline = true
	}

	a.store = dualstore.New(cache, remote, log, dualstore.WithMetrics(a.metrics))
	a.session = a.store.CurrentSession(ctx)
	if a.session.SignedIn {
		a.store.LoadLocal(ctx, a.session.UserID)
	}

	var notifier domain.Notifier = conversation.NewCLINotifier(log, printFn)
	if cfg.Voice.Chime {
		if player, err := speech.NewPlayer(log); err != nil {
			log.Info("audio player unavailable, chimes disabled: %v", err)
		} else {
			a.chime = speech.NewChimeNotifier(notifier, player, log)
			notifier = a.chime
		}
	}
	a.notifier = notifier

	if err := cfg.ModelReady(); err != nil {
		log.Info("AI disabled: %v", err)
		return a, nil
	}

	client, err := newModelClient(cfg.Model, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	pantry, err := gpt.LoadPantry(cfg.PantryFile)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.agent = gpt.NewAgent(client, pantry, log)
	a.nutrition = nutrition.NewService(a.agent, a.store, log)

	opts := []engine.Option{
		engine.WithMetrics(a.metrics),
		engine.WithNotifier(a.notifier),
	}
	if cfg.Archive.Bucket != "" {
		archive, err := storage.NewS3Archive(ctx, cfg.Archive.S3(), log)
		if err != nil {
			log.Warn("receipt archive disabled: %v", err)
		} else {
			opts = append(opts, engine.WithArchive(archive))
		}
	}
	a.gen = engine.New(a.agent, a.store, a.session, log, opts...)
	log.Info("AI agent enabled (%s)", cfg.Model.Provider)
	return a, nil
}

func newModelClient(mc config.ModelConfig, log *logger.Logger) (domain.ModelClient, error) {
	switch mc.Provider {
	case config.ProviderAnthropic:
		opts := []gpt.AnthropicOption{
			gpt.WithAnthropicModel(mc.Name),
			gpt.WithAnthropicMaxTokens(int64(mc.MaxTokens)),
		}
		if mc.Endpoint != "" {
			opts = append(opts, gpt.WithAnthropicBaseURL(mc.Endpoint))
		}
		return gpt.NewAnthropicClient(mc.APIKey, log, opts...), nil
	case config.ProviderOpenAI:
		opts := []gpt.ClientOption{
			gpt.WithMaxTokens(mc.MaxTokens),
			gpt.WithHTTPTimeout(mc.Timeout),
		}
		if mc.Name != "" {
			opts = append(opts, gpt.WithModel(mc.Name))
		}
		if mc.Bearer {
			opts = append(opts, gpt.WithBearerAuth())
		}
		return gpt.NewClient(mc.Endpoint, mc.APIKey, log, opts...), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", mc.Provider)
	}
}

// requireModel fails commands that need the language model.
func (a *app) requireModel() error {
	if a.agent == nil {
		return errNoModel
	}
	return nil
}

// requireSession fails commands that need a signed-in user.
func (a *app) requireSession() error {
	if err := a.session.Require(); err != nil {
		return fmt.Errorf("%w: run `snapcook login <email>` first", err)
	}
	return nil
}

// refresh pulls owner's collection from the remote store. Offline it
// returns errOffline and leaves the cached collection alone.
func (a *app) refresh(ctx context.Context, owner string) error {
	if a.offline {
		return errOffline
	}
	return a.store.RefreshFromRemote(ctx, owner)
}

// startRefresh runs the periodic refresh supervisor until the returned stop
// func is called. Offline there is nothing to pull and it does nothing.
func (a *app) startRefresh(ctx context.Context) (stop func()) {
	if a.offline {
		a.log.Info("refresh supervisor not started: %v", errOffline)
		return func() {}
	}
	var opts []refresh.Option
	if a.cfg.Refresh.Interval > 0 {
		opts = append(opts, refresh.WithTickInterval(a.cfg.Refresh.Interval))
	}
	sup := refresh.New(a.store, func() domain.Session { return a.session }, a.notifier, a.log, opts...)
	sup.Start(ctx)
	return sup.Stop
}

// Close waits for background work and releases resources.
func (a *app) Close() {
	if a.gen != nil {
		a.gen.Wait()
	}
	if a.store != nil {
		a.store.Wait()
		if err := a.store.LastError(); err != nil {
			a.log.Warn("last sync error: %v", err)
		}
	}
	if a.chime != nil {
		a.chime.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
}
