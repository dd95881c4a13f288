// Command curator runs the Knowledge Curator Node HTTP service: it loads
// configuration, wires the store/orchestrator/queue/cache stack, starts the
// background worker pool, reaper and janitor, and serves the API router
// until an interrupt or terminate signal arrives.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nodecurio/curator/internal/api"
	"github.com/nodecurio/curator/internal/classify"
	"github.com/nodecurio/curator/internal/config"
	"github.com/nodecurio/curator/internal/enrich"
	"github.com/nodecurio/curator/internal/extract"
	"github.com/nodecurio/curator/internal/hcache"
	"github.com/nodecurio/curator/internal/hierarchy"
	"github.com/nodecurio/curator/internal/llmclient"
	"github.com/nodecurio/curator/internal/logging"
	"github.com/nodecurio/curator/internal/metrics"
	"github.com/nodecurio/curator/internal/notify"
	"github.com/nodecurio/curator/internal/orchestrator"
	"github.com/nodecurio/curator/internal/queue"
	"github.com/nodecurio/curator/internal/ratelimit"
	"github.com/nodecurio/curator/internal/store"
)

var (
	configPath = flag.String("config", "curator.yaml", "path to the service config file")
	debug      = flag.Bool("debug", false, "enable debug-level process logging")
)

func main() {
	flag.Parse()

	zapCfg := zap.NewProductionConfig()
	if *debug {
		zapCfg = zap.NewDevelopmentConfig()
	}
	logger, err := zapCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "curator: failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(logger); err != nil {
		logger.Error("curator exited with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger) error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logging.Configure(cfg.DataDir, cfg.Logging.DebugMode, cfg.Logging.Level, cfg.Logging.JSONFormat, cfg.Logging.Categories); err != nil {
		return fmt.Errorf("configure file logging: %w", err)
	}
	logging.Boot("curator starting, data_dir=%s listen=%s", cfg.DataDir, cfg.HTTP.ListenAddr)

	storePath := cfg.Store.Path
	if !filepath.IsAbs(storePath) {
		storePath = filepath.Join(cfg.DataDir, storePath)
	}
	s, err := store.Open(storePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	bus := notify.New()

	var hc *hcache.Cache
	if cfg.HCache.Enabled {
		ttl, err := time.ParseDuration(cfg.HCache.TTL)
		if err != nil {
			return fmt.Errorf("parse hcache.ttl: %w", err)
		}
		hc, err = hcache.New(ttl)
		if err != nil {
			return fmt.Errorf("open hierarchy cache: %w", err)
		}
		defer hc.Close()
	}

	// hc is a possibly-nil *hcache.Cache; passing it through directly would
	// box a typed nil into the Invalidator interface and e.cache != nil
	// would then be true, so only assign when genuinely non-nil.
	var inv hierarchy.Invalidator
	if hc != nil {
		inv = hc
	}
	functionEngine := hierarchy.NewEngine(s, inv)
	organizationEngine := hierarchy.NewEngine(s, inv)

	q := queue.New(s, cfg.Queue, bus)

	llm, err := llmclient.New(cfg.LLM)
	if err != nil {
		return fmt.Errorf("build LLM client: %w", err)
	}

	classifyTTL, err := time.ParseDuration(cfg.LLM.ClassifyCacheTTL)
	if err != nil {
		return fmt.Errorf("parse llm.classify_cache_ttl: %w", err)
	}
	classifier := classify.New(llm, classifyTTL)

	fetchTimeout, err := time.ParseDuration(cfg.Extract.DefaultTimeout)
	if err != nil {
		return fmt.Errorf("parse extract.default_timeout: %w", err)
	}
	fetcher := extract.NewFetcher(fetchTimeout, cfg.Extract.MaxBodyBytes, cfg.Extract.PerHostConcurrency, cfg.Extract.GlobalConcurrency)
	registry := extract.NewRegistry()

	orch := orchestrator.New(s, fetcher, registry, classifier, functionEngine, organizationEngine, q)
	enricher := enrich.New(llm, s, functionEngine, organizationEngine, bus)

	rl := ratelimit.New(cfg.RateLimit)

	srv := api.New(s, orch, q, hc, bus, rl, version())

	// Mirrors the teacher's own queue-depth telemetry: every EventQueueStatus
	// the queue publishes also updates the Prometheus gauge set, so
	// /metrics and /api/events agree on the current depth.
	bus.Subscribe(func(e notify.Event) {
		if e.Type != notify.EventQueueStatus {
			return
		}
		if qs, ok := e.Payload.(notify.QueueStatus); ok {
			metrics.SetQueueDepth(qs.Pending, qs.Processing, qs.Completed, qs.Failed)
		}
	})

	watcher, err := config.NewWatcher(*configPath, func(reloaded *config.Config) {
		if newRL := ratelimit.New(reloaded.RateLimit); newRL != nil {
			rl = newRL
		}
		logging.Boot("config reloaded from %s", *configPath)
	})
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("start config watcher: %w", err)
	}
	defer watcher.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go q.RunWorkerPool(ctx, enricher.Handle)
	go q.RunReaper(ctx)
	go q.RunJanitor(ctx)

	readTimeout, err := time.ParseDuration(cfg.HTTP.ReadTimeout)
	if err != nil {
		return fmt.Errorf("parse http.read_timeout: %w", err)
	}
	writeTimeout, err := time.ParseDuration(cfg.HTTP.WriteTimeout)
	if err != nil {
		return fmt.Errorf("parse http.write_timeout: %w", err)
	}
	idleTimeout, err := time.ParseDuration(cfg.HTTP.IdleTimeout)
	if err != nil {
		return fmt.Errorf("parse http.idle_timeout: %w", err)
	}

	httpSrv := &http.Server{
		Addr:         cfg.HTTP.ListenAddr,
		Handler:      srv.Router(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTP.ListenAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logging.Boot("curator stopped cleanly")
	return nil
}

// version is set via -ldflags "-X main.buildVersion=..." in release builds;
// it defaults to "dev" for local/unreleased runs.
var buildVersion = "dev"

func version() string { return buildVersion }
