package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/samvad-hq/imageboard-client/internal/config"
	"github.com/samvad-hq/imageboard-client/internal/logger"
	"github.com/samvad-hq/imageboard-client/internal/metrics"
	"github.com/samvad-hq/imageboard-client/internal/storage"
	"github.com/samvad-hq/imageboard-client/internal/watcher"
	"github.com/samvad-hq/imageboard-client/pkg/boardapi"
	"github.com/samvad-hq/imageboard-client/pkg/boards"
	"github.com/samvad-hq/imageboard-client/pkg/publishers"
)

// Watcher is the board watcher runtime. It owns the poll loop, the publishers,
// the seen-article store and the optional metrics endpoint.
type Watcher struct {
	cfg          *config.Config
	boardReg     *boards.Registry
	fanout       *publishers.Fanout
	service      *watcher.Service
	pollInterval time.Duration
	log          logger.Logger
	store        storage.Store
	metricsSrv   *http.Server
}

// NewWatcher builds a watcher runtime from config files.
func NewWatcher(ctx context.Context, cfg *config.Config, log logger.Logger) (*Watcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	boardReg, err := loadBoards(cfg)
	if err != nil {
		return nil, err
	}
	boardIDs := make([]string, 0, len(boardReg.All()))
	for _, b := range boardReg.All() {
		boardIDs = append(boardIDs, b.ID)
	}
	log.InfoObj("boards registry loaded", "boards_meta", map[string]any{
		"count": len(boardIDs),
		"ids":   boardIDs,
	})

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabledPublishers := publisherReg.Enabled()
	if len(enabledPublishers) == 0 {
		return nil, fmt.Errorf("no publishers configured")
	}
	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	fanout := publishers.NewFanout(pubClients)
	publisherSummaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		publisherSummaries = append(publisherSummaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		ArticleTTL:      cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("init storage: %w", err), fanout.Close())
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"article_ttl_seconds":      int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	var recorder metrics.Recorder = metrics.Nop{}
	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		recorder = metrics.NewCollector(reg)
		metricsSrv = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metrics.Router(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	service := watcher.NewService(watcher.Options{
		Clients:   boardClients(cfg, log),
		Publisher: fanout,
		Store:     store,
		Metrics:   recorder,
		Logger:    log,
		MinGap:    cfg.PollMinGap,
	})

	return &Watcher{
		cfg:          cfg,
		boardReg:     boardReg,
		fanout:       fanout,
		service:      service,
		pollInterval: cfg.PollInterval,
		log:          log,
		store:        store,
		metricsSrv:   metricsSrv,
	}, nil
}

func loadBoards(cfg *config.Config) (*boards.Registry, error) {
	if cfg.BoardsFile == "" {
		reg, err := boards.Default(cfg.BoardURL, cfg.UserAgent)
		if err != nil {
			return nil, fmt.Errorf("default board: %w", err)
		}
		return reg, nil
	}
	reg, err := boards.LoadRegistry(cfg.BoardsFile)
	if err != nil {
		return nil, fmt.Errorf("load boards registry: %w", err)
	}
	return reg, nil
}

// boardClients keeps one client per board so a board's session and
// connections survive across passes.
func boardClients(cfg *config.Config, log logger.Logger) watcher.ClientFactory {
	var mu sync.Mutex
	clients := make(map[string]*boardapi.Client)

	return func(b boards.Board) (watcher.ArticleLister, error) {
		mu.Lock()
		defer mu.Unlock()
		if c, ok := clients[b.ID]; ok {
			return c, nil
		}

		headers := boards.Headers(b)
		if _, ok := headers["User-Agent"]; !ok && cfg.UserAgent != "" {
			headers["User-Agent"] = cfg.UserAgent
		}
		c, err := boardapi.New(boardapi.Options{
			BaseURL: b.BaseURL,
			Headers: headers,
			Timeout: cfg.HTTPTimeout,
			Logger:  log,
		})
		if err != nil {
			return nil, err
		}
		clients[b.ID] = c
		return c, nil
	}
}

// Run starts the poll loop until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if w == nil || w.service == nil {
		return fmt.Errorf("watcher is not initialized")
	}
	defer w.close()

	if w.metricsSrv != nil {
		go w.serveMetrics()
	}

	bs := w.boardReg.All()
	w.log.InfoObj("watcher loop starting", "watcher_state", map[string]any{
		"boards_count":     len(bs),
		"publishers_count": w.fanout.Size(),
		"poll_interval":    w.pollInterval.String(),
	})

	if err := w.runOnce(ctx, bs); err != nil {
		w.log.ErrorObj("initial poll failed", "error", err.Error())
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.InfoObj("watcher loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			if err := w.runOnce(ctx, bs); err != nil {
				w.log.ErrorObj("scheduled poll failed", "error", err.Error())
			}
		}
	}
}

func (w *Watcher) runOnce(ctx context.Context, bs []boards.Board) error {
	start := time.Now()
	if err := w.service.Run(ctx, bs); err != nil {
		return err
	}
	w.log.InfoObj("poll completed", "poll_meta", map[string]any{
		"boards_count": len(bs),
		"elapsed_ms":   time.Since(start).Milliseconds(),
	})
	return nil
}

func (w *Watcher) serveMetrics() {
	w.log.InfoObj("metrics endpoint listening", "metrics_addr", w.metricsSrv.Addr)
	if err := w.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		w.log.ErrorObj("metrics endpoint failed", "error", err.Error())
	}
}

// close releases the metrics listener, publishers and store, logging failures.
func (w *Watcher) close() {
	if w.metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.metricsSrv.Shutdown(shutdownCtx); err != nil {
			w.log.ErrorObj("metrics shutdown failed", "error", err.Error())
		}
	}
	if err := w.fanout.Close(); err != nil {
		w.log.ErrorObj("publishers close failed", "error", err.Error())
	}
	if w.store != nil {
		if err := w.store.Close(); err != nil {
			w.log.ErrorObj("storage close failed", "error", err.Error())
		}
	}
}
