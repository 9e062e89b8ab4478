package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brewdex/brewery-harvester/internal/config"
	"github.com/brewdex/brewery-harvester/internal/harvest"
	"github.com/brewdex/brewery-harvester/internal/logger"
	"github.com/brewdex/brewery-harvester/internal/storage"
	"github.com/brewdex/brewery-harvester/pkg/breweries"
	"github.com/brewdex/brewery-harvester/pkg/httpclient"
	"github.com/brewdex/brewery-harvester/pkg/publishers"
)

// Harvester represents the brewery harvester runtime. It manages the harvest loop,
// coordinating between the loader, the harvest service, and publishers. It also
// owns the storage backend and the metrics endpoint.
type Harvester struct {
	cfg             *config.Config
	states          []string
	fanout          *publishers.Fanout
	harvestService  *harvest.Service
	harvestInterval time.Duration
	log             logger.Logger
	store           storage.Store
	metrics         *prometheus.Registry
}

// NewHarvester builds a harvester runtime from config.
func NewHarvester(ctx context.Context, cfg *config.Config, log logger.Logger) (*Harvester, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	loader, err := breweries.NewRemoteLoader(
		httpclient.NewRestyClient(cfg.HTTPTimeout),
		cfg.BreweriesBaseURL,
		breweries.WithHeaders(map[string]string{"User-Agent": cfg.UserAgent}),
	)
	if err != nil {
		return nil, fmt.Errorf("init brewery loader: %w", err)
	}
	log.InfoObj("brewery loader configured", "loader_meta", map[string]any{
		"base_url":        cfg.BreweriesBaseURL,
		"states":          cfg.States,
		"timeout_seconds": int(cfg.HTTPTimeout.Seconds()),
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
		TTL:             cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"ttl_seconds":              int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc := harvest.NewService(loader, fanout, store, log, harvest.Options{
		RetryMaxElapsed: cfg.RetryMaxElapsed,
		Metrics:         harvest.NewMetrics(reg),
	})

	return &Harvester{
		cfg:             cfg,
		states:          cfg.States,
		fanout:          fanout,
		harvestService:  svc,
		harvestInterval: cfg.HarvestInterval,
		log:             log,
		store:           store,
		metrics:         reg,
	}, nil
}

// MetricsHandler exposes the harvester's Prometheus registry.
func (h *Harvester) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(h.metrics, promhttp.HandlerOpts{})
}

// Run starts the harvest loop until the context is cancelled.
func (h *Harvester) Run(ctx context.Context) error {
	if h == nil || h.harvestService == nil {
		return fmt.Errorf("harvester is not initialized")
	}
	defer h.close()

	if h.cfg.MetricsAddr != "" {
		stop := h.serveMetrics(h.cfg.MetricsAddr)
		defer stop()
	}

	h.log.InfoObj("harvester loop starting", "harvester_state", map[string]any{
		"states_count":     len(h.states),
		"publishers_count": h.fanout.Size(),
		"harvest_interval": h.harvestInterval.String(),
	})

	if err := h.runOnce(ctx); err != nil {
		h.log.ErrorObj("initial harvest failed", "error", err.Error())
	}

	ticker := time.NewTicker(h.harvestInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.InfoObj("harvester loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			if err := h.runOnce(ctx); err != nil {
				h.log.ErrorObj("scheduled harvest failed", "error", err.Error())
			}
		}
	}
}

// runOnce performs a single harvest pass across all configured states.
func (h *Harvester) runOnce(ctx context.Context) error {
	start := time.Now()
	h.log.InfoObj("harvest started", "harvest_meta", map[string]any{
		"states":     h.states,
		"started_at": start.UTC(),
	})
	if err := h.harvestService.Run(ctx, h.states); err != nil {
		return err
	}
	h.log.InfoObj("harvest completed", "harvest_meta", map[string]any{
		"states_count": len(h.states),
		"elapsed_ms":   time.Since(start).Milliseconds(),
	})
	return nil
}

// serveMetrics runs the /metrics endpoint in the background and returns its shutdown func.
func (h *Harvester) serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h.MetricsHandler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.log.ErrorObj("metrics server failed", "error", err.Error())
		}
	}()
	h.log.InfoObj("metrics endpoint listening", "metrics_addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// close releases publishers and the storage backend, logging any errors encountered.
func (h *Harvester) close() {
	if err := h.fanout.Close(); err != nil {
		h.log.ErrorObj("publishers close failed", "error", err.Error())
	}
	if h.store == nil {
		return
	}
	if err := h.store.Close(); err != nil {
		h.log.ErrorObj("storage close failed", "error", err.Error())
	}
}
