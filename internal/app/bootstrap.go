package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"risk_market/internal/api"
	"risk_market/internal/engine"
	"risk_market/internal/event"
	"risk_market/internal/infra"
	"risk_market/internal/infra/kafka"
	"risk_market/internal/infra/storage"
	"risk_market/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 10 * time.Second

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config     *infra.Config
	Storage    *storage.Storage
	Registry   *prometheus.Registry
	Metrics    *infra.Metrics
	Engine     *engine.Engine
	Dispatcher *event.Dispatcher
	Hub        *api.Hub
	Producer   *kafka.Producer
	Service    *service.ExchangeService
	Server     *api.Server
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads configuration and wires every component. Nothing runs until Run.
func (b *Bootstrap) Initialize(configPath string) error {
	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err
	}
	b.Config = cfg

	// 2. Setup Logger
	slog.SetDefault(infra.NewLogger(cfg))
	slog.Info("🚀 Bootstrapping risk market...", slog.String("version", cfg.App.Version))

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("✅ Database initialized", slog.String("path", cfg.Storage.Path))

	// 4. Metrics
	b.Registry = prometheus.NewRegistry()
	b.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	b.Metrics = infra.NewMetrics(b.Registry)

	// 5. Engine, events and service
	b.Engine = engine.NewEngine(store, cfg.Market.DefaultPrice, b.Metrics)
	b.Hub = api.NewHub(b.Metrics)
	b.Dispatcher = event.NewDispatcher(cfg.Events.BufferSize, b.Metrics, b.Hub)
	if len(cfg.Kafka.Brokers) > 0 {
		b.Producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		b.Dispatcher.AddSink(b.Producer)
		slog.Info("✅ Kafka sink enabled", slog.String("topic", cfg.Kafka.Topic))
	}
	b.Service = service.NewExchangeService(b.Engine, store, b.Dispatcher, b.Metrics, cfg.Market.DefaultPrice)

	// 6. Transport
	b.Server = api.NewServer(b.Service, b.Hub, b.Metrics, b.Registry, cfg.Server.AllowedOrigins)

	return nil
}

// Run serves until ctx is cancelled, then shuts the server down gracefully.
func (b *Bootstrap) Run(ctx context.Context) error {
	go b.Dispatcher.Run(ctx)
	go b.Hub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- b.Server.Start(b.Config.Server.Addr)
	}()

	slog.InfoContext(ctx, "✨ Matching engine fully operational", slog.String("addr", b.Config.Server.Addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("👋 Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return b.Server.Shutdown(shutdownCtx)
}

// Close releases external resources. Safe to call after a failed Initialize.
func (b *Bootstrap) Close() error {
	var errs []error
	if b.Producer != nil {
		errs = append(errs, b.Producer.Close())
	}
	if b.Storage != nil {
		errs = append(errs, b.Storage.Close())
	}
	return errors.Join(errs...)
}
