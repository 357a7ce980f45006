package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/defistate/token-launcher-go/cmd/launcher/config"
	"github.com/defistate/token-launcher-go/events"
	"github.com/defistate/token-launcher-go/orchestrator"
	"github.com/defistate/token-launcher-go/pkg/chains"
	ethpkg "github.com/defistate/token-launcher-go/pkg/chains/ethereum"
	"github.com/defistate/token-launcher-go/pkg/otelhelper"
	"github.com/defistate/token-launcher-go/protocols/token"
	"github.com/defistate/token-launcher-go/protocols/uniswapv4"
	"github.com/defistate/token-launcher-go/store"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel/trace"
)

// launcher holds every long-lived component of a process.
type launcher struct {
	orchestrator *orchestrator.Orchestrator
	store        store.Store
	stream       *events.Stream
	registry     *prometheus.Registry
	eth          *ethclient.Client
	shutdown     otelhelper.ShutdownFunc
	logger       *slog.Logger
}

// newLauncher connects to the chain and the store and assembles the
// orchestrator.
func newLauncher(ctx context.Context, logger *slog.Logger, cfg *config.LauncherConfig) (*launcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	chainID := cfg.ChainID.Uint64()
	if !chains.Supported(chainID) {
		return nil, fmt.Errorf("launch ops not found for chain with ID %d", chainID)
	}

	key, err := crypto.HexToECDSA(cfg.PrivateKeyHex())
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	tok, err := token.LoadArtifact(cfg.TokenArtifact)
	if err != nil {
		return nil, err
	}
	manager := uniswapv4.NewPoolManager(common.HexToAddress(cfg.PoolManager), cfg.PoolManagerHookData)

	l := &launcher{logger: logger, shutdown: func(context.Context) error { return nil }}
	ok := false
	defer func() {
		if !ok {
			l.Close(context.Background())
		}
	}()

	client, eth, err := ethpkg.Dial(ctx, cfg.RPCURL, ethpkg.Config{
		ChainID:             cfg.ChainID,
		PrivateKey:          key,
		Logger:              logger.With("component", "chain-client"),
		Decoder:             ethpkg.NewLaunchDecoder(tok, manager),
		GasBufferPercent:    *cfg.GasBufferPercent,
		PollInterval:        cfg.PollInterval.Std(),
		ConfirmationTimeout: cfg.ConfirmationTimeout.Std(),
	})
	if err != nil {
		return nil, err
	}
	l.eth = eth

	ops, err := ethpkg.NewLaunchOps(ethpkg.LaunchOpsConfig{
		Client:        client,
		Token:         tok,
		PoolManager:   manager,
		Confirmations: cfg.Confirmations,
		VerifySupply:  cfg.VerifySupply,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	if l.store, err = newStore(ctx, logger.With("component", "store"), cfg.StoreURL); err != nil {
		return nil, err
	}
	l.stream = events.NewInProcessStream(logger.With("component", "events"))

	l.registry = prometheus.NewRegistry()
	l.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var tracer trace.Tracer
	if cfg.Tracing.Enabled {
		tracer, l.shutdown, err = otelhelper.NewTracer(ctx, cfg.Tracing.ServiceName)
		if err != nil {
			return nil, err
		}
	}

	l.orchestrator, err = orchestrator.New(orchestrator.Config{
		Deployer:        ops.Deployer,
		Authorizer:      ops.Authorizer,
		PoolInitializer: ops.PoolInitializer,
		Store:           l.store,
		Publisher:       l.stream,
		Metrics:         orchestrator.NewMetrics(l.registry, cfg.Metrics.Namespace),
		Tracer:          tracer,
		Logger:          logger.With("component", "orchestrator"),
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Launcher ready",
		"chain", chains.Name(chainID),
		"account", client.Account(),
		"pool_manager", manager.Address(),
		"store", redactStoreURL(cfg.StoreURL),
	)
	ok = true
	return l, nil
}

// Close releases every component that was opened.
func (l *launcher) Close(ctx context.Context) {
	var errs []error
	if l.stream != nil {
		errs = append(errs, l.stream.Close())
	}
	if l.store != nil {
		errs = append(errs, l.store.Close())
	}
	if l.eth != nil {
		l.eth.Close()
	}
	if l.shutdown != nil {
		errs = append(errs, l.shutdown(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		l.logger.Error("Failed to close launcher", "error", err)
	}
}

// logProgress logs every progress event of the stream.
func logProgress(ctx context.Context, stream *events.Stream, requestID string, logger *slog.Logger) error {
	return stream.Subscribe(ctx, requestID, func(_ context.Context, e events.Event) error {
		attrs := []any{"event_type", e.Type, "request_id", e.RequestID, "run_id", e.RunID}
		if e.State != "" {
			attrs = append(attrs, "state", e.State)
		}
		if e.Stage != "" {
			attrs = append(attrs, "stage", e.Stage)
		}
		if e.TxHash != nil {
			attrs = append(attrs, "tx_hash", e.TxHash)
		}
		if e.Outcome != nil {
			attrs = append(attrs, "outcome", e.Outcome.Status)
		}
		if e.Status != "" {
			attrs = append(attrs, "status", e.Status)
		}
		logger.Info("Launch progress", attrs...)
		return nil
	})
}
