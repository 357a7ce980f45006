// Command launcher deploys a token, authorizes the pool manager and initializes
// its pool, either from a request file or over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/defistate/token-launcher-go/cmd/launcher/config"
	"github.com/defistate/token-launcher-go/events"
	"github.com/defistate/token-launcher-go/launch"
	"github.com/defistate/token-launcher-go/pkg/log"
	"github.com/defistate/token-launcher-go/store"
	"github.com/defistate/token-launcher-go/web"
	cli "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:                  "launcher",
		Usage:                 "Deploy a token and open its liquidity pool",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				Sources: cli.EnvVars("LAUNCHER_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Write logs to this file instead of stderr",
			},
			&cli.StringFlag{
				Name:    "store-url",
				Usage:   "Launch history store (memory://, file:///dir, postgres://..., redis://...)",
				Sources: cli.EnvVars("LAUNCHER_STORE_URL"),
			},
			&cli.StringFlag{
				Name:    "rpc-url",
				Usage:   "JSON-RPC endpoint of the target chain",
				Sources: cli.EnvVars("LAUNCHER_RPC_URL"),
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			launchCommand(),
			historyCommand(),
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, Red+err.Error()+Reset)
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(1)
	}
}

// setup configures logging and loads the configuration with flag overrides.
// The returned func closes the log file, if any.
func setup(command *cli.Command) (*slog.Logger, *config.LauncherConfig, func(), error) {
	var (
		out     io.Writer = os.Stderr
		cleanup           = func() {}
	)
	if path := command.String("log-file"); path != "" {
		logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = logFile
		cleanup = func() { _ = logFile.Close() }
	}
	logger := log.Setup(out, command.String("log-level"), command.String("log-format"))

	var (
		cfg *config.LauncherConfig
		err error
	)
	if path := command.String("config"); path != "" {
		cfg, err = config.LoadConfig(path)
	} else {
		cfg, err = config.Parse(nil)
	}
	if err != nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("load configuration: %w", err)
	}

	if command.IsSet("store-url") {
		cfg.StoreURL = command.String("store-url")
	}
	if command.IsSet("rpc-url") {
		cfg.RPCURL = command.String("rpc-url")
	}
	if command.IsSet("addr") {
		cfg.HTTP.Addr = command.String("addr")
	}
	return logger, cfg, cleanup, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the launch HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "Address to listen on",
				Sources: cli.EnvVars("LAUNCHER_ADDR"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger, cfg, cleanup, err := setup(command)
			if err != nil {
				return err
			}
			defer cleanup()

			l, err := newLauncher(ctx, logger, cfg)
			if err != nil {
				return err
			}
			defer l.Close(context.Background())

			if err := logProgress(ctx, l.stream, "", logger.With("component", "progress")); err != nil {
				return err
			}

			app := web.NewAPI(logger.With("component", "api"), l.orchestrator, l.store, l.registry).
				WithEvents(l.stream).
				App()
			errCh := make(chan error, 1)
			go func() {
				errCh <- app.Listen(cfg.HTTP.Addr)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				logger.Info("Shutting down...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return app.ShutdownWithContext(shutdownCtx)
			}
		},
	}
}

// readRequestFile decodes a YAML or JSON launch request file.
func readRequestFile(path string) (*launch.LaunchRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read request file: %w", err)
	}
	var body web.LaunchRequest
	if err := yaml.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("decode request file: %w", err)
	}
	if err := web.NewValidator().Struct(body); err != nil {
		return nil, fmt.Errorf("invalid request file: %w", err)
	}
	return body.ToLaunchRequest()
}

func launchCommand() *cli.Command {
	return &cli.Command{
		Name:  "launch",
		Usage: "Run one launch from a request file and print the result",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "request",
				Aliases:  []string{"r"},
				Usage:    "Path to the YAML or JSON launch request",
				Required: true,
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger, cfg, cleanup, err := setup(command)
			if err != nil {
				return err
			}
			defer cleanup()

			req, err := readRequestFile(command.String("request"))
			if err != nil {
				return err
			}

			l, err := newLauncher(ctx, logger, cfg)
			if err != nil {
				return err
			}
			defer l.Close(context.Background())

			err = l.stream.Subscribe(ctx, "", func(_ context.Context, e events.Event) error {
				printEvent(os.Stdout, e)
				return nil
			})
			if err != nil {
				return err
			}

			fmt.Println(Green + "Starting launch..." + Reset)
			res, err := l.orchestrator.Launch(ctx, req)
			if err != nil {
				return err
			}
			printResult(os.Stdout, res)

			switch res.Status {
			case launch.StatusCompleted:
				return nil
			case launch.StatusPartiallyCompleted:
				return cli.Exit("launch partially completed", 2)
			default:
				return cli.Exit("launch aborted", 1)
			}
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "Print the persisted stage records of a launch",
		ArgsUsage: "<request-id>",
		Action: func(ctx context.Context, command *cli.Command) error {
			requestID := command.Args().First()
			if requestID == "" {
				return cli.Exit("request id is required", 1)
			}

			logger, cfg, cleanup, err := setup(command)
			if err != nil {
				return err
			}
			defer cleanup()

			st, err := newStore(ctx, logger, cfg.StoreURL)
			if err != nil {
				return err
			}
			defer st.Close()

			records, err := st.Load(ctx, requestID)
			if errors.Is(err, store.ErrNotFound) {
				return cli.Exit(fmt.Sprintf("no launch history for %s", requestID), 1)
			}
			if err != nil {
				return err
			}
			printHistory(os.Stdout, requestID, records)
			return nil
		},
	}
}
