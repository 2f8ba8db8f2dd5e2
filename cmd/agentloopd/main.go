// Command agentloopd runs the agent engine behind an HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/joho/godotenv"

	"github.com/hupe1980/agentloop/audit"
	auditsqlite "github.com/hupe1980/agentloop/audit/sqlite"
	"github.com/hupe1980/agentloop/config"
	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/engine"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/model"
	anthropicport "github.com/hupe1980/agentloop/model/anthropic"
	openaiport "github.com/hupe1980/agentloop/model/openai"
	"github.com/hupe1980/agentloop/retrieval"
	retrievalsqlite "github.com/hupe1980/agentloop/retrieval/sqlite"
	"github.com/hupe1980/agentloop/server"
	"github.com/hupe1980/agentloop/tool"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "agentloopd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg := config.Default()

	if path, err := config.FindConfig(configPath); err == nil {
		loaded, loadErr := config.Load(path)
		if loadErr != nil {
			return fmt.Errorf("load config %s: %w", path, loadErr)
		}
		cfg = loaded
	} else if configPath != "" {
		return err
	}

	format := "text"
	if cfg.LogJSON {
		format = "json"
	}

	logger := logging.NewTurnLogger(logging.ParseLevel(cfg.LogLevel), format)

	logger.Info("starting agentloopd", "addr", cfg.Listen.Addr(), "provider", cfg.Model.Provider)

	ledger, closeLedger, err := buildLedger(cfg)
	if err != nil {
		return err
	}
	defer closeLedger()

	index, closeIndex, err := buildIndex(cfg)
	if err != nil {
		return err
	}
	defer closeIndex()

	registry := buildRegistry(cfg, index, logger)

	port, err := buildModelPort(cfg, registry)
	if err != nil {
		return err
	}

	e := engine.New(port, registry, func(o *engine.Options) {
		o.Config = engine.Config{
			StepBudget:   cfg.Engine.StepBudget,
			MaxRetries:   cfg.Engine.MaxRetries,
			RetryBackoff: cfg.Engine.RetryBackoff(),
		}
		o.Ledger = ledger
		o.Logger = logger.WithComponent("engine")
	})

	handler := server.New(e, func(o *server.Options) {
		o.Logger = logger.WithComponent("server")
	})

	srv := &http.Server{
		Addr:              cfg.Listen.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}

func buildLedger(cfg *config.Config) (core.AuditLedger, func(), error) {
	if cfg.Storage.AuditDB == "" {
		return audit.NewInMemoryLedger(), func() {}, nil
	}

	ledger, err := auditsqlite.New(cfg.Storage.AuditDB)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit db: %w", err)
	}

	return ledger, func() { _ = ledger.Close() }, nil
}

func buildIndex(cfg *config.Config) (core.DocumentIndex, func(), error) {
	if cfg.Storage.DocumentsDB == "" {
		return retrieval.NewInMemoryIndex(), func() {}, nil
	}

	index, err := retrievalsqlite.New(cfg.Storage.DocumentsDB)
	if err != nil {
		return nil, nil, fmt.Errorf("open documents db: %w", err)
	}

	return index, func() { _ = index.Close() }, nil
}

func buildRegistry(cfg *config.Config, index core.DocumentIndex, logger logging.Logger) *tool.Registry {
	registry := tool.NewRegistry(func(o *tool.RegistryOptions) {
		o.Timeout = time.Duration(cfg.Tools.InvokeTimeoutSec) * time.Second
		o.Logger = logger
	})

	if cfg.Tools.FetchEnabled {
		registry.Register(tool.NewFetchTool(http.DefaultClient))
	}

	if cfg.Tools.SearchEnabled {
		registry.Register(tool.NewSearchTool(index))
		registry.Register(tool.NewIndexTool(index))
	}

	return registry
}

func buildModelPort(cfg *config.Config, registry *tool.Registry) (core.ModelPort, error) {
	specs := registry.Specs()

	switch strings.ToLower(cfg.Model.Provider) {
	case "anthropic":
		return anthropicport.NewPort(func(o *anthropicport.Options) {
			if cfg.Model.Name != "" {
				o.Model = anthropic.Model(cfg.Model.Name)
			}
			o.APIKey = cfg.Model.APIKey
			o.Temperature = cfg.Model.Temperature
			if cfg.Model.MaxTokens > 0 {
				o.MaxTokens = int64(cfg.Model.MaxTokens)
			}
			o.System = cfg.Model.System
			o.Tools = specs
			o.Timeout = time.Duration(cfg.Model.TimeoutSec) * time.Second
		}), nil
	case "openai":
		return openaiport.NewPort(func(o *openaiport.Options) {
			if cfg.Model.Name != "" {
				o.Model = cfg.Model.Name
			}
			o.APIKey = cfg.Model.APIKey
			o.Temperature = cfg.Model.Temperature
			if cfg.Model.MaxTokens > 0 {
				o.MaxCompletionTokens = int64(cfg.Model.MaxTokens)
			}
			o.System = cfg.Model.System
			o.Tools = specs
			o.Timeout = time.Duration(cfg.Model.TimeoutSec) * time.Second
		}), nil
	case "mock":
		return model.NewMock().QueueReply("agentloopd is running in mock mode"), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Model.Provider)
	}
}
