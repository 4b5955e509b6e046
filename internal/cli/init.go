// Package cli provides the finman command surface and the initialization
// helpers shared by cmd/finman and cmd/finman-notifier.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"finman/internal/ai"
	"finman/internal/amqp"
	"finman/internal/auth"
	"finman/internal/cache"
	"finman/internal/config"
	"finman/internal/log"
	"finman/internal/services"
	"finman/internal/session"
	"finman/internal/storage"
)

// SetupLogger builds the component logger at the configured level and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, component string, out io.Writer) *log.Logger {
	level, err := config.ParseLevel(cfg.LogLevel)
	logger := log.New(log.Config{Level: level, Component: component, Output: out})
	if err != nil {
		logger.Warn("Unknown log level, using default", log.FieldError, err)
	}
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as the file is optional.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// OpenStore opens the SQLite store, applying pending migrations.
func OpenStore(cfg *config.Config) (*storage.Store, error) {
	store, err := storage.Open(storage.Options{
		Path:   cfg.DBPath,
		LogSQL: strings.EqualFold(cfg.LogLevel, "debug"),
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.DBPath, err)
	}
	return store, nil
}

// NewGenerator returns the Gemini generator, or Offline when no key is set.
func NewGenerator(ctx context.Context, cfg *config.Config, logger *log.Logger) (ai.Generator, func() error, error) {
	if cfg.GeminiAPIKey == "" {
		logger.Debug("GEMINI_API_KEY not set, AI features disabled")
		return ai.Offline{}, func() error { return nil }, nil
	}

	gen, err := ai.NewGemini(ctx, ai.GeminiConfig{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		Timeout: cfg.GeminiTimeout,
		Backoff: cfg.GeminiRetryBackoff,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	return gen, gen.Close, nil
}

// BuildFinanceService wires storage, session, credentials, the AI adapters
// and, when AMQP_URL is set, the alert publisher. A broker that cannot be
// reached only disables alert publishing.
func BuildFinanceService(ctx context.Context, cfg *config.Config, logger *log.Logger) (Finance, error) {
	creds, err := auth.NewCredentials(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	gen, closeGen, err := NewGenerator(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(cfg)
	if err != nil {
		closeGen()
		return nil, err
	}

	var alerts services.AlertPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, budget alerts will not be published",
				log.FieldOperation, log.OpStartup,
				log.FieldError, err)
		} else {
			alerts = client
		}
	}

	labels := cache.NewLRUCache[string](cfg.CategoryCacheSize, 0)
	svc := services.NewFinanceService(
		store,
		session.NewFileHolder(cfg.SessionFile),
		creds,
		ai.NewCategorizer(gen, labels, logger),
		ai.NewAdvisor(gen, cfg.Currency, logger),
		alerts,
		logger,
	)
	return &financeHandle{FinanceService: svc, closeGen: closeGen}, nil
}

// financeHandle closes the generator together with the service.
type financeHandle struct {
	*services.FinanceService
	closeGen func() error
}

func (h *financeHandle) Close() error {
	err := h.FinanceService.Close()
	if cerr := h.closeGen(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// TerminalPassword reads a secret without echo when in is a terminal.
// It returns nil otherwise so callers fall back to reading a plain line.
func TerminalPassword(in *os.File, out io.Writer) func(prompt string) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	return func(prompt string) (string, error) {
		fmt.Fprintf(out, "%s: ", prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
}
