package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/ussdgw/internal/logger"
	"github.com/marmos91/ussdgw/pkg/actions/airtime"
	"github.com/marmos91/ussdgw/pkg/actions/balance"
	"github.com/marmos91/ussdgw/pkg/actions/pin"
	"github.com/marmos91/ussdgw/pkg/actions/statement"
	"github.com/marmos91/ussdgw/pkg/api"
	"github.com/marmos91/ussdgw/pkg/api/auth"
	"github.com/marmos91/ussdgw/pkg/config"
	"github.com/marmos91/ussdgw/pkg/kv"
	"github.com/marmos91/ussdgw/pkg/menu"
	"github.com/marmos91/ussdgw/pkg/metrics"
	"github.com/marmos91/ussdgw/pkg/registry"
	"github.com/marmos91/ussdgw/pkg/session"
	"github.com/marmos91/ussdgw/pkg/turn"
	"github.com/marmos91/ussdgw/pkg/upstream"
	"github.com/marmos91/ussdgw/pkg/upstream/codec"
)

var enableMetrics bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the USSD gateway server",
	Long: `Start the USSD gateway server with the specified configuration.

Configuration is read from environment variables (see "ussdgw menu schema"
for the menu node shape, and DESIGN.md for the environment variable list)
and, optionally, a YAML file passed via --config.`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVar(&enableMetrics, "metrics", false, "collect internal Prometheus counters")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if enableMetrics {
		metrics.InitRegistry()
		logger.Info("metrics collection enabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kvStore, err := kv.Open(kv.Config{Dir: cfg.KVDir})
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer func() {
		if err := kvStore.Close(); err != nil {
			logger.Error("session store close error", "error", err)
		}
	}()

	sessions := session.NewStore(kvStore, cfg.Redis.SessionPrefix, cfg.Redis.TTL())

	base := codec.Base{
		BankID:    cfg.Identity.BankID,
		BankName:  cfg.Identity.BankName,
		Shortcode: cfg.Identity.Shortcode,
		Country:   cfg.Identity.Country,
		TrxSource: cfg.Identity.TrxSource,
	}
	upstreamClient := upstream.New(upstream.Config{
		BaseURL:        cfg.Upstream.APIURL,
		ConnectTimeout: cfg.Upstream.ConnectTimeout(),
		OverallTimeout: cfg.Upstream.Timeout(),
	}, base)

	turnMetrics := metrics.NewTurnMetrics()
	upstreamClient.SetMetrics(turnMetrics)

	reg, err := buildRegistry(kvStore, upstreamClient, cfg)
	if err != nil {
		return fmt.Errorf("failed to build action registry: %w", err)
	}
	logger.Info("action registry built", "handlers", reg.Count())

	engine := menu.New(reg, upstreamClient)
	if err := engine.Load(cfg.Menu.Dir); err != nil {
		return fmt.Errorf("failed to load menu configuration: %w", err)
	}
	if err := engine.WatchReload(); err != nil {
		logger.Warn("menu hot reload not started", logger.Err(err))
	}
	defer engine.StopWatching()
	logger.Info("menu configuration loaded", "dir", cfg.Menu.Dir)

	turnHandler := turn.New(sessions, engine, upstreamClient, cfg.Redis.TTL())
	turnHandler.SetMetrics(turnMetrics)

	var jwtService *auth.JWTService
	if cfg.API.JWTSecret != "" {
		jwtService, err = auth.NewJWTService(auth.JWTConfig{Secret: cfg.API.JWTSecret})
		if err != nil {
			return fmt.Errorf("failed to initialize operator auth: %w", err)
		}
	} else {
		logger.Warn("JWT_SECRET not set, menu reload endpoint disabled")
	}

	server := api.NewServer(api.APIConfig{
		Port:         cfg.API.Port,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		IdleTimeout:  cfg.API.IdleTimeout,
	}, turnHandler, sessions, engine, cfg.Menu.Dir, jwtService)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("ussd gateway is running", "port", server.Port())

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received")
		cancel()
		if err := <-serverDone; err != nil {
			logger.Error("server shutdown error", "error", err)
			return err
		}
		logger.Info("server stopped gracefully")
	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
		logger.Info("server stopped")
	}

	return nil
}

// buildRegistry registers every action module and the short aliases the
// declarative menu configuration refers to ("pin.processPinOrForgot" and
// friends), mirroring the reflective registration the menu nodes expect
// without requiring the JSON to spell out Go's exported method casing.
func buildRegistry(kvStore *kv.Store, client *upstream.Client, cfg *config.Config) (*registry.Registry, error) {
	reg := registry.New()

	if err := reg.RegisterModule("pin", pin.New(client)); err != nil {
		return nil, err
	}
	if err := reg.RegisterModule("balance", balance.New(client)); err != nil {
		return nil, err
	}
	if err := reg.RegisterModule("statement", statement.New(client)); err != nil {
		return nil, err
	}

	daily := airtime.NewDailyAggregate(kvStore, cfg.Location())
	if err := reg.RegisterModule("airtime", airtime.New(client, daily)); err != nil {
		return nil, err
	}

	aliases := map[string]string{
		"pin.processPinOrForgot":             "pin.ProcessPinOrForgot",
		"balance.processBalanceRequest":      "balance.ProcessBalanceRequest",
		"balance.processBalancePin":          "balance.ProcessBalancePin",
		"statement.processStatementRequest":  "statement.ProcessStatementRequest",
		"airtime.processAirtimeConfirmation": "airtime.ProcessAirtimeConfirmation",
	}
	for short, full := range aliases {
		if err := reg.Alias(short, full); err != nil {
			return nil, err
		}
	}

	return reg, nil
}
