package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/nerd4ever/kaya-seed/internal/common/logtrace"
	"github.com/nerd4ever/kaya-seed/internal/seedsrv/auth"
	"github.com/nerd4ever/kaya-seed/internal/seedsrv/catalog"
	"github.com/nerd4ever/kaya-seed/internal/seedsrv/config"
	"github.com/nerd4ever/kaya-seed/internal/seedsrv/inventory"
	"github.com/nerd4ever/kaya-seed/internal/seedsrv/lifecycle"
	"github.com/nerd4ever/kaya-seed/internal/seedsrv/publish"
	"github.com/nerd4ever/kaya-seed/internal/seedsrv/server"
	"github.com/rs/zerolog/log"
)

func init() {
	logtrace.InitLogger()
}

type cmdoptions struct {
	configFile *string
}

func main() {

	slog := log.With().Str("state", "init").Logger()
	// Parse command line flags
	opt := parseFlags()

	if *opt.configFile != "" {
		slog.Info().Str("config_file", *opt.configFile).Msg("loading config file")
	}
	if err := config.LoadConfig(*opt.configFile); err != nil {
		slog.Error().Str("config_file", *opt.configFile).Err(err).Msg("unable to load config file")
		os.Exit(1)
	}
	cfg := config.Config()
	if cfg.ServerPort == "" {
		slog.Error().Msg("server port not defined")
		os.Exit(1)
	}

	cat, err := loadCatalog(cfg)
	if err != nil {
		slog.Error().Err(err).Msg("unable to load artifact catalog")
		os.Exit(1)
	}

	store, serr := inventory.NewStore(cfg.DataDir)
	if serr != nil {
		slog.Error().Err(serr).Str("data_dir", cfg.DataDir).Msg("unable to open inventory store")
		os.Exit(1)
	}

	engine := lifecycle.NewEngine(cat, store)
	verifier := auth.NewVerifier(cfg.Timeout(), cfg.KeySetTTL())
	tokens := auth.NewTokenClient(cfg.PlatformBaseURL(), verifier, cfg.Timeout())
	notifier := publish.NewNotifier(cfg.MarketplaceBaseURL(), tokens, cfg.Timeout())

	if cfg.Username != "" {
		registerEndpoint(cfg, tokens, notifier)
	} else {
		slog.Info().Msg("no platform credentials configured, skipping marketplace registration")
	}

	s, err := server.CreateNewServer(engine, verifier, notifier)
	if err != nil {
		slog.Error().Err(err).Msg("unable to create server")
		os.Exit(1)
	}
	s.MountHandlers()
	slog.Info().Str("port", cfg.ServerPort).Msg("serving marketplace endpoint")
	if err := http.ListenAndServe(":"+cfg.ServerPort, s.Router); err != nil {
		slog.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}

func loadCatalog(cfg *config.ConfigParam) (*catalog.Catalog, error) {
	if cfg.CatalogFile != "" {
		cat, err := catalog.LoadFile(cfg.CatalogFile, cfg.DefaultStock)
		if err != nil {
			return nil, err
		}
		return cat, nil
	}
	// Without a catalog file, serve the built-in sample artifacts.
	cat := catalog.New(cfg.DefaultStock)
	for _, shortname := range []string{"kaya-seed-one", "kaya-seed-two"} {
		cat.Add(&catalog.Artifact{
			ID:          catalog.ArtifactID(shortname),
			DisplayName: "Simple Kaya Seed Example " + shortname,
			Shortname:   shortname,
			Enabled:     true,
		})
	}
	return cat, nil
}

// registerEndpoint authorizes against the platform and announces this
// endpoint to the marketplace, retrying with backoff. Registration
// failures are logged but do not prevent the server from starting; the
// marketplace can still reach an unregistered endpoint it already
// knows about.
func registerEndpoint(cfg *config.ConfigParam, tokens *auth.TokenClient, notifier *publish.Notifier) {
	slog := log.With().Str("state", "init").Logger()
	ctx := context.Background()

	err := retry.Do(
		func() error {
			if _, err := tokens.Authorize(ctx, cfg.ClientID, cfg.Username, cfg.Password); err != nil {
				return err
			}
			if !notifier.Install(ctx, cfg.EndpointName) {
				return fmt.Errorf("marketplace did not accept endpoint %q", cfg.EndpointName)
			}
			return nil
		},
		retry.Attempts(5),
		retry.Delay(2*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn().Uint("attempt", n+1).Err(err).Msg("marketplace registration failed, retrying")
		}),
	)
	if err != nil {
		slog.Error().Err(err).Msg("marketplace registration failed")
		return
	}
	slog.Info().Str("endpoint", cfg.EndpointName).Msg("registered with marketplace")
}

func parseFlags() cmdoptions {
	var opt cmdoptions
	opt.configFile = flag.String("config", "", "Path to the config file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options]\n\n", os.Args[0])
		fmt.Println("Options:")
		flag.PrintDefaults()
	}
	flag.Parse()
	return opt
}
