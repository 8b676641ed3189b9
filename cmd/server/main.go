package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/woozymasta/geoanchor/internal/app"
	"github.com/woozymasta/geoanchor/internal/asset"
	"github.com/woozymasta/geoanchor/internal/config"
	"github.com/woozymasta/geoanchor/internal/logger"
	"github.com/woozymasta/geoanchor/internal/server"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile  string `short:"c" long:"config"      env:"CONFIG_FILE"    description:"Path to scene configuration file" default:"scene.yaml"`
	Addr        string `short:"a" long:"addr"        env:"LISTEN_ADDRESS" description:"Address to listen on"             default:"0.0.0.0"`
	Port        int    `short:"p" long:"port"        env:"LISTEN_PORT"    description:"Port to listen on"                default:"8080"`
	Concurrency int    `short:"j" long:"concurrency" env:"CONCURRENCY"    description:"Parallel model loads"             default:"4"`
	Preview     int    `long:"preview-size"          env:"PREVIEW_SIZE"   description:"Longest edge of texture previews" default:"256"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Setup Logging
	opts.Logger.Setup()

	// Load Config
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	client := &http.Client{
		Transport: &http.Transport{
			TLSNextProto:        make(map[string]func(string, *tls.Conn) http.RoundTripper),
			MaxIdleConns:        opts.Concurrency,
			MaxIdleConnsPerHost: opts.Concurrency,
		},
		Timeout: 15 * time.Second,
	}

	v, err := app.Build(cfg, asset.NewLoader(client, opts.Concurrency), nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create map view")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.Populate(ctx, v, cfg, nil)

	loopErr := make(chan error, 1)
	go func() { loopErr <- v.Run(ctx) }()

	srvCtx := server.NewServerContext(v)
	srvCtx.PreviewSize = opts.Preview

	// Routes
	mux := http.NewServeMux()
	srvCtx.Routes(mux)

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           server.RequestLogger(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().
		Str("addr", listenAddr).
		Int("anchors", len(cfg.Anchors)).
		Str("projection", cfg.View.Projection).
		Msg("Web server started")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}

	if err := <-loopErr; err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("Render loop failed")
	}
	log.Info().Msg("Server stopped")
}
