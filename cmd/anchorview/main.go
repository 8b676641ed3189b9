package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/woozymasta/geoanchor/internal/app"
	"github.com/woozymasta/geoanchor/internal/asset"
	"github.com/woozymasta/geoanchor/internal/config"
	"github.com/woozymasta/geoanchor/internal/logger"
	"github.com/woozymasta/geoanchor/internal/mapview"
	"github.com/woozymasta/geoanchor/internal/report"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile  string        `short:"c" long:"config"      env:"CONFIG_FILE" description:"Path to scene configuration file" default:"scene.yaml"`
	Output      string        `short:"o" long:"out"         description:"Report output path. Writes to stdout if empty"`
	Frames      int           `short:"n" long:"frames"      env:"FRAMES"      description:"Frames to render after all models are loaded" default:"60"`
	Timeout     time.Duration `short:"t" long:"timeout"     env:"TIMEOUT"     description:"Give up after this long" default:"1m"`
	Concurrency int           `short:"p" long:"concurrency" env:"CONCURRENCY" description:"Parallel model loads" default:"4"`
	Minify      bool          `short:"m" long:"minify"      description:"Minify the JSON report"`
}

// Report is the document written by anchorview.
type Report struct {
	Loaded app.Summary   `json:"loaded"`
	View   report.View   `json:"view"`
	Tiles  []report.Tile `json:"tiles"`
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

	opts.Logger.Setup()

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
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	var (
		loaded   app.Summary
		finished bool
		rendered int
	)

	v.On(mapview.EventAfterRender, func(mapview.Event) {
		if !finished {
			return
		}
		rendered++
		if rendered >= opts.Frames {
			cancel()
		}
	})

	app.Populate(ctx, v, cfg, func(s app.Summary) {
		loaded, finished = s, true
		// keep frames coming until the report frames are rendered
		v.BeginAnimation()
		if opts.Frames <= 0 {
			cancel()
		}
	})

	log.Info().
		Str("config", opts.ConfigFile).
		Int("anchors", len(cfg.Anchors)).
		Int("frames", opts.Frames).
		Msg("Rendering scene")

	if err := v.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Bool("loaded", finished).Msg("Scene did not finish")
	}

	out := Report{Loaded: loaded, View: report.BuildView(v)}
	for _, t := range v.Tiles().Tiles() {
		out.Tiles = append(out.Tiles, report.Detail(t))
	}

	w := os.Stdout
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create report file")
		}
		defer f.Close()
		w = f
	}

	if err := report.Encode(w, out, opts.Minify); err != nil {
		log.Fatal().Err(err).Msg("Failed to write report")
	}

	log.Info().
		Int("placed", loaded.Placed).
		Int("anchored", loaded.Anchored).
		Int("failed", loaded.Failed).
		Int("frames", v.Stats().Frames).
		Str("output", opts.Output).
		Msg("Report written")
}
