package asset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Poster runs a function on the owner's event loop.
type Poster interface {
	Post(fn func())
}

// Loader fetches and parses model files. Sources starting with http are
// downloaded, anything else is read from disk.
type Loader struct {
	client *http.Client
	logger zerolog.Logger
	sem    chan struct{}
}

// NewLoader returns a loader that runs at most concurrency parses at once.
// client may be nil.
func NewLoader(client *http.Client, concurrency int) *Loader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	return &Loader{
		client: client,
		logger: log.Logger,
		sem:    make(chan struct{}, concurrency),
	}
}

// WithLogger replaces the loader logger.
func (l *Loader) WithLogger(logger zerolog.Logger) *Loader {
	l.logger = logger
	return l
}

// Load fetches and parses src synchronously.
func (l *Loader) Load(ctx context.Context, src string) Result {
	select {
	case l.sem <- struct{}{}:
		defer func() { <-l.sem }()
	case <-ctx.Done():
		return failed(src, CategoryIO, ctx.Err())
	}

	start := time.Now()

	var res Result
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		data, err := l.fetch(ctx, src)
		if err != nil {
			return failed(src, CategoryIO, err)
		}
		res = Parse(data, src)
	} else {
		res = Open(src)
	}

	if res.Err == nil {
		l.logger.Debug().
			Str("source", src).
			Int("nodes", len(res.Scene.Children)).
			Int("animations", len(res.Animations)).
			Int("warnings", len(res.Warnings)).
			Dur("duration", time.Since(start)).
			Msg("Asset parsed")
	}

	return res
}

// LoadAsync parses src on a separate goroutine and posts done with the
// result to p. done is not called if ctx is cancelled before the load
// finishes.
func (l *Loader) LoadAsync(ctx context.Context, src string, p Poster, done func(Result)) {
	go func() {
		res := l.Load(ctx, src)
		if ctx.Err() != nil {
			l.logger.Debug().Str("source", src).Msg("Asset load cancelled")
			return
		}
		p.Post(func() { done(res) })
	}()
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
