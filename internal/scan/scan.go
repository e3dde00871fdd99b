// Package scan drives both translation phases over source files: it
// normalizes, tokenizes, consults the token cache and writes debug artifacts.
package scan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ppscan/internal/cache"
	"ppscan/internal/grammar"
	"ppscan/internal/lexer"
	"ppscan/internal/logging"
	"ppscan/internal/normalize"
	"ppscan/internal/srcpos"
)

// Result is the outcome of scanning one file.
type Result struct {
	Path string
	Raw  []byte
	// Text is the normalized buffer the tokens refer to.
	Text   []byte
	Tokens []lexer.Token
	Index  *srcpos.Index
	// Stall is set when tokenization stopped before the end of Text.
	Stall  *lexer.StallError
	Cached bool
}

// Scanner runs the phases with shared settings. It is safe for concurrent
// use.
type Scanner struct {
	g         *grammar.Grammar
	headers   lexer.HeaderMode
	workers   int
	artifacts string
	cache     *cache.Store
	log       *slog.Logger

	mu    sync.Mutex
	runID string
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithHeaderNames sets where header names are recognized.
func WithHeaderNames(m lexer.HeaderMode) Option {
	return func(s *Scanner) { s.headers = m }
}

// WithWorkers limits how many files Files scans at once.
func WithWorkers(n int) Option {
	return func(s *Scanner) { s.workers = n }
}

// WithArtifacts writes <name>.phase1 and <name>.phase2 for every file to dir.
func WithArtifacts(dir string) Option {
	return func(s *Scanner) { s.artifacts = dir }
}

// WithCache stores and reuses token streams in c.
func WithCache(c *cache.Store) Option {
	return func(s *Scanner) { s.cache = c }
}

// WithLogger sets the logger for per-file summaries.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) { s.log = l }
}

// New returns a Scanner using g, or grammar.Default when g is nil.
func New(g *grammar.Grammar, opts ...Option) *Scanner {
	if g == nil {
		g = grammar.Default()
	}
	s := &Scanner{g: g, workers: 1, log: logging.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	if s.workers < 1 {
		s.workers = 1
	}
	return s
}

// Source scans raw, the contents of the file called name. A stall is reported
// in the result, not as an error; errors come from the cache and artifacts.
func (s *Scanner) Source(ctx context.Context, name string, raw []byte) (*Result, error) {
	start := time.Now()
	norm := normalize.Bytes(raw)
	res := &Result{
		Path:  name,
		Raw:   raw,
		Text:  norm.Text,
		Index: srcpos.New(name, raw, norm),
	}

	var key string
	if s.cache != nil {
		key = cache.Key(raw, s.g.Fingerprint(), s.headers)
		entry, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("cache lookup for %s: %w", name, err)
		}
		if ok && bytes.Equal(entry.Normalized, norm.Text) {
			res.Tokens = entry.Tokens
			if entry.Stall >= 0 {
				res.Stall = &lexer.StallError{Offset: entry.Stall, Remainder: norm.Text[entry.Stall:]}
			}
			res.Cached = true
			s.log.Debug("cache hit", "file", name, "key", key[:12])
		}
	}

	if !res.Cached {
		toks, err := lexer.Tokenize(s.g, norm.Text, lexer.WithHeaderNames(s.headers))
		res.Tokens = toks
		var stall *lexer.StallError
		switch {
		case errors.As(err, &stall):
			res.Stall = stall
		case err != nil:
			return nil, fmt.Errorf("tokenize %s: %w", name, err)
		}
		if s.cache != nil {
			if err := s.store(ctx, key, res); err != nil {
				return nil, err
			}
		}
	}

	if s.artifacts != "" {
		if err := s.writeArtifacts(res); err != nil {
			return nil, err
		}
	}

	if res.Stall != nil {
		pos := res.Index.Position(res.Stall.Offset)
		s.log.Warn("tokenization stalled", "file", name, "offset", res.Stall.Offset, "position", pos.String())
	}
	s.log.Info("tokenized",
		"file", name,
		"bytes", len(raw),
		"tokens", len(res.Tokens),
		"cached", res.Cached,
		"duration", time.Since(start))
	return res, nil
}

func (s *Scanner) store(ctx context.Context, key string, res *Result) error {
	run, err := s.run(ctx)
	if err != nil {
		return err
	}
	entry := &cache.Entry{Normalized: res.Text, Tokens: res.Tokens, Stall: -1}
	if res.Stall != nil {
		entry.Stall = res.Stall.Offset
	}
	if err := s.cache.Put(ctx, key, res.Path, run, entry); err != nil {
		return fmt.Errorf("cache store for %s: %w", res.Path, err)
	}
	return nil
}

// run returns the cache run of this Scanner, starting one on first use.
func (s *Scanner) run(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runID != "" {
		return s.runID, nil
	}
	id, err := s.cache.BeginRun(ctx)
	if err != nil {
		return "", err
	}
	s.runID = id
	s.log.Debug("cache run started", "run", id)
	return id, nil
}

// Files reads and scans paths, up to the configured number at a time. Results
// are in the order of paths. The first read or infrastructure error cancels
// the remaining files.
func (s *Scanner) Files(ctx context.Context, paths []string) ([]*Result, error) {
	results := make([]*Result, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			raw, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}
			res, err := s.Source(ctx, path, raw)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Scanner) writeArtifacts(res *Result) error {
	if err := os.MkdirAll(s.artifacts, 0o755); err != nil {
		return fmt.Errorf("failed to create artifacts directory: %w", err)
	}
	base := filepath.Join(s.artifacts, ArtifactName(res.Path))
	if err := os.WriteFile(base+".phase1", res.Text, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}

	var b strings.Builder
	for _, tok := range res.Tokens {
		fmt.Fprintf(&b, "%d\t%d\t%s\t%s\n", tok.Offset, tok.Len, tok.Kind, strconv.Quote(tok.Text(res.Text)))
	}
	if res.Stall != nil {
		fmt.Fprintf(&b, "# %s\n", res.Stall)
	}
	if err := os.WriteFile(base+".phase2", []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return nil
}

// ArtifactName flattens path into a single file name.
func ArtifactName(path string) string {
	clean := filepath.ToSlash(filepath.Clean(path))
	clean = strings.TrimLeft(clean, "./")
	if clean == "" {
		return "stdin"
	}
	return strings.ReplaceAll(clean, "/", "_")
}
