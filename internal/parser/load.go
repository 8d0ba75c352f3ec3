package parser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/mathmatrix/internal/metrics"
)

// Source opens a delimited-text resource by location.
type Source interface {
	CanOpen(location string) bool
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// Loader fetches resources through its registered sources and parses them.
// Failures are absorbed: the caller always gets a Table, possibly empty.
type Loader struct {
	sources []Source
	log     *zap.Logger
}

// NewLoader returns a loader that reads http(s) URLs with client and
// everything else from the local filesystem.
func NewLoader(client *http.Client, log *zap.Logger) *Loader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	l := &Loader{log: log}
	l.Register(httpSource{client: client})
	l.Register(fileSource{})
	return l
}

// Register adds a source. Sources are tried in registration order.
func (l *Loader) Register(s Source) {
	l.sources = append(l.sources, s)
}

// Load fetches and parses location. Any fetch or decode failure yields an
// empty Table. Locations ending in .xlsx are read as workbooks.
func (l *Loader) Load(ctx context.Context, location string) Table {
	data, err := l.fetch(ctx, location)
	if err != nil {
		l.log.Warn("csv load failed", zap.String("source", location), zap.Error(err))
		metrics.CSVLoads.WithLabelValues(sourceLabel(location), "error").Inc()
		return Table{}
	}
	t, err := decode(location, data)
	if err != nil {
		l.log.Warn("csv load failed", zap.String("source", location), zap.Error(err))
		metrics.CSVLoads.WithLabelValues(sourceLabel(location), "error").Inc()
		return Table{}
	}
	metrics.CSVLoads.WithLabelValues(sourceLabel(location), "ok").Inc()
	l.log.Debug("csv loaded", zap.String("source", location), zap.Int("records", t.Len()))
	return t
}

// LoadPair loads the metrics and feedback resources concurrently and returns
// once both have completed or failed.
func (l *Loader) LoadPair(ctx context.Context, metricsLoc, feedbackLoc string) (Table, Table) {
	var perf, feedback Table
	var g errgroup.Group
	g.Go(func() error {
		perf = l.Load(ctx, metricsLoc)
		return nil
	})
	g.Go(func() error {
		feedback = l.Load(ctx, feedbackLoc)
		return nil
	})
	_ = g.Wait()
	return perf, feedback
}

func (l *Loader) fetch(ctx context.Context, location string) ([]byte, error) {
	if strings.TrimSpace(location) == "" {
		return nil, fmt.Errorf("empty source location")
	}
	for _, s := range l.sources {
		if !s.CanOpen(location) {
			continue
		}
		rc, err := s.Open(ctx, location)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", location, err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("no source can open %q", location)
}

// decode parses workbooks by extension and everything else as text.
func decode(location string, data []byte) (Table, error) {
	if IsWorkbook(location) {
		return ParseXLSX(data)
	}
	return Parse(string(data)), nil
}

func sourceLabel(location string) string {
	if i := strings.LastIndexAny(location, `/\`); i >= 0 {
		location = location[i+1:]
	}
	if i := strings.IndexByte(location, '?'); i >= 0 {
		location = location[:i]
	}
	return location
}

type httpSource struct{ client *http.Client }

func (httpSource) CanOpen(location string) bool {
	l := strings.ToLower(location)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

func (s httpSource) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", location, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: unexpected status %s", location, resp.Status)
	}
	return resp.Body, nil
}

type fileSource struct{}

func (fileSource) CanOpen(string) bool { return true }

func (fileSource) Open(_ context.Context, location string) (io.ReadCloser, error) {
	f, err := os.Open(location)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	return f, nil
}
