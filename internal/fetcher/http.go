package fetcher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"p2pool-monitor/internal/logging"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "p2poolmon/1.0"
	maxBodyBytes     = 32 << 20
)

// Options parameterise an HTTP snapshot source.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// Client overrides the HTTP client; Timeout is ignored when set.
	Client *http.Client
}

// DecodeFunc turns a raw response body into a snapshot.
type DecodeFunc[T any] func(body []byte) (T, error)

// HTTPSource fetches a JSON document with GET baseURL+path.
type HTTPSource[T any] struct {
	name      string
	path      string
	baseURL   string
	userAgent string
	client    *http.Client
	decode    DecodeFunc[T]
	logger    zerolog.Logger
}

// NewHTTPSource builds a source for path. A nil decode unmarshals the body
// as a single JSON document.
func NewHTTPSource[T any](name, path string, opts Options, decode DecodeFunc[T], logger zerolog.Logger) *HTTPSource[T] {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	if decode == nil {
		decode = decodeDocument[T]
	}

	return &HTTPSource[T]{
		name:      name,
		path:      path,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: userAgent,
		client:    client,
		decode:    decode,
		logger:    logging.Component(logger, "source").With().Str("source", name).Logger(),
	}
}

// Name identifies the source in logs and state.
func (s *HTTPSource[T]) Name() string { return s.name }

// Path is the request path relative to the base URL.
func (s *HTTPSource[T]) Path() string { return s.path }

// Fetch performs one round trip and decodes the result.
func (s *HTTPSource[T]) Fetch(ctx context.Context) (T, error) {
	var zero T

	body, err := get(ctx, s.client, s.baseURL+s.path, s.path, s.userAgent)
	if err != nil {
		s.logger.Debug().Err(err).Msg("fetch failed")
		return zero, err
	}

	snapshot, err := s.decode(body)
	if err != nil {
		return zero, &DecodeError{Path: s.path, Err: err}
	}
	return snapshot, nil
}

func get(ctx context.Context, client *http.Client, url, path, userAgent string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{Path: path, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &TransportError{Path: path, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{Path: path, Err: err}
	}
	return body, nil
}

func decodeDocument[T any](body []byte) (T, error) {
	var out T
	if bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return out, errNullDocument
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, err
	}
	return out, nil
}

var errNullDocument = errors.New("document is null")

// decodeList accepts either a JSON array or a stream of newline-delimited
// JSON values. An empty body is an empty list.
func decodeList[E any](body []byte) ([]E, error) {
	trimmed := bytes.TrimSpace(body)
	out := make([]E, 0)
	if len(trimmed) == 0 {
		return out, nil
	}
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, err
		}
		return out, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	for dec.More() {
		var item E
		if err := dec.Decode(&item); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

var _ Source[struct{}] = (*HTTPSource[struct{}])(nil)
