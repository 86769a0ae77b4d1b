// Package upstream fetches raw cat images from the external provider.
//
// The provider answers in one of two shapes: a raw image payload, or a
// JSON envelope listing image URLs that the client then downloads. Both
// shapes surface the same classified failures.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/TheGhostHuCodes/catscii/internal/telemetry"
)

// Image is a raw upstream payload plus its declared media type.
type Image struct {
	Bytes       []byte
	ContentType string
}

// Source is the fetch contract consumed by the coordinator.
type Source interface {
	Fetch(ctx context.Context) (Image, error)
}

// Config controls Client behavior.
type Config struct {
	APIURL  string
	APIKey  string
	Timeout time.Duration
	// RateRPS caps outbound calls to the provider; zero or negative
	// disables the limit. Burst defaults to 1.
	RateRPS   float64
	RateBurst int
}

// Client performs one provider round trip per Fetch call. It holds no
// mutable state beyond the shared rate limiter.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// New builds a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Limit(cfg.RateRPS)
	if cfg.RateRPS <= 0 {
		limit = rate.Inf
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger,
	}
}

type envelopeEntry struct {
	URL string `json:"url"`
}

// Fetch performs one upstream fetch: wait for a rate token, call the API,
// and if the API answered with a JSON envelope, download the referenced
// image. Failures are always classified as *Failure.
func (c *Client) Fetch(ctx context.Context) (Image, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Image{}, fmt.Errorf("rate limit wait: %w", err)
	}

	start := time.Now()
	img, err := c.fetch(ctx)
	if err != nil {
		var failure *Failure
		outcome := "error"
		if errors.As(err, &failure) {
			outcome = string(failure.Kind)
		}
		telemetry.ObserveFetch(outcome, time.Since(start))
		return Image{}, err
	}
	telemetry.ObserveFetch("success", time.Since(start))
	c.logger.Debug("fetched upstream image",
		zap.String("content_type", img.ContentType),
		zap.Int("bytes", len(img.Bytes)),
		zap.Duration("duration", time.Since(start)),
	)
	return img, nil
}

func (c *Client) fetch(ctx context.Context) (Image, error) {
	body, contentType, err := c.get(ctx, c.cfg.APIURL, true)
	if err != nil {
		return Image{}, err
	}
	if strings.HasPrefix(contentType, "image/") {
		return Image{Bytes: body, ContentType: contentType}, nil
	}

	imageURL, err := c.parseEnvelope(body)
	if err != nil {
		return Image{}, err
	}
	imgBody, imgType, err := c.get(ctx, imageURL, false)
	if err != nil {
		return Image{}, err
	}
	return Image{Bytes: imgBody, ContentType: imgType}, nil
}

// parseEnvelope extracts the first image URL from the provider's JSON
// answer. A malformed or empty envelope counts as an empty payload: the
// provider answered, but handed us nothing to render.
func (c *Client) parseEnvelope(body []byte) (string, error) {
	var entries []envelopeEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return "", &Failure{
			Kind: KindEmptyBody,
			At:   time.Now().UTC(),
			err:  fmt.Errorf("parse provider envelope: %w", err),
		}
	}
	if len(entries) == 0 || entries[0].URL == "" {
		return "", &Failure{
			Kind: KindEmptyBody,
			At:   time.Now().UTC(),
			err:  errors.New("provider envelope lists no images"),
		}
	}
	return entries[0].URL, nil
}

func (c *Client) get(ctx context.Context, url string, withKey bool) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	if withKey && c.cfg.APIKey != "" {
		req.Header.Set("x-api-key", c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", c.classifyTransportError(err)
	}
	defer resp.Body.Close() //nolint:errcheck // read side closed below

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &Failure{
			Kind:   KindUpstreamStatus,
			Status: resp.StatusCode,
			At:     time.Now().UTC(),
			err:    fmt.Errorf("GET %s: status %d", url, resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", c.classifyTransportError(err)
	}
	if len(body) == 0 {
		return nil, "", &Failure{
			Kind: KindEmptyBody,
			At:   time.Now().UTC(),
			err:  fmt.Errorf("GET %s: empty body", url),
		}
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func (c *Client) classifyTransportError(err error) error {
	kind := KindTimeout
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
	case errors.As(err, &netErr) && netErr.Timeout():
	default:
		// Connection refused, DNS failure, canceled context: the
		// provider never answered, which we surface as an upstream
		// problem rather than a timeout.
		kind = KindUpstreamStatus
	}
	return &Failure{Kind: kind, At: time.Now().UTC(), err: err}
}
