package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jgivc/rocketimages/internal/common"
	"github.com/jgivc/rocketimages/internal/config"
	"github.com/jgivc/rocketimages/internal/entity"
)

const (
	serviceName = "extract"

	upcomingPath = "2.0.0/launch/upcoming/"
	paramLimit   = "limit"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError is returned when the launch api answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s returned %d", common.ErrUnexpectedStatus, e.URL, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return common.ErrUnexpectedStatus }

type extractService struct {
	cl    HTTPClient
	url   string
	limit int
	log   *slog.Logger
}

func NewExtractService(cl HTTPClient, cfg *config.APIConfig, log *slog.Logger) (*extractService, error) {
	u, err := UpcomingURL(cfg.HostURL)
	if err != nil {
		return nil, err
	}

	return &extractService{
		cl:    cl,
		url:   u,
		limit: cfg.Limit,
		log:   log.With(slog.String("service", serviceName)),
	}, nil
}

// UpcomingURL joins the upcoming launches path onto hostURL the way a browser resolves a relative link.
func UpcomingURL(hostURL string) (string, error) {
	base, err := url.Parse(hostURL)
	if err != nil {
		return "", fmt.Errorf("cannot parse host url %q: %w", hostURL, err)
	}

	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("%w: host url %q must be absolute", common.ErrInvalidURL, hostURL)
	}

	return base.ResolveReference(&url.URL{Path: upcomingPath}).String(), nil
}

func (e *extractService) Extract(ctx context.Context) (*entity.LaunchCollection, error) {
	log := e.log.With(slog.String("url", e.url), slog.Int("limit", e.limit))
	log.Info("Get upcoming launches")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.url, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot create request: %w", err)
	}

	q := req.URL.Query()
	q.Set(paramLimit, strconv.Itoa(e.limit))
	req.URL.RawQuery = q.Encode()

	resp, err := e.cl.Do(req)
	if err != nil {
		log.Error("Cannot get upcoming launches", slog.Any("error", err))

		return nil, fmt.Errorf("cannot get upcoming launches: %w", err)
	}
	defer resp.Body.Close()

	log.Info("Response collected", slog.Int("status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := &StatusError{URL: req.URL.String(), StatusCode: resp.StatusCode}
		log.Error("Unexpected response status", slog.Any("error", err))

		return nil, err
	}

	var launches entity.LaunchCollection
	if err := json.NewDecoder(resp.Body).Decode(&launches); err != nil {
		log.Error("Cannot decode response", slog.Any("error", err))

		return nil, fmt.Errorf("%w: %w", common.ErrDecodeResponse, err)
	}

	log.Info("Received launches", slog.Int("count", len(launches.Results)))

	return &launches, nil
}
