package transform

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/jgivc/rocketimages/internal/common"
	"github.com/jgivc/rocketimages/internal/config"
	"github.com/jgivc/rocketimages/internal/entity"
	"github.com/spf13/afero"
)

const (
	serviceName = "transform"

	dirPerm  = 0755
	filePerm = 0644
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError is returned when an image url answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s returned %d", common.ErrUnexpectedStatus, e.URL, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return common.ErrUnexpectedStatus }

type transformService struct {
	fs  afero.Fs
	cl  HTTPClient
	cfg *config.TransformConfig
	out io.Writer
	log *slog.Logger
}

func NewTransformService(fs afero.Fs, cl HTTPClient, cfg *config.TransformConfig, log *slog.Logger) *transformService {
	return NewTransformServiceWithOutput(fs, cl, cfg, os.Stdout, log)
}

// NewTransformServiceWithOutput is NewTransformService with progress lines sent to out instead of stdout.
func NewTransformServiceWithOutput(fs afero.Fs, cl HTTPClient, cfg *config.TransformConfig, out io.Writer, log *slog.Logger) *transformService {
	return &transformService{
		fs:  fs,
		cl:  cl,
		cfg: cfg,
		out: out,
		log: log.With(slog.String("service", serviceName)),
	}
}

/*
Transform downloads the image of every launch into the scratch dir, one by one.
A collection without results fails before the dir is created. Invalid urls and connection failures are reported and skipped. Anything else
stops the batch and is returned.
*/
func (t *transformService) Transform(ctx context.Context, launches *entity.LaunchCollection) ([]entity.DownloadResult, error) {
	if launches == nil || launches.Results == nil {
		return nil, common.ErrMissingResults
	}
	records := launches.Results

	if err := t.fs.MkdirAll(t.cfg.ScratchDir, dirPerm); err != nil {
		return nil, fmt.Errorf("cannot create scratch dir %s: %w", t.cfg.ScratchDir, err)
	}

	imageURLs := make([]string, 0, len(records))
	for i, record := range records {
		imageURL, ok := record.Image()
		if !ok {
			return nil, fmt.Errorf("%w: record %d", common.ErrMissingImage, i)
		}
		imageURLs = append(imageURLs, imageURL)
	}

	t.log.Info("Download images", slog.Int("count", len(imageURLs)), slog.String("dir", t.cfg.ScratchDir))

	written := make(map[string]string, len(imageURLs))
	results := make([]entity.DownloadResult, 0, len(imageURLs))

	for _, imageURL := range imageURLs {
		res, err := t.download(ctx, imageURL)
		if err != nil {
			t.log.Error("Cannot download image", slog.String("url", imageURL), slog.Any("error", err))

			return results, err
		}

		switch res.Status {
		case entity.DownloadSaved:
			if prev, exists := written[res.Path]; exists {
				t.log.Warn("File overwritten", slog.String("path", res.Path), slog.String("previous_url", prev), slog.String("url", imageURL))
			}
			written[res.Path] = imageURL
			fmt.Fprintf(t.out, "Downloaded %s to %s\n", imageURL, res.Path)
		case entity.DownloadSkippedInvalidURL:
			fmt.Fprintf(t.out, "%s appears to be an invalid URL.\n", imageURL)
		case entity.DownloadSkippedConnection:
			fmt.Fprintf(t.out, "Could not connect to %s.\n", imageURL)
		}

		results = append(results, res)
	}

	return results, nil
}

func (t *transformService) download(ctx context.Context, imageURL string) (entity.DownloadResult, error) {
	res := entity.DownloadResult{URL: imageURL}
	log := t.log.With(slog.String("url", imageURL))

	if !ValidURL(imageURL) {
		log.Debug("Skip invalid url")
		res.Status = entity.DownloadSkippedInvalidURL

		return res, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		log.Debug("Skip invalid url", slog.Any("error", err))
		res.Status = entity.DownloadSkippedInvalidURL

		return res, nil
	}

	resp, err := t.cl.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return res, fmt.Errorf("cannot get %s: %w", imageURL, ctx.Err())
		}

		log.Debug("Skip unreachable url", slog.Any("error", err))
		res.Status = entity.DownloadSkippedConnection

		return res, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return res, &StatusError{URL: imageURL, StatusCode: resp.StatusCode}
	}

	fileName, err := FileName(imageURL)
	if err != nil {
		return res, err
	}

	target := filepath.Join(t.cfg.ScratchDir, fileName)
	if err := t.writeFile(target, resp.Body); err != nil {
		return res, err
	}

	log.Info("Image saved", slog.String("path", target))
	res.Status = entity.DownloadSaved
	res.Path = target

	return res, nil
}

func (t *transformService) writeFile(path string, r io.Reader) error {
	f, err := t.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w", path, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()

		return fmt.Errorf("cannot write %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("cannot close %s: %w", path, err)
	}

	return nil
}

// ValidURL reports whether rawURL is an absolute http(s) url with a host.
func ValidURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return false
	}

	return u.Host != ""
}

// FileName is the part of rawURL after its last slash.
func FileName(rawURL string) (string, error) {
	name := rawURL[strings.LastIndex(rawURL, "/")+1:]

	switch name {
	case "", ".", "..":
		return "", fmt.Errorf("%w: %q", common.ErrInvalidFileName, rawURL)
	}

	return name, nil
}
