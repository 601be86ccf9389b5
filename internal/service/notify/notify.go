package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/afero"
)

const (
	serviceName = "notify"
)

type notifyService struct {
	fs   afero.Fs
	dir  string
	skip map[string]struct{}
	out  io.Writer
	log  *slog.Logger
}

// NewNotifyService counts images in dir. Files named in skipFiles are not images and are not counted.
func NewNotifyService(fs afero.Fs, dir string, out io.Writer, log *slog.Logger, skipFiles ...string) *notifyService {
	if out == nil {
		out = os.Stdout
	}

	skip := make(map[string]struct{}, len(skipFiles))
	for _, name := range skipFiles {
		skip[name] = struct{}{}
	}

	return &notifyService{
		fs:   fs,
		dir:  dir,
		skip: skip,
		out:  out,
		log:  log.With(slog.String("service", serviceName)),
	}
}

func (n *notifyService) Notify(_ context.Context) (int, error) {
	entries, err := afero.ReadDir(n.fs, n.dir)
	if err != nil {
		n.log.Error("Cannot read scratch dir", slog.String("dir", n.dir), slog.Any("error", err))

		return 0, fmt.Errorf("cannot read dir %s: %w", n.dir, err)
	}

	var count int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if _, exists := n.skip[entry.Name()]; exists {
			continue
		}

		count++
	}

	n.log.Info("Count images", slog.String("dir", n.dir), slog.Int("count", count))
	fmt.Fprintf(n.out, "There are now %d images.\n", count)

	return count, nil
}
