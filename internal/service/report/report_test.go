package report

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/jgivc/rocketimages/internal/config"
	"github.com/jgivc/rocketimages/internal/entity"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const dir = "/tmp/images"

var results = []entity.DownloadResult{
	{URL: "https://x.test/a.jpg", Status: entity.DownloadSaved, Path: dir + "/a.jpg"},
	{URL: "not-a-url", Status: entity.DownloadSkippedInvalidURL},
	{URL: "https://down.test/b.jpg", Status: entity.DownloadSkippedConnection},
}

func TestReport(t *testing.T) {
	testCases := []struct {
		name        string
		header      string
		wantTitle   string
		wantContain []string
	}{
		{
			name:      "Default title",
			wantTitle: "<title>" + DefaultTitle + "</title>",
		},
		{
			name: "Header with frontmatter",
			header: `---
title: Next launches
---

Images of the *next* launches.
`,
			wantTitle:   "<title>Next launches</title>",
			wantContain: []string{"<em>next</em>"},
		},
		{
			name:        "Header without frontmatter",
			header:      "Plain header\n",
			wantTitle:   "<title>" + DefaultTitle + "</title>",
			wantContain: []string{"<p>Plain header</p>"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			cfg := &config.ReportConfig{FileName: "index.html"}

			if tc.header != "" {
				cfg.HeaderFile = "/etc/header.md"
				require.NoError(t, afero.WriteFile(fs, cfg.HeaderFile, []byte(tc.header), 0644))
			}

			log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
			srv, err := NewReportService(fs, cfg, dir, log)
			require.NoError(t, err)

			path, err := srv.Report(context.Background(), results)
			require.NoError(t, err)
			require.Equal(t, dir+"/index.html", path)

			content, err := afero.ReadFile(fs, path)
			require.NoError(t, err)

			html := string(content)
			require.Contains(t, html, tc.wantTitle)
			require.Contains(t, html, "<table>")
			require.Contains(t, html, `<img src="a.jpg" alt="a.jpg" />`)
			require.Contains(t, html, "<code>not-a-url</code>")
			require.Contains(t, html, "skipped_connection")
			require.Contains(t, html, "Saved: 1, skipped: 2.")
			require.NotContains(t, html, "title: Next launches")

			for _, s := range tc.wantContain {
				require.Contains(t, html, s)
			}
		})
	}
}

func TestReportEscapesImageLinks(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	fs := afero.NewMemMapFs()
	srv, err := NewReportService(fs, &config.ReportConfig{FileName: "index.html"}, dir, log)
	require.NoError(t, err)

	path, err := srv.Report(context.Background(), []entity.DownloadResult{
		{URL: "https://x.test/a.jpg?w=1", Status: entity.DownloadSaved, Path: dir + "/a.jpg?w=1"},
		{URL: "https://x.test/b.jpg#top", Status: entity.DownloadSaved, Path: dir + "/b.jpg#top"},
		{URL: "https://x.test/c d.jpg", Status: entity.DownloadSaved, Path: dir + "/c d.jpg"},
	})
	require.NoError(t, err)

	content, err := afero.ReadFile(fs, path)
	require.NoError(t, err)

	html := string(content)
	require.Contains(t, html, `src="a.jpg%3Fw=1"`)
	require.Contains(t, html, `src="b.jpg%23top"`)
	require.Contains(t, html, `src="c%20d.jpg"`)
	require.NotContains(t, html, `src="a.jpg?w=1"`)
}

func TestReportMissingHeader(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	srv, err := NewReportService(afero.NewMemMapFs(), &config.ReportConfig{FileName: "index.html", HeaderFile: "/missing.md"}, dir, log)
	require.NoError(t, err)

	_, err = srv.Report(context.Background(), results)
	require.Error(t, err)
}
