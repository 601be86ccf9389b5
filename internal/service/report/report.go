package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	_ "embed"

	"github.com/jgivc/rocketimages/internal/config"
	"github.com/jgivc/rocketimages/internal/entity"
	"github.com/spf13/afero"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"go.abhg.dev/goldmark/frontmatter"
)

const (
	serviceName = "report"

	DefaultTitle = "Upcoming launches"

	filePerm = 0644
)

//go:embed report.html
var defaultTemplate string

type Frontmatter struct {
	Title string `yaml:"title"`
}

type page struct {
	Title     string
	Content   template.HTML
	Saved     int
	Skipped   int
	Generated time.Time
}

type reportService struct {
	fs  afero.Fs
	cfg *config.ReportConfig
	dir string
	md  goldmark.Markdown
	tpl *template.Template
	log *slog.Logger
}

func NewReportService(fs afero.Fs, cfg *config.ReportConfig, dir string, log *slog.Logger) (*reportService, error) {
	tpl, err := template.New(serviceName).Parse(defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("cannot parse report template: %w", err)
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			&frontmatter.Extender{},
		),
		goldmark.WithRendererOptions(
			html.WithXHTML(),
		),
	)

	return &reportService{
		fs:  fs,
		cfg: cfg,
		dir: dir,
		md:  md,
		tpl: tpl,
		log: log.With(slog.String("service", serviceName)),
	}, nil
}

// Report writes an html gallery of results into the scratch dir and returns its path.
func (r *reportService) Report(_ context.Context, results []entity.DownloadResult) (string, error) {
	header, err := r.readHeader()
	if err != nil {
		return "", err
	}

	var (
		src     bytes.Buffer
		saved   int
		skipped int
	)

	if len(header) > 0 {
		src.Write(header)
		src.WriteString("\n\n")
	}

	src.WriteString("| # | Image | Status |\n| --- | --- | --- |\n")
	for i, res := range results {
		cell := "`" + escapeCell(res.URL) + "`"
		if res.Saved() {
			name := filepath.Base(res.Path)
			cell = fmt.Sprintf("![%s](<%s>)", escapeCell(name), url.PathEscape(name))
			saved++
		} else {
			skipped++
		}

		fmt.Fprintf(&src, "| %d | %s | %s |\n", i+1, cell, res.Status)
	}

	var content bytes.Buffer
	ctx := parser.NewContext()
	if err := r.md.Convert(src.Bytes(), &content, parser.WithContext(ctx)); err != nil {
		return "", fmt.Errorf("cannot convert markdown: %w", err)
	}

	title := DefaultTitle
	if fm := frontmatter.Get(ctx); fm != nil {
		var meta Frontmatter
		if err := fm.Decode(&meta); err != nil {
			return "", fmt.Errorf("cannot decode frontmatter: %w", err)
		}

		if meta.Title != "" {
			title = meta.Title
		}
	}

	var buf bytes.Buffer
	if err := r.tpl.Execute(&buf, &page{
		Title:     title,
		Content:   template.HTML(content.String()),
		Saved:     saved,
		Skipped:   skipped,
		Generated: time.Now(),
	}); err != nil {
		return "", fmt.Errorf("cannot execute template: %w", err)
	}

	path := filepath.Join(r.dir, r.cfg.FileName)
	if err := afero.WriteFile(r.fs, path, buf.Bytes(), filePerm); err != nil {
		r.log.Error("Cannot write report", slog.String("path", path), slog.Any("error", err))

		return "", fmt.Errorf("cannot write report %s: %w", path, err)
	}

	r.log.Info("Report written", slog.String("path", path), slog.Int("saved", saved), slog.Int("skipped", skipped))

	return path, nil
}

func (r *reportService) readHeader() ([]byte, error) {
	if r.cfg.HeaderFile == "" {
		return nil, nil
	}

	content, err := afero.ReadFile(r.fs, r.cfg.HeaderFile)
	if err != nil {
		return nil, fmt.Errorf("cannot read header file %s: %w", r.cfg.HeaderFile, err)
	}

	return content, nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
