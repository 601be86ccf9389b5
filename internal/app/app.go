package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jgivc/rocketimages/internal/adapter/httpclient"
	"github.com/jgivc/rocketimages/internal/config"
	"github.com/jgivc/rocketimages/internal/entity"
	"github.com/jgivc/rocketimages/internal/pipeline"
	"github.com/jgivc/rocketimages/internal/repository/run"
	"github.com/jgivc/rocketimages/internal/service/extract"
	"github.com/jgivc/rocketimages/internal/service/greet"
	"github.com/jgivc/rocketimages/internal/service/notify"
	"github.com/jgivc/rocketimages/internal/service/report"
	"github.com/jgivc/rocketimages/internal/service/transform"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
)

const (
	StepGreet     = "hello_world"
	StepExtract   = "extract"
	StepTransform = "transform"
	StepNotify    = "notify"
	StepReport    = "report"

	pingTimeout    = 5 * time.Second
	historyTimeout = 5 * time.Second
)

type RunRepository interface {
	Save(ctx context.Context, run *entity.Run) error
	List(ctx context.Context, limit int) ([]*entity.Run, error)
}

// Deps are the collaborators of the app. Zero fields are built from the config.
type Deps struct {
	Log     *slog.Logger
	Fs      afero.Fs
	Client  *http.Client
	Out     io.Writer // Progress lines, stdout by default
	History RunRepository
}

type App struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	history  RunRepository
	rdb      *redis.Client
	log      *slog.Logger
}

func New(cfg *config.Config) (*App, error) {
	return NewWithDeps(cfg, Deps{})
}

func NewWithDeps(cfg *config.Config, deps Deps) (*App, error) {
	a := &App{cfg: cfg}

	if deps.Log == nil {
		log, err := NewLogger(os.Stderr, cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		deps.Log = log
	}
	a.log = deps.Log.With(slog.String("item", "App"))

	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}

	if deps.Client == nil {
		deps.Client = httpclient.New(cfg.HTTP)
	}

	if deps.Out == nil {
		deps.Out = os.Stdout
	}

	if deps.History == nil {
		history, err := a.newHistory(deps.Log)
		if err != nil {
			return nil, err
		}
		deps.History = history
	}
	a.history = deps.History

	p, err := buildPipeline(cfg, deps)
	if err != nil {
		a.Close()

		return nil, err
	}
	a.pipeline = p

	return a, nil
}

func NewLogger(w io.Writer, level string) (*slog.Logger, error) {
	lo := &slog.HandlerOptions{}
	switch level {
	case config.LogLevelInfo:
		lo.Level = slog.LevelInfo
	case config.LogLevelWarn:
		lo.Level = slog.LevelWarn
	case config.LogLevelError:
		lo.Level = slog.LevelError
	case config.LogLevelDebug:
		lo.Level = slog.LevelDebug
	default:
		return nil, fmt.Errorf("unknown log level: %q", level)
	}

	return slog.New(slog.NewTextHandler(w, lo)), nil
}

func (a *App) newHistory(log *slog.Logger) (RunRepository, error) {
	if a.cfg.RedisURL == "" {
		a.log.Info("Keep run history in memory")

		return run.NewMemoryRepository(a.cfg.History.MaxRuns), nil
	}

	opt, err := redis.ParseURL(a.cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("cannot parse redis url: %w", err)
	}

	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()

		return nil, fmt.Errorf("cannot connect to redis: %w", err)
	}

	a.rdb = rdb
	a.log.Info("Keep run history in redis", slog.String("addr", opt.Addr))

	return run.NewRunRepository(rdb, a.cfg.History.MaxRuns, log), nil
}

func buildPipeline(cfg *config.Config, d Deps) (*pipeline.Pipeline, error) {
	greeter := greet.NewGreetService(d.Log)

	extractor, err := extract.NewExtractService(d.Client, &cfg.API, d.Log)
	if err != nil {
		return nil, fmt.Errorf("cannot create extract service: %w", err)
	}

	transformer := transform.NewTransformServiceWithOutput(d.Fs, d.Client, &cfg.Transform, d.Out, d.Log)

	steps := []pipeline.Step{
		pipeline.Source(StepGreet, greeter.Greet),
		pipeline.Source(StepExtract, extractor.Extract),
		pipeline.Stage(StepTransform, StepExtract, transformer.Transform),
	}

	if cfg.Pipeline.Notify {
		var skip []string
		if cfg.Pipeline.Report {
			skip = append(skip, cfg.Report.FileName)
		}

		notifier := notify.NewNotifyService(d.Fs, cfg.Transform.ScratchDir, d.Out, d.Log, skip...)
		steps = append(steps, pipeline.Source(StepNotify, notifier.Notify))
	}

	if cfg.Pipeline.Report {
		reporter, err := report.NewReportService(d.Fs, &cfg.Report, cfg.Transform.ScratchDir, d.Log)
		if err != nil {
			return nil, fmt.Errorf("cannot create report service: %w", err)
		}

		steps = append(steps, pipeline.Stage(StepReport, StepTransform, reporter.Report))
	}

	return pipeline.New(cfg.Pipeline.Name, d.Log, steps...)
}

func (a *App) Pipeline() *pipeline.Pipeline {
	return a.pipeline
}

// Run executes the pipeline once and records it in the run history.
func (a *App) Run(ctx context.Context) (*pipeline.Result, error) {
	res, runErr := a.pipeline.Run(ctx)

	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyTimeout)
	defer cancel()

	if err := a.history.Save(hctx, res.Run()); err != nil {
		a.log.Error("Cannot save run history", slog.String("run_id", res.RunID), slog.Any("error", err))
	}

	return res, runErr
}

func (a *App) History(ctx context.Context, limit int) ([]*entity.Run, error) {
	runs, err := a.history.List(ctx, limit)
	if err != nil {
		a.log.Error("Cannot get run history", slog.Any("error", err))

		return nil, fmt.Errorf("cannot get run history: %w", err)
	}

	return runs, nil
}

// HistoryPersistent reports whether the run history outlives the process.
func (a *App) HistoryPersistent() bool {
	return a.rdb != nil
}

func (a *App) Close() error {
	if a.rdb == nil {
		return nil
	}

	return a.rdb.Close()
}
