package run

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jgivc/rocketimages/internal/common"
	"github.com/jgivc/rocketimages/internal/config"
	"github.com/jgivc/rocketimages/internal/entity"
	"github.com/redis/go-redis/v9"
)

const (
	KeyPrefix = "runs"
	KeyRunIDs = "ids"  // LIST. Newest run id first, trimmed to maxRuns.
	KeyRunMap = "data" // HASH. run_id: run json

	KeySeparator = ":"
)

type runRepository struct {
	cl      *redis.Client
	maxRuns int
	log     *slog.Logger
}

func NewRunRepository(cl *redis.Client, maxRuns int, log *slog.Logger) *runRepository {
	if maxRuns < 1 {
		maxRuns = config.DefaultMaxRuns
	}

	return &runRepository{
		cl:      cl,
		maxRuns: maxRuns,
		log:     log.With(slog.String("item", "RunRepository")),
	}
}

func (r *runRepository) Save(ctx context.Context, run *entity.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("cannot marshal run %s: %w", run.ID, err)
	}

	idsKey, mapKey := getKey(KeyPrefix, KeyRunIDs), getKey(KeyPrefix, KeyRunMap)

	pipe := r.cl.TxPipeline()
	pipe.HSet(ctx, mapKey, run.ID, data)
	pipe.LPush(ctx, idsKey, run.ID)
	trimmed := pipe.LRange(ctx, idsKey, int64(r.maxRuns), -1)
	pipe.LTrim(ctx, idsKey, 0, int64(r.maxRuns-1))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cannot save run %s: %w", run.ID, err)
	}

	if old := trimmed.Val(); len(old) > 0 {
		if _, err := r.cl.HDel(ctx, mapKey, old...).Result(); err != nil {
			return fmt.Errorf("cannot delete old runs: %w", err)
		}

		r.log.Info("Delete old runs", slog.Int("count", len(old)))
	}

	return nil
}

func (r *runRepository) Get(ctx context.Context, id string) (*entity.Run, error) {
	data, err := r.cl.HGet(ctx, getKey(KeyPrefix, KeyRunMap), id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrRunNotFound
		}

		return nil, fmt.Errorf("cannot get run %s: %w", id, err)
	}

	var run entity.Run
	if err := json.Unmarshal([]byte(data), &run); err != nil {
		return nil, fmt.Errorf("cannot unmarshal run %s: %w", id, err)
	}

	return &run, nil
}

// List returns up to limit runs, newest first.
func (r *runRepository) List(ctx context.Context, limit int) ([]*entity.Run, error) {
	if limit < 1 {
		return nil, nil
	}

	ids, err := r.cl.LRange(ctx, getKey(KeyPrefix, KeyRunIDs), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("cannot get run ids: %w", err)
	}

	if len(ids) < 1 {
		return nil, nil
	}

	values, err := r.cl.HMGet(ctx, getKey(KeyPrefix, KeyRunMap), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("cannot get runs: %w", err)
	}

	runs := make([]*entity.Run, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			r.log.Error("Run data is missing", slog.String("run_id", ids[i]))

			continue
		}

		var run entity.Run
		if err := json.Unmarshal([]byte(s), &run); err != nil {
			r.log.Error("Cannot unmarshal run", slog.String("run_id", ids[i]), slog.Any("error", err))

			continue
		}

		runs = append(runs, &run)
	}

	return runs, nil
}

func getKey(keys ...string) string {
	return strings.Join(keys, KeySeparator)
}
