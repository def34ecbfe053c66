package transcription

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"sematube/internal/logging"
)

// ModelCache keeps up to capacity loaded engines keyed by model size. Loading
// a new size past capacity evicts the least recently used engine and closes it
// when it implements io.Closer.
type ModelCache struct {
	load   Loader
	models *lru.Cache[string, Engine]
	group  singleflight.Group
	logger *slog.Logger
}

// NewModelCache builds a cache around load. Capacity below one is treated as one.
func NewModelCache(load Loader, capacity int, logger *slog.Logger) (*ModelCache, error) {
	if load == nil {
		return nil, fmt.Errorf("model cache: loader required")
	}
	if capacity < 1 {
		capacity = 1
	}
	logger = logging.NewComponentLogger(logger, "model-cache")
	models, err := lru.NewWithEvict(capacity, func(size string, engine Engine) {
		logger.Info("model evicted", logging.String("model_size", size), logging.String(logging.FieldEventType, "model_evicted"))
		if closer, ok := engine.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				logger.Warn("model close failed",
					logging.String("model_size", size),
					logging.Error(err),
					logging.String(logging.FieldEventType, "model_close_failed"),
					logging.String(logging.FieldErrorHint, "the engine may leak resources until process exit"),
				)
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("model cache: %w", err)
	}
	return &ModelCache{load: load, models: models, logger: logger}, nil
}

// Get returns the resident engine for size, loading it once when absent.
func (c *ModelCache) Get(ctx context.Context, size string) (Engine, error) {
	if engine, ok := c.models.Get(size); ok {
		return engine, nil
	}
	res, err, _ := c.group.Do(size, func() (any, error) {
		if engine, ok := c.models.Get(size); ok {
			return engine, nil
		}
		c.logger.Info("loading model", logging.String("model_size", size), logging.String(logging.FieldEventType, "model_load"))
		engine, err := c.load(ctx, size)
		if err != nil {
			return nil, err
		}
		c.models.Add(size, engine)
		return engine, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(Engine), nil
}

// Resident lists the loaded model sizes, least recently used first.
func (c *ModelCache) Resident() []string {
	return c.models.Keys()
}

// Close evicts every engine.
func (c *ModelCache) Close() {
	c.models.Purge()
}
