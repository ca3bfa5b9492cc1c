// Package config reads the worker configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Store backends for model artifacts.
const (
	StoreFile = "file"
	StoreGCS  = "gcs"
)

// Config holds every setting the worker needs.
type Config struct {
	ModelStore string `validate:"oneof=file gcs"`
	ModelDir   string `validate:"required_if=ModelStore file"`
	GCSBucket  string `validate:"required_if=ModelStore gcs"`

	BQProject string `validate:"required"`
	BQDataset string `validate:"required"`

	CacheTTL        time.Duration `validate:"gt=0"`
	RetrainInterval time.Duration `validate:"gt=0"`

	WorkerCount int `validate:"min=1,max=64"`
	QueueBuffer int `validate:"min=1"`

	RandomSeed uint64
	LogLevel   string `validate:"oneof=debug info warn warning error"`

	// GeminiModel enables narrative dashboard summaries when set.
	GeminiModel string
}

// Defaults returns the configuration used for unset keys.
func Defaults() Config {
	return Config{
		ModelStore:      StoreFile,
		ModelDir:        "models",
		CacheTTL:        7 * 24 * time.Hour,
		RetrainInterval: 7 * 24 * time.Hour,
		WorkerCount:     5,
		QueueBuffer:     100,
		RandomSeed:      42,
		LogLevel:        "info",
	}
}

var validate = validator.New()

// Load reads an optional .env file from the working directory, then the
// process environment, and validates the result.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("Load: reading .env: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from lookup, which reports whether a key is set.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Defaults()
	r := reader{lookup: lookup}

	r.str("MODEL_STORE", &cfg.ModelStore)
	r.str("MODEL_DIR", &cfg.ModelDir)
	r.str("GCS_BUCKET", &cfg.GCSBucket)
	r.str("BQ_PROJECT", &cfg.BQProject)
	r.str("BQ_DATASET", &cfg.BQDataset)
	r.duration("CACHE_TTL", &cfg.CacheTTL)
	r.duration("RETRAIN_INTERVAL", &cfg.RetrainInterval)
	r.integer("WORKER_COUNT", &cfg.WorkerCount)
	r.integer("QUEUE_BUFFER", &cfg.QueueBuffer)
	r.seed("RANDOM_SEED", &cfg.RandomSeed)
	r.str("LOG_LEVEL", &cfg.LogLevel)
	r.str("GEMINI_MODEL", &cfg.GeminiModel)

	if r.err != nil {
		return Config{}, r.err
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("FromLookup: invalid config: %w", err)
	}
	return cfg, nil
}

// reader keeps the first parse error so keys can be read without checking
// each one.
type reader struct {
	lookup func(string) (string, bool)
	err    error
}

func (r *reader) get(key string) (string, bool) {
	if r.err != nil {
		return "", false
	}
	v, ok := r.lookup(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (r *reader) fail(key, v string, err error) {
	r.err = fmt.Errorf("FromLookup: parsing %s=%q: %w", key, v, err)
}

func (r *reader) str(key string, dst *string) {
	if v, ok := r.get(key); ok {
		*dst = v
	}
}

func (r *reader) duration(key string, dst *time.Duration) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, v, err)
		return
	}
	*dst = d
}

func (r *reader) integer(key string, dst *int) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, v, err)
		return
	}
	*dst = n
}

func (r *reader) seed(key string, dst *uint64) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		r.fail(key, v, err)
		return
	}
	*dst = n
}
