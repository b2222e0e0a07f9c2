// Package common holds the setup shared by every CLI action.
package common

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/dtnitsch/chip-gate/models"
	"github.com/dtnitsch/chip-gate/pkg/chip"
	"github.com/dtnitsch/chip-gate/pkg/classifier"
	"github.com/dtnitsch/chip-gate/pkg/cooldown"
	"github.com/dtnitsch/chip-gate/pkg/events"
	"github.com/dtnitsch/chip-gate/pkg/intent"
	"github.com/dtnitsch/chip-gate/pkg/kvstore"
	"github.com/dtnitsch/chip-gate/pkg/resultcache"
	"github.com/dtnitsch/chip-gate/pkg/subject"
)

// ErrSetup marks failures to load config or open the store. main exits 2 on it.
var ErrSetup = errors.New("setup failed")

// Runtime is the wired collaborator graph for one CLI invocation.
type Runtime struct {
	Config     models.GateConfig
	Logger     *slog.Logger
	Store      kvstore.Store
	Cooldowns  *cooldown.Store
	Cache      *resultcache.Cache
	Classifier *classifier.Classifier
	Recorder   *events.Recorder
	Registry   *prometheus.Registry
	Sink       events.Sink

	metricsFile string
}

// NewLogger builds the JSON stderr logger from the global --quiet and --verbose flags.
func NewLogger(c *cli.Context) *slog.Logger {
	logLevel := slog.LevelInfo
	if c.Bool("verbose") {
		logLevel = slog.LevelDebug
	}
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// Setup loads config, opens the store, and wires cooldowns, cache, and sinks.
func Setup(c *cli.Context) (*Runtime, error) {
	logger := NewLogger(c)

	cfg, err := models.LoadGateConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSetup, err)
	}

	store, err := kvstore.Open(kvstore.Options{
		Backend:   c.String("store"),
		Path:      c.String("store-path"),
		RedisAddr: c.String("redis-addr"),
		RedisDB:   c.Int("redis-db"),
		Password:  os.Getenv("CHIP_GATE_REDIS_PASSWORD"),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open store: %w", ErrSetup, err)
	}

	registry := prometheus.NewRegistry()
	recorder := &events.Recorder{}
	sink := events.Multi{
		events.LogSink{Logger: logger},
		events.MustNewPrometheusSink(registry),
		recorder,
	}

	return &Runtime{
		Config:      cfg,
		Logger:      logger,
		Store:       store,
		Cooldowns:   cooldown.New(store, cfg, cooldown.WithLogger(logger), cooldown.WithSink(sink)),
		Cache:       resultcache.New(store, cfg, resultcache.WithLogger(logger)),
		Classifier:  classifier.New(cfg),
		Recorder:    recorder,
		Registry:    registry,
		Sink:        sink,
		metricsFile: c.String("metrics-file"),
	}, nil
}

// Manager builds a ChipManager over the runtime's collaborators.
func (r *Runtime) Manager(confirmer chip.Confirmer) *chip.Manager {
	return chip.New(chip.Deps{
		Classifier: r.Classifier,
		Scorer:     intent.New(r.Config, r.Logger),
		Extractor:  subject.New(r.Config, nil),
		Cooldowns:  r.Cooldowns,
		Cache:      r.Cache,
		Confirmer:  confirmer,
		Sink:       r.Sink,
		Logger:     r.Logger,
	})
}

// Close writes the metrics textfile when requested and closes the store.
func (r *Runtime) Close() error {
	var errs []string
	if r.metricsFile != "" {
		if err := prometheus.WriteToTextfile(r.metricsFile, r.Registry); err != nil {
			errs = append(errs, fmt.Sprintf("write metrics: %v", err))
		}
	}
	if err := r.Store.Close(); err != nil {
		errs = append(errs, fmt.Sprintf("close store: %v", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// WriteYAML encodes v to w with two-space indentation.
func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	return enc.Close()
}
