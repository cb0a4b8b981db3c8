package trainer

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dcshock/autodpp/config"
	"github.com/dcshock/autodpp/dataset"
	"github.com/dcshock/autodpp/model"
	"github.com/dcshock/autodpp/observer"
	"github.com/dcshock/autodpp/pipeline"
	"github.com/dcshock/autodpp/processors"
	"github.com/dcshock/autodpp/telemetry"
	"github.com/google/uuid"
)

// Options configures one training run.
type Options struct {
	// Processor names the pipeline definition to train. Required.
	Processor string
	DataDir   string
	ModelDir  string

	// Registry holds the definitions; processors.Default() when nil.
	Registry *processors.Registry
	// Steps holds the transform builders; config.DefaultRegistry() when nil.
	Steps *config.Registry

	Logger *slog.Logger
	// Observer receives run and stage hooks in addition to the run logger.
	Observer pipeline.Observer
	// Customize may replace the feature transform before fitting.
	Customize CustomizeFunc
	// RunID identifies the run; a UUID is generated when empty.
	RunID string
}

// Result describes a finished (or failed) run.
type Result struct {
	RunID     string
	Processor string
	State     State
	Rows      int
	Width     int
	ModelPath string
	CodeFiles []string
}

// run is the payload handed from stage to stage.
type run struct {
	opts     *Options
	logger   *slog.Logger
	result   *Result
	resolved *processors.Resolved
	data     *dataset.Dataset
	model    *model.Model
}

func (r *run) advance(s State) {
	r.result.State = s
	r.logger.Debug("state changed", "state", s.String())
}

// Summary describes the run's progress in one line.
func (r *run) Summary() string {
	if r == nil {
		return ""
	}
	switch r.result.State {
	case StateConfigResolved:
		return fmt.Sprintf("resolved %s", r.result.Processor)
	case StateDataLoaded:
		return fmt.Sprintf("%d rows from %d files", r.data.Rows(), len(r.data.Files))
	case StateFitted:
		return fmt.Sprintf("fitted %d rows to %d features", r.result.Rows, r.result.Width)
	case StatePersisted:
		return r.result.ModelPath
	case StateExported, StateDone:
		return fmt.Sprintf("exported %d files", len(r.result.CodeFiles))
	}
	return fmt.Sprintf("%s from %s", r.opts.Processor, r.opts.DataDir)
}

// Run drives one training run: resolve, load, fit, persist, export. Any
// failure ends the run; a model file persisted before a later failure is
// removed again.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Registry == nil {
		opts.Registry = processors.Default()
	}
	if opts.Steps == nil {
		opts.Steps = config.DefaultRegistry()
	}
	if opts.RunID == "" {
		opts.RunID = uuid.New().String()
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.FromContext(ctx)
	}
	logger = telemetry.WithProcessor(telemetry.WithRunID(logger, opts.RunID), opts.Processor)
	ctx = telemetry.WithLogger(ctx, logger)

	r := &run{
		opts:   &opts,
		logger: logger,
		result: &Result{RunID: opts.RunID, Processor: opts.Processor, State: StateStart},
	}
	stage := func(fn pipeline.ConvertFunc[*run, *run]) pipeline.Stage {
		return pipeline.Transform(fn)
	}
	p := &pipeline.Pipeline{
		Name:       "train-" + opts.Processor,
		Stages:     []pipeline.Stage{stage(resolveStage), stage(loadStage), stage(fitStage), stage(persistStage), stage(exportStage)},
		StageNames: []string{"resolve", "load", "fit", "persist", "export"},
	}
	obs := pipeline.MultiObserver(observer.NewLogObserver(logger), opts.Observer)
	_, err := p.RunWithInput(ctx, r, &pipeline.RunOptions{Observer: obs, RunID: opts.RunID})
	if err != nil {
		if r.result.ModelPath != "" {
			if rmErr := os.Remove(r.result.ModelPath); rmErr != nil && !os.IsNotExist(rmErr) {
				logger.Warn("remove model after failed run", "path", r.result.ModelPath, "error", rmErr)
			}
			r.result.ModelPath = ""
		}
		return r.result, err
	}
	r.advance(StateDone)
	return r.result, nil
}

func resolveStage(ctx context.Context, r *run) (*run, error) {
	res, err := Resolve(r.opts.Registry, r.opts.Steps, r.opts.Processor)
	if err != nil {
		return nil, err
	}
	r.resolved = res
	r.advance(StateConfigResolved)
	r.logger.Info("configuration resolved",
		"source", res.Definition.SourceName,
		"columns", res.Header.NumColumns(),
		"target", res.Header.Target,
		"label_transform", res.Label != nil)
	return r, nil
}

func loadStage(ctx context.Context, r *run) (*run, error) {
	ds, err := LoadDataset(r.opts.DataDir, r.resolved.Header)
	if err != nil {
		return nil, err
	}
	r.data = ds
	r.result.Rows = ds.Rows()
	r.advance(StateDataLoaded)
	r.logger.Info("dataset loaded", "dir", r.opts.DataDir, "files", len(ds.Files), "rows", ds.Rows())
	return r, nil
}

func fitStage(ctx context.Context, r *run) (*run, error) {
	m, err := Fit(r.data, r.resolved, r.opts.Customize)
	if err != nil {
		return nil, err
	}
	r.model = m
	r.result.Width = m.Width
	r.advance(StateFitted)
	r.logger.Info("model fitted", "rows", r.data.Rows(), "features", m.Width)
	return r, nil
}

func persistStage(ctx context.Context, r *run) (*run, error) {
	path, err := Persist(r.model, r.opts.ModelDir)
	if err != nil {
		return nil, err
	}
	r.result.ModelPath = path
	r.advance(StatePersisted)
	r.logger.Info("model persisted", "path", path)
	return r, nil
}

func exportStage(ctx context.Context, r *run) (*run, error) {
	files, err := ExportSource(r.resolved.Definition, r.opts.ModelDir)
	if err != nil {
		return nil, err
	}
	r.result.CodeFiles = files
	r.advance(StateExported)
	r.logger.Info("source exported", "files", files)
	return r, nil
}
