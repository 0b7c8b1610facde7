// Package diff compares a source model with an imported model and emits the
// create, alter and drop operations that turn the imported database into the
// source, in an order that can be executed top to bottom.
package diff

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/pgschema/pgmodeldiff/internal/ddl"
	"github.com/pgschema/pgmodeldiff/internal/ir"
)

// Share of the progress bar used by classification; emission uses the rest.
const classificationProgress = 50

// Engine runs one diff at a time. Configure it, call DiffModels or Start, and
// read the result. A second run needs Reset.
type Engine struct {
	mu        sync.Mutex
	cfg       Config
	source    *ir.Model
	imported  *ir.Model
	filter    FilterSet
	observers []Observer

	running   atomic.Bool
	cancelled atomic.Bool

	collector *collector
	result    *Result
}

// NewEngine creates an engine with the given configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg.withDefaults(), collector: newCollector()}
}

func (e *Engine) configure(fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running.Load() {
		return newError(ConfigurationError, "", "cannot reconfigure a running diff")
	}
	return fn()
}

// SetDiffOption changes one policy option.
func (e *Engine) SetDiffOption(opt Option, value bool) error {
	return e.configure(func() error {
		if err := e.cfg.Options.Set(opt, value); err != nil {
			return wrapError(ConfigurationError, "", err)
		}
		return nil
	})
}

// Options returns the current policy options.
func (e *Engine) Options() Options {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.Options
}

// SetModels installs the desired (source) and actual (imported) models. Both
// must be sealed.
func (e *Engine) SetModels(source, imported *ir.Model) error {
	return e.configure(func() error {
		switch {
		case source == nil || imported == nil:
			return newError(ConfigurationError, "", "both models are required")
		case !source.Sealed():
			return newError(ConfigurationError, "", "source model %s is not sealed", source.Name)
		case !imported.Sealed():
			return newError(ConfigurationError, "", "imported model %s is not sealed", imported.Name)
		}
		e.source, e.imported = source, imported
		return nil
	})
}

// SetFilteredObjects restricts the run to the given source objects and their
// closure. An empty list means a full diff.
func (e *Engine) SetFilteredObjects(objects []*ir.Object) error {
	return e.configure(func() error {
		sigs := make([]string, 0, len(objects))
		for _, o := range objects {
			sigs = append(sigs, o.Signature())
		}
		e.filter.Signatures = sigs
		return nil
	})
}

// SetFilteredOIDs restricts the run to the imported objects with the given
// catalog identifiers and their closure.
func (e *Engine) SetFilteredOIDs(oids map[ir.ObjectType][]uint32) error {
	return e.configure(func() error {
		e.filter.OIDs = oids
		return nil
	})
}

// SetFilter replaces the whole filter set.
func (e *Engine) SetFilter(filter FilterSet) error {
	return e.configure(func() error {
		e.filter = filter
		return nil
	})
}

// SetPgSQLVersion selects the PostgreSQL version the DDL is generated for,
// e.g. "16" or "PostgreSQL 16.2".
func (e *Engine) SetPgSQLVersion(version string) error {
	v, err := ir.ParsePgVersion(version)
	if err != nil {
		return wrapError(ConfigurationError, "", err)
	}
	return e.configure(func() error {
		e.cfg.PgVersion = v
		return nil
	})
}

// PgSQLVersion returns the target PostgreSQL version.
func (e *Engine) PgSQLVersion() ir.PgVersion {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.PgVersion
}

// AddObserver subscribes an observer to every following run.
func (e *Engine) AddObserver(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, o)
}

// CancelDiff asks a running diff to stop before its next record.
func (e *Engine) CancelDiff() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running.Load() {
		e.cancelled.Store(true)
	}
}

// Running reports whether a run is in progress.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// GetDiffDefinition returns the DDL of the records emitted so far, in order.
func (e *Engine) GetDiffDefinition() string {
	return e.currentCollector().Definition()
}

// GetDiffTypeCount returns how many records of a type were emitted so far.
func (e *Engine) GetDiffTypeCount(t DiffType) int {
	return e.currentCollector().Count(t)
}

// Result returns the result of the last run, or nil.
func (e *Engine) Result() *Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result
}

// Reset discards the last result so that the engine can run again with the
// same configuration.
func (e *Engine) Reset() error {
	return e.configure(func() error {
		e.result = nil
		e.collector = newCollector()
		e.cancelled.Store(false)
		return nil
	})
}

func (e *Engine) currentCollector() *collector {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.collector
}

// DiffModels runs the diff on the calling goroutine, streaming records to the
// observers. A cancelled run returns its partial result together with an
// error of kind Cancelled.
func (e *Engine) DiffModels(ctx context.Context) (*Result, error) {
	s, result, col, observers, err := e.begin(nil)
	if err != nil {
		return nil, err
	}
	return e.execute(ctx, s, result, col, observers)
}

// Run is a diff started with Start.
type Run struct {
	infos  chan ObjectsDiffInfo
	done   chan struct{}
	result *Result
	err    error
}

// Infos streams the records as they are emitted. The channel is closed when
// the run ends.
func (r *Run) Infos() <-chan ObjectsDiffInfo {
	return r.infos
}

// Wait discards records not yet received and returns the outcome of the run.
func (r *Run) Wait() (*Result, error) {
	for range r.infos {
	}
	<-r.done
	return r.result, r.err
}

// Start runs the diff on a new goroutine. The engine is marked as running
// before Start returns, so a CancelDiff issued right after it is honored.
func (e *Engine) Start(ctx context.Context) *Run {
	run := &Run{infos: make(chan ObjectsDiffInfo, 64), done: make(chan struct{})}
	stream := ObserverFuncs{DiffInfo: func(info ObjectsDiffInfo) {
		select {
		case run.infos <- info:
		case <-ctx.Done():
		}
	}}
	s, result, col, observers, err := e.begin(stream)
	if err != nil {
		run.err = err
		close(run.infos)
		close(run.done)
		return run
	}
	go func() {
		defer close(run.done)
		defer close(run.infos)
		run.result, run.err = e.execute(ctx, s, result, col, observers)
	}()
	return run
}

// begin validates the configuration and marks the engine as running.
func (e *Engine) begin(extra Observer) (*session, *Result, *collector, []Observer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.source == nil || e.imported == nil:
		return nil, nil, nil, nil, newError(ConfigurationError, "", "models are not set")
	case e.result != nil:
		return nil, nil, nil, nil, newError(ConfigurationError, "", "engine already ran, reset it first")
	case !e.running.CompareAndSwap(false, true):
		return nil, nil, nil, nil, newError(ConfigurationError, "", "a diff is already running")
	}
	e.cancelled.Store(false)

	s := &session{
		source:    e.source,
		imported:  e.imported,
		opts:      e.cfg.Options,
		version:   e.cfg.PgVersion,
		filter:    e.filter,
		decisions: map[string]*decision{},
	}
	result := &Result{
		RunID:     uuid.NewString(),
		Status:    StatusCompleted,
		Source:    e.source.Name,
		Imported:  e.imported.Name,
		PgVersion: e.cfg.PgVersion,
		Options:   e.cfg.Options,
		Partial:   !e.filter.Empty(),
		StartedAt: time.Now(),
	}
	s.log = e.cfg.Logger.With("run_id", result.RunID, "source", result.Source, "imported", result.Imported)

	observers := slices.Clone(e.observers)
	if extra != nil {
		observers = append(observers, extra)
	}
	e.collector = newCollector()
	e.result = result
	return s, result, e.collector, observers, nil
}

// execute runs a diff prepared by begin and clears the running flag when done.
func (e *Engine) execute(ctx context.Context, s *session, result *Result, col *collector,
	observers []Observer) (*Result, error) {
	defer e.running.Store(false)

	progress := func(percent int, message string, t ir.ObjectType) {
		for _, o := range observers {
			o.OnProgress(percent, message, t)
		}
	}
	finish := func(status Status, err error) (*Result, error) {
		result.Status = status
		result.Infos = col.Infos()
		result.Counts = col.Counts()
		result.FinishedAt = time.Now()
		switch status {
		case StatusCompleted:
			progress(100, "Comparison finished", ir.ObjectTypeNone)
			s.log.Info("Diff finished", "create", result.Count(DiffCreate), "alter", result.Count(DiffAlter),
				"drop", result.Count(DiffDrop), "ignore", result.Count(DiffIgnore), "duration", result.Duration())
		case StatusCancelled:
			s.log.Warn("Diff cancelled", "emitted", len(result.Infos))
		default:
			s.log.Error("Diff failed", "error", err)
		}
		for _, o := range observers {
			o.OnFinished(result, err)
		}
		return result, err
	}
	stopped := func() bool {
		return e.cancelled.Load() || ctx.Err() != nil
	}
	cancelled := func(emitted, total int) (*Result, error) {
		return finish(StatusCancelled, &Error{
			Kind:  Cancelled,
			Cause: errors.Errorf("stopped after %d of %d operations", emitted, total),
		})
	}

	s.log.Info("Diff started", "pg_version", s.version.String(), "options", s.opts.Enabled(), "partial", result.Partial)

	candidates, err := s.candidates()
	if err != nil {
		return finish(StatusFailed, err)
	}
	s.log.Debug("Candidates selected", "count", len(candidates))

	if err := e.classifyAll(ctx, s, candidates, progress); err != nil {
		if stopped() {
			return cancelled(0, 0)
		}
		return finish(StatusFailed, err)
	}

	s.resolveOwnership()
	if err := s.propagateRecreation(); err != nil {
		return finish(StatusFailed, err)
	}
	if err := s.checkDependencies(); err != nil {
		return finish(StatusFailed, err)
	}

	steps := s.plan()
	s.log.Debug("Operations ordered", "count", len(steps))
	if stopped() {
		return cancelled(0, len(steps))
	}

	renderer := ddl.NewRenderer(s.version, s.opts.CascadeMode)
	validate := !e.cfg.SkipValidation
	for i, st := range steps {
		if stopped() {
			return cancelled(i, len(steps))
		}
		info, err := s.render(renderer, validate, st)
		if err != nil {
			return finish(StatusFailed, err)
		}
		col.Collect(info)
		for _, o := range observers {
			o.OnDiffInfo(info)
		}
		percent := classificationProgress + (100-classificationProgress)*(i+1)/len(steps)
		progress(percent, info.Message, info.Object.Type)
	}
	return finish(StatusCompleted, nil)
}

// classifyAll classifies the candidates one object type at a time. Keys of a
// type are classified concurrently into fixed slots, so the outcome does not
// depend on scheduling.
func (e *Engine) classifyAll(ctx context.Context, s *session, candidates []string,
	progress func(int, string, ir.ObjectType)) error {
	byType := map[ir.ObjectType][]string{}
	for _, sig := range candidates {
		t := ir.TypeOf(sig)
		byType[t] = append(byType[t], sig)
	}

	types := ir.ObjectTypes()
	for i, t := range types {
		sigs := byType[t]
		if len(sigs) == 0 {
			continue
		}
		if e.cancelled.Load() {
			return errors.New("cancelled")
		}

		decisions := make([]*decision, len(sigs))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.cfg.Workers)
		for j, sig := range sigs {
			j, sig := j, sig
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				decisions[j] = s.classify(sig)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		for _, d := range decisions {
			s.decisions[d.sig] = d
		}

		percent := classificationProgress * (i + 1) / len(types)
		progress(percent, fmt.Sprintf("Comparing %s", t.Plural()), t)
	}
	return nil
}
