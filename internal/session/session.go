// Package session owns one interactive network editor: the topology, its derived layout,
// edges and model plan, the weight and metric histories, and at most one in-flight training
// run. Every effective edit cancels the run and clears both histories.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"layerlab/internal/activation"
	"layerlab/internal/dataset"
	"layerlab/internal/edges"
	"layerlab/internal/layout"
	"layerlab/internal/model"
	"layerlab/internal/modelplan"
	"layerlab/internal/scene"
	"layerlab/internal/stats"
	"layerlab/internal/topology"
	"layerlab/internal/weights"
)

const DefaultNewLayerSize = 4

var (
	ErrRunActive = errors.New("training run already active")
	ErrStaleRun  = errors.New("training run is no longer current")
	ErrNoRun     = errors.New("no training run is active")
)

type Config struct {
	Dataset      dataset.Info
	Topology     topology.Config
	Settings     modelplan.Settings
	CanvasWidth  float64
	CanvasHeight float64
	Style        scene.Style
	// NewLayerSize is the size of a layer added through AddLayer.
	NewLayerSize int
}

func DefaultConfig() Config {
	return Config{
		Dataset:      dataset.Iris(),
		Topology:     topology.DefaultConfig(),
		Settings:     modelplan.DefaultSettings(),
		CanvasWidth:  layout.ReferenceWidth,
		CanvasHeight: layout.DefaultHeight,
		Style:        scene.DefaultStyle(),
		NewLayerSize: DefaultNewLayerSize,
	}
}

func (c Config) validate() error {
	if err := c.Settings.Validate(); err != nil {
		return err
	}
	if c.CanvasWidth <= 0 || c.CanvasHeight <= 0 {
		return errors.Errorf("canvas must be positive, got %gx%g", c.CanvasWidth, c.CanvasHeight)
	}
	if c.NewLayerSize < topology.MinHiddenSize || c.NewLayerSize > topology.MaxHiddenSize {
		return errors.Errorf("new layer size %d outside [%d, %d]", c.NewLayerSize, topology.MinHiddenSize, topology.MaxHiddenSize)
	}
	return nil
}

// View is a consistent snapshot of everything derived from one topology revision.
// Its slices are never mutated after construction.
type View struct {
	Revision uint64
	Topology *topology.Topology
	Layout   layout.Layout
	Edges    []edges.Edge
	Plan     modelplan.Plan
}

// Run identifies one training run. Ctx is cancelled when the run is superseded.
type Run struct {
	ID       string
	Revision uint64
	Ctx      context.Context
	Plan     modelplan.Plan
	Topology *topology.Topology
}

type activeRun struct {
	id       string
	revision uint64
	cancel   context.CancelFunc
}

type Session struct {
	id  string
	cfg Config

	mu       sync.RWMutex
	view     View
	weights  *weights.History
	metrics  *stats.TrainingHistory
	run      *activeRun
	lastStop string
}

func New(cfg Config) (*Session, error) {
	topo, err := topology.New(cfg.Dataset, cfg.Topology)
	if err != nil {
		return nil, err
	}
	return Restore(uuid.NewString(), topo, cfg)
}

// Restore wraps an existing topology, typically one loaded from storage.
func Restore(id string, topo *topology.Topology, cfg Config) (*Session, error) {
	if id == "" {
		return nil, errors.New("session id is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, errors.Wrap(err, "session config")
	}
	view, err := derive(topo.Clone(), cfg, 1)
	if err != nil {
		return nil, err
	}
	s := &Session{
		id:      id,
		cfg:     cfg,
		view:    view,
		weights: weights.NewHistory(len(view.Edges)),
		metrics: stats.NewTrainingHistory(),
	}
	klog.V(1).Infof("session %s: %s", id, topo)
	return s, nil
}

func derive(topo *topology.Topology, cfg Config, revision uint64) (View, error) {
	l, err := layout.Compute(topo, cfg.CanvasWidth, cfg.CanvasHeight)
	if err != nil {
		return View{}, err
	}
	list, err := edges.Compute(topo)
	if err != nil {
		return View{}, err
	}
	plan, err := modelplan.Build(topo, cfg.Settings)
	if err != nil {
		return View{}, err
	}
	if err := plan.Validate(list); err != nil {
		return View{}, err
	}
	return View{Revision: revision, Topology: topo, Layout: l, Edges: list, Plan: plan}, nil
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Config() Config {
	return s.cfg
}

// View returns the current snapshot. The topology is a clone the caller may mutate.
func (s *Session) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := s.view
	v.Topology = v.Topology.Clone()
	return v
}

// Apply performs one edit. It reports whether the topology changed; a clamped resize or an
// activation set to its current value is not a change and leaves any run untouched.
func (s *Session) Apply(e Edit) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.view.Topology.Clone()
	changed, err := s.applyTo(next, e)
	if err != nil || !changed {
		return false, err
	}
	view, err := derive(next, s.cfg, s.view.Revision+1)
	if err != nil {
		return false, err
	}
	s.view = view
	s.invalidateLocked("edit " + e.String())
	klog.V(1).Infof("session %s: %s -> %s", s.id, e, next)
	return true, nil
}

func (s *Session) applyTo(topo *topology.Topology, e Edit) (bool, error) {
	switch e.Kind {
	case EditAddLayer:
		act, ok := topo.HiddenActivation()
		if !ok {
			act = activation.ReLU
		}
		return true, topo.AddHiddenLayer(s.cfg.NewLayerSize, act)
	case EditRemoveLayer:
		return true, topo.RemoveHiddenLayer()
	case EditAddNode:
		return topo.ResizeLayer(e.Layer, +1)
	case EditRemoveNode:
		return topo.ResizeLayer(e.Layer, -1)
	case EditSetHiddenActivation:
		if current, ok := topo.HiddenActivation(); ok && current == e.Activation && uniformHidden(topo) {
			return false, nil
		}
		if err := topo.SetHiddenActivation(e.Activation); err != nil {
			return false, err
		}
		return topo.HiddenCount() > 0, nil
	case EditSetOutputActivation:
		if topo.Output().Activation == e.Activation {
			return false, nil
		}
		return true, topo.SetOutputActivation(e.Activation)
	default:
		return false, fmt.Errorf("unknown edit kind %d", int(e.Kind))
	}
}

func uniformHidden(topo *topology.Topology) bool {
	hidden := topo.Hidden()
	for _, layer := range hidden[1:] {
		if layer.Activation != hidden[0].Activation {
			return false
		}
	}
	return true
}

// Reset replaces the topology with the configured default.
func (s *Session) Reset() error {
	topo, err := topology.New(s.cfg.Dataset, s.cfg.Topology)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	view, err := derive(topo, s.cfg, s.view.Revision+1)
	if err != nil {
		return err
	}
	s.view = view
	s.invalidateLocked("reset")
	return nil
}

// Restart keeps the topology but discards the run and both histories, so the next run
// starts from freshly initialised weights.
func (s *Session) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked("restart")
}

// Stop cancels the active run, if any, and reports whether one was running.
func (s *Session) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	active := s.run != nil
	s.invalidateLocked("stop")
	return active
}

func (s *Session) invalidateLocked(reason string) {
	if s.run != nil {
		klog.V(1).Infof("session %s: cancelling run %s (%s)", s.id, s.run.id, reason)
		s.run.cancel()
		s.run = nil
	}
	s.lastStop = reason
	s.weights.Reset(len(s.view.Edges))
	s.metrics.Reset()
}

// StartRun registers a new training run against the current revision.
func (s *Session) StartRun(ctx context.Context) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run != nil {
		return Run{}, errors.Wrap(ErrRunActive, s.run.id)
	}
	s.weights.Reset(len(s.view.Edges))
	s.metrics.Reset()

	runCtx, cancel := context.WithCancel(ctx)
	active := &activeRun{id: uuid.NewString(), revision: s.view.Revision, cancel: cancel}
	s.run = active
	klog.V(1).Infof("session %s: run %s started on revision %d", s.id, active.id, active.revision)
	return Run{
		ID:       active.id,
		Revision: active.revision,
		Ctx:      runCtx,
		Plan:     s.view.Plan,
		Topology: s.view.Topology.Clone(),
	}, nil
}

// RecordInitial stores the weights the model starts from as epoch 0.
func (s *Session) RecordInitial(runID string, flat []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkRunLocked(runID); err != nil {
		return err
	}
	return s.weights.Record(0, flat)
}

// RecordEpoch stores the weights and metrics observed at the end of epoch (1-based).
// Reports from a cancelled or replaced run are rejected with ErrStaleRun.
func (s *Session) RecordEpoch(runID string, epoch int, flat []float64, m model.EpochMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkRunLocked(runID); err != nil {
		return err
	}
	if epoch < 1 {
		return errors.Errorf("epoch must be >= 1, got %d", epoch)
	}
	if s.weights.Len() != epoch || s.metrics.Len() != epoch-1 {
		return errors.Errorf("epoch %d reported out of order: %d weight snapshots, %d metric epochs recorded",
			epoch, s.weights.Len(), s.metrics.Len())
	}
	if err := s.weights.Record(epoch, flat); err != nil {
		return err
	}
	m.Epoch = epoch
	return s.metrics.Record(m)
}

// FinishRun releases the run. Histories are kept for scrubbing.
func (s *Session) FinishRun(runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkRunLocked(runID); err != nil {
		return err
	}
	s.run.cancel()
	s.run = nil
	s.lastStop = "finished"
	return nil
}

func (s *Session) checkRunLocked(runID string) error {
	if s.run == nil {
		if runID == "" {
			return ErrNoRun
		}
		return errors.Wrapf(ErrStaleRun, "run %s", runID)
	}
	if s.run.id != runID {
		return errors.Wrapf(ErrStaleRun, "run %s, current run is %s", runID, s.run.id)
	}
	return nil
}

// ActiveRun returns the id of the in-flight run.
func (s *Session) ActiveRun() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.run == nil {
		return "", false
	}
	return s.run.id, true
}

// LastStop describes what ended the previous run or cleared the histories.
func (s *Session) LastStop() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastStop
}

// Scene renders the latest recorded weights, or neutral edges when none exist.
func (s *Session) Scene() (scene.Scene, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	flat, _, _ := s.weights.Latest()
	return scene.Build(s.view.Topology, s.view.Layout, s.view.Edges, flat, s.cfg.Style)
}

// Scrub renders the weights recorded at epoch. It reports false when the epoch has not
// been trained yet.
func (s *Session) Scrub(epoch int) (scene.Scene, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	flat, ok := s.weights.At(epoch)
	if !ok {
		return scene.Scene{}, false, nil
	}
	sc, err := scene.Build(s.view.Topology, s.view.Layout, s.view.Edges, flat, s.cfg.Style)
	return sc, err == nil, err
}

// Epochs is the number of completed epochs in the weight history.
func (s *Session) Epochs() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n := s.weights.Len(); n > 0 {
		return n - 1
	}
	return 0
}

func (s *Session) WeightSnapshots() []model.WeightSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.weights.Snapshots()
}

func (s *Session) Metrics() []model.EpochMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metrics.Epochs()
}

func (s *Session) Series(metric stats.Metric) (train, validation []stats.SeriesPoint, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metrics.Series(metric)
}

// RestoreHistory loads persisted histories for the current topology. It fails while a run
// is active.
func (s *Session) RestoreHistory(snapshots []model.WeightSnapshot, epochs []model.EpochMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run != nil {
		return errors.Wrap(ErrRunActive, s.run.id)
	}
	if len(snapshots) > 0 && len(epochs) != len(snapshots)-1 {
		return errors.Errorf("%d metric epochs do not match %d weight snapshots", len(epochs), len(snapshots))
	}
	s.weights.Reset(len(s.view.Edges))
	if err := s.weights.Restore(snapshots); err != nil {
		return err
	}
	if err := s.metrics.Restore(epochs); err != nil {
		s.weights.Reset(len(s.view.Edges))
		return err
	}
	return nil
}

// Record is the persisted form of the current topology.
func (s *Session) Record() model.TopologyRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view.Topology.Record(s.id, s.cfg.Dataset.Name)
}
