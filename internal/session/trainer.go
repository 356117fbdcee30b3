package session

import (
	"context"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"layerlab/internal/model"
	"layerlab/internal/modelplan"
)

// Observer receives progress from a Trainer. A non-nil error means the run is no longer
// wanted and Fit should return it.
type Observer interface {
	TrainBegin(initial []float64) error
	EpochEnd(epoch int, flat []float64, m model.EpochMetrics) error
}

// Trainer fits a model described by a plan. Weight vectors passed to the observer are the
// row-major kernels concatenated in layer order. Fit must return promptly once ctx is done.
type Trainer interface {
	Fit(ctx context.Context, plan modelplan.Plan, obs Observer) error
}

type runObserver struct {
	s     *Session
	runID string
}

func (o runObserver) TrainBegin(initial []float64) error {
	return o.s.RecordInitial(o.runID, initial)
}

func (o runObserver) EpochEnd(epoch int, flat []float64, m model.EpochMetrics) error {
	return o.s.RecordEpoch(o.runID, epoch, flat, m)
}

// Train starts a run, drives the trainer to completion and releases the run. When an edit
// supersedes the run, the returned error wraps ErrStaleRun.
func (s *Session) Train(ctx context.Context, tr Trainer) (string, error) {
	run, err := s.StartRun(ctx)
	if err != nil {
		return "", err
	}
	fitErr := tr.Fit(run.Ctx, run.Plan, runObserver{s: s, runID: run.ID})
	if current, ok := s.ActiveRun(); !ok || current != run.ID {
		klog.V(1).Infof("session %s: run %s superseded", s.id, run.ID)
		return run.ID, errors.Wrapf(ErrStaleRun, "run %s", run.ID)
	}
	if err := s.FinishRun(run.ID); err != nil {
		return run.ID, err
	}
	if fitErr != nil {
		return run.ID, errors.Wrapf(fitErr, "run %s", run.ID)
	}
	klog.V(1).Infof("session %s: run %s finished after %d epochs", s.id, run.ID, s.Epochs())
	return run.ID, nil
}
