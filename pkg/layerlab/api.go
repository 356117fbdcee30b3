package layerlab

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"layerlab/internal/dataset"
	"layerlab/internal/edges"
	"layerlab/internal/layout"
	"layerlab/internal/model"
	"layerlab/internal/modelplan"
	"layerlab/internal/scene"
	"layerlab/internal/session"
	"layerlab/internal/stats"
	"layerlab/internal/storage"
	"layerlab/internal/topology"
	"layerlab/internal/weights"
)

const defaultDBPath = "layerlab.db"

var ErrNotFound = errors.New("topology not found")

type Options struct {
	StoreKind string
	DBPath    string
	// Session seeds new topologies and derived views. Zero value means session.DefaultConfig().
	Session *session.Config
}

type Client struct {
	store storage.Store
	cfg   session.Config

	initOnce sync.Once
	initErr  error
}

type LayerSummary struct {
	Name       string  `json:"name"`
	Kind       string  `json:"kind"`
	Size       int     `json:"size"`
	Activation string  `json:"activation,omitempty"`
	XPos       float64 `json:"x_pos"`
}

type TopologySummary struct {
	ID           string         `json:"id"`
	Dataset      string         `json:"dataset"`
	Description  string         `json:"description"`
	Layers       []LayerSummary `json:"layers"`
	HiddenCount  int            `json:"hidden_count"`
	EdgeCount    int            `json:"edge_count"`
	Params       int            `json:"params"`
	Epochs       int            `json:"epochs"`
	UpdatedAtUTC string         `json:"updated_at_utc,omitempty"`
}

type EditSummary struct {
	Topology TopologySummary `json:"topology"`
	Applied  int             `json:"applied"`
	Changed  int             `json:"changed"`
}

type SceneRequest struct {
	ID string
	// Epoch selects a recorded weight snapshot; negative means latest.
	Epoch int
}

type RecordEpochRequest struct {
	ID      string
	Epoch   int
	Weights []float64
	Metrics model.EpochMetrics
}

type EpochWeights struct {
	Epoch   int             `json:"epoch"`
	Summary weights.Summary `json:"summary"`
}

type HistorySummary struct {
	ID       string               `json:"id"`
	Epochs   int                  `json:"epochs"`
	Metrics  []model.EpochMetrics `json:"metrics"`
	Best     *model.EpochMetrics  `json:"best,omitempty"`
	Weights  []EpochWeights       `json:"weights"`
	Accuracy []stats.SeriesPoint  `json:"val_accuracy"`
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	cfg := session.DefaultConfig()
	if opts.Session != nil {
		cfg = *opts.Session
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	return &Client{store: store, cfg: cfg}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	c.initOnce.Do(func() {
		c.initErr = c.store.Init(ctx)
	})
	return c.initErr
}

// Create builds a default topology, applies edits in order and stores the result.
func (c *Client) Create(ctx context.Context, edits ...session.Edit) (TopologySummary, error) {
	if err := c.Init(ctx); err != nil {
		return TopologySummary{}, err
	}
	s, err := session.New(c.cfg)
	if err != nil {
		return TopologySummary{}, err
	}
	for _, e := range edits {
		if _, err := s.Apply(e); err != nil {
			return TopologySummary{}, errors.Wrapf(err, "create: %s", e)
		}
	}
	rec, err := c.save(ctx, s)
	if err != nil {
		return TopologySummary{}, err
	}
	klog.V(1).Infof("created topology %s: %s", rec.ID, s.View().Topology)
	return summarize(s, rec.UpdatedAtUTC), nil
}

func (c *Client) Get(ctx context.Context, id string) (TopologySummary, error) {
	s, rec, err := c.load(ctx, id)
	if err != nil {
		return TopologySummary{}, err
	}
	return summarize(s, rec.UpdatedAtUTC), nil
}

func (c *Client) List(ctx context.Context) ([]TopologySummary, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	records, err := c.store.ListTopologies(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TopologySummary, 0, len(records))
	for _, rec := range records {
		s, err := c.restore(rec)
		if err != nil {
			return nil, errors.Wrapf(err, "topology %s", rec.ID)
		}
		out = append(out, summarize(s, rec.UpdatedAtUTC))
	}
	return out, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	if _, _, err := c.load(ctx, id); err != nil {
		return err
	}
	return c.store.DeleteTopology(ctx, id)
}

// Edit applies edits to a stored topology. When any edit changes the topology the stored
// weight and metric histories are discarded. A failing edit aborts the batch without saving.
func (c *Client) Edit(ctx context.Context, id string, edits ...session.Edit) (EditSummary, error) {
	s, rec, err := c.load(ctx, id)
	if err != nil {
		return EditSummary{}, err
	}
	summary := EditSummary{}
	for _, e := range edits {
		changed, err := s.Apply(e)
		if err != nil {
			return EditSummary{}, errors.Wrapf(err, "edit %s: %s", id, e)
		}
		summary.Applied++
		if changed {
			summary.Changed++
		}
	}
	if summary.Changed == 0 {
		summary.Topology = summarize(s, rec.UpdatedAtUTC)
		return summary, nil
	}
	saved, err := c.save(ctx, s)
	if err != nil {
		return EditSummary{}, err
	}
	summary.Topology = summarize(s, saved.UpdatedAtUTC)
	return summary, nil
}

// Layout computes node positions on a canvas. Non-positive sizes use the configured canvas.
func (c *Client) Layout(ctx context.Context, id string, width, height float64) (layout.Layout, error) {
	s, _, err := c.load(ctx, id)
	if err != nil {
		return layout.Layout{}, err
	}
	if width <= 0 && height <= 0 {
		return s.View().Layout, nil
	}
	return layout.Compute(s.View().Topology, width, height)
}

func (c *Client) Edges(ctx context.Context, id string) ([]edges.Edge, error) {
	s, _, err := c.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.View().Edges, nil
}

func (c *Client) Plan(ctx context.Context, id string) (modelplan.Plan, error) {
	s, _, err := c.load(ctx, id)
	if err != nil {
		return modelplan.Plan{}, err
	}
	return s.View().Plan, nil
}

func (c *Client) Scene(ctx context.Context, req SceneRequest) (scene.Scene, error) {
	s, _, err := c.load(ctx, req.ID)
	if err != nil {
		return scene.Scene{}, err
	}
	if req.Epoch < 0 {
		return s.Scene()
	}
	sc, ok, err := s.Scrub(req.Epoch)
	if err != nil {
		return scene.Scene{}, err
	}
	if !ok {
		return scene.Scene{}, errors.Errorf("epoch %d not recorded for topology %s (%d epochs trained)", req.Epoch, req.ID, s.Epochs())
	}
	return sc, nil
}

// RecordEpoch appends one externally observed epoch. Epoch 0 stores the initial weights and
// resets any previous history; later epochs must follow in order and carry metrics.
func (c *Client) RecordEpoch(ctx context.Context, req RecordEpochRequest) (int, error) {
	s, _, err := c.load(ctx, req.ID)
	if err != nil {
		return 0, err
	}
	width := len(s.View().Edges)
	history := weights.NewHistory(width)
	metrics := stats.NewTrainingHistory()
	if req.Epoch > 0 {
		if err := history.Restore(s.WeightSnapshots()); err != nil {
			return 0, err
		}
		if err := metrics.Restore(s.Metrics()); err != nil {
			return 0, err
		}
	}
	if err := history.Record(req.Epoch, req.Weights); err != nil {
		return 0, errors.Wrapf(err, "topology %s", req.ID)
	}
	if req.Epoch > 0 {
		m := req.Metrics
		m.Epoch = req.Epoch
		if err := metrics.Record(m); err != nil {
			return 0, errors.Wrapf(err, "topology %s", req.ID)
		}
	}
	if err := c.store.SaveWeightHistory(ctx, req.ID, history.Snapshots()); err != nil {
		return 0, err
	}
	if err := c.store.SaveMetrics(ctx, req.ID, metrics.Epochs()); err != nil {
		return 0, err
	}
	return metrics.Len(), nil
}

// Train drives trainer against a stored topology and persists the resulting histories.
func (c *Client) Train(ctx context.Context, id string, trainer session.Trainer) (HistorySummary, error) {
	s, _, err := c.load(ctx, id)
	if err != nil {
		return HistorySummary{}, err
	}
	if _, err := s.Train(ctx, trainer); err != nil {
		return HistorySummary{}, err
	}
	if err := c.store.SaveWeightHistory(ctx, id, s.WeightSnapshots()); err != nil {
		return HistorySummary{}, err
	}
	if err := c.store.SaveMetrics(ctx, id, s.Metrics()); err != nil {
		return HistorySummary{}, err
	}
	return history(s)
}

func (c *Client) History(ctx context.Context, id string) (HistorySummary, error) {
	s, _, err := c.load(ctx, id)
	if err != nil {
		return HistorySummary{}, err
	}
	return history(s)
}

// Export writes the topology, plan, edges and histories under outDir/<id> and returns that
// directory.
func (c *Client) Export(ctx context.Context, id, outDir string) (string, error) {
	s, rec, err := c.load(ctx, id)
	if err != nil {
		return "", err
	}
	v := s.View()
	return stats.WriteArtifacts(outDir, stats.Artifacts{
		Topology: rec,
		Plan:     v.Plan,
		Edges:    v.Edges,
		Metrics:  s.Metrics(),
		Weights:  s.WeightSnapshots(),
	})
}

func history(s *session.Session) (HistorySummary, error) {
	out := HistorySummary{ID: s.ID(), Epochs: s.Epochs(), Metrics: s.Metrics()}
	_, val, err := s.Series(stats.MetricAccuracy)
	if err != nil {
		return HistorySummary{}, err
	}
	out.Accuracy = val
	tracker := stats.NewTrainingHistory()
	if err := tracker.Restore(out.Metrics); err != nil {
		return HistorySummary{}, err
	}
	if best, ok := tracker.BestValidationAccuracy(); ok {
		out.Best = &best
	}
	for _, snap := range s.WeightSnapshots() {
		out.Weights = append(out.Weights, EpochWeights{Epoch: snap.Epoch, Summary: weights.Summarize(snap.Values)})
	}
	return out, nil
}

func (c *Client) save(ctx context.Context, s *session.Session) (model.TopologyRecord, error) {
	rec := s.Record()
	rec.UpdatedAtUTC = time.Now().UTC().Format(time.RFC3339)
	if err := c.store.SaveTopology(ctx, rec); err != nil {
		return model.TopologyRecord{}, err
	}
	if err := c.store.SaveWeightHistory(ctx, rec.ID, s.WeightSnapshots()); err != nil {
		return model.TopologyRecord{}, err
	}
	if err := c.store.SaveMetrics(ctx, rec.ID, s.Metrics()); err != nil {
		return model.TopologyRecord{}, err
	}
	return rec, nil
}

func (c *Client) load(ctx context.Context, id string) (*session.Session, model.TopologyRecord, error) {
	if err := c.Init(ctx); err != nil {
		return nil, model.TopologyRecord{}, err
	}
	if id == "" {
		return nil, model.TopologyRecord{}, errors.New("topology id is required")
	}
	rec, ok, err := c.store.GetTopology(ctx, id)
	if err != nil {
		return nil, model.TopologyRecord{}, err
	}
	if !ok {
		return nil, model.TopologyRecord{}, errors.Wrap(ErrNotFound, id)
	}
	s, err := c.restore(rec)
	if err != nil {
		return nil, model.TopologyRecord{}, errors.Wrapf(err, "topology %s", id)
	}

	snapshots, _, err := c.store.GetWeightHistory(ctx, id)
	if err != nil {
		return nil, model.TopologyRecord{}, err
	}
	epochs, _, err := c.store.GetMetrics(ctx, id)
	if err != nil {
		return nil, model.TopologyRecord{}, err
	}
	if len(snapshots) > 0 || len(epochs) > 0 {
		if err := s.RestoreHistory(snapshots, epochs); err != nil {
			return nil, model.TopologyRecord{}, errors.Wrapf(err, "history of topology %s", id)
		}
	}
	return s, rec, nil
}

func (c *Client) restore(rec model.TopologyRecord) (*session.Session, error) {
	cfg := c.cfg
	if rec.Dataset != "" && rec.Dataset != cfg.Dataset.Name {
		info, err := dataset.Lookup(rec.Dataset)
		if err != nil {
			return nil, err
		}
		cfg.Dataset = info
	}
	topo, err := topology.FromRecord(rec)
	if err != nil {
		return nil, err
	}
	if topo.Input().Size != cfg.Dataset.FeatureCount || topo.Output().Size != cfg.Dataset.ClassCount {
		return nil, errors.Errorf("layers %d->%d do not match dataset %s (%d features, %d classes)",
			topo.Input().Size, topo.Output().Size, cfg.Dataset.Name, cfg.Dataset.FeatureCount, cfg.Dataset.ClassCount)
	}
	return session.Restore(rec.ID, topo, cfg)
}

func summarize(s *session.Session, updatedAt string) TopologySummary {
	v := s.View()
	out := TopologySummary{
		ID:           s.ID(),
		Dataset:      s.Config().Dataset.Name,
		Description:  v.Topology.String(),
		HiddenCount:  v.Topology.HiddenCount(),
		EdgeCount:    len(v.Edges),
		Params:       v.Plan.Params(),
		Epochs:       s.Epochs(),
		UpdatedAtUTC: updatedAt,
	}
	for _, layer := range v.Topology.Layers() {
		out.Layers = append(out.Layers, LayerSummary{
			Name:       layer.Name(),
			Kind:       layer.Kind.String(),
			Size:       layer.Size,
			Activation: string(layer.Activation),
			XPos:       layer.XPos,
		})
	}
	return out
}
