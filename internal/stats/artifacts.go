package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"layerlab/internal/edges"
	"layerlab/internal/model"
	"layerlab/internal/modelplan"
)

const (
	topologyFile = "topology.json"
	planFile     = "plan.json"
	edgesFile    = "edges.csv"
	metricsFile  = "metrics.csv"
	weightsFile  = "weights.json"
)

// Artifacts is everything exported for one topology. Weights may be empty when the topology
// was never trained.
type Artifacts struct {
	Topology model.TopologyRecord
	Plan     modelplan.Plan
	Edges    []edges.Edge
	Metrics  []model.EpochMetrics
	Weights  []model.WeightSnapshot
}

// WriteArtifacts writes the export into baseDir/<topology id> and returns that directory.
// edges.csv carries the last recorded weight of each edge when weights exist.
func WriteArtifacts(baseDir string, a Artifacts) (string, error) {
	if a.Topology.ID == "" {
		return "", fmt.Errorf("topology id is required")
	}
	var last []float64
	if len(a.Weights) > 0 {
		last = a.Weights[len(a.Weights)-1].Values
		if len(last) != len(a.Edges) {
			return "", fmt.Errorf("last weight snapshot has %d values for %d edges", len(last), len(a.Edges))
		}
	}

	dir := filepath.Join(baseDir, a.Topology.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, topologyFile), a.Topology); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, planFile), a.Plan); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, weightsFile), a.Weights); err != nil {
		return "", err
	}
	if err := writeEdgesCSV(filepath.Join(dir, edgesFile), a.Edges, last); err != nil {
		return "", err
	}
	if err := writeMetricsCSV(filepath.Join(dir, metricsFile), a.Metrics); err != nil {
		return "", err
	}
	return dir, nil
}

func writeEdgesCSV(path string, list []edges.Edge, weights []float64) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := []string{"source", "src_idx", "target", "tar_idx"}
	if weights != nil {
		header = append(header, "weight")
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for i, e := range list {
		row := []string{e.SourceLayer, strconv.Itoa(e.SourceIndex), e.TargetLayer, strconv.Itoa(e.TargetIndex)}
		if weights != nil {
			row = append(row, strconv.FormatFloat(weights[i], 'f', -1, 64))
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeMetricsCSV(path string, epochs []model.EpochMetrics) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"epoch", "loss", "accuracy", "val_loss", "val_accuracy"}); err != nil {
		return err
	}
	for _, m := range epochs {
		if err := writer.Write([]string{
			strconv.Itoa(m.Epoch),
			strconv.FormatFloat(m.Loss, 'f', -1, 64),
			strconv.FormatFloat(m.Accuracy, 'f', -1, 64),
			strconv.FormatFloat(m.ValLoss, 'f', -1, 64),
			strconv.FormatFloat(m.ValAccuracy, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadMetrics loads metrics.csv from an export directory.
func ReadMetrics(dir string) ([]model.EpochMetrics, bool, error) {
	file, err := os.Open(filepath.Join(dir, metricsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []model.EpochMetrics{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 5 {
		return nil, false, fmt.Errorf("metrics header must have 5 columns")
	}

	var out []model.EpochMetrics
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		epoch, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, false, err
		}
		values := make([]float64, 4)
		for i := range values {
			if values[i], err = strconv.ParseFloat(record[i+1], 64); err != nil {
				return nil, false, err
			}
		}
		out = append(out, model.EpochMetrics{Epoch: epoch, Loss: values[0], Accuracy: values[1], ValLoss: values[2], ValAccuracy: values[3]})
	}
	return out, true, nil
}

// ReadTopology loads topology.json from an export directory.
func ReadTopology(dir string) (model.TopologyRecord, bool, error) {
	data, err := os.ReadFile(filepath.Join(dir, topologyFile))
	if err != nil {
		if os.IsNotExist(err) {
			return model.TopologyRecord{}, false, nil
		}
		return model.TopologyRecord{}, false, err
	}
	var rec model.TopologyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.TopologyRecord{}, false, err
	}
	return rec, true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}
