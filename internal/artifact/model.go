package artifact

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"demandforecast/internal/models"
)

// Calibration is the offline-calibrated parameter set attached to a model
// version. RelativeHalfWidth is the fixed relative half-width r used to derive
// the confidence interval from the point estimate.
type Calibration struct {
	RelativeHalfWidth float64 `json:"relative_half_width"`
}

// Metadata describes the deployed model version, including the ordered
// feature schema the model was trained on.
type Metadata struct {
	ModelID     string      `json:"model_id"`
	Version     string      `json:"version"`
	TrainedAt   time.Time   `json:"trained_at"`
	Calibration Calibration `json:"calibration"`
	Features    []string    `json:"features"`
}

// Node is one split or leaf of a boosted tree. Leaves have Feature == -1.
// Split semantics follow the trainer: value < Threshold goes left, NaN and
// missing also go left.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

// Tree is one additive member of the ensemble, nodes in a flat array with
// index 0 as the root. Children always appear after their parent, which is
// what bounds tree evaluation; load validation enforces it.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

type modelFile struct {
	Metadata
	BaseScore float64 `json:"base_score"`
	Trees     []Tree  `json:"trees"`
}

// Model is the loaded gradient-boosted-tree artifact. Read-only after load.
type Model struct {
	meta      Metadata
	baseScore float64
	trees     []Tree
}

// LoadModel reads and validates the model artifact. Decode failures are
// ArtifactErrors; a feature schema inconsistent with the ensemble is a
// FeatureShapeError surfaced at load time rather than at first predict.
func LoadModel(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &models.ArtifactError{Source: path, Err: err}
	}

	var file modelFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, &models.ArtifactError{Source: path, Err: err}
	}

	if len(file.Features) == 0 {
		return nil, &models.ArtifactError{Source: path, Err: fmt.Errorf("empty feature schema")}
	}
	if file.Calibration.RelativeHalfWidth <= 0 {
		return nil, &models.ArtifactError{Source: path, Err: fmt.Errorf("missing calibration relative_half_width")}
	}

	m := &Model{
		meta:      file.Metadata,
		baseScore: file.BaseScore,
		trees:     file.Trees,
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) validate() error {
	width := len(m.meta.Features)
	for ti, tree := range m.trees {
		for ni, node := range tree.Nodes {
			if node.Feature < 0 {
				continue // leaf
			}
			if node.Feature >= width {
				return &models.FeatureShapeError{
					Detail: fmt.Sprintf("tree %d node %d references feature %d, schema width %d",
						ti, ni, node.Feature, width),
				}
			}
			// Children must come strictly after their parent in the flat
			// array, so a walk always advances and terminates.
			if node.Left <= ni || node.Left >= len(tree.Nodes) ||
				node.Right <= ni || node.Right >= len(tree.Nodes) {
				return &models.ArtifactError{
					Source: m.meta.ModelID,
					Err:    fmt.Errorf("tree %d node %d has invalid child index", ti, ni),
				}
			}
		}
	}
	return nil
}

func (m *Model) Metadata() Metadata { return m.meta }

// Features returns the ordered feature schema the model expects.
func (m *Model) Features() []string { return m.meta.Features }

// Predict evaluates the ensemble on a single feature vector. The vector must
// already have the schema's width; callers enforce that via the feature
// builder.
func (m *Model) Predict(vec []float64) float64 {
	score := m.baseScore
	for i := range m.trees {
		score += evalTree(m.trees[i].Nodes, vec)
	}
	return score
}

func evalTree(nodes []Node, vec []float64) float64 {
	if len(nodes) == 0 {
		return 0
	}
	idx := 0
	for {
		node := nodes[idx]
		if node.Feature < 0 {
			return node.Value
		}
		v := vec[node.Feature]
		if math.IsNaN(v) || v < node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
}
