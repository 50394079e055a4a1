package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/project-edi/riskd/internal/domain"
)

type logisticArtifact struct {
	Features     []string  `json:"features"`
	Means        []float64 `json:"means"`
	Scales       []float64 `json:"scales"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

// LogisticModel evaluates an exported standardize-then-logistic-regression
// pipeline for loan default probability.
type LogisticModel struct {
	artifact logisticArtifact
}

// LoadLogisticModel reads and validates a loan model artifact.
func LoadLogisticModel(path string) (*LogisticModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read loan artifact %s: %w", path, err)
	}
	m, err := parseLogisticModel(data)
	if err != nil {
		return nil, fmt.Errorf("loan artifact %s: %w", path, err)
	}
	return m, nil
}

func parseLogisticModel(data []byte) (*LogisticModel, error) {
	var art logisticArtifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}

	if len(art.Features) != len(domain.LoanFeatureNames) {
		return nil, fmt.Errorf("artifact features %q do not match training schema %q",
			art.Features, domain.LoanFeatureNames)
	}
	for i, name := range domain.LoanFeatureNames {
		if art.Features[i] != name {
			return nil, fmt.Errorf("artifact features %q do not match training schema %q",
				art.Features, domain.LoanFeatureNames)
		}
	}
	n := len(art.Features)
	if len(art.Means) != n || len(art.Scales) != n || len(art.Coefficients) != n {
		return nil, fmt.Errorf("artifact parameter arrays do not match %d features", n)
	}

	return &LogisticModel{artifact: art}, nil
}

// Probability returns the default probability in [0,1] for one feature row.
func (m *LogisticModel) Probability(f domain.LoanFeatures) (float64, error) {
	x := f.Vector()
	if len(x) != len(m.artifact.Coefficients) {
		return 0, fmt.Errorf("feature vector has %d values, model expects %d",
			len(x), len(m.artifact.Coefficients))
	}

	z := m.artifact.Intercept
	for i, v := range x {
		scale := m.artifact.Scales[i]
		if scale == 0 {
			scale = 1
		}
		z += m.artifact.Coefficients[i] * (v - m.artifact.Means[i]) / scale
	}

	return 1 / (1 + math.Exp(-z)), nil
}
