// Package model loads the trained model artifacts and evaluates them. The
// models themselves are external collaborators: they are exported once from
// the training environment as JSON artifacts, loaded at startup, and
// treated as opaque score functions from then on. Everything here is
// read-only after loading and safe for concurrent use.
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/project-edi/riskd/internal/domain"
)

// fraudTrainingSchema is the exact column order the fraud pipeline was
// trained on. An artifact declaring anything else is rejected at load time:
// the preprocessing stage is schema-sensitive and silent reordering would
// corrupt every score.
var fraudTrainingSchema = []string{
	"Amount",
	"Transaction_Type",
	"Merchant_Country",
	"Payment_Mode",
	"Hour",
	"DayOfWeek",
}

const eulerGamma = 0.5772156649015329

type forestArtifact struct {
	Schema     []string            `json:"schema"`
	Encoders   map[string][]string `json:"encoders"`
	MaxSamples float64             `json:"maxSamples"`
	Offset     float64             `json:"offset"`
	Trees      []forestTree        `json:"trees"`
}

// forestTree is one isolation tree in flat-array form: node i branches left
// when x[Feature[i]] <= Threshold[i]; Left[i] < 0 marks a leaf holding
// Samples[i] training points.
type forestTree struct {
	Feature   []int     `json:"feature"`
	Threshold []float64 `json:"threshold"`
	Left      []int     `json:"left"`
	Right     []int     `json:"right"`
	Samples   []int     `json:"samples"`
}

// IsolationForest evaluates an exported isolation-forest pipeline:
// one-hot categorical encoding followed by average-path-length scoring.
type IsolationForest struct {
	artifact forestArtifact

	// slot layout of the expanded vector, per schema column
	slotStart  map[string]int
	slotWidth  map[string]int
	categories map[string]map[string]int
	vectorLen  int
}

// LoadIsolationForest reads and validates a fraud model artifact.
func LoadIsolationForest(path string) (*IsolationForest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fraud artifact %s: %w", path, err)
	}
	forest, err := parseIsolationForest(data)
	if err != nil {
		return nil, fmt.Errorf("fraud artifact %s: %w", path, err)
	}
	return forest, nil
}

func parseIsolationForest(data []byte) (*IsolationForest, error) {
	var art forestArtifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}

	if len(art.Schema) != len(fraudTrainingSchema) {
		return nil, fmt.Errorf("artifact schema %q does not match training schema %q",
			art.Schema, fraudTrainingSchema)
	}
	for i, col := range fraudTrainingSchema {
		if art.Schema[i] != col {
			return nil, fmt.Errorf("artifact schema %q does not match training schema %q",
				art.Schema, fraudTrainingSchema)
		}
	}
	if len(art.Trees) == 0 {
		return nil, fmt.Errorf("artifact has no trees")
	}
	if art.MaxSamples < 2 {
		return nil, fmt.Errorf("artifact maxSamples %v is invalid", art.MaxSamples)
	}
	for ti, tree := range art.Trees {
		n := len(tree.Feature)
		if n == 0 || len(tree.Threshold) != n || len(tree.Left) != n ||
			len(tree.Right) != n || len(tree.Samples) != n {
			return nil, fmt.Errorf("tree %d has inconsistent node arrays", ti)
		}
	}

	f := &IsolationForest{
		artifact:   art,
		slotStart:  make(map[string]int, len(art.Schema)),
		slotWidth:  make(map[string]int, len(art.Schema)),
		categories: make(map[string]map[string]int),
	}

	offset := 0
	for _, col := range art.Schema {
		f.slotStart[col] = offset
		if cats, ok := art.Encoders[col]; ok {
			f.slotWidth[col] = len(cats)
			index := make(map[string]int, len(cats))
			for i, c := range cats {
				index[c] = i
			}
			f.categories[col] = index
			offset += len(cats)
		} else {
			f.slotWidth[col] = 1
			offset++
		}
	}
	f.vectorLen = offset

	// Every split feature index must fit the expanded vector.
	for ti, tree := range art.Trees {
		for ni, feat := range tree.Feature {
			if tree.Left[ni] < 0 {
				continue
			}
			if feat < 0 || feat >= f.vectorLen {
				return nil, fmt.Errorf("tree %d node %d splits on feature %d, vector has %d slots",
					ti, ni, feat, f.vectorLen)
			}
		}
	}

	return f, nil
}

// TreeCount reports the number of trees in the ensemble.
func (f *IsolationForest) TreeCount() int {
	return len(f.artifact.Trees)
}

// Score evaluates one feature row. Decision follows the training library's
// convention (higher = more normal); IsAnomaly is the model's own binary
// classification, decision < 0.
func (f *IsolationForest) Score(row domain.FraudFeatures) (domain.AnomalyScore, error) {
	x := f.vectorize(row)

	total := 0.0
	for i := range f.artifact.Trees {
		total += f.pathLength(&f.artifact.Trees[i], x)
	}
	mean := total / float64(len(f.artifact.Trees))

	// score_samples = -2^(-E(h)/c(psi)); decision = score_samples - offset
	scoreSamples := -math.Pow(2, -mean/avgPathLength(f.artifact.MaxSamples))
	decision := scoreSamples - f.artifact.Offset

	return domain.AnomalyScore{
		Decision:  decision,
		IsAnomaly: decision < 0,
	}, nil
}

// vectorize expands a feature row into the one-hot vector the trees split
// on. Categories unseen at training time encode as all zeros, matching the
// training encoder's ignore-unknown behavior.
func (f *IsolationForest) vectorize(row domain.FraudFeatures) []float64 {
	x := make([]float64, f.vectorLen)

	f.setNumeric(x, "Amount", row.Amount)
	f.setCategory(x, "Transaction_Type", row.TransactionType)
	f.setCategory(x, "Merchant_Country", row.MerchantCountry)
	f.setNumeric(x, "Payment_Mode", float64(row.PaymentMode))
	f.setNumeric(x, "Hour", float64(row.Hour))
	f.setNumeric(x, "DayOfWeek", float64(row.DayOfWeek))

	return x
}

func (f *IsolationForest) setNumeric(x []float64, col string, v float64) {
	x[f.slotStart[col]] = v
}

func (f *IsolationForest) setCategory(x []float64, col, value string) {
	index, ok := f.categories[col]
	if !ok {
		return
	}
	if i, seen := index[value]; seen {
		x[f.slotStart[col]+i] = 1
	}
}

func (f *IsolationForest) pathLength(tree *forestTree, x []float64) float64 {
	node := 0
	depth := 0.0
	for tree.Left[node] >= 0 {
		if x[tree.Feature[node]] <= tree.Threshold[node] {
			node = tree.Left[node]
		} else {
			node = tree.Right[node]
		}
		depth++
	}
	return depth + avgPathLength(float64(tree.Samples[node]))
}

// avgPathLength is c(n), the average path length of an unsuccessful BST
// search over n points, used to normalize tree depths.
func avgPathLength(n float64) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		return 2*(math.Log(n-1)+eulerGamma) - 2*(n-1)/n
	}
}
