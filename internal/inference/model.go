// Package inference scores feature vectors against a persisted linear
// model artifact and applies the ordered override policy that patches the
// model's known failure modes.
package inference

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Artifact is the serialized trained model: feature names in scoring
// order, standardization parameters, and linear coefficients.
type Artifact struct {
	Features        []string           `json:"features"`
	ScalerMean      []float64          `json:"scaler_mean"`
	ScalerScale     []float64          `json:"scaler_scale"`
	Coefficients    []float64          `json:"coefficients"`
	Intercept       float64            `json:"intercept"`
	TrainingMetrics map[string]float64 `json:"training_metrics,omitempty"`
}

// LoadArtifact reads and validates a model artifact. A missing file is not
// fatal to the engine; the caller degrades to baseline-only predictions.
func LoadArtifact(path string) (*Artifact, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "inference: read %s", path)
	}
	var a Artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, eris.Wrapf(err, "inference: decode %s", path)
	}
	n := len(a.Features)
	if n == 0 {
		return nil, eris.Errorf("inference: artifact %s declares no features", path)
	}
	if len(a.ScalerMean) != n || len(a.ScalerScale) != n || len(a.Coefficients) != n {
		return nil, eris.Errorf("inference: artifact %s has mismatched parameter lengths", path)
	}
	for i, s := range a.ScalerScale {
		if s == 0 {
			return nil, eris.Errorf("inference: artifact %s has zero scale for %s", path, a.Features[i])
		}
	}
	zap.L().Info("model artifact loaded", zap.String("path", path), zap.Int("features", n))
	return &a, nil
}

// Vector assembles the ordered feature vector from named values. Names the
// artifact declares but the resolver did not compute default to 0.0; extra
// computed values are ignored. Order follows the artifact exactly.
func (a *Artifact) Vector(values map[string]float64) []float64 {
	x := make([]float64, len(a.Features))
	for i, name := range a.Features {
		x[i] = values[name]
	}
	return x
}

// Score standardizes one feature vector, applies the linear model, and
// clamps the result to be non-negative.
func (a *Artifact) Score(x []float64) float64 {
	sum := a.Intercept
	for i, v := range x {
		sum += a.Coefficients[i] * (v - a.ScalerMean[i]) / a.ScalerScale[i]
	}
	if sum < 0 {
		return 0
	}
	return sum
}

// ScoreBatch scores n feature vectors with a single matrix multiply.
// The rows slice holds n vectors of len(Features) each.
func (a *Artifact) ScoreBatch(rows [][]float64) []float64 {
	n := len(rows)
	if n == 0 {
		return nil
	}
	p := len(a.Features)
	scaled := mat.NewDense(n, p, nil)
	for i, row := range rows {
		for j := 0; j < p; j++ {
			scaled.Set(i, j, (row[j]-a.ScalerMean[j])/a.ScalerScale[j])
		}
	}
	coefs := mat.NewVecDense(p, a.Coefficients)
	var pred mat.VecDense
	pred.MulVec(scaled, coefs)

	out := make([]float64, n)
	for i := range out {
		v := pred.AtVec(i) + a.Intercept
		if v < 0 {
			v = 0
		}
		out[i] = v
	}
	return out
}
