package inference

import (
	"math"

	"demandforecast/internal/artifact"
	"demandforecast/internal/models"
)

// Predictor is the single-vector predict capability of a trained model.
// Satisfied by *artifact.Model; tests substitute doubles.
type Predictor interface {
	Predict(vec []float64) float64
}

// Wrapper holds the loaded model handle and its calibration. The trained
// model emits only a point estimate; the confidence interval is a calibrated
// heuristic (fixed relative half-width r from the artifact metadata), not a
// true predictive distribution.
type Wrapper struct {
	Model       Predictor
	Calibration artifact.Calibration
}

// Loaded reports whether a usable model handle is present.
func (w *Wrapper) Loaded() bool {
	return w != nil && w.Model != nil
}

// PredictWithInterval evaluates the model and derives the interval:
// point clipped to be non-negative (demand cannot be negative),
// lower = max(0, point*(1-r)), upper = point*(1+r).
func (w *Wrapper) PredictWithInterval(vec []float64) (point, lower, upper float64, err error) {
	if !w.Loaded() {
		return 0, 0, 0, models.ErrModelUnavailable
	}

	point = w.Model.Predict(vec)
	if point < 0 {
		point = 0
	}

	r := w.Calibration.RelativeHalfWidth
	lower = math.Max(0, point*(1-r))
	upper = point * (1 + r)
	return point, lower, upper, nil
}
