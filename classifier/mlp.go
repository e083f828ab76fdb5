package classifier

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/bloomcast/core/model"
	bloomErrors "github.com/ezoic/bloomcast/pkg/errors"
	"github.com/ezoic/bloomcast/pkg/log"
)

// Activation names accepted by WithActivation.
const (
	ActivationReLU     = "relu"
	ActivationTanh     = "tanh"
	ActivationLogistic = "logistic"
)

// MLPClassifier is a single-hidden-layer feed-forward network with a sigmoid
// output unit, trained by stochastic gradient descent on cross-entropy loss.
// Weight initialization, sample shuffling and dropout masks all derive from
// the configured seed.
type MLPClassifier struct {
	state *model.StateManager

	// Hyperparameters
	hiddenUnits  int
	epochs       int
	learningRate float64
	dropout      float64
	activation   string
	seed         int64

	// Fitted state
	w1_        []float64 // hidden weights, hiddenUnits x nFeatures row-major
	b1_        []float64 // hidden biases
	w2_        []float64 // output weights
	b2_        float64   // output bias
	nFeatures_ int
}

// MLPOption is a functional option for MLPClassifier.
type MLPOption func(*MLPClassifier)

// WithHiddenUnits sets the hidden layer width.
func WithHiddenUnits(n int) MLPOption {
	return func(m *MLPClassifier) { m.hiddenUnits = n }
}

// WithEpochs sets the number of passes over the training data.
func WithEpochs(n int) MLPOption {
	return func(m *MLPClassifier) { m.epochs = n }
}

// WithLearningRate sets the SGD step size.
func WithLearningRate(lr float64) MLPOption {
	return func(m *MLPClassifier) { m.learningRate = lr }
}

// WithDropout sets the hidden-unit dropout probability applied during
// training. Zero disables dropout.
func WithDropout(p float64) MLPOption {
	return func(m *MLPClassifier) { m.dropout = p }
}

// WithActivation selects the hidden activation: "relu", "tanh" or "logistic".
func WithActivation(name string) MLPOption {
	return func(m *MLPClassifier) { m.activation = name }
}

// WithMLPSeed sets the seed for weight init, shuffling and dropout.
func WithMLPSeed(seed int64) MLPOption {
	return func(m *MLPClassifier) { m.seed = seed }
}

// NewMLPClassifier creates a network with 16 hidden logistic units, 200
// epochs and a 0.01 learning rate.
func NewMLPClassifier(opts ...MLPOption) *MLPClassifier {
	m := &MLPClassifier{
		state:        model.NewStateManager(),
		hiddenUnits:  16,
		epochs:       200,
		learningRate: 0.01,
		activation:   ActivationLogistic,
		seed:         1,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MLPClassifier) validate() error {
	if m.hiddenUnits < 1 {
		return bloomErrors.NewValidationError("hidden_units", "must be at least 1", m.hiddenUnits)
	}
	if m.epochs < 1 {
		return bloomErrors.NewValidationError("epochs", "must be at least 1", m.epochs)
	}
	if m.learningRate <= 0 {
		return bloomErrors.NewValidationError("learning_rate", "must be positive", m.learningRate)
	}
	if m.dropout < 0 || m.dropout >= 1 {
		return bloomErrors.NewValidationError("dropout", "must be in [0, 1)", m.dropout)
	}
	switch m.activation {
	case ActivationReLU, ActivationTanh, ActivationLogistic:
	default:
		return bloomErrors.NewValidationError("activation", "must be relu, tanh or logistic", m.activation)
	}
	return nil
}

func (m *MLPClassifier) activate(z float64) float64 {
	switch m.activation {
	case ActivationReLU:
		if z > 0 {
			return z
		}
		return 0
	case ActivationTanh:
		return math.Tanh(z)
	default:
		return sigmoid(z)
	}
}

// activateGrad returns the derivative given the activation value a and the
// pre-activation z.
func (m *MLPClassifier) activateGrad(a, z float64) float64 {
	switch m.activation {
	case ActivationReLU:
		if z > 0 {
			return 1
		}
		return 0
	case ActivationTanh:
		return 1 - a*a
	default:
		return a * (1 - a)
	}
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// Fit trains the network with per-sample SGD. A non-finite epoch loss aborts
// training with a TrainingDivergedError rather than returning a silently
// degenerate model.
func (m *MLPClassifier) Fit(X, y mat.Matrix) (err error) {
	defer bloomErrors.Recover(&err, "MLPClassifier.Fit")

	nSamples, nFeatures, err := validateFitInputs("MLPClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	if err := m.validate(); err != nil {
		return err
	}

	labels := labelsToBinary(y)
	m.nFeatures_ = nFeatures

	rng := rand.New(rand.NewSource(m.seed))

	// Glorot-style uniform init scaled by fan-in.
	h := m.hiddenUnits
	limit1 := math.Sqrt(6.0 / float64(nFeatures+h))
	limit2 := math.Sqrt(6.0 / float64(h+1))
	m.w1_ = make([]float64, h*nFeatures)
	m.b1_ = make([]float64, h)
	m.w2_ = make([]float64, h)
	m.b2_ = 0
	for i := range m.w1_ {
		m.w1_[i] = (rng.Float64()*2 - 1) * limit1
	}
	for j := range m.w2_ {
		m.w2_[j] = (rng.Float64()*2 - 1) * limit2
	}

	logger := log.GetLoggerWithName("classifier")
	logger.Info("fitting neural network",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		"hidden_units", h,
		"epochs", m.epochs,
		"activation", m.activation,
		log.SeedKey, m.seed,
	)

	order := make([]int, nSamples)
	for i := range order {
		order[i] = i
	}

	zs := make([]float64, h)
	as := make([]float64, h)
	mask := make([]bool, h)
	keep := 1 - m.dropout

	for epoch := 0; epoch < m.epochs; epoch++ {
		rng.Shuffle(nSamples, func(a, b int) { order[a], order[b] = order[b], order[a] })

		loss := 0.0
		for _, i := range order {
			// Forward pass.
			for j := 0; j < h; j++ {
				z := m.b1_[j]
				base := j * nFeatures
				for k := 0; k < nFeatures; k++ {
					z += m.w1_[base+k] * X.At(i, k)
				}
				zs[j] = z
				a := m.activate(z)
				if m.dropout > 0 {
					// Inverted dropout so inference needs no rescale.
					mask[j] = rng.Float64() < keep
					if mask[j] {
						a /= keep
					} else {
						a = 0
					}
				}
				as[j] = a
			}
			zOut := m.b2_
			for j := 0; j < h; j++ {
				zOut += m.w2_[j] * as[j]
			}
			p := sigmoid(zOut)

			t := float64(labels[i])
			loss += crossEntropy(t, p)

			// Backward pass.
			delta := p - t
			for j := 0; j < h; j++ {
				if m.dropout > 0 && !mask[j] {
					continue
				}
				gradHidden := delta * m.w2_[j] * m.activateGrad(as[j], zs[j])
				m.w2_[j] -= m.learningRate * delta * as[j]
				base := j * nFeatures
				for k := 0; k < nFeatures; k++ {
					m.w1_[base+k] -= m.learningRate * gradHidden * X.At(i, k)
				}
				m.b1_[j] -= m.learningRate * gradHidden
			}
			m.b2_ -= m.learningRate * delta
		}

		loss /= float64(nSamples)
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return bloomErrors.NewTrainingDivergedError("MLPClassifier", epoch, loss)
		}
		if epoch%50 == 0 {
			logger.Debug("epoch complete",
				log.PhaseKey, log.PhaseTraining,
				"epoch", epoch,
				"loss", loss,
			)
		}
	}

	m.state.SetFitted()
	return nil
}

// crossEntropy is the binary cross-entropy of target t against probability p,
// clamped away from 0 and 1 so a saturated unit does not produce Inf.
func crossEntropy(t, p float64) float64 {
	const eps = 1e-12
	if p < eps {
		p = eps
	} else if p > 1-eps {
		p = 1 - eps
	}
	return -(t*math.Log(p) + (1-t)*math.Log(1-p))
}

// PredictProba runs the forward pass and returns P(high) per row.
func (m *MLPClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !m.state.IsFitted() {
		return nil, bloomErrors.NewNotFittedError("MLPClassifier", "PredictProba")
	}
	r, c := X.Dims()
	if c != m.nFeatures_ {
		return nil, bloomErrors.NewDimensionError("MLPClassifier.PredictProba", m.nFeatures_, c, 1)
	}

	h := m.hiddenUnits
	proba := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		zOut := m.b2_
		for j := 0; j < h; j++ {
			z := m.b1_[j]
			base := j * m.nFeatures_
			for k := 0; k < m.nFeatures_; k++ {
				z += m.w1_[base+k] * X.At(i, k)
			}
			zOut += m.w2_[j] * m.activate(z)
		}
		proba.Set(i, 0, sigmoid(zOut))
	}
	return proba, nil
}

// Predict thresholds PredictProba at 0.5.
func (m *MLPClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return probaToLabels(proba), nil
}

// Clone returns an unfitted network with the same hyperparameters.
func (m *MLPClassifier) Clone() Classifier {
	return NewMLPClassifier(
		WithHiddenUnits(m.hiddenUnits),
		WithEpochs(m.epochs),
		WithLearningRate(m.learningRate),
		WithDropout(m.dropout),
		WithActivation(m.activation),
		WithMLPSeed(m.seed),
	)
}

// GetParams returns the model hyperparameters.
func (m *MLPClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"hidden_units":  m.hiddenUnits,
		"epochs":        m.epochs,
		"learning_rate": m.learningRate,
		"dropout":       m.dropout,
		"activation":    m.activation,
		"seed":          m.seed,
	}
}
