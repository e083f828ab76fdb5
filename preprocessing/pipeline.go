package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/bloomcast/core/model"
	"github.com/ezoic/bloomcast/dataset"
	bloomErrors "github.com/ezoic/bloomcast/pkg/errors"
	"github.com/ezoic/bloomcast/pkg/log"
)

// Transformed is the model-ready output of the pipeline for one subset.
type Transformed struct {
	// X is the transformed design matrix: numeric predictors followed by
	// dummy columns.
	X *mat.Dense

	// Labels holds the class label per row of X.
	Labels []string

	// Y encodes Labels numerically: 1 for high, 0 for low.
	Y *mat.VecDense

	// FeatureNames names the columns of X in order.
	FeatureNames []string

	// RowIndex maps each row of X back to a row of the input feature table.
	// Upsampled duplicates map to the row they were drawn from.
	RowIndex []int
}

// Pipeline is the ordered preprocessing chain of the modeling recipe: column
// selection, missing-row dropping, signed log, log, Box-Cox, z-score,
// one-hot encoding, and (training subset only) minority upsampling.
//
// Fit learns every parameter from the training subset exactly once.
// Transform replays the fitted state on any subset without re-estimating;
// FitTransform additionally applies upsampling and is the only path that
// does.
type Pipeline struct {
	state  *model.StateManager
	logger log.Logger

	numericColumns     []string
	categoricalColumns []string
	signedLogColumns   []string
	logColumns         []string
	upsampleRatio      float64
	seed               int64

	signedLog    *SignedLogTransform
	logTransform *LogTransform
	boxcox       *BoxCoxTransform
	scaler       *StandardScaler
	encoders     []*OneHotEncoder
}

// PipelineOption is a functional option for Pipeline.
type PipelineOption func(*Pipeline)

// WithNumericColumns overrides the numeric predictor subset.
func WithNumericColumns(columns ...string) PipelineOption {
	return func(p *Pipeline) { p.numericColumns = columns }
}

// WithCategoricalColumns overrides the categorical predictor subset.
func WithCategoricalColumns(columns ...string) PipelineOption {
	return func(p *Pipeline) { p.categoricalColumns = columns }
}

// WithSignedLogColumns overrides the columns receiving the signed log.
func WithSignedLogColumns(columns ...string) PipelineOption {
	return func(p *Pipeline) { p.signedLogColumns = columns }
}

// WithLogColumns overrides the columns receiving the plain log.
func WithLogColumns(columns ...string) PipelineOption {
	return func(p *Pipeline) { p.logColumns = columns }
}

// WithUpsampleRatio sets the target minority:majority ratio for training
// subsets. Zero disables upsampling.
func WithUpsampleRatio(ratio float64) PipelineOption {
	return func(p *Pipeline) { p.upsampleRatio = ratio }
}

// WithPipelineSeed sets the seed for the upsampling draw.
func WithPipelineSeed(seed int64) PipelineOption {
	return func(p *Pipeline) { p.seed = seed }
}

// NewPipeline creates a preprocessing pipeline with the reference modeling
// column subset: temperature, irradiance, flow and salinity plus the wind
// direction sector. Wind speed, pressure and week-of-year stay out of this
// modeling variant even though the feature builder computes them.
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		state:  model.NewStateManager(),
		logger: log.GetLoggerWithName("preprocessing").With(log.StageKey, "pipeline"),
		numericColumns: []string{
			dataset.ColTemperature, dataset.ColIrradiance,
			dataset.ColFlow, dataset.ColSalinity,
		},
		categoricalColumns: []string{dataset.ColWindDir},
		signedLogColumns:   []string{dataset.ColIrradiance},
		logColumns:         []string{dataset.ColFlow},
		upsampleRatio:      0.35,
		seed:               1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IsFitted reports whether Fit has completed.
func (p *Pipeline) IsFitted() bool { return p.state.IsFitted() }

// selectRows extracts the selected columns from ft, dropping any row with a
// remaining missing value. Returns the numeric matrix, categorical columns,
// labels and the surviving row indices.
func (p *Pipeline) selectRows(ft *dataset.FeatureTable) (*mat.Dense, map[string][]string, []string, []int, error) {
	for _, col := range p.numericColumns {
		if ft.Numeric(col) == nil {
			return nil, nil, nil, nil, bloomErrors.NewValueError("Pipeline", "feature table missing column "+col)
		}
	}
	for _, col := range p.categoricalColumns {
		if ft.Categorical(col) == nil {
			return nil, nil, nil, nil, bloomErrors.NewValueError("Pipeline", "feature table missing categorical column "+col)
		}
	}

	n := ft.Len()
	keep := make([]int, 0, n)
	for i := 0; i < n; i++ {
		ok := true
		for _, col := range p.numericColumns {
			if math.IsNaN(ft.Numeric(col)[i]) {
				ok = false
				break
			}
		}
		if ok {
			for _, col := range p.categoricalColumns {
				if ft.Categorical(col)[i] == "" {
					ok = false
					break
				}
			}
		}
		if ok && ft.Labels[i] != "" {
			keep = append(keep, i)
		}
	}
	if len(keep) == 0 {
		return nil, nil, nil, nil, bloomErrors.NewInsufficientDataError("Pipeline", 1, 0)
	}

	X := mat.NewDense(len(keep), len(p.numericColumns), nil)
	for out, i := range keep {
		for j, col := range p.numericColumns {
			X.Set(out, j, ft.Numeric(col)[i])
		}
	}

	cats := make(map[string][]string, len(p.categoricalColumns))
	for _, col := range p.categoricalColumns {
		vals := make([]string, len(keep))
		for out, i := range keep {
			vals[out] = ft.Categorical(col)[i]
		}
		cats[col] = vals
	}

	labels := make([]string, len(keep))
	for out, i := range keep {
		labels[out] = ft.Labels[i]
	}
	return X, cats, labels, keep, nil
}

// Fit learns the full transform state from the training subset.
func (p *Pipeline) Fit(train *dataset.FeatureTable) (err error) {
	defer bloomErrors.Recover(&err, "Pipeline.Fit")

	X, cats, _, _, err := p.selectRows(train)
	if err != nil {
		return err
	}
	r, _ := X.Dims()
	p.logger.Info("fitting preprocessing state",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, r,
		log.FeaturesKey, len(p.numericColumns)+len(p.categoricalColumns),
	)

	p.signedLog = NewSignedLogTransform(p.signedLogColumns...)
	if err := p.signedLog.Fit(X, p.numericColumns); err != nil {
		return err
	}
	Xt, err := p.signedLog.Transform(X)
	if err != nil {
		return err
	}

	p.logTransform = NewLogTransform(p.logColumns...)
	if err := p.logTransform.Fit(Xt, p.numericColumns); err != nil {
		return err
	}
	if Xt, err = p.logTransform.Transform(Xt); err != nil {
		return err
	}

	p.boxcox = NewBoxCoxTransform()
	if err := p.boxcox.Fit(Xt, p.numericColumns); err != nil {
		return err
	}
	if Xt, err = p.boxcox.Transform(Xt); err != nil {
		return err
	}

	p.scaler = NewStandardScaler()
	if err := p.scaler.Fit(Xt); err != nil {
		return err
	}

	p.encoders = p.encoders[:0]
	for _, col := range p.categoricalColumns {
		enc := NewOneHotEncoder(col)
		if err := enc.Fit(cats[col]); err != nil {
			return err
		}
		p.encoders = append(p.encoders, enc)
	}

	p.state.SetFitted()
	return nil
}

// Transform applies the fitted state to any subset. Never upsamples, never
// re-estimates; applying twice to the same input yields identical output.
func (p *Pipeline) Transform(ft *dataset.FeatureTable) (_ *Transformed, err error) {
	defer bloomErrors.Recover(&err, "Pipeline.Transform")
	if !p.state.IsFitted() {
		return nil, bloomErrors.NewNotFittedError("Pipeline", "Transform")
	}

	X, cats, labels, keep, err := p.selectRows(ft)
	if err != nil {
		return nil, err
	}

	Xt, err := p.signedLog.Transform(X)
	if err != nil {
		return nil, err
	}
	if Xt, err = p.logTransform.Transform(Xt); err != nil {
		return nil, err
	}
	if Xt, err = p.boxcox.Transform(Xt); err != nil {
		return nil, err
	}
	if Xt, err = p.scaler.Transform(Xt); err != nil {
		return nil, err
	}

	names := append([]string(nil), p.numericColumns...)
	blocks := []*mat.Dense{Xt}
	for _, enc := range p.encoders {
		encoded, err := enc.Transform(cats[enc.Column])
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, encoded)
		names = append(names, enc.FeatureNamesOut()...)
	}

	full := hstack(blocks)
	return &Transformed{
		X:            full,
		Labels:       labels,
		Y:            EncodeLabels(labels),
		FeatureNames: names,
		RowIndex:     keep,
	}, nil
}

// FitTransform fits the state on train and returns the transformed training
// subset with minority upsampling applied. This is the only path that
// upsamples.
func (p *Pipeline) FitTransform(train *dataset.FeatureTable) (*Transformed, error) {
	if err := p.Fit(train); err != nil {
		return nil, err
	}
	tr, err := p.Transform(train)
	if err != nil {
		return nil, err
	}

	up := NewUpsampler(p.upsampleRatio, p.seed)
	before, _ := tr.X.Dims()
	X, labels, err := up.Apply(tr.X, tr.Labels)
	if err != nil {
		return nil, err
	}

	// Extend the row index for duplicated rows: each appended row was drawn
	// from some original row but the draw source is internal to the sampler,
	// so duplicates map to -1 meaning "synthetic".
	after, _ := X.Dims()
	rowIndex := append([]int(nil), tr.RowIndex...)
	for i := before; i < after; i++ {
		rowIndex = append(rowIndex, -1)
	}

	tr.X = X
	tr.Labels = labels
	tr.Y = EncodeLabels(labels)
	tr.RowIndex = rowIndex
	return tr, nil
}

// EncodeLabels maps class labels to a numeric vector: high = 1, low = 0.
func EncodeLabels(labels []string) *mat.VecDense {
	y := mat.NewVecDense(len(labels), nil)
	for i, l := range labels {
		if l == dataset.LabelHigh {
			y.SetVec(i, 1)
		}
	}
	return y
}

// hstack concatenates matrices horizontally. All blocks share a row count.
func hstack(blocks []*mat.Dense) *mat.Dense {
	if len(blocks) == 1 {
		return blocks[0]
	}
	rows, _ := blocks[0].Dims()
	total := 0
	for _, b := range blocks {
		_, c := b.Dims()
		total += c
	}
	out := mat.NewDense(rows, total, nil)
	offset := 0
	for _, b := range blocks {
		_, c := b.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < c; j++ {
				out.Set(i, offset+j, b.At(i, j))
			}
		}
		offset += c
	}
	return out
}
