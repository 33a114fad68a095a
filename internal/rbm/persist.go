package rbm

import (
	"fmt"
	"io"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/rbm/internal/parallel"
	"github.com/born-ml/rbm/internal/serialization"
)

// ModelType is the model_type written to every .rbm header.
const ModelType = "bernoulli-rbm"

// Tensor names in a saved model.
const (
	tensorWeights     = "weights"
	tensorVisibleBias = "visible_bias"
	tensorHiddenBias  = "hidden_bias"
)

// Hyperparameter metadata keys.
const (
	metaVisible      = "visible"
	metaHidden       = "hidden"
	metaLearningRate = "learning_rate"
	metaWeightDecay  = "weight_decay"
	metaBatchSize    = "batch_size"
)

// StateDict returns copies of the parameters keyed by tensor name.
func (m *Model) StateDict() map[string]serialization.Tensor {
	n, h := m.cfg.Visible, m.cfg.Hidden
	return map[string]serialization.Tensor{
		tensorWeights:     {Shape: []int{n, h}, Data: append([]float64(nil), denseData(m.weights)...)},
		tensorVisibleBias: {Shape: []int{n}, Data: append([]float64(nil), m.visibleBias.RawVector().Data...)},
		tensorHiddenBias:  {Shape: []int{h}, Data: append([]float64(nil), m.hiddenBias.RawVector().Data...)},
	}
}

// Save writes the parameters and hyperparameters of m to w.
// A non-nil checkpoint is stored alongside them.
func Save(w io.Writer, m *Model, checkpoint *serialization.CheckpointMeta) error {
	if err := serialization.Write(w, m.StateDict(), m.header(checkpoint)); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	return nil
}

// SaveFile writes m to path, replacing any existing file atomically.
func SaveFile(path string, m *Model, checkpoint *serialization.CheckpointMeta) error {
	if err := serialization.WriteFile(path, m.StateDict(), m.header(checkpoint)); err != nil {
		return fmt.Errorf("save model %s: %w", path, err)
	}
	return nil
}

// Load reads a Model from r. The Model is only constructed once every
// tensor and hyperparameter has been validated.
func Load(r io.Reader) (*Model, *serialization.Header, error) {
	header, state, err := serialization.Read(r)
	if err != nil {
		return nil, nil, fmt.Errorf("load model: %w", err)
	}
	m, err := fromState(header, state)
	if err != nil {
		return nil, nil, fmt.Errorf("load model: %w", err)
	}
	return m, header, nil
}

// LoadFile reads a Model from path.
func LoadFile(path string) (*Model, *serialization.Header, error) {
	header, state, err := serialization.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load model %s: %w", path, err)
	}
	m, err := fromState(header, state)
	if err != nil {
		return nil, nil, fmt.Errorf("load model %s: %w", path, err)
	}
	return m, header, nil
}

func (m *Model) header(checkpoint *serialization.CheckpointMeta) serialization.Header {
	return serialization.Header{
		ModelType:  ModelType,
		Metadata:   m.metadata(),
		Checkpoint: checkpoint,
	}
}

func (m *Model) metadata() map[string]string {
	return map[string]string{
		metaVisible:      strconv.Itoa(m.cfg.Visible),
		metaHidden:       strconv.Itoa(m.cfg.Hidden),
		metaLearningRate: strconv.FormatFloat(m.cfg.LearningRate, 'g', -1, 64),
		metaWeightDecay:  strconv.FormatFloat(m.cfg.WeightDecay, 'g', -1, 64),
		metaBatchSize:    strconv.Itoa(m.cfg.BatchSize),
	}
}

func fromState(header *serialization.Header, state map[string]serialization.Tensor) (*Model, error) {
	if header.ModelType != ModelType {
		return nil, fmt.Errorf("model type %q, want %q", header.ModelType, ModelType)
	}
	cfg, err := configFromMetadata(header.Metadata)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n, h := cfg.Visible, cfg.Hidden

	w, err := requireShape(state, tensorWeights, n, h)
	if err != nil {
		return nil, err
	}
	b, err := requireShape(state, tensorVisibleBias, n)
	if err != nil {
		return nil, err
	}
	c, err := requireShape(state, tensorHiddenBias, h)
	if err != nil {
		return nil, err
	}

	m := &Model{cfg: cfg, par: parallel.DefaultConfig()}
	if err := m.SetParameters(mat.NewDense(n, h, w), mat.NewVecDense(n, b), mat.NewVecDense(h, c)); err != nil {
		return nil, err
	}
	return m, nil
}

func configFromMetadata(meta map[string]string) (Config, error) {
	var cfg Config
	ints := []struct {
		key string
		dst *int
	}{
		{metaVisible, &cfg.Visible},
		{metaHidden, &cfg.Hidden},
		{metaBatchSize, &cfg.BatchSize},
	}
	for _, f := range ints {
		s, ok := meta[f.key]
		if !ok {
			return Config{}, fmt.Errorf("missing metadata %q", f.key)
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return Config{}, fmt.Errorf("metadata %q: %w", f.key, err)
		}
		*f.dst = v
	}
	reals := []struct {
		key string
		dst *float64
	}{
		{metaLearningRate, &cfg.LearningRate},
		{metaWeightDecay, &cfg.WeightDecay},
	}
	for _, f := range reals {
		s, ok := meta[f.key]
		if !ok {
			return Config{}, fmt.Errorf("missing metadata %q", f.key)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Config{}, fmt.Errorf("metadata %q: %w", f.key, err)
		}
		*f.dst = v
	}
	return cfg, nil
}

func requireShape(state map[string]serialization.Tensor, name string, shape ...int) ([]float64, error) {
	t, err := serialization.Require(state, name)
	if err != nil {
		return nil, err
	}
	if len(t.Shape) != len(shape) {
		return nil, fmt.Errorf("tensor %s: %w: shape %v, want %v", name, ErrShapeMismatch, t.Shape, shape)
	}
	for i := range shape {
		if t.Shape[i] != shape[i] {
			return nil, fmt.Errorf("tensor %s: %w: shape %v, want %v", name, ErrShapeMismatch, t.Shape, shape)
		}
	}
	return t.Data, nil
}
