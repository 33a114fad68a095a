// Package config loads the YAML description of a training run.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/rbm/internal/rbm"
	"github.com/born-ml/rbm/internal/trainer"
)

// Data formats accepted in Data.Format.
const (
	FormatCSV = "csv"
	FormatIDX = "idx"
)

// Config captures every knob of a training run.
type Config struct {
	Model  Model  `yaml:"model"`
	Train  Train  `yaml:"train"`
	Data   Data   `yaml:"data"`
	Output Output `yaml:"output"`
}

// Model holds the machine shape and update hyperparameters.
type Model struct {
	Visible      int     `yaml:"visible"`
	Hidden       int     `yaml:"hidden"`
	LearningRate float64 `yaml:"learning_rate"`
	WeightDecay  float64 `yaml:"weight_decay"`
	BatchSize    int     `yaml:"batch_size"`
}

// Train selects the estimator and loop settings.
type Train struct {
	Method      string `yaml:"method"`
	Steps       int    `yaml:"steps"`
	OnsagerSeed string `yaml:"onsager_seed"`
	Epochs      int    `yaml:"epochs"`
	Seed        int64  `yaml:"seed"`
	OnNonFinite string `yaml:"on_non_finite"`
	Workers     int    `yaml:"workers"`
}

// Data locates and preprocesses the training set.
type Data struct {
	Path       string  `yaml:"path"`
	Format     string  `yaml:"format"`
	SkipHeader bool    `yaml:"skip_header"`
	SkipCols   int     `yaml:"skip_columns"`
	MaxRows    int     `yaml:"max_rows"`
	Threshold  float64 `yaml:"threshold"`
}

// Output controls what the run writes.
type Output struct {
	Dir        string `yaml:"dir"`
	Checkpoint bool   `yaml:"checkpoint"`
	Plots      bool   `yaml:"plots"`
	Likelihood bool   `yaml:"likelihood"`
}

// Overrides captures CLI supplied values.
type Overrides struct {
	DataPath     string
	OutputDir    string
	Method       string
	Hidden       int
	Epochs       int
	Steps        int
	BatchSize    int
	LearningRate float64
	Seed         *int64 // nil leaves the configured seed; any value, 0 included, replaces it
}

// Default returns a Config with every default filled in.
// Visible is left zero and is taken from the data when unset.
func Default() *Config {
	return &Config{
		Model: Model{
			LearningRate: rbm.DefaultLearningRate,
			WeightDecay:  rbm.DefaultWeightDecay,
			BatchSize:    rbm.DefaultBatchSize,
		},
		Train: Train{
			Method:      trainer.MethodTAP,
			Steps:       rbm.DefaultSteps,
			OnsagerSeed: rbm.DefaultOnsagerSeed.String(),
			Epochs:      10,
			Seed:        -1,
			OnNonFinite: trainer.Halt.String(),
		},
		Data: Data{
			Format:    FormatCSV,
			Threshold: 0.5,
		},
		Output: Output{
			Dir:        "out",
			Checkpoint: true,
			Plots:      true,
			Likelihood: true,
		},
	}
}

// Load reads a Config from YAML. Keys absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	//nolint:gosec // G304: Path comes from user input
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	cfg, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(raw []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverrides updates c using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.DataPath != "" {
		c.Data.Path = o.DataPath
	}
	if o.OutputDir != "" {
		c.Output.Dir = o.OutputDir
	}
	if o.Method != "" {
		c.Train.Method = o.Method
	}
	if o.Hidden > 0 {
		c.Model.Hidden = o.Hidden
	}
	if o.Epochs > 0 {
		c.Train.Epochs = o.Epochs
	}
	if o.Steps > 0 {
		c.Train.Steps = o.Steps
	}
	if o.BatchSize > 0 {
		c.Model.BatchSize = o.BatchSize
	}
	if o.LearningRate > 0 {
		c.Model.LearningRate = o.LearningRate
	}
	if o.Seed != nil {
		c.Train.Seed = *o.Seed
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Data.Path == "" {
		return errors.New("data.path must be set")
	}
	switch c.Data.Format {
	case FormatCSV, FormatIDX:
	default:
		return fmt.Errorf("data.format must be %q or %q (got %q)", FormatCSV, FormatIDX, c.Data.Format)
	}
	if c.Model.Visible < 0 {
		return fmt.Errorf("model.visible must be >= 0 (got %d)", c.Model.Visible)
	}
	if c.Model.Hidden <= 0 {
		return fmt.Errorf("model.hidden must be > 0 (got %d)", c.Model.Hidden)
	}
	if c.Train.Epochs <= 0 {
		return fmt.Errorf("train.epochs must be > 0 (got %d)", c.Train.Epochs)
	}
	if c.Train.Steps <= 0 {
		return fmt.Errorf("train.steps must be > 0 (got %d)", c.Train.Steps)
	}
	if c.Train.Workers < 0 {
		return fmt.Errorf("train.workers must be >= 0 (got %d)", c.Train.Workers)
	}
	switch c.Train.Method {
	case trainer.MethodMCMC, trainer.MethodMeanField, trainer.MethodTAP:
	default:
		return fmt.Errorf("train.method must be one of %s, %s, %s (got %q)",
			trainer.MethodMCMC, trainer.MethodMeanField, trainer.MethodTAP, c.Train.Method)
	}
	if _, err := c.Seed(); err != nil {
		return err
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	if c.Output.Dir == "" {
		return errors.New("output.dir must be set")
	}
	// Visible may still be unknown here; check the rest with a placeholder.
	mc := c.ModelConfig(1)
	if err := mc.Validate(); err != nil {
		return err
	}
	return nil
}

// Seed parses Train.OnsagerSeed.
func (c *Config) Seed() (rbm.OnsagerSeed, error) {
	for _, s := range []rbm.OnsagerSeed{rbm.SeedNaiveMeanField, rbm.SeedNeutral} {
		if c.Train.OnsagerSeed == s.String() {
			return s, nil
		}
	}
	return 0, fmt.Errorf("train.onsager_seed must be %q or %q (got %q)",
		rbm.SeedNaiveMeanField, rbm.SeedNeutral, c.Train.OnsagerSeed)
}

// Policy parses Train.OnNonFinite.
func (c *Config) Policy() (trainer.Policy, error) {
	p, err := trainer.ParsePolicy(c.Train.OnNonFinite)
	if err != nil {
		return 0, fmt.Errorf("train.on_non_finite: %w", err)
	}
	return p, nil
}

// ModelConfig returns the rbm.Config for a dataset with the given width.
// A non-zero Model.Visible takes precedence.
func (c *Config) ModelConfig(dataWidth int) rbm.Config {
	visible := c.Model.Visible
	if visible == 0 {
		visible = dataWidth
	}
	return rbm.Config{
		Visible:      visible,
		Hidden:       c.Model.Hidden,
		LearningRate: c.Model.LearningRate,
		WeightDecay:  c.Model.WeightDecay,
		BatchSize:    c.Model.BatchSize,
	}
}
