// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package rbm

import (
	"io"
	"math/rand"

	"github.com/born-ml/rbm/internal/rbm"
	"github.com/born-ml/rbm/internal/serialization"
)

// Model is a binary-binary restricted Boltzmann machine.
type Model = rbm.Model

// Config holds the construction parameters of a Model.
type Config = rbm.Config

// Default hyperparameters.
const (
	DefaultLearningRate = rbm.DefaultLearningRate
	DefaultWeightDecay  = rbm.DefaultWeightDecay
	DefaultBatchSize    = rbm.DefaultBatchSize
	DefaultSteps        = rbm.DefaultSteps
)

// DefaultConfig returns a Config for a visible×hidden machine with default hyperparameters.
func DefaultConfig(visible, hidden int) Config {
	return rbm.DefaultConfig(visible, hidden)
}

// NewModel creates a Model with small Gaussian parameters drawn from rng.
func NewModel(cfg Config, rng *rand.Rand) (*Model, error) {
	return rbm.NewModel(cfg, rng)
}

// NewRand returns a seeded random source. A negative seed uses the clock.
func NewRand(seed int64) *rand.Rand {
	return rbm.NewRand(seed)
}

// Estimators

// Estimator computes a parameter gradient for a batch.
type Estimator = rbm.Estimator

// Gradient is the update direction produced by an Estimator.
type Gradient = rbm.Gradient

// MCMC estimates model statistics with a k-step Gibbs chain.
type MCMC = rbm.MCMC

// MeanField estimates model statistics with the naive mean-field fixed point.
type MeanField = rbm.MeanField

// TAP estimates model statistics with the second-order TAP fixed point.
type TAP = rbm.TAP

// OnsagerSeed selects the first-step convention of the TAP iteration.
type OnsagerSeed = rbm.OnsagerSeed

// Onsager seeds.
const (
	SeedNaiveMeanField = rbm.SeedNaiveMeanField
	SeedNeutral        = rbm.SeedNeutral
	DefaultOnsagerSeed = rbm.DefaultOnsagerSeed
)

// NewMCMC creates an MCMC estimator drawing from rng.
func NewMCMC(steps int, rng *rand.Rand) *MCMC {
	return rbm.NewMCMC(steps, rng)
}

// Update computes the gradient of est for batch and applies it to m.
var Update = rbm.Update

// Apply performs one gradient-ascent step on m.
var Apply = rbm.Apply

// Likelihood

// LikelihoodEstimator approximates the mean log-likelihood of a batch.
type LikelihoodEstimator = rbm.LikelihoodEstimator

// MeanFieldLikelihood approximates the log-likelihood with a mean-field or
// TAP free energy.
type MeanFieldLikelihood = rbm.MeanFieldLikelihood

// Errors

// Errors reported by the model and estimators.
var (
	ErrShapeMismatch = rbm.ErrShapeMismatch
	ErrNonFinite     = rbm.ErrNonFinite
	ErrInvalidConfig = rbm.ErrInvalidConfig
	ErrInvalidSteps  = rbm.ErrInvalidSteps
	ErrNilRand       = rbm.ErrNilRand
)

// ShapeError reports a batch whose dimensions do not match the model.
type ShapeError = rbm.ShapeError

// NonFiniteError reports the first NaN or Inf in a rejected update.
type NonFiniteError = rbm.NonFiniteError

// Persistence

// Header is the metadata stored in a .rbm file.
type Header = serialization.Header

// CheckpointMeta records where in training a model was saved.
type CheckpointMeta = serialization.CheckpointMeta

// Save writes m to w in .rbm format.
func Save(w io.Writer, m *Model, checkpoint *CheckpointMeta) error {
	return rbm.Save(w, m, checkpoint)
}

// SaveFile writes m to path atomically.
func SaveFile(path string, m *Model, checkpoint *CheckpointMeta) error {
	return rbm.SaveFile(path, m, checkpoint)
}

// Load reads a Model from r.
func Load(r io.Reader) (*Model, *Header, error) {
	return rbm.Load(r)
}

// LoadFile reads a Model from path.
func LoadFile(path string) (*Model, *Header, error) {
	return rbm.LoadFile(path)
}
