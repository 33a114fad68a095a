package trainer

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/rbm/internal/rbm"
)

// Estimator names.
const (
	MethodMCMC      = "mcmc"
	MethodMeanField = "meanfield"
	MethodTAP       = "tap"
)

// NewEstimator builds the gradient estimator called method.
// rng is only used by MCMC.
func NewEstimator(method string, steps int, seed rbm.OnsagerSeed, rng *rand.Rand) (rbm.Estimator, error) {
	switch method {
	case MethodMCMC:
		return rbm.NewMCMC(steps, rng), nil
	case MethodMeanField:
		return &rbm.MeanField{Steps: steps}, nil
	case MethodTAP:
		return &rbm.TAP{Steps: steps, Seed: seed}, nil
	default:
		return nil, fmt.Errorf("trainer: unknown method %q", method)
	}
}

// NewLikelihood returns the monitoring estimator paired with method: the
// TAP free energy for TAP training and the naive mean-field one otherwise.
func NewLikelihood(method string, steps int) rbm.LikelihoodEstimator {
	return rbm.MeanFieldLikelihood{Steps: steps, TAP: method == MethodTAP}
}
