// Package rbm implements a binary restricted Boltzmann machine and three
// ways of estimating its log-likelihood gradient.
//
// The model side of every gradient comes from one of three solvers:
//
//   - RunChain: a k-step Gibbs chain (contrastive divergence), stochastic.
//   - RunMeanField: naive mean-field fixed-point iteration, deterministic.
//   - RunTAP: mean-field iteration with the second-order Onsager reaction
//     term, deterministic.
//
// The MCMC, MeanField and TAP estimators wrap these solvers. Update applies
// one estimator step to a Model. The step is computed in full before any
// parameter is written, so a diverging update leaves the Model untouched and
// reports ErrNonFinite.
//
// Batches are gonum matrices with one sample per row. All randomness comes
// from an explicit *rand.Rand, so a fixed seed reproduces every sample.
//
// Example:
//
//	rng := rbm.NewRand(1)
//	m, err := rbm.NewModel(rbm.DefaultConfig(784, 500), rng)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	est := &rbm.TAP{Steps: 3}
//	for _, batch := range batches {
//	    if _, err := rbm.Update(m, est, batch); err != nil {
//	        log.Fatal(err)
//	    }
//	}
package rbm
