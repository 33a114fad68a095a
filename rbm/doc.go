// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package rbm provides binary restricted Boltzmann machines trained with
// Gibbs sampling, naive mean-field or TAP gradient estimates.
//
// # Basic Usage
//
//	import "github.com/born-ml/rbm/rbm"
//
//	func main() {
//	    m, err := rbm.NewModel(rbm.DefaultConfig(784, 500), rbm.NewRand(1))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    est := &rbm.TAP{Steps: rbm.DefaultSteps}
//
//	    for epoch := range 10 {
//	        for _, batch := range batches {
//	            if _, err := rbm.Update(m, est, batch); err != nil {
//	                log.Fatal(err)
//	            }
//	        }
//	        ll, _ := rbm.MeanFieldLikelihood{TAP: true}.Estimate(m, batches[0])
//	        fmt.Printf("epoch %d: ll=%.4f\n", epoch, ll)
//	    }
//
//	    if err := rbm.SaveFile("model.rbm", m, nil); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Estimators
//
// MCMC runs a k-step Gibbs chain from the data (contrastive divergence):
//
//	est := rbm.NewMCMC(3, rbm.NewRand(42))
//
// MeanField iterates the naive mean-field equations:
//
//	est := &rbm.MeanField{Steps: 3}
//
// TAP adds the second-order Onsager correction and applies weight decay:
//
//	est := &rbm.TAP{Steps: 3, Seed: rbm.SeedNaiveMeanField}
//
// # Errors
//
// Input shape problems match ErrShapeMismatch. An update that would produce
// NaN or Inf leaves the model unchanged and matches ErrNonFinite.
package rbm
