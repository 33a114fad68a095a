package rbm_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/rbm/rbm"
)

// TestPublicAPI trains, saves and reloads through the facade.
func TestPublicAPI(t *testing.T) {
	cfg := rbm.DefaultConfig(4, 2)
	cfg.LearningRate = 0.05
	m, err := rbm.NewModel(cfg, rbm.NewRand(1))
	require.NoError(t, err)

	batch := mat.NewDense(2, 4, []float64{1, 0, 1, 0, 0, 1, 0, 1})
	for _, est := range []rbm.Estimator{rbm.NewMCMC(1, rbm.NewRand(2)), &rbm.MeanField{}, &rbm.TAP{Seed: rbm.SeedNeutral}} {
		_, err := rbm.Update(m, est, batch)
		require.NoError(t, err, est.Name())
	}

	ll, err := rbm.MeanFieldLikelihood{}.Estimate(m, batch)
	require.NoError(t, err)
	assert.Less(t, ll, 0.0)

	var buf bytes.Buffer
	require.NoError(t, rbm.Save(&buf, m, &rbm.CheckpointMeta{Method: "tap", Epoch: 1}))
	loaded, header, err := rbm.Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, 1, header.Checkpoint.Epoch)
	assert.True(t, mat.Equal(m.Weights(), loaded.Weights()))

	_, err = rbm.Update(m, &rbm.MeanField{}, mat.NewDense(1, 3, nil))
	assert.ErrorIs(t, err, rbm.ErrShapeMismatch)
}
