package dataset

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// TestLoadCSV covers header, label column and row limits.
func TestLoadCSV(t *testing.T) {
	input := "label,a,b,c\n7, 1,0,1\n3,0,1,1\n9,1,1,0\n"

	x, err := LoadCSV(strings.NewReader(input), CSVOptions{SkipHeader: true, SkipColumns: 1})
	require.NoError(t, err)
	want := mat.NewDense(3, 3, []float64{1, 0, 1, 0, 1, 1, 1, 1, 0})
	assert.True(t, mat.Equal(want, x))

	x, err = LoadCSV(strings.NewReader(input), CSVOptions{SkipHeader: true, SkipColumns: 1, MaxRows: 2})
	require.NoError(t, err)
	r, _ := x.Dims()
	assert.Equal(t, 2, r)
}

// TestLoadCSV_Errors checks malformed input.
func TestLoadCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  CSVOptions
	}{
		{"empty", "", CSVOptions{}},
		{"header only", "a,b\n", CSVOptions{SkipHeader: true}},
		{"not a number", "1,x\n", CSVOptions{}},
		{"no columns left", "1,0\n", CSVOptions{SkipColumns: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCSV(strings.NewReader(tt.input), tt.opts)
			assert.Error(t, err)
		})
	}
}

// TestLoadCSVFile reads from disk.
func TestLoadCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("0,1\n1,0\n"), 0o600))

	x, err := LoadCSVFile(path, CSVOptions{})
	require.NoError(t, err)
	assert.True(t, mat.Equal(mat.NewDense(2, 2, []float64{0, 1, 1, 0}), x))

	_, err = LoadCSVFile(filepath.Join(t.TempDir(), "missing.csv"), CSVOptions{})
	assert.Error(t, err)
}

// TestBinarize checks the strict threshold.
func TestBinarize(t *testing.T) {
	x := mat.NewDense(1, 4, []float64{0.2, 0.5, 0.51, 1})
	b := Binarize(x, 0.5)
	assert.Equal(t, []float64{0, 0, 1, 1}, b.RawRowView(0))
	assert.NoError(t, ValidateBinary(b))
	assert.ErrorIs(t, ValidateBinary(x), ErrNotBinary)
}

// TestBatches checks contiguity and that the partial tail is dropped.
func TestBatches(t *testing.T) {
	x := mat.NewDense(7, 2, nil)
	for i := 0; i < 7; i++ {
		x.SetRow(i, []float64{float64(i), float64(i)})
	}

	batches, err := Batches(x, 3)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	for k, b := range batches {
		r, c := b.Dims()
		assert.Equal(t, 3, r)
		assert.Equal(t, 2, c)
		for i := 0; i < r; i++ {
			assert.Equal(t, float64(3*k+i), b.At(i, 0))
		}
	}

	batches, err = Batches(x, 8)
	require.NoError(t, err)
	assert.Empty(t, batches)

	_, err = Batches(x, 0)
	assert.Error(t, err)
}

// TestRepeat builds a synthetic dataset.
func TestRepeat(t *testing.T) {
	x := Repeat([]float64{1, 0, 1}, 4)
	r, c := x.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, []float64{1, 0, 1}, x.RawRowView(3))
}

func idxBytes(t *testing.T, magic uint32, images [][]byte, rows, cols uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, v := range []uint32{magic, uint32(len(images)), rows, cols} {
		require.NoError(t, binary.Write(&buf, binary.BigEndian, v))
	}
	for _, img := range images {
		buf.Write(img)
	}
	return buf.Bytes()
}

// TestLoadIDXImages decodes and scales a tiny image file.
func TestLoadIDXImages(t *testing.T) {
	data := idxBytes(t, idxImageMagic, [][]byte{{0, 255, 51, 0}, {255, 255, 0, 0}, {0, 0, 0, 255}}, 2, 2)

	x, err := LoadIDXImages(bytes.NewReader(data), 0)
	require.NoError(t, err)
	r, c := x.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 4, c)
	assert.InDelta(t, 0.2, x.At(0, 2), 1e-12)
	assert.Equal(t, 1.0, x.At(1, 1))

	x, err = LoadIDXImages(bytes.NewReader(data), 2)
	require.NoError(t, err)
	r, _ = x.Dims()
	assert.Equal(t, 2, r)

	path := filepath.Join(t.TempDir(), "images-idx3-ubyte")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	x, err = LoadIDXImagesFile(path, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 0.2, 0}, x.RawRowView(0))
}

// TestLoadIDXImages_Errors checks magic and truncation handling.
func TestLoadIDXImages_Errors(t *testing.T) {
	_, err := LoadIDXImages(bytes.NewReader(idxBytes(t, 2049, [][]byte{{1}}, 1, 1)), 0)
	assert.Error(t, err)

	truncated := idxBytes(t, idxImageMagic, [][]byte{{1, 2}}, 2, 2)
	_, err = LoadIDXImages(bytes.NewReader(truncated), 0)
	assert.Error(t, err)

	_, err = LoadIDXImages(bytes.NewReader([]byte{0, 0}), 0)
	assert.Error(t, err)
}
