package serialization

import (
	"fmt"
	"time"
)

// Format constants.
const (
	MagicBytes      = "RBMF"
	FormatVersion   = 1
	HeaderAlignment = 64   // Tensor data starts on a 64-byte boundary
	FixedHeaderSize = 64   // Size of the fixed binary prefix
	ChecksumSize    = 32   // SHA-256 checksum size
	ChecksumOffset  = 0x20 // Checksum offset in the fixed header
	DTypeFloat64    = "float64"
	float64Size     = 8
)

// Flags for the .rbm format.
const (
	FlagHasMetadata   uint32 = 1 << 0 // custom metadata included
	FlagHasCheckpoint uint32 = 1 << 1 // training state included
)

// Header represents the JSON header in a .rbm file.
type Header struct {
	FormatVersion int               `json:"format_version"`
	ModelType     string            `json:"model_type"`
	CreatedAt     time.Time         `json:"created_at"`
	Tensors       []TensorMeta      `json:"tensors"`
	Metadata      map[string]string `json:"metadata"`
	Checkpoint    *CheckpointMeta   `json:"checkpoint,omitempty"`
}

// CheckpointMeta records where in training a file was written.
type CheckpointMeta struct {
	RunID         string  `json:"run_id"`
	Method        string  `json:"method"`
	Epoch         int     `json:"epoch"`
	Step          int64   `json:"step"`
	LogLikelihood float64 `json:"log_likelihood"`
}

// TensorMeta describes a tensor in the .rbm file.
type TensorMeta struct {
	Name   string `json:"name"`   // Tensor name (e.g., "weights")
	DType  string `json:"dtype"`  // Always "float64"
	Shape  []int  `json:"shape"`  // Tensor shape
	Offset int64  `json:"offset"` // Bytes from the start of the data section
	Size   int64  `json:"size"`   // Size in bytes
}

// Tensor is a dense float64 array in row-major order.
type Tensor struct {
	Shape []int
	Data  []float64
}

// NumElements returns the product of the shape.
func (t Tensor) NumElements() int {
	return numElements(t.Shape)
}

// Validate checks that the data length matches the shape.
func (t Tensor) Validate() error {
	if n := t.NumElements(); n != len(t.Data) {
		return fmt.Errorf("shape %v needs %d elements, got %d", t.Shape, n, len(t.Data))
	}
	return nil
}

func numElements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func alignedOffset(pos int64) int64 {
	return pos + (HeaderAlignment-(pos%HeaderAlignment))%HeaderAlignment
}
