package serialization

import (
	"fmt"
	"sort"
	"strings"
)

// Validation limits.
const (
	MaxHeaderSize    = 16 * 1024 * 1024
	MaxTensorCount   = 1024
	MaxTensorNameLen = 256
)

// ValidateTensorOffsets checks every tensor region against the data section
// and against its neighbours.
func ValidateTensorOffsets(tensors []TensorMeta, dataSize int64) error {
	if len(tensors) > MaxTensorCount {
		return &ValidationError{
			Type:    "too_many_tensors",
			Details: fmt.Sprintf("got %d, max %d", len(tensors), MaxTensorCount),
		}
	}

	sorted := make([]TensorMeta, len(tensors))
	copy(sorted, tensors)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Offset < sorted[j].Offset
	})

	for i, t := range sorted {
		if t.Offset < 0 || t.Size < 0 {
			return &ValidationError{
				Type:    "negative_offset",
				Tensor:  t.Name,
				Details: fmt.Sprintf("offset=%d, size=%d", t.Offset, t.Size),
			}
		}
		if t.Offset+t.Size > dataSize {
			return &ValidationError{
				Type:    "out_of_bounds",
				Tensor:  t.Name,
				Details: fmt.Sprintf("offset %d + size %d > data_size %d", t.Offset, t.Size, dataSize),
			}
		}
		if i < len(sorted)-1 {
			next := sorted[i+1]
			if t.Offset+t.Size > next.Offset {
				return &ValidationError{
					Type:    "offset_overlap",
					Tensor:  t.Name,
					Tensor2: next.Name,
					Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap",
						t.Offset, t.Offset+t.Size, next.Offset, next.Offset+next.Size),
				}
			}
		}
	}
	return nil
}

// ValidateTensorMeta checks the dtype, shape and byte size of one tensor.
func ValidateTensorMeta(t TensorMeta) error {
	if t.DType != DTypeFloat64 {
		return &ValidationError{Type: "invalid_dtype", Tensor: t.Name, Details: fmt.Sprintf("got %q, want %q", t.DType, DTypeFloat64)}
	}
	if len(t.Shape) == 0 {
		return &ValidationError{Type: "invalid_shape", Tensor: t.Name, Details: "empty shape"}
	}
	for _, d := range t.Shape {
		if d <= 0 {
			return &ValidationError{Type: "invalid_shape", Tensor: t.Name, Details: fmt.Sprintf("non-positive dimension in %v", t.Shape)}
		}
	}
	if want := int64(numElements(t.Shape)) * float64Size; t.Size != want {
		return &ValidationError{Type: "invalid_size", Tensor: t.Name, Details: fmt.Sprintf("shape %v needs %d bytes, header says %d", t.Shape, want, t.Size)}
	}
	return nil
}

// ValidateTensorName rejects empty, oversized and path-like names.
func ValidateTensorName(name string) error {
	if name == "" {
		return &ValidationError{Type: "invalid_name", Details: "empty tensor name"}
	}
	if len(name) > MaxTensorNameLen {
		return &ValidationError{
			Type:    "name_too_long",
			Tensor:  name,
			Details: fmt.Sprintf("length %d > max %d", len(name), MaxTensorNameLen),
		}
	}
	if strings.ContainsAny(name, "/\\\x00") || strings.Contains(name, "..") {
		return &ValidationError{
			Type:    "invalid_name",
			Tensor:  name,
			Details: "contains a path separator, '..' or a null byte",
		}
	}
	return nil
}

// ValidateHeader performs every header check.
func ValidateHeader(h *Header, dataSize int64) error {
	if h.FormatVersion != FormatVersion {
		return fmt.Errorf("%w: header says %d", ErrUnsupportedVersion, h.FormatVersion)
	}
	seen := make(map[string]bool, len(h.Tensors))
	for _, t := range h.Tensors {
		if err := ValidateTensorName(t.Name); err != nil {
			return err
		}
		if seen[t.Name] {
			return &ValidationError{Type: "duplicate_name", Tensor: t.Name, Details: "tensor listed twice"}
		}
		seen[t.Name] = true
		if err := ValidateTensorMeta(t); err != nil {
			return err
		}
	}
	return ValidateTensorOffsets(h.Tensors, dataSize)
}
