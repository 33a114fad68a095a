package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Write encodes state and header in .rbm format to w.
//
// Tensors are laid out in name order, so equal inputs produce equal bytes
// apart from CreatedAt. Header.Tensors and Header.FormatVersion are filled in
// by Write; a zero CreatedAt is set to the current time.
func Write(w io.Writer, state map[string]Tensor, header Header) error {
	names := make([]string, 0, len(state))
	for name := range state {
		names = append(names, name)
	}
	sort.Strings(names)

	header.FormatVersion = FormatVersion
	if header.CreatedAt.IsZero() {
		header.CreatedAt = time.Now().UTC()
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	var data bytes.Buffer
	header.Tensors = make([]TensorMeta, 0, len(names))
	for _, name := range names {
		t := state[name]
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		if err := t.Validate(); err != nil {
			return fmt.Errorf("tensor %s: %w", name, err)
		}
		meta := TensorMeta{
			Name:   name,
			DType:  DTypeFloat64,
			Shape:  append([]int(nil), t.Shape...),
			Offset: int64(data.Len()),
			Size:   int64(len(t.Data)) * float64Size,
		}
		var buf [float64Size]byte
		for _, x := range t.Data {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(x))
			data.Write(buf[:])
		}
		header.Tensors = append(header.Tensors, meta)
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	if len(headerJSON) > MaxHeaderSize {
		return ErrHeaderTooLarge
	}

	fixed := make([]byte, FixedHeaderSize)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(fixed[8:12], headerFlags(&header))
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(data.Len()))
	checksum := ComputeChecksum(data.Bytes())
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	if _, err := w.Write(fixed); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	pos := int64(FixedHeaderSize + len(headerJSON))
	if padding := alignedOffset(pos) - pos; padding > 0 {
		if _, err := w.Write(make([]byte, padding)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}
	if _, err := w.Write(data.Bytes()); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}
	return nil
}

// WriteFile writes a .rbm file atomically: data goes to a temporary file in
// the same directory which is then renamed over path.
func WriteFile(path string, state map[string]Tensor, header Header) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".rbm-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // Already renamed on success

	if err := Write(tmp, state, header); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

// headerFlags returns the flags word that describes h.
func headerFlags(h *Header) uint32 {
	flags := uint32(0)
	if len(h.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	if h.Checkpoint != nil {
		flags |= FlagHasCheckpoint
	}
	return flags
}
