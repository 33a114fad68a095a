package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
)

// Read decodes a .rbm stream. The header, every tensor region and the data
// checksum are validated before any tensor is returned.
func Read(r io.Reader) (*Header, map[string]Tensor, error) {
	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, nil, fmt.Errorf("failed to read fixed header: %w", err)
	}
	if string(fixed[0:4]) != MagicBytes {
		return nil, nil, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint32(fixed[4:8]); v != FormatVersion {
		return nil, nil, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, v, FormatVersion)
	}
	flags := binary.LittleEndian.Uint32(fixed[8:12])
	headerSize := binary.LittleEndian.Uint64(fixed[16:24])
	dataSize := binary.LittleEndian.Uint64(fixed[24:32])
	var checksum [ChecksumSize]byte
	copy(checksum[:], fixed[ChecksumOffset:ChecksumOffset+ChecksumSize])

	if headerSize > MaxHeaderSize {
		return nil, nil, ErrHeaderTooLarge
	}
	if dataSize > math.MaxInt32*float64Size {
		return nil, nil, &ValidationError{Type: "out_of_bounds", Details: fmt.Sprintf("data size %d", dataSize)}
	}

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}
	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}
	if want := headerFlags(&header); flags != want {
		return nil, nil, &ValidationError{
			Type:    "flags_mismatch",
			Details: fmt.Sprintf("flags %#x, header implies %#x", flags, want),
		}
	}

	pos := int64(FixedHeaderSize) + int64(headerSize)
	if _, err := io.CopyN(io.Discard, r, alignedOffset(pos)-pos); err != nil {
		return nil, nil, fmt.Errorf("failed to skip padding: %w", err)
	}

	//nolint:gosec // G115: bounded above
	if err := ValidateHeader(&header, int64(dataSize)); err != nil {
		return nil, nil, fmt.Errorf("validation failed: %w", err)
	}

	data := make([]byte, dataSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, nil, fmt.Errorf("failed to read tensor data: %w", err)
	}
	if err := ValidateChecksum(data, checksum); err != nil {
		return nil, nil, err
	}

	state := make(map[string]Tensor, len(header.Tensors))
	for _, meta := range header.Tensors {
		raw := data[meta.Offset : meta.Offset+meta.Size]
		values := make([]float64, meta.Size/float64Size)
		for i := range values {
			values[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*float64Size:]))
		}
		state[meta.Name] = Tensor{Shape: append([]int(nil), meta.Shape...), Data: values}
	}
	return &header, state, nil
}

// ReadFile reads a .rbm file from path.
func ReadFile(path string) (*Header, map[string]Tensor, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return Read(bufio.NewReader(f))
}

// Require returns the named tensor or an error matching ErrMissingTensor.
func Require(state map[string]Tensor, name string) (Tensor, error) {
	t, ok := state[name]
	if !ok {
		return Tensor{}, fmt.Errorf("%w: %s", ErrMissingTensor, name)
	}
	return t, nil
}
