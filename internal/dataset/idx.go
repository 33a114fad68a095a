package dataset

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/mat"
)

// idxImageMagic marks an IDX file of unsigned-byte images.
const idxImageMagic = 2051

// LoadIDXImages reads an IDX image file (the MNIST binary format) into a
// rows×(height·width) matrix with pixels scaled to [0, 1].
//
// Layout, all integers big-endian:
//
//	magic number: 0x00000803 (2051)
//	number of images: 4 bytes
//	number of rows: 4 bytes
//	number of cols: 4 bytes
//	pixel data: unsigned bytes (0-255)
func LoadIDXImages(r io.Reader, maxRows int) (*mat.Dense, error) {
	var hdr struct {
		Magic, Images, Rows, Cols uint32
	}
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return nil, fmt.Errorf("failed to read IDX header: %w", err)
	}
	if hdr.Magic != idxImageMagic {
		return nil, fmt.Errorf("invalid magic number: got %d, want %d", hdr.Magic, idxImageMagic)
	}

	n := int(hdr.Images)
	if maxRows > 0 && n > maxRows {
		n = maxRows
	}
	size := int(hdr.Rows * hdr.Cols)
	if n == 0 || size == 0 {
		return nil, fmt.Errorf("empty IDX file: %d images of %dx%d", hdr.Images, hdr.Rows, hdr.Cols)
	}

	out := mat.NewDense(n, size, nil)
	pixels := make([]byte, size)
	for i := 0; i < n; i++ {
		if _, err := io.ReadFull(r, pixels); err != nil {
			return nil, fmt.Errorf("failed to read image %d: %w", i, err)
		}
		row := out.RawRowView(i)
		for j, p := range pixels {
			row[j] = float64(p) / 255.0
		}
	}
	return out, nil
}

// LoadIDXImagesFile opens path and calls LoadIDXImages.
func LoadIDXImagesFile(path string, maxRows int) (*mat.Dense, error) {
	//nolint:gosec // G304: Path comes from user input
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return LoadIDXImages(bufio.NewReader(f), maxRows)
}
