package nifti

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/mafortin/mprage-like/internal/models"
)

// Load reads a single-file NIfTI-1 volume. Gzip-compressed files are
// detected by content, not by extension. Voxel data is converted to float64
// with any scl_slope/scl_inter scaling applied.
func Load(path string) (*models.Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening volume: %w", err)
	}
	defer f.Close()

	r, err := decompressed(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	vol, err := decodeVolume(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return vol, nil
}

// LoadHeader reads just the header of a NIfTI-1 file.
func LoadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening volume: %w", err)
	}
	defer f.Close()

	r, err := decompressed(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	h, _, err := decodeHeader(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return h, nil
}

// decompressed sniffs the gzip magic and wraps the reader accordingly.
func decompressed(br *bufio.Reader) (io.Reader, error) {
	magic, err := br.Peek(2)
	if err != nil {
		return nil, fmt.Errorf("reading magic bytes: %w", err)
	}
	if magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		return gz, nil
	}
	return br, nil
}

// decodeHeader reads and validates the 348-byte header, retrying with the
// opposite byte order when dim[0] is implausible.
func decodeHeader(r io.Reader) (*Header, binary.ByteOrder, error) {
	raw := make([]byte, headerSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}

	var h Header
	var order binary.ByteOrder = binary.LittleEndian
	if err := binary.Read(bytes.NewReader(raw), order, &h); err != nil {
		return nil, nil, fmt.Errorf("decoding header: %w", err)
	}

	// dim[0] must land in [1, 7]; anything else means the file was written
	// with the opposite byte order.
	if h.Dim[0] < 1 || h.Dim[0] > 7 {
		order = binary.BigEndian
		h = Header{}
		if err := binary.Read(bytes.NewReader(raw), order, &h); err != nil {
			return nil, nil, fmt.Errorf("decoding header: %w", err)
		}
	}

	if err := validateHeader(&h); err != nil {
		return nil, nil, err
	}
	return &h, order, nil
}

func validateHeader(h *Header) error {
	if h.Dim[0] < 1 || h.Dim[0] > 7 {
		return fmt.Errorf("dim[0] = %d outside [1, 7]: not a NIfTI-1 file", h.Dim[0])
	}
	if h.SizeofHdr != headerSize {
		return fmt.Errorf("header size %d, want %d", h.SizeofHdr, headerSize)
	}
	if h.Magic == magicPair {
		return fmt.Errorf("detached header/image pairs (.hdr/.img) are not supported")
	}
	if h.Magic != magicSingle {
		return fmt.Errorf("bad magic %v: not a NIfTI-1 file", h.Magic)
	}
	return nil
}

// volumeDims returns the 3D grid size. Degenerate trailing axes of length
// one are tolerated so 4D files holding a single frame still load.
func volumeDims(h *Header) (nx, ny, nz int, err error) {
	ndim := int(h.Dim[0])
	axis := func(i int) int {
		if ndim < i || h.Dim[i] < 1 {
			return 1
		}
		return int(h.Dim[i])
	}
	nx, ny, nz = axis(1), axis(2), axis(3)

	for i := 4; i <= ndim; i++ {
		if h.Dim[i] > 1 {
			return 0, 0, 0, fmt.Errorf("%d points along axis %d: only 3D volumes are supported", h.Dim[i], i)
		}
	}
	return nx, ny, nz, nil
}

func decodeVolume(r io.Reader) (*models.Volume, error) {
	h, order, err := decodeHeader(r)
	if err != nil {
		return nil, err
	}

	nx, ny, nz, err := volumeDims(h)
	if err != nil {
		return nil, err
	}

	// Voxel data starts at vox_offset. The gap past the header is discarded
	// rather than seeked over so gzip streams behave like plain files.
	offset := int64(h.VoxOffset)
	if offset < defaultVoxOffset {
		offset = defaultVoxOffset
	}
	if _, err := io.CopyN(io.Discard, r, offset-headerSize); err != nil {
		return nil, fmt.Errorf("skipping to voxel data: %w", err)
	}

	data, err := readVoxels(r, order, h.Datatype, nx*ny*nz)
	if err != nil {
		return nil, err
	}

	// Slope zero (or NaN, which nibabel writes for "unset") means unscaled.
	slope, inter := float64(h.SclSlope), float64(h.SclInter)
	if slope == 0 || math.IsNaN(slope) {
		slope, inter = 1, 0
	}
	if math.IsNaN(inter) {
		inter = 0
	}
	if slope != 1 || inter != 0 {
		for i := range data {
			data[i] = slope*data[i] + inter
		}
	}

	return &models.Volume{
		Data:   data,
		Nx:     nx,
		Ny:     ny,
		Nz:     nz,
		Affine: h.Affine(),
	}, nil
}

// readVoxels decodes n voxels of the given on-disk datatype into float64.
func readVoxels(r io.Reader, order binary.ByteOrder, datatype int16, n int) ([]float64, error) {
	out := make([]float64, n)

	read := func(v interface{}) error {
		if err := binary.Read(r, order, v); err != nil {
			return fmt.Errorf("reading voxel data: %w", err)
		}
		return nil
	}

	switch datatype {
	case DTUInt8:
		buf := make([]uint8, n)
		if err := read(buf); err != nil {
			return nil, err
		}
		for i, v := range buf {
			out[i] = float64(v)
		}
	case DTInt16:
		buf := make([]int16, n)
		if err := read(buf); err != nil {
			return nil, err
		}
		for i, v := range buf {
			out[i] = float64(v)
		}
	case DTInt32:
		buf := make([]int32, n)
		if err := read(buf); err != nil {
			return nil, err
		}
		for i, v := range buf {
			out[i] = float64(v)
		}
	case DTFloat32:
		buf := make([]float32, n)
		if err := read(buf); err != nil {
			return nil, err
		}
		for i, v := range buf {
			out[i] = float64(v)
		}
	case DTFloat64:
		if err := read(out); err != nil {
			return nil, err
		}
	case DTUInt16:
		buf := make([]uint16, n)
		if err := read(buf); err != nil {
			return nil, err
		}
		for i, v := range buf {
			out[i] = float64(v)
		}
	default:
		return nil, fmt.Errorf("unsupported datatype code %d", datatype)
	}
	return out, nil
}
