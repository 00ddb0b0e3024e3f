package nifti

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/mafortin/mprage-like/internal/models"
)

// unitsMM is the NIFTI_UNITS_MM code for the xyzt_units field.
const unitsMM int8 = 2

// Save writes the volume as a single-file float32 NIfTI-1 image. A path
// ending in .gz is gzip-compressed. The volume's affine is stored in the
// sform with the aligned-anatomy code, the way derived images are
// conventionally marked.
func Save(path string, vol *models.Volume) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	var w io.Writer = f
	var gz *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gz = gzip.NewWriter(f)
		w = gz
	}

	bw := bufio.NewWriter(w)
	if err := encodeVolume(bw, vol); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return nil
}

func encodeVolume(w io.Writer, vol *models.Volume) error {
	h := buildHeader(vol)
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	// Four zero bytes after the header: no extensions follow.
	if _, err := w.Write(make([]byte, defaultVoxOffset-headerSize)); err != nil {
		return fmt.Errorf("writing extension flag: %w", err)
	}

	buf := make([]float32, len(vol.Data))
	for i, v := range vol.Data {
		buf[i] = float32(v)
	}
	if err := binary.Write(w, binary.LittleEndian, buf); err != nil {
		return fmt.Errorf("writing voxel data: %w", err)
	}
	return nil
}

// buildHeader fills a float32 single-file header for the volume. pixdim is
// recovered from the affine column norms so viewers that ignore the sform
// still report sensible voxel sizes.
func buildHeader(vol *models.Volume) *Header {
	h := &Header{
		SizeofHdr: headerSize,
		Datatype:  DTFloat32,
		Bitpix:    32,
		VoxOffset: defaultVoxOffset,
		SclSlope:  1,
		XyztUnits: unitsMM,
		SformCode: XFormAligned,
		Magic:     magicSingle,
	}

	h.Dim[0] = 3
	h.Dim[1] = int16(vol.Nx)
	h.Dim[2] = int16(vol.Ny)
	h.Dim[3] = int16(vol.Nz)
	for i := 4; i < 8; i++ {
		h.Dim[i] = 1
	}

	h.Pixdim[0] = 1
	for j := 0; j < 3; j++ {
		col := []float64{vol.Affine[0][j], vol.Affine[1][j], vol.Affine[2][j]}
		h.Pixdim[j+1] = float32(floats.Norm(col, 2))
	}
	for i := 4; i < 8; i++ {
		h.Pixdim[i] = 1
	}

	for i := 0; i < 4; i++ {
		h.SrowX[i] = float32(vol.Affine[0][i])
		h.SrowY[i] = float32(vol.Affine[1][i])
		h.SrowZ[i] = float32(vol.Affine[2][i])
	}
	return h
}
