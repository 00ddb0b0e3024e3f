// Package visualization renders grayscale preview slices of synthesized
// volumes so results can be eyeballed without a NIfTI viewer.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/mafortin/mprage-like/internal/models"
)

// windowQuantile is the intensity percentile mapped to full white. Using a
// near-max percentile keeps a few residual bright voxels from flattening
// the rest of the preview.
const windowQuantile = 0.99

// Viewer extracts and saves 2D preview slices from a volume.
type Viewer struct {
	// vol is the volume being previewed
	vol *models.Volume

	// window is the intensity mapped to full white; values at or above it
	// saturate
	window float64
}

// NewViewer creates a viewer for the volume, windowing intensities at the
// 99th percentile. The volume is expected to be cleaned already (no NaN
// voxels).
func NewViewer(vol *models.Volume) *Viewer {
	return &Viewer{
		vol:    vol,
		window: windowLevel(vol.Data),
	}
}

// windowLevel picks the white point: the high-percentile intensity, falling
// back to the maximum for mostly-zero volumes, and to 1 when there is no
// positive signal at all.
func windowLevel(data []float64) float64 {
	if len(data) == 0 {
		return 1
	}

	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)

	level := stat.Quantile(windowQuantile, stat.Empirical, sorted, nil)
	if level <= 0 {
		level = sorted[len(sorted)-1]
	}
	if level <= 0 {
		level = 1
	}
	return level
}

// ExtractSlice extracts a 2D slice from the volume along the specified axis.
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	var img *image.Gray16

	switch axis {
	case "x", "X":
		// Slice along the YZ plane
		if position >= v.vol.Nx {
			return nil, fmt.Errorf("position %d exceeds width %d", position, v.vol.Nx)
		}
		img = image.NewGray16(image.Rect(0, 0, v.vol.Ny, v.vol.Nz))
		for k := 0; k < v.vol.Nz; k++ {
			for j := 0; j < v.vol.Ny; j++ {
				img.SetGray16(j, k, v.gray(position, j, k))
			}
		}

	case "y", "Y":
		// Slice along the XZ plane
		if position >= v.vol.Ny {
			return nil, fmt.Errorf("position %d exceeds height %d", position, v.vol.Ny)
		}
		img = image.NewGray16(image.Rect(0, 0, v.vol.Nx, v.vol.Nz))
		for k := 0; k < v.vol.Nz; k++ {
			for i := 0; i < v.vol.Nx; i++ {
				img.SetGray16(i, k, v.gray(i, position, k))
			}
		}

	case "z", "Z":
		// Slice along the XY plane
		if position >= v.vol.Nz {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, v.vol.Nz)
		}
		img = image.NewGray16(image.Rect(0, 0, v.vol.Nx, v.vol.Ny))
		for j := 0; j < v.vol.Ny; j++ {
			for i := 0; i < v.vol.Nx; i++ {
				img.SetGray16(i, j, v.gray(i, j, position))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// gray maps a voxel intensity into the 16-bit display range.
func (v *Viewer) gray(i, j, k int) color.Gray16 {
	value := v.vol.At(i, j, k) / v.window * 65535
	return color.Gray16{Y: uint16(math.Max(0, math.Min(65535, value)))}
}

// SaveSlice saves an extracted slice as a PNG image.
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return png.Encode(file, img)
}

// SaveMidSlices writes the three orthogonal mid-volume slices, named
// <base>_x.png, <base>_y.png and <base>_z.png inside outputDir, creating
// the directory if needed. Returns the written paths.
func (v *Viewer) SaveMidSlices(outputDir, base string) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, err
	}

	positions := map[string]int{
		"x": v.vol.Nx / 2,
		"y": v.vol.Ny / 2,
		"z": v.vol.Nz / 2,
	}

	var written []string
	for _, axis := range []string{"x", "y", "z"} {
		img, err := v.ExtractSlice(axis, positions[axis])
		if err != nil {
			return written, err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("%s_%s.png", base, axis))
		if err := v.SaveSlice(img, filename); err != nil {
			return written, err
		}
		written = append(written, filename)
	}
	return written, nil
}
