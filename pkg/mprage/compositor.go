// Package mprage synthesizes MPRAGE-like contrast volumes from co-registered
// T1w, PDw and MTw inputs via a regularized ratio formula.
package mprage

import (
	"fmt"
	"math"

	"github.com/mafortin/mprage-like/internal/models"
)

// cleanupCeiling is the ad hoc upper bound on plausible ratio values. The
// synthesized image is a ratio, so anything above this comes from a
// near-zero denominator rather than anatomy; observed tissue values stay
// well below it.
const cleanupCeiling = 500.0

// MissingInputError reports a contrast required by the mode with no volume
// supplied.
type MissingInputError struct {
	Kind models.ContrastKind
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("no %s volume loaded", e.Kind)
}

// ShapeError reports an input volume whose grid differs from the T1w grid.
type ShapeError struct {
	Kind                   models.ContrastKind
	GotNx, GotNy, GotNz    int
	WantNx, WantNy, WantNz int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s volume is %dx%dx%d, want %dx%dx%d to match the T1w grid",
		e.Kind, e.GotNx, e.GotNy, e.GotNz, e.WantNx, e.WantNy, e.WantNz)
}

// Composite applies the regularized ratio formula voxel-wise and cleans the
// result. The formula by mode, with reg the regularization value:
//
//	all: (T1 - reg) / (0.5*(PD + MT) + reg)
//	MT:  (T1 - reg) / (MT + reg)
//	PD:  (T1 - reg) / (PD + reg)
//
// Volumes not required by the mode may be nil. The returned volume is
// freshly allocated, never aliases an input, and carries the T1w affine.
// Division by zero is not pre-checked; the NaN/Inf voxels it produces are
// reset to zero by the cleanup rules.
func Composite(t1, pd, mt *models.Volume, reg int, mode models.ContrastMode) (*models.Volume, error) {
	kinds := mode.RequiredKinds()
	if len(kinds) == 0 {
		return nil, fmt.Errorf("unknown contrast mode %d", int(mode))
	}

	inputs := map[models.ContrastKind]*models.Volume{
		models.KindT1: t1,
		models.KindPD: pd,
		models.KindMT: mt,
	}
	for _, kind := range kinds {
		v := inputs[kind]
		if v == nil {
			return nil, &MissingInputError{Kind: kind}
		}
		if kind != models.KindT1 && !t1.SameShape(v) {
			return nil, &ShapeError{
				Kind:  kind,
				GotNx: v.Nx, GotNy: v.Ny, GotNz: v.Nz,
				WantNx: t1.Nx, WantNy: t1.Ny, WantNz: t1.Nz,
			}
		}
	}

	out := &models.Volume{
		Data:   make([]float64, t1.Len()),
		Nx:     t1.Nx,
		Ny:     t1.Ny,
		Nz:     t1.Nz,
		Affine: t1.Affine,
	}

	r := float64(reg)
	switch mode {
	case models.ModeAll:
		for i, v := range t1.Data {
			out.Data[i] = (v - r) / (0.5*(pd.Data[i]+mt.Data[i]) + r)
		}
	case models.ModeMT:
		for i, v := range t1.Data {
			out.Data[i] = (v - r) / (mt.Data[i] + r)
		}
	case models.ModePD:
		for i, v := range t1.Data {
			out.Data[i] = (v - r) / (pd.Data[i] + r)
		}
	default:
		return nil, fmt.Errorf("unknown contrast mode %d", int(mode))
	}

	cleanup(out.Data)
	return out, nil
}

// cleanup resets numerically degenerate voxels to zero, in rule order: NaN,
// positive infinity, values above the ceiling, then negative values (which
// also catches negative infinity). Returns the number of voxels reset.
func cleanup(data []float64) int {
	zeroed := 0
	for i, v := range data {
		switch {
		case math.IsNaN(v):
		case math.IsInf(v, 1):
		case v > cleanupCeiling:
		case v < 0:
		default:
			continue
		}
		data[i] = 0
		zeroed++
	}
	return zeroed
}
