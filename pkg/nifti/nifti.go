// Package nifti reads and writes single-file NIfTI-1 volumes (.nii and
// .nii.gz).
//
// Field layout follows the official definition of the nifti1 header,
// https://nifti.nimh.nih.gov/pub/dist/src/niftilib/nifti1.h
package nifti

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Header defines the structure of the NIfTI-1 header.
type Header struct {
	SizeofHdr          int32      // Must be 348
	UnusedDataType     [10]int8   // Unused
	UnusedDbName       [18]int8   // Unused
	UnusedExtents      int32      // Unused
	UnusedSessionError int16      // Unused
	UnusedRegular      int8       // Unused
	DimInfo            int8       // MRI slice ordering
	Dim                [8]int16   // Data array dimensions
	IntentP1           float32    // 1st intent parameter
	IntentP2           float32    // 2nd intent parameter
	IntentP3           float32    // 3rd intent parameter
	IntentCode         int16      // NIFTI_INTENT_* code
	Datatype           int16      // Defines data type
	Bitpix             int16      // Number bits/voxel
	SliceStart         int16      // First slice index
	Pixdim             [8]float32 // Grid spacing
	VoxOffset          float32    // Offset into .nii file
	SclSlope           float32    // Data scaling: slope
	SclInter           float32    // Data scaling: offset
	SliceEnd           int16      // Last slice index
	SliceCode          int8       // Slice timing order
	XyztUnits          int8       // Units of pixdim[1..4]
	CalMax             float32    // Max display intensity
	CalMin             float32    // Min display intensity
	SliceDuration      float32    // Time for 1 slice
	Toffset            float32    // Time axis shift
	UnusedGlmax        int32      // Unused
	UnusedGlmin        int32      // Unused
	Descrip            [80]int8   // Any text you like
	AuxFile            [24]int8   // Auxiliary filename
	QformCode          int16      // NIFTI_XFORM_* code
	SformCode          int16      // NIFTI_XFORM_* code
	QuaternB           float32    // Quaternion b param
	QuaternC           float32    // Quaternion c param
	QuaternD           float32    // Quaternion d param
	QoffsetX           float32    // Quaternion x shift
	QoffsetY           float32    // Quaternion y shift
	QoffsetZ           float32    // Quaternion z shift
	SrowX              [4]float32 // 1st row affine transform
	SrowY              [4]float32 // 2nd row affine transform
	SrowZ              [4]float32 // 3rd row affine transform
	IntentName         [16]int8   // 'name' or meaning of data
	Magic              [4]int8    // Must be "ni1\0" or "n+1\0"
}

// headerSize is the fixed on-disk size of the NIfTI-1 header.
const headerSize = 348

// defaultVoxOffset is the smallest legal data offset in a single .nii file
// (header plus a 4-byte empty extension field).
const defaultVoxOffset = 352

// Supported datatype codes from nifti1.h.
const (
	DTUInt8   int16 = 2
	DTInt16   int16 = 4
	DTInt32   int16 = 8
	DTFloat32 int16 = 16
	DTFloat64 int16 = 64
	DTUInt16  int16 = 512
)

// magicSingle marks a single-file volume ("n+1\0"), magicPair a detached
// header/image pair ("ni1\0").
var (
	magicSingle = [4]int8{110, 43, 49, 0}
	magicPair   = [4]int8{110, 105, 49, 0}
)

// XFormAligned is the NIFTI_XFORM_ALIGNED_ANAT code used when writing the
// sform of derived images.
const XFormAligned int16 = 2

// Affine returns the voxel-to-world transform encoded in the header. The
// sform takes precedence when set, then the qform, then a plain scaling by
// the pixel dimensions, matching the method-1/2/3 ordering in nifti1.h.
func (h *Header) Affine() [4][4]float64 {
	var a [4][4]float64
	a[3][3] = 1

	switch {
	case h.SformCode > 0:
		for i := 0; i < 4; i++ {
			a[0][i] = float64(h.SrowX[i])
			a[1][i] = float64(h.SrowY[i])
			a[2][i] = float64(h.SrowZ[i])
		}
	case h.QformCode > 0:
		m := h.qformMatrix()
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				a[i][j] = m.At(i, j)
			}
		}
		a[0][3] = float64(h.QoffsetX)
		a[1][3] = float64(h.QoffsetY)
		a[2][3] = float64(h.QoffsetZ)
	default:
		a[0][0] = float64(h.Pixdim[1])
		a[1][1] = float64(h.Pixdim[2])
		a[2][2] = float64(h.Pixdim[3])
	}
	return a
}

// qformMatrix builds the 3x3 rotation-and-scaling part of the qform
// transform from the quaternion fields.
func (h *Header) qformMatrix() *mat.Dense {
	b := float64(h.QuaternB)
	c := float64(h.QuaternC)
	d := float64(h.QuaternD)

	// The stored quaternion is a unit quaternion with a >= 0; rounding in
	// the file can push b^2+c^2+d^2 slightly above 1.
	a := math.Sqrt(math.Max(0, 1-b*b-c*c-d*d))

	rot := mat.NewDense(3, 3, []float64{
		a*a + b*b - c*c - d*d, 2*b*c - 2*a*d, 2*b*d + 2*a*c,
		2*b*c + 2*a*d, a*a + c*c - b*b - d*d, 2*c*d - 2*a*b,
		2*b*d - 2*a*c, 2*c*d + 2*a*b, a*a + d*d - b*b - c*c,
	})

	// pixdim[0] holds qfac, the sign of the third axis; zero means +1.
	qfac := 1.0
	if h.Pixdim[0] < 0 {
		qfac = -1.0
	}
	scale := mat.NewDense(3, 3, []float64{
		float64(h.Pixdim[1]), 0, 0,
		0, float64(h.Pixdim[2]), 0,
		0, 0, qfac * float64(h.Pixdim[3]),
	})

	var m mat.Dense
	m.Mul(rot, scale)
	return &m
}
