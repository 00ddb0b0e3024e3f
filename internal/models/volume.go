package models

// Volume represents a 3D MRI volume loaded from a NIfTI file
type Volume struct {
	// Data is the 3D volume data as a 1D array in row-major order
	// (x varies fastest, then y, then z)
	Data []float64

	// Nx is the number of voxels along the first axis
	Nx int

	// Ny is the number of voxels along the second axis
	Ny int

	// Nz is the number of voxels along the third axis
	Nz int

	// Affine maps homogeneous voxel indices (i, j, k, 1) to physical
	// scanner coordinates in mm
	Affine [4][4]float64
}

// NewVolume allocates a zero-filled volume with the given grid dimensions
// and an identity affine.
func NewVolume(nx, ny, nz int) *Volume {
	v := &Volume{
		Data: make([]float64, nx*ny*nz),
		Nx:   nx,
		Ny:   ny,
		Nz:   nz,
	}
	for i := 0; i < 4; i++ {
		v.Affine[i][i] = 1
	}
	return v
}

// Len returns the total number of voxels in the volume.
func (v *Volume) Len() int {
	return v.Nx * v.Ny * v.Nz
}

// Idx converts voxel coordinates to the flat index into Data.
func (v *Volume) Idx(i, j, k int) int {
	return i + v.Nx*(j+v.Ny*k)
}

// At returns the intensity at voxel (i, j, k).
func (v *Volume) At(i, j, k int) float64 {
	return v.Data[v.Idx(i, j, k)]
}

// SameShape reports whether two volumes share the same grid dimensions.
// The affine is not compared; co-registered inputs may carry slightly
// different transforms.
func (v *Volume) SameShape(o *Volume) bool {
	return v.Nx == o.Nx && v.Ny == o.Ny && v.Nz == o.Nz
}

// Clone returns a deep copy of the volume.
func (v *Volume) Clone() *Volume {
	c := &Volume{
		Data:   make([]float64, len(v.Data)),
		Nx:     v.Nx,
		Ny:     v.Ny,
		Nz:     v.Nz,
		Affine: v.Affine,
	}
	copy(c.Data, v.Data)
	return c
}
