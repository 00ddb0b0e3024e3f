package nifti

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/mafortin/mprage-like/internal/models"
)

// testVolume builds a small volume with a distinctive pattern and a
// non-trivial affine using only values exact in float32
func testVolume() *models.Volume {
	v := models.NewVolume(4, 3, 2)
	for i := range v.Data {
		v.Data[i] = 0.25*float64(i) - 3
	}
	v.Affine = [4][4]float64{
		{2, 0, 0, -12.5},
		{0, -3.5, 0, 100},
		{0, 0, 0.5, 7.25},
		{0, 0, 0, 1},
	}
	return v
}

// writeRawFile encodes an arbitrary header and payload for reader tests
func writeRawFile(t *testing.T, path string, order binary.ByteOrder, h *Header, data interface{}) {
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	defer f.Close()

	if err := binary.Write(f, order, h); err != nil {
		t.Fatalf("Failed to write test header: %v", err)
	}
	if _, err := f.Write(make([]byte, defaultVoxOffset-headerSize)); err != nil {
		t.Fatalf("Failed to pad test header: %v", err)
	}
	if data != nil {
		if err := binary.Write(f, order, data); err != nil {
			t.Fatalf("Failed to write test data: %v", err)
		}
	}
}

// rawHeader returns a minimal valid single-file header for reader tests
func rawHeader(datatype, bitpix int16, nx, ny, nz int16) *Header {
	h := &Header{
		SizeofHdr: headerSize,
		Datatype:  datatype,
		Bitpix:    bitpix,
		VoxOffset: defaultVoxOffset,
		Magic:     magicSingle,
	}
	h.Dim[0] = 3
	h.Dim[1] = nx
	h.Dim[2] = ny
	h.Dim[3] = nz
	return h
}

// TestSaveLoadRoundTrip verifies a saved volume loads back unchanged
func TestSaveLoadRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()

	for _, name := range []string{"vol.nii", "vol.nii.gz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(tmpDir, name)
			want := testVolume()

			if err := Save(path, want); err != nil {
				t.Fatalf("Failed to save volume: %v", err)
			}

			got, err := Load(path)
			if err != nil {
				t.Fatalf("Failed to load volume: %v", err)
			}

			if !got.SameShape(want) {
				t.Fatalf("Expected shape %dx%dx%d, got %dx%dx%d",
					want.Nx, want.Ny, want.Nz, got.Nx, got.Ny, got.Nz)
			}
			for i := range want.Data {
				if got.Data[i] != want.Data[i] {
					t.Fatalf("Voxel %d: expected %v, got %v", i, want.Data[i], got.Data[i])
				}
			}
			if got.Affine != want.Affine {
				t.Errorf("Affine mismatch:\nexpected %v\ngot      %v", want.Affine, got.Affine)
			}
		})
	}
}

// TestSaveHeaderFields verifies the on-disk header of a saved volume
func TestSaveHeaderFields(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "vol.nii")
	vol := testVolume()

	if err := Save(path, vol); err != nil {
		t.Fatalf("Failed to save volume: %v", err)
	}

	h, err := LoadHeader(path)
	if err != nil {
		t.Fatalf("Failed to load header: %v", err)
	}

	if h.Datatype != DTFloat32 || h.Bitpix != 32 {
		t.Errorf("Expected float32 datatype, got code %d with %d bits", h.Datatype, h.Bitpix)
	}
	if h.VoxOffset != defaultVoxOffset {
		t.Errorf("Expected vox_offset %d, got %v", defaultVoxOffset, h.VoxOffset)
	}
	if h.SformCode != XFormAligned {
		t.Errorf("Expected sform code %d, got %d", XFormAligned, h.SformCode)
	}
	if h.QformCode != 0 {
		t.Errorf("Expected qform code 0, got %d", h.QformCode)
	}
	if h.Dim[0] != 3 || h.Dim[1] != 4 || h.Dim[2] != 3 || h.Dim[3] != 2 {
		t.Errorf("Unexpected dim: %v", h.Dim)
	}

	// pixdim should hold the affine column norms: 2, 3.5, 0.5
	wantPixdim := []float32{2, 3.5, 0.5}
	for i, want := range wantPixdim {
		if got := h.Pixdim[i+1]; math.Abs(float64(got-want)) > 1e-6 {
			t.Errorf("Pixdim[%d]: expected %v, got %v", i+1, want, got)
		}
	}
}

// TestLoadInt16Scaled verifies int16 decoding with scl_slope/scl_inter
func TestLoadInt16Scaled(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "scaled.nii")

	h := rawHeader(DTInt16, 16, 3, 2, 1)
	h.SclSlope = 2
	h.SclInter = -1
	data := []int16{0, 10, -5, 100, 30000, -30000}
	writeRawFile(t, path, binary.LittleEndian, h, data)

	vol, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load volume: %v", err)
	}

	for i, raw := range data {
		want := 2*float64(raw) - 1
		if vol.Data[i] != want {
			t.Errorf("Voxel %d: expected %v, got %v", i, want, vol.Data[i])
		}
	}
}

// TestLoadBigEndian verifies the byte-order fallback on dim[0]
func TestLoadBigEndian(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "big.nii")

	h := rawHeader(DTFloat64, 64, 2, 2, 1)
	data := []float64{1.5, -2.25, 3, 4096}
	writeRawFile(t, path, binary.BigEndian, h, data)

	vol, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load big-endian volume: %v", err)
	}

	for i, want := range data {
		if vol.Data[i] != want {
			t.Errorf("Voxel %d: expected %v, got %v", i, want, vol.Data[i])
		}
	}
}

// TestLoadUnsetSlope verifies NaN scl_slope is treated as unscaled
func TestLoadUnsetSlope(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nanslope.nii")

	h := rawHeader(DTFloat32, 32, 2, 1, 1)
	h.SclSlope = float32(math.NaN())
	h.SclInter = float32(math.NaN())
	data := []float32{7, -3.5}
	writeRawFile(t, path, binary.LittleEndian, h, data)

	vol, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load volume: %v", err)
	}
	if vol.Data[0] != 7 || vol.Data[1] != -3.5 {
		t.Errorf("Expected unscaled data [7 -3.5], got %v", vol.Data)
	}
}

// TestLoadRejects verifies malformed inputs fail with an error
func TestLoadRejects(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("PairMagic", func(t *testing.T) {
		path := filepath.Join(tmpDir, "pair.nii")
		h := rawHeader(DTUInt8, 8, 2, 2, 2)
		h.Magic = magicPair
		writeRawFile(t, path, binary.LittleEndian, h, make([]uint8, 8))

		if _, err := Load(path); err == nil {
			t.Error("Expected error for header/image pair magic")
		}
	})

	t.Run("BadMagic", func(t *testing.T) {
		path := filepath.Join(tmpDir, "bad.nii")
		h := rawHeader(DTUInt8, 8, 2, 2, 2)
		h.Magic = [4]int8{0, 0, 0, 0}
		writeRawFile(t, path, binary.LittleEndian, h, make([]uint8, 8))

		if _, err := Load(path); err == nil {
			t.Error("Expected error for unknown magic")
		}
	})

	t.Run("FourDimensional", func(t *testing.T) {
		path := filepath.Join(tmpDir, "4d.nii")
		h := rawHeader(DTUInt8, 8, 2, 2, 2)
		h.Dim[0] = 4
		h.Dim[4] = 5
		writeRawFile(t, path, binary.LittleEndian, h, nil)

		if _, err := Load(path); err == nil {
			t.Error("Expected error for multi-frame 4D volume")
		}
	})

	t.Run("UnknownDatatype", func(t *testing.T) {
		path := filepath.Join(tmpDir, "rgb.nii")
		h := rawHeader(128, 24, 2, 2, 2)
		writeRawFile(t, path, binary.LittleEndian, h, nil)

		if _, err := Load(path); err == nil {
			t.Error("Expected error for unsupported datatype")
		}
	})

	t.Run("Truncated", func(t *testing.T) {
		path := filepath.Join(tmpDir, "short.nii")
		if err := os.WriteFile(path, make([]byte, 100), 0644); err != nil {
			t.Fatalf("Failed to write test file: %v", err)
		}

		if _, err := Load(path); err == nil {
			t.Error("Expected error for truncated file")
		}
	})

	t.Run("Missing", func(t *testing.T) {
		if _, err := Load(filepath.Join(tmpDir, "nope.nii")); err == nil {
			t.Error("Expected error for missing file")
		}
	})
}

// TestSingleFrameFourD verifies a 4D file with one frame loads as 3D
func TestSingleFrameFourD(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "frame.nii")

	h := rawHeader(DTUInt8, 8, 2, 2, 2)
	h.Dim[0] = 4
	h.Dim[4] = 1
	writeRawFile(t, path, binary.LittleEndian, h, []uint8{1, 2, 3, 4, 5, 6, 7, 8})

	vol, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load single-frame 4D volume: %v", err)
	}
	if vol.Nx != 2 || vol.Ny != 2 || vol.Nz != 2 {
		t.Errorf("Expected 2x2x2 volume, got %dx%dx%d", vol.Nx, vol.Ny, vol.Nz)
	}
	if vol.Data[7] != 8 {
		t.Errorf("Expected last voxel 8, got %v", vol.Data[7])
	}
}

// TestHeaderAffine verifies the sform/qform/pixdim precedence
func TestHeaderAffine(t *testing.T) {
	t.Run("Sform", func(t *testing.T) {
		h := &Header{SformCode: 1, QformCode: 1}
		h.SrowX = [4]float32{1, 0, 0, -90}
		h.SrowY = [4]float32{0, 1, 0, -126}
		h.SrowZ = [4]float32{0, 0, 1, -72}
		// Conflicting qform that must be ignored
		h.Pixdim = [8]float32{1, 9, 9, 9, 0, 0, 0, 0}

		a := h.Affine()
		if a[0][3] != -90 || a[1][3] != -126 || a[2][3] != -72 {
			t.Errorf("Unexpected sform translation: %v", a)
		}
		if a[0][0] != 1 || a[1][1] != 1 || a[2][2] != 1 {
			t.Errorf("Unexpected sform scaling: %v", a)
		}
		if a[3] != [4]float64{0, 0, 0, 1} {
			t.Errorf("Bottom affine row should be [0 0 0 1], got %v", a[3])
		}
	})

	t.Run("QformIdentityRotation", func(t *testing.T) {
		h := &Header{QformCode: 1}
		h.Pixdim = [8]float32{-1, 2, 3, 4, 0, 0, 0, 0}
		h.QoffsetX = -10
		h.QoffsetY = 20.5
		h.QoffsetZ = 3.25

		a := h.Affine()
		if a[0][0] != 2 || a[1][1] != 3 || a[2][2] != -4 {
			t.Errorf("Expected diag(2, 3, -4) with qfac -1, got %v", a)
		}
		if a[0][3] != -10 || a[1][3] != 20.5 || a[2][3] != 3.25 {
			t.Errorf("Unexpected qform offsets: %v", a)
		}
	})

	t.Run("QformZRotation", func(t *testing.T) {
		// 90 degree rotation about z: b = c = 0, d = sin(45deg)
		h := &Header{QformCode: 1}
		h.QuaternD = float32(math.Sqrt2 / 2)
		h.Pixdim = [8]float32{1, 1, 1, 1, 0, 0, 0, 0}

		a := h.Affine()
		want := [3][3]float64{
			{0, -1, 0},
			{1, 0, 0},
			{0, 0, 1},
		}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				if math.Abs(a[i][j]-want[i][j]) > 1e-5 {
					t.Errorf("Rotation[%d][%d]: expected %v, got %v", i, j, want[i][j], a[i][j])
				}
			}
		}
	})

	t.Run("PixdimFallback", func(t *testing.T) {
		h := &Header{}
		h.Pixdim = [8]float32{0, 0.5, 0.5, 3, 0, 0, 0, 0}

		a := h.Affine()
		if a[0][0] != 0.5 || a[1][1] != 0.5 || a[2][2] != 3 {
			t.Errorf("Expected diag(0.5, 0.5, 3), got %v", a)
		}
	})
}
