package mprage

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/mafortin/mprage-like/internal/models"
)

// Summary holds descriptive statistics of a synthesized artifact, reported
// after each regularization step so degenerate parameter choices are easy
// to spot.
type Summary struct {
	// Min and Max are the extreme voxel intensities
	Min, Max float64

	// Mean and Std describe the intensity distribution
	Mean, Std float64

	// ZeroFraction is the fraction of exactly-zero voxels, covering both
	// background and cleaned-up degenerate voxels
	ZeroFraction float64
}

// Summarize computes summary statistics over the artifact voxels.
func Summarize(vol *models.Volume) Summary {
	data := vol.Data
	if len(data) == 0 {
		return Summary{}
	}

	zeros := 0
	for _, v := range data {
		if v == 0 {
			zeros++
		}
	}

	return Summary{
		Min:          floats.Min(data),
		Max:          floats.Max(data),
		Mean:         stat.Mean(data, nil),
		Std:          stat.StdDev(data, nil),
		ZeroFraction: float64(zeros) / float64(len(data)),
	}
}

// String renders the summary as a single log line.
func (s Summary) String() string {
	return fmt.Sprintf("min %.4f, max %.4f, mean %.4f, sd %.4f, %.1f%% zero",
		s.Min, s.Max, s.Mean, s.Std, 100*s.ZeroFraction)
}
