package mprage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mafortin/mprage-like/internal/models"
	"github.com/mafortin/mprage-like/pkg/contrast"
	"github.com/mafortin/mprage-like/pkg/nifti"
)

// outputDirName is both the subfolder created under the save location and
// the fixed label joined into every artifact filename.
const outputDirName = "mprage-like"

// Params holds the synthesis configuration for one subject.
type Params struct {
	// ImageDir is the folder holding the co-registered MPM/VFA contrast
	// volumes. All contrasts must live in this one folder.
	ImageDir string

	// OutputDir is the save location; the mprage-like subfolder is created
	// inside it if absent.
	OutputDir string

	// SubjectID tags the output filenames. Any mix of letters and digits.
	SubjectID string

	// Echo selects the acquisition echo via the "_eN" filename token.
	// Directories without that convention are treated as single-echo.
	Echo int

	// Mode selects which contrasts enter the ratio formula.
	Mode models.ContrastMode

	// Reg is the regularization value, or the ordered sweep of values when
	// several were requested.
	Reg models.RegSpec

	// Compress writes gzip-compressed artifacts (.nii.gz instead of .nii).
	Compress bool

	// Verbose enables progress output on stdout.
	Verbose bool
}

// Generator runs the synthesis pipeline: select the contrast volumes,
// load them, then composite and save one artifact per regularization value.
type Generator struct {
	// params stores the synthesis configuration
	params *Params

	// set maps each contrast kind to its selected file
	set contrast.Set

	// volumes holds the loaded inputs for the kinds the mode requires
	volumes map[models.ContrastKind]*models.Volume

	// written collects the artifact paths in sweep order
	written []string
}

// NewGenerator creates a generator instance with the provided parameters.
func NewGenerator(params *Params) *Generator {
	return &Generator{
		params:  params,
		volumes: make(map[models.ContrastKind]*models.Volume),
	}
}

// Process runs the complete synthesis pipeline. The sweep is fail-fast: the
// first regularization value that cannot be composited or saved aborts the
// run, leaving earlier artifacts on disk.
func (g *Generator) Process() error {
	if len(g.params.Reg.Values()) == 0 {
		return fmt.Errorf("no regularization values given")
	}

	if g.params.Verbose {
		fmt.Printf("Synthesizing MPRAGE-like images for subject %s (contrast %s, reg %s)\n",
			g.params.SubjectID, g.params.Mode, g.params.Reg)
		fmt.Println("Step 1: Selecting contrast volumes...")
	}
	if err := g.selectVolumes(); err != nil {
		return fmt.Errorf("failed to select contrast volumes: %w", err)
	}

	if g.params.Verbose {
		fmt.Println("Step 2: Loading contrast volumes...")
	}
	if err := g.loadVolumes(); err != nil {
		return err
	}

	if g.params.Verbose {
		fmt.Println("Step 3: Compositing and saving...")
	}
	return g.compositeAll()
}

// WrittenFiles returns the artifact paths produced by Process, in sweep
// order.
func (g *Generator) WrittenFiles() []string {
	return g.written
}

// selectVolumes scans the image directory and binds one file per contrast
// kind.
func (g *Generator) selectVolumes() error {
	set, err := contrast.Select(g.params.ImageDir, g.params.Echo)
	if err != nil {
		return err
	}
	g.set = set

	if g.params.Verbose {
		for _, kind := range g.params.Mode.RequiredKinds() {
			if path, ok := set.Path(kind); ok {
				fmt.Printf("  %s: %s\n", kind, filepath.Base(path))
			}
		}
	}
	return nil
}

// loadVolumes loads every contrast the mode requires, failing on the first
// kind with no bound file.
func (g *Generator) loadVolumes() error {
	for _, kind := range g.params.Mode.RequiredKinds() {
		path, ok := g.set.Path(kind)
		if !ok {
			return fmt.Errorf("no %s volume found in %s for contrast mode %s",
				kind, g.params.ImageDir, g.params.Mode)
		}
		vol, err := nifti.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load %s volume: %w", kind, err)
		}
		g.volumes[kind] = vol
	}

	if g.params.Verbose {
		t1 := g.volumes[models.KindT1]
		fmt.Printf("  volume grid: %dx%dx%d\n", t1.Nx, t1.Ny, t1.Nz)
	}
	return nil
}

// compositeAll runs the compositor once per regularization value and saves
// each artifact.
func (g *Generator) compositeAll() error {
	outDir := filepath.Join(g.params.OutputDir, outputDirName)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	values := g.params.Reg.Values()
	for i, reg := range values {
		if g.params.Verbose {
			fmt.Printf("  [%d/%d] reg=%d\n", i+1, len(values), reg)
		}

		artifact, err := Composite(
			g.volumes[models.KindT1],
			g.volumes[models.KindPD],
			g.volumes[models.KindMT],
			reg, g.params.Mode)
		if err != nil {
			return fmt.Errorf("failed to composite with reg %d: %w", reg, err)
		}

		path := filepath.Join(outDir, artifactName(g.params.SubjectID, g.params.Echo, g.params.Mode, reg, g.params.Compress))
		if err := nifti.Save(path, artifact); err != nil {
			return fmt.Errorf("failed to save artifact for reg %d: %w", reg, err)
		}
		g.written = append(g.written, path)

		if g.params.Verbose {
			fmt.Printf("  summary: %s\n", Summarize(artifact))
			fmt.Printf("MPRAGE-like image saved to the following filename: %s\n", path)
		}
	}
	return nil
}

// artifactName joins every parameter that distinguishes one artifact from
// another, so sweep outputs never collide.
func artifactName(subID string, echo int, mode models.ContrastMode, reg int, compress bool) string {
	name := fmt.Sprintf("%s_%s_e%d_%s_reg%d.nii", subID, outputDirName, echo, mode.Token(), reg)
	if compress {
		name += ".gz"
	}
	return name
}
