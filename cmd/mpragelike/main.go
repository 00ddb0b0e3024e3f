package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mafortin/mprage-like/internal/models"
	"github.com/mafortin/mprage-like/pkg/config"
	"github.com/mafortin/mprage-like/pkg/mprage"
	"github.com/mafortin/mprage-like/pkg/nifti"
	"github.com/mafortin/mprage-like/pkg/visualization"
)

func main() {
	// Parse command line arguments
	subID := flag.String("subid", "", "Subject identifier used as the output filename prefix")
	contrastMode := flag.String("contrast", "", "Contrast mode to synthesize: all, PD or MT")
	imageDir := flag.String("path2img", "", "Directory containing the co-registered T1w/PDw/MTw NIfTI volumes")
	echo := flag.Int("echo", 1, "Echo number used to pick the \"_eN\" files")
	reg := flag.String("reg", "100", "Regularization value like \"100\" or a sweep like \"[0, 100, 300]\"")
	outputDir := flag.String("path2save", "", "Directory to save results into (default: current directory)")
	configPath := flag.String("config", "mprage-like.yaml", "Path to YAML config file")
	initConfig := flag.Bool("init-config", false, "Write a default config file to the -config path and exit")
	previews := flag.Bool("previews", false, "Save orthogonal PNG slices next to each output volume")
	compress := flag.Bool("compress", false, "Write gzip-compressed .nii.gz volumes")
	quiet := flag.Bool("quiet", false, "Suppress per-step progress output")
	flag.Parse()

	// Write a starter config and stop when asked
	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to create config file: %v", err)
		}
		fmt.Printf("Default config written to: %s\n", *configPath)
		return
	}

	// Validate inputs
	if *subID == "" || *contrastMode == "" || *imageDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	// Load the config file; a missing file just means defaults
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags given on the command line win over config values
	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	if !setFlags["echo"] {
		*echo = cfg.Synthesis.Echo
	}
	if !setFlags["reg"] {
		*reg = cfg.Synthesis.Reg
	}
	if !setFlags["path2save"] {
		*outputDir = cfg.Output.Dir
	}
	if !setFlags["compress"] {
		*compress = cfg.Output.Compress
	}
	if !setFlags["previews"] {
		*previews = cfg.Output.Previews
	}
	verbose := cfg.Output.Verbose
	if setFlags["quiet"] {
		verbose = !*quiet
	}

	mode, err := models.ParseContrastMode(*contrastMode)
	if err != nil {
		log.Fatalf("Invalid -contrast value: %v", err)
	}
	regSpec, err := models.ParseRegSpec(*reg)
	if err != nil {
		log.Fatalf("Invalid -reg value: %v", err)
	}

	fmt.Println("================================")
	fmt.Println("MPRAGE-LIKE CONTRAST SYNTHESIS FROM CO-REGISTERED T1w/PDw/MTw VOLUMES")
	fmt.Println("Regularized ratio method with outlier cleanup")
	fmt.Println("================================")

	// Initialize synthesis parameters
	params := &mprage.Params{
		ImageDir:  *imageDir,
		OutputDir: *outputDir,
		SubjectID: *subID,
		Echo:      *echo,
		Mode:      mode,
		Reg:       regSpec,
		Compress:  *compress,
		Verbose:   verbose,
	}

	// Create generator instance
	generator := mprage.NewGenerator(params)

	// Run the synthesis pipeline
	fmt.Println("Starting MPRAGE-like synthesis...")
	startTime := time.Now()
	if err := generator.Process(); err != nil {
		log.Fatalf("Synthesis failed: %v", err)
	}
	processingTime := time.Since(startTime)

	written := generator.WrittenFiles()
	fmt.Printf("\nSynthesis completed successfully in %.2f seconds!\n", processingTime.Seconds())
	if len(written) > 0 {
		fmt.Printf("%d output volume(s) saved to: %s\n", len(written), filepath.Dir(written[0]))
	}

	// Save preview slices if requested
	if *previews {
		fmt.Println("\nSaving preview slices for each output volume...")

		for _, path := range written {
			vol, err := nifti.Load(path)
			if err != nil {
				log.Printf("Warning: Failed to reload %s for previews: %v", filepath.Base(path), err)
				continue
			}

			// Previews live in a subfolder next to the volumes they render
			previewsDir := filepath.Join(filepath.Dir(path), "previews")
			base := artifactBase(path)

			viewer := visualization.NewViewer(vol)
			if _, err := viewer.SaveMidSlices(previewsDir, base); err != nil {
				log.Printf("Warning: Failed to save previews for %s: %v", base, err)
			}
		}

		fmt.Println("Preview extraction completed!")
	}
}

// artifactBase derives the preview filename prefix from an artifact path by
// stripping the directory and the NIfTI extensions.
func artifactBase(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".gz")
	base = strings.TrimSuffix(base, ".nii")
	return base
}
