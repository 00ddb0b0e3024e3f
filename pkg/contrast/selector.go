// Package contrast locates and classifies the input volumes for one subject.
//
// MPM/VFA converters name their outputs with a contrast marker ("t1", "pd",
// "mt" in either case), usually an echo marker of the form "_eN", and a
// "_ph"/"phase" marker on phase images. Selection is purely filename based;
// file contents are never inspected.
package contrast

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mafortin/mprage-like/internal/models"
)

// niiMarker tags a file as a NIfTI volume. Matched as a substring so both
// .nii and .nii.gz qualify.
const niiMarker = ".nii"

// phaseMarkers tag phase images, which are never valid inputs; only
// magnitude data is used. Matched case-sensitively, as converters emit
// these tokens in lower case.
var phaseMarkers = []string{"_ph", "phase"}

// kindRules is the contrast-marker table evaluated in precedence order: the
// first rule whose marker occurs in the lower-cased base name claims the
// file, and later rules are not consulted for it.
var kindRules = []struct {
	marker string
	kind   models.ContrastKind
}{
	{"t1", models.KindT1},
	{"pd", models.KindPD},
	{"mt", models.KindMT},
}

// Set maps each contrast kind to the file path selected for it. At most one
// file is bound per kind.
type Set map[models.ContrastKind]string

// Path returns the file bound to the given kind.
func (s Set) Path(kind models.ContrastKind) (string, bool) {
	p, ok := s[kind]
	return p, ok
}

// ListCandidates returns the paths of the volumes in dir eligible for
// loading: NIfTI files carrying the "_e<echo>" token, or every NIfTI file
// when no name follows the echo convention (single-echo data). Phase images
// are excluded in both cases. Paths come back in directory listing order.
func ListCandidates(dir string, echo int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing image directory: %w", err)
	}

	echoToken := fmt.Sprintf("_e%d", echo)

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.Contains(name, niiMarker) && strings.Contains(name, echoToken) {
			names = append(names, name)
		}
	}

	// No "_eN" names at all: assume single-echo data and take every volume.
	if len(names) == 0 {
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if strings.Contains(entry.Name(), niiMarker) {
				names = append(names, entry.Name())
			}
		}
	}

	var paths []string
	for _, name := range names {
		if isPhase(name) {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	return paths, nil
}

func isPhase(name string) bool {
	for _, marker := range phaseMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

// Classify binds each candidate path to a contrast kind using the marker
// rule table. Only the base name is inspected, so directory names cannot
// sway the match. The first file claiming a kind keeps it; later same-kind
// files are ignored.
func Classify(paths []string) Set {
	set := make(Set)
	for _, path := range paths {
		name := strings.ToLower(filepath.Base(path))
		for _, rule := range kindRules {
			if !strings.Contains(name, rule.marker) {
				continue
			}
			if _, taken := set[rule.kind]; !taken {
				set[rule.kind] = path
			}
			break
		}
	}
	return set
}

// Select lists the eligible volumes in dir and classifies them by contrast
// kind in one step.
func Select(dir string, echo int) (Set, error) {
	paths, err := ListCandidates(dir, echo)
	if err != nil {
		return nil, err
	}
	return Classify(paths), nil
}
