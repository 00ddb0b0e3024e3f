package models

import "fmt"

// ContrastKind identifies the MRI weighting of an input volume
type ContrastKind int

const (
	KindT1 ContrastKind = iota
	KindPD
	KindMT
)

// String returns the conventional short name of the contrast kind.
func (k ContrastKind) String() string {
	switch k {
	case KindT1:
		return "T1w"
	case KindPD:
		return "PDw"
	case KindMT:
		return "MTw"
	}
	return fmt.Sprintf("ContrastKind(%d)", int(k))
}

// ContrastMode selects which input volumes participate in the synthesized
// contrast and which denominator the ratio formula uses
type ContrastMode int

const (
	// ModeAll averages the PDw and MTw volumes in the denominator
	ModeAll ContrastMode = iota

	// ModePD uses the PDw volume alone in the denominator
	ModePD

	// ModeMT uses the MTw volume alone in the denominator
	ModeMT
)

// ParseContrastMode converts a command-line contrast token into a
// ContrastMode. Valid tokens are "all", "PD" and "MT".
func ParseContrastMode(s string) (ContrastMode, error) {
	switch s {
	case "all":
		return ModeAll, nil
	case "PD":
		return ModePD, nil
	case "MT":
		return ModeMT, nil
	}
	return 0, fmt.Errorf("invalid contrast mode %q: must be one of all, PD, MT", s)
}

// Token returns the mode's output-filename token.
func (m ContrastMode) Token() string {
	switch m {
	case ModeAll:
		return "all"
	case ModePD:
		return "PD"
	case ModeMT:
		return "MT"
	}
	return fmt.Sprintf("ContrastMode(%d)", int(m))
}

// String returns the same token used in filenames and logs.
func (m ContrastMode) String() string {
	return m.Token()
}

// RequiredKinds returns the input contrasts the mode needs, in the order
// they enter the ratio formula.
func (m ContrastMode) RequiredKinds() []ContrastKind {
	switch m {
	case ModeAll:
		return []ContrastKind{KindT1, KindPD, KindMT}
	case ModePD:
		return []ContrastKind{KindT1, KindPD}
	case ModeMT:
		return []ContrastKind{KindT1, KindMT}
	}
	return nil
}
