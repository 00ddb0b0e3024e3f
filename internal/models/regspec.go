package models

import (
	"fmt"
	"strconv"
	"strings"
)

// RegSpec is a parsed regularization request: either a single value or a
// sweep over several values. The distinction is fixed at parse time so the
// rest of the pipeline never re-inspects the raw command-line string.
type RegSpec struct {
	values []int
	sweep  bool
}

// SingleReg returns a RegSpec holding one regularization value.
func SingleReg(v int) RegSpec {
	return RegSpec{values: []int{v}}
}

// SweepReg returns a RegSpec sweeping over the given values in order.
// The slice is kept as-is; callers should not mutate it afterwards.
func SweepReg(values []int) RegSpec {
	return RegSpec{values: values, sweep: true}
}

// ParseRegSpec parses a regularization argument. A bare integer such as
// "100" yields a single value; a bracketed list such as "[0, 100, 300]"
// yields a sweep in the listed order. Negative values are accepted.
func ParseRegSpec(s string) (RegSpec, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return RegSpec{}, fmt.Errorf("empty regularization value")
	}

	if !strings.ContainsAny(trimmed, "[]") {
		v, err := strconv.Atoi(trimmed)
		if err != nil {
			return RegSpec{}, fmt.Errorf("invalid regularization value %q: %w", trimmed, err)
		}
		return SingleReg(v), nil
	}

	if !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, "]") {
		return RegSpec{}, fmt.Errorf("malformed regularization list %q: expected [v1, v2, ...]", s)
	}

	inner := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
	if inner == "" {
		return RegSpec{}, fmt.Errorf("empty regularization list %q", s)
	}

	parts := strings.Split(inner, ",")
	values := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.Atoi(p)
		if err != nil {
			return RegSpec{}, fmt.Errorf("invalid regularization value %q in list: %w", p, err)
		}
		values = append(values, v)
	}
	return SweepReg(values), nil
}

// Values returns the regularization values in sweep order. A single-value
// spec returns a one-element slice.
func (r RegSpec) Values() []int {
	return r.values
}

// IsSweep reports whether the spec was given in list form.
func (r RegSpec) IsSweep() bool {
	return r.sweep
}

// String renders the spec in the same shape it was parsed from.
func (r RegSpec) String() string {
	if !r.sweep {
		if len(r.values) == 0 {
			return ""
		}
		return strconv.Itoa(r.values[0])
	}
	parts := make([]string, len(r.values))
	for i, v := range r.values {
		parts[i] = strconv.Itoa(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
