package chord

import (
	"strings"
)

// OverlapStrategy scores one grid bin: the ground-truth notes against the
// system notes. A nil side means the bin is not covered by any segment.
type OverlapStrategy interface {
	Overlap(gt, sys []int) float64
}

const (
	defaultMatchThreshold = 3
	reducedMatchThreshold = 2
)

// FuzzyOverlap credits a bin when the system shares enough notes with the
// ground truth: three, or two when the ground truth is diminished or
// augmented.
type FuzzyOverlap struct {
	dict *Dictionary
}

// NewFuzzyOverlap returns the note-matching strategy backed by dict.
func NewFuzzyOverlap(dict *Dictionary) FuzzyOverlap {
	return FuzzyOverlap{dict: dict}
}

// Overlap implements OverlapStrategy.
func (f FuzzyOverlap) Overlap(gt, sys []int) float64 {
	if len(gt) == 0 || len(sys) == 0 {
		return 0
	}

	gtNone := len(gt) == 1 && gt[0] == NoChord
	sysNone := len(sys) == 1 && sys[0] == NoChord
	if gtNone || sysNone {
		if gtNone && sysNone {
			return 1
		}
		return 0
	}

	matches := 0
	for _, n := range sys {
		for _, g := range gt {
			if n == g {
				matches++
				break
			}
		}
	}

	threshold := defaultMatchThreshold
	if label, ok := f.dict.Shorthand(gt); ok && (strings.Contains(label, "dim") || strings.Contains(label, "aug")) {
		threshold = reducedMatchThreshold
	}

	if matches >= threshold {
		return 1
	}
	return 0
}

// StrictOverlap credits a bin only when both note lists are identical,
// element by element.
type StrictOverlap struct{}

// Overlap implements OverlapStrategy.
func (StrictOverlap) Overlap(gt, sys []int) float64 {
	if len(gt) == 0 || len(sys) == 0 || len(gt) != len(sys) {
		return 0
	}
	for i := range gt {
		if gt[i] != sys[i] {
			return 0
		}
	}
	return 1
}
