package dataset

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/nemaeval/nema-eval/internal/evaluation/chord"
	"github.com/nemaeval/nema-eval/internal/evaluation/key"
	"github.com/nemaeval/nema-eval/internal/evaluation/melody"
	"github.com/nemaeval/nema-eval/internal/evaluation/tempo"
)

// Format reads one task's per-track files.
type Format[R any] struct {
	// Ext is the file extension including the dot, e.g. ".lab".
	Ext   string
	Parse func(r io.Reader) (R, error)
}

// Tasks returns the task names a manifest may use.
func Tasks() []string {
	return []string{chord.TaskName, key.TaskName, melody.TaskName, tempo.TaskName}
}

// IsKnownTask reports whether name is one of Tasks.
func IsKnownTask(name string) bool {
	for _, t := range Tasks() {
		if t == name {
			return true
		}
	}
	return false
}

// ChordFormat reads .lab files: "onset offset label" per line, with Harte
// chord labels (shorthands, degree lists and bass degrees).
func ChordFormat(dict *chord.Dictionary) Format[[]chord.Segment] {
	return Format[[]chord.Segment]{
		Ext: ".lab",
		Parse: func(r io.Reader) ([]chord.Segment, error) {
			var segs []chord.Segment
			err := scanLines(r, func(n int, fields []string) error {
				if len(fields) < 3 {
					return fmt.Errorf("line %d: want onset, offset and label", n)
				}
				onset, offset, err := parsePair(fields[0], fields[1])
				if err != nil {
					return fmt.Errorf("line %d: %w", n, err)
				}
				if offset < onset {
					return fmt.Errorf("line %d: offset %v before onset %v", n, offset, onset)
				}
				notes, err := dict.Notes(fields[2])
				if err != nil {
					return fmt.Errorf("line %d: %w", n, err)
				}
				segs = append(segs, chord.Segment{Onset: onset, Offset: offset, Notes: notes})
				return nil
			})
			return segs, err
		},
	}
}

// KeyFormat reads .key files: a single "tonic mode" line.
func KeyFormat() Format[key.Key] {
	return Format[key.Key]{
		Ext: ".key",
		Parse: func(r io.Reader) (key.Key, error) {
			var k key.Key
			found := false
			err := scanLines(r, func(n int, fields []string) error {
				if found {
					return nil
				}
				if len(fields) < 2 {
					return fmt.Errorf("line %d: want tonic and mode", n)
				}
				k = key.Key{Tonic: fields[0], Mode: fields[1]}
				found = true
				return nil
			})
			if err == nil && !found {
				err = fmt.Errorf("no key found")
			}
			return k, err
		},
	}
}

// MelodyFormat reads .f0 files: "time f0" per line.
func MelodyFormat() Format[[]melody.Frame] {
	return Format[[]melody.Frame]{
		Ext: ".f0",
		Parse: func(r io.Reader) ([]melody.Frame, error) {
			var frames []melody.Frame
			err := scanLines(r, func(n int, fields []string) error {
				if len(fields) < 2 {
					return fmt.Errorf("line %d: want time and f0", n)
				}
				t, f0, err := parsePair(fields[0], fields[1])
				if err != nil {
					return fmt.Errorf("line %d: %w", n, err)
				}
				frames = append(frames, melody.Frame{Time: t, F0: f0})
				return nil
			})
			return frames, err
		},
	}
}

// defaultSalience applies when a .bpm file gives no salience.
const defaultSalience = 0.5

// TempoFormat reads .bpm files: a single "T1 T2 [salience]" line.
func TempoFormat() Format[tempo.Tempo] {
	return Format[tempo.Tempo]{
		Ext: ".bpm",
		Parse: func(r io.Reader) (tempo.Tempo, error) {
			var tp tempo.Tempo
			found := false
			err := scanLines(r, func(n int, fields []string) error {
				if found {
					return nil
				}
				if len(fields) < 2 {
					return fmt.Errorf("line %d: want two tempi", n)
				}
				t1, t2, err := parsePair(fields[0], fields[1])
				if err != nil {
					return fmt.Errorf("line %d: %w", n, err)
				}
				tp = tempo.Tempo{T1: t1, T2: t2, Salience: defaultSalience}
				if len(fields) > 2 {
					s, err := parseFinite(fields[2])
					if err != nil {
						return fmt.Errorf("line %d: salience: %w", n, err)
					}
					tp.Salience = s
				}
				found = true
				return nil
			})
			if err == nil && !found {
				err = fmt.Errorf("no tempo found")
			}
			return tp, err
		},
	}
}

// scanLines calls fn with the whitespace-separated fields of every line,
// skipping blank lines and # comments. Line numbers start at 1.
func scanLines(r io.Reader, fn func(n int, fields []string) error) error {
	scanner := bufio.NewScanner(r)
	n := 0
	for scanner.Scan() {
		n++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := fn(n, strings.Fields(line)); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func parsePair(a, b string) (float64, float64, error) {
	x, err := parseFinite(a)
	if err != nil {
		return 0, 0, err
	}
	y, err := parseFinite(b)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

// parseFinite parses a float and rejects NaN and infinities.
func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("value %q is not a finite number", s)
	}
	return v, nil
}
