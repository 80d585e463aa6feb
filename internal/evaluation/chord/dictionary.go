package chord

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// NoChord is the note value that marks a "no chord" segment.
const NoChord = 24

// noChordLabel is the Harte label for silence or no harmony.
const noChordLabel = "N"

// shorthands lists chord qualities as semitone intervals above the root.
// The first interval is always the root itself.
var shorthands = []struct {
	name      string
	intervals []int
}{
	{"maj", []int{0, 4, 7}},
	{"min", []int{0, 3, 7}},
	{"dim", []int{0, 3, 6}},
	{"aug", []int{0, 4, 8}},
	{"maj7", []int{0, 4, 7, 11}},
	{"min7", []int{0, 3, 7, 10}},
	{"7", []int{0, 4, 7, 10}},
	{"dim7", []int{0, 3, 6, 9}},
	{"hdim7", []int{0, 3, 6, 10}},
	{"minmaj7", []int{0, 3, 7, 11}},
	{"maj6", []int{0, 4, 7, 9}},
	{"min6", []int{0, 3, 7, 9}},
	{"9", []int{0, 4, 7, 10, 2}},
	{"maj9", []int{0, 4, 7, 11, 2}},
	{"min9", []int{0, 3, 7, 10, 2}},
	{"sus2", []int{0, 2, 7}},
	{"sus4", []int{0, 5, 7}},
	{"5", []int{0, 7}},
	{"1", []int{0}},
}

var rootNames = []string{"C", "C#", "D", "Eb", "E", "F", "F#", "G", "Ab", "A", "Bb", "B"}

var naturals = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// Dictionary converts between Harte chord labels and note lists. It is
// immutable after construction and safe for concurrent use.
type Dictionary struct {
	byName      map[string][]int
	bySignature map[string]string
}

// NewDictionary builds the shorthand dictionary.
func NewDictionary() *Dictionary {
	d := &Dictionary{
		byName:      make(map[string][]int, len(shorthands)),
		bySignature: make(map[string]string, len(shorthands)),
	}
	for _, s := range shorthands {
		d.byName[s.name] = s.intervals
		d.bySignature[signature(s.intervals)] = s.name
	}
	return d
}

// Shorthand names the chord formed by notes, e.g. "B:dim". Notes are a set:
// the first note is tried as the root, then every other distinct note, so
// an inverted or sorted chord is still recognised. The lone NoChord note
// yields "N".
func (d *Dictionary) Shorthand(notes []int) (string, bool) {
	if len(notes) == 0 {
		return "", false
	}
	if len(notes) == 1 && notes[0] == NoChord {
		return noChordLabel, true
	}

	tried := make(map[int]bool, len(notes))
	for _, n := range notes {
		root := pitchClass(n)
		if tried[root] {
			continue
		}
		tried[root] = true
		if name, ok := d.shorthandFrom(root, notes); ok {
			return rootNames[root] + ":" + name, true
		}
	}
	return "", false
}

func (d *Dictionary) shorthandFrom(root int, notes []int) (string, bool) {
	intervals := make([]int, len(notes))
	for i, n := range notes {
		intervals[i] = pitchClass(n - root)
	}
	name, ok := d.bySignature[signature(intervals)]
	return name, ok
}

// Notes returns the pitch classes of a Harte label, root first. It accepts
// shorthands ("A:min7"), interval lists ("C:(1,b3,5)"), shorthands with
// added or removed degrees ("C:maj(9)", "C:min(*3)") and bass degrees
// ("C:maj/b7"). A bass degree outside the chord is added to it.
func (d *Dictionary) Notes(label string) ([]int, error) {
	label = strings.TrimSpace(label)
	if label == noChordLabel {
		return []int{NoChord}, nil
	}
	if label == "" {
		return nil, fmt.Errorf("empty chord label")
	}

	body, bass := label, ""
	if i := strings.LastIndexByte(label, '/'); i >= 0 {
		body, bass = label[:i], label[i+1:]
	}

	rootPart, quality := body, "maj"
	if i := strings.IndexByte(body, ':'); i >= 0 {
		rootPart, quality = body[:i], body[i+1:]
	}

	root, err := parseRoot(rootPart)
	if err != nil {
		return nil, fmt.Errorf("chord %q: %w", label, err)
	}

	intervals, err := d.qualityIntervals(quality)
	if err != nil {
		return nil, fmt.Errorf("chord %q: %w", label, err)
	}

	if bass != "" {
		iv, removed, err := parseDegree(bass)
		if err != nil || removed {
			return nil, fmt.Errorf("chord %q: invalid bass degree %q", label, bass)
		}
		intervals = addInterval(intervals, iv)
	}

	if len(intervals) == 0 {
		return nil, fmt.Errorf("chord %q: no notes", label)
	}

	notes := make([]int, len(intervals))
	for i, iv := range intervals {
		notes[i] = pitchClass(root + iv)
	}
	return notes, nil
}

// qualityIntervals resolves "shorthand", "shorthand(degrees)" or
// "(degrees)" to semitone intervals above the root.
func (d *Dictionary) qualityIntervals(quality string) ([]int, error) {
	name, list, hasList := quality, "", false
	if i := strings.IndexByte(quality, '('); i >= 0 {
		if !strings.HasSuffix(quality, ")") {
			return nil, fmt.Errorf("unterminated degree list %q", quality)
		}
		name, list, hasList = quality[:i], quality[i+1:len(quality)-1], true
	}

	var intervals []int
	switch {
	case name != "":
		base, ok := d.byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown shorthand %q", name)
		}
		intervals = append(intervals, base...)
	case !hasList:
		return nil, fmt.Errorf("missing shorthand")
	}

	if !hasList {
		return intervals, nil
	}
	for _, part := range strings.Split(list, ",") {
		iv, removed, err := parseDegree(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		if removed {
			intervals = removeInterval(intervals, iv)
		} else {
			intervals = addInterval(intervals, iv)
		}
	}
	return intervals, nil
}

// degreeSemitones maps scale degrees 1-13 to semitones above the root,
// folded into one octave.
var degreeSemitones = map[int]int{
	1: 0, 2: 2, 3: 4, 4: 5, 5: 7, 6: 9, 7: 11,
	8: 0, 9: 2, 10: 4, 11: 5, 12: 7, 13: 9,
}

// parseDegree reads a Harte degree such as "5", "b7", "#11" or "*3". The
// leading "*" marks a removed degree.
func parseDegree(s string) (interval int, removed bool, err error) {
	if strings.HasPrefix(s, "*") {
		removed = true
		s = s[1:]
	}

	shift := 0
	i := 0
	for ; i < len(s) && (s[i] == 'b' || s[i] == '#'); i++ {
		if s[i] == 'b' {
			shift--
		} else {
			shift++
		}
	}

	n, convErr := strconv.Atoi(s[i:])
	semis, ok := degreeSemitones[n]
	if convErr != nil || !ok {
		return 0, false, fmt.Errorf("invalid degree %q", s)
	}
	return pitchClass(semis + shift), removed, nil
}

func addInterval(intervals []int, iv int) []int {
	for _, v := range intervals {
		if v == iv {
			return intervals
		}
	}
	return append(intervals, iv)
}

func removeInterval(intervals []int, iv int) []int {
	out := intervals[:0:0]
	for _, v := range intervals {
		if v != iv {
			out = append(out, v)
		}
	}
	return out
}

func parseRoot(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("missing root")
	}
	base, ok := naturals[s[0]]
	if !ok {
		return 0, fmt.Errorf("invalid root %q", s)
	}
	for _, c := range s[1:] {
		switch c {
		case '#':
			base++
		case 'b':
			base--
		default:
			return 0, fmt.Errorf("invalid root %q", s)
		}
	}
	return pitchClass(base), nil
}

func pitchClass(n int) int {
	return ((n % 12) + 12) % 12
}

// signature is an order-independent key for a set of intervals.
func signature(intervals []int) string {
	sorted := append([]int(nil), intervals...)
	sort.Ints(sorted)

	parts := make([]string, 0, len(sorted))
	for i, v := range sorted {
		if i > 0 && v == sorted[i-1] {
			continue
		}
		parts = append(parts, strconv.Itoa(v))
	}
	return strings.Join(parts, ",")
}
