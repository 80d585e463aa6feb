package chord

import (
	"math"
	"testing"

	"github.com/nemaeval/nema-eval/internal/evaluation"
	"github.com/nemaeval/nema-eval/internal/pkg/errors"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDictionary_Notes(t *testing.T) {
	d := NewDictionary()

	tests := []struct {
		label string
		want  []int
	}{
		{"N", []int{NoChord}},
		{"C", []int{0, 4, 7}},
		{"C:maj", []int{0, 4, 7}},
		{"A:min", []int{9, 0, 4}},
		{"Bb:7", []int{10, 2, 5, 8}},
		{"B:dim", []int{11, 2, 5}},
		{"F#:hdim7", []int{6, 9, 0, 4}},
		{"Db:maj/3", []int{1, 5, 8}},
		{"Cb", []int{11, 3, 6}},
		{"C:(1,3,5)", []int{0, 4, 7}},
		{"C:(1,b3,5)", []int{0, 3, 7}},
		{"C:maj(9)", []int{0, 4, 7, 2}},
		{"C:min(*3)", []int{0, 7}},
		{"C:maj/b7", []int{0, 4, 7, 10}},
		{"G:7(#9)", []int{7, 11, 2, 5, 10}},
		{"A:min/5", []int{9, 0, 4}},
		{"D:(1, 5)", []int{2, 9}},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := d.Notes(tt.label)
			if err != nil {
				t.Fatalf("Notes(%q) error = %v", tt.label, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Notes(%q) = %v, want %v", tt.label, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Notes(%q) = %v, want %v", tt.label, got, tt.want)
				}
			}
		})
	}
}

func TestDictionary_NotesErrors(t *testing.T) {
	d := NewDictionary()
	for _, label := range []string{
		"", "H:maj", "C:weird", "C#x", ":min", "C:",
		"C:(1,3", "C:maj(x)", "C:maj(14)", "C:maj/*3", "C:(*1)", "C:maj(,)",
	} {
		if _, err := d.Notes(label); err == nil {
			t.Errorf("Notes(%q) expected error", label)
		}
	}
}

func TestDictionary_Shorthand(t *testing.T) {
	d := NewDictionary()

	tests := []struct {
		notes  []int
		want   string
		wantOK bool
	}{
		{[]int{NoChord}, "N", true},
		{[]int{0, 4, 7}, "C:maj", true},
		{[]int{9, 0, 4}, "A:min", true},
		{[]int{11, 2, 5}, "B:dim", true},
		{[]int{0, 4, 8}, "C:aug", true},
		{[]int{2, 5, 8, 0}, "D:hdim7", true},
		{[]int{2, 5, 11}, "B:dim", true},
		{[]int{4, 7, 0}, "C:maj", true},
		{[]int{0, 1, 2}, "", false},
		{nil, "", false},
	}

	for _, tt := range tests {
		got, ok := d.Shorthand(tt.notes)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("Shorthand(%v) = %q, %v; want %q, %v", tt.notes, got, ok, tt.want, tt.wantOK)
		}
	}

	// Round trip through labels
	for _, label := range []string{"G:maj7", "E:min7", "A:sus4", "C:dim7"} {
		notes, err := d.Notes(label)
		if err != nil {
			t.Fatalf("Notes(%q) error = %v", label, err)
		}
		if got, _ := d.Shorthand(notes); got != label {
			t.Errorf("Shorthand(Notes(%q)) = %q", label, got)
		}
	}
}

func TestFuzzyOverlap(t *testing.T) {
	f := NewFuzzyOverlap(NewDictionary())

	tests := []struct {
		name string
		gt   []int
		sys  []int
		want float64
	}{
		{"both no chord", []int{NoChord}, []int{NoChord}, 1},
		{"gt no chord, sys note", []int{NoChord}, []int{0}, 0},
		{"sys no chord, gt chord", []int{0, 4, 7}, []int{NoChord}, 0},
		{"gt unset", nil, []int{0, 4, 7}, 0},
		{"sys unset", []int{0, 4, 7}, nil, 0},
		{"exact triad", []int{0, 4, 7}, []int{0, 4, 7}, 1},
		{"triad reordered", []int{0, 4, 7}, []int{7, 0, 4}, 1},
		{"seventh over triad", []int{0, 4, 7}, []int{0, 4, 7, 10}, 1},
		{"two of three on major", []int{0, 4, 7}, []int{0, 4}, 0},
		{"relative minor shares two", []int{0, 4, 7}, []int{9, 0, 4}, 0},
		{"two of three on diminished", []int{11, 2, 5}, []int{11, 2}, 1},
		{"two of three on augmented", []int{0, 4, 8}, []int{4, 8, 1}, 1},
		{"one of three on diminished", []int{11, 2, 5}, []int{11, 7}, 0},
		{"two on half diminished", []int{2, 5, 8, 0}, []int{5, 8}, 1},
		{"diminished given as sorted set", []int{2, 5, 11}, []int{2, 5}, 1},
		{"augmented given from its third", []int{4, 8, 0}, []int{8, 0}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Overlap(tt.gt, tt.sys); got != tt.want {
				t.Errorf("Overlap(%v, %v) = %v, want %v", tt.gt, tt.sys, got, tt.want)
			}
		})
	}
}

func TestStrictOverlap(t *testing.T) {
	s := StrictOverlap{}

	tests := []struct {
		name string
		gt   []int
		sys  []int
		want float64
	}{
		{"identical", []int{0, 4, 7}, []int{0, 4, 7}, 1},
		{"reordered", []int{0, 4, 7}, []int{4, 0, 7}, 0},
		{"superset", []int{0, 4, 7}, []int{0, 4, 7, 10}, 0},
		{"no chord", []int{NoChord}, []int{NoChord}, 1},
		{"unset", nil, []int{NoChord}, 0},
		{"dim with two notes", []int{11, 2, 5}, []int{11, 2}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Overlap(tt.gt, tt.sys); got != tt.want {
				t.Errorf("Overlap(%v, %v) = %v, want %v", tt.gt, tt.sys, got, tt.want)
			}
		})
	}
}

func song() []Segment {
	return []Segment{
		{Onset: 0, Offset: 0.5, Notes: []int{NoChord}},
		{Onset: 0.5, Offset: 1.3, Notes: []int{0, 4, 7}},
		{Onset: 1.3, Offset: 2.1, Notes: []int{7, 11, 2}},
		{Onset: 2.1, Offset: 3.0, Notes: []int{9, 0, 4}},
	}
}

func TestEvaluate_IdenticalSequences(t *testing.T) {
	for _, strategy := range []OverlapStrategy{NewFuzzyOverlap(NewDictionary()), StrictOverlap{}} {
		e := NewEvaluator(strategy)
		score, err := e.Evaluate("t", song(), song())
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		if got := score.Metrics[MetricOverlapRatio]; !approx(got, 1) {
			t.Errorf("%T: ratio = %v, want 1", strategy, got)
		}
		if score.Weight != 3000 {
			t.Errorf("%T: weight = %v, want 3000", strategy, score.Weight)
		}
	}
}

func TestEvaluate_PartialOverlap(t *testing.T) {
	e := NewEvaluator(NewFuzzyOverlap(NewDictionary()))

	gt := []Segment{
		{Onset: 0, Offset: 1, Notes: []int{0, 4, 7}},
		{Onset: 1, Offset: 2, Notes: []int{5, 9, 0}},
	}
	sys := []Segment{
		{Onset: 0, Offset: 1.5, Notes: []int{0, 4, 7}},
		{Onset: 1.5, Offset: 2, Notes: []int{5, 9, 0}},
	}

	score, err := e.Evaluate("t", sys, gt)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	// 1.5 s of 2 s agree
	if got := score.Metrics[MetricOverlapRatio]; !approx(got, 0.75) {
		t.Errorf("ratio = %v, want 0.75", got)
	}
}

func TestEvaluate_ShortSystemOutput(t *testing.T) {
	e := NewEvaluator(NewFuzzyOverlap(NewDictionary()))

	gt := []Segment{{Onset: 0, Offset: 4, Notes: []int{0, 4, 7}}}
	sys := []Segment{{Onset: 0, Offset: 1, Notes: []int{0, 4, 7}}}

	score, err := e.Evaluate("t", sys, gt)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	// Denominator is the ground-truth length.
	if got := score.Metrics[MetricOverlapRatio]; !approx(got, 0.25) {
		t.Errorf("ratio = %v, want 0.25", got)
	}
}

func TestEvaluate_LongerSystemOutputIgnored(t *testing.T) {
	e := NewEvaluator(NewFuzzyOverlap(NewDictionary()))

	gt := []Segment{{Onset: 0, Offset: 1, Notes: []int{0, 4, 7}}}
	sys := []Segment{{Onset: 0, Offset: 5, Notes: []int{0, 4, 7}}}

	score, err := e.Evaluate("t", sys, gt)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if got := score.Metrics[MetricOverlapRatio]; !approx(got, 1) {
		t.Errorf("ratio = %v, want 1", got)
	}
}

func TestEvaluate_GapsScoreZero(t *testing.T) {
	e := NewEvaluator(StrictOverlap{})

	gt := []Segment{{Onset: 0, Offset: 2, Notes: []int{0, 4, 7}}}
	sys := []Segment{
		{Onset: 0, Offset: 0.5, Notes: []int{0, 4, 7}},
		{Onset: 1.5, Offset: 2, Notes: []int{0, 4, 7}},
	}

	score, err := e.Evaluate("t", sys, gt)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if got := score.Metrics[MetricOverlapRatio]; !approx(got, 0.5) {
		t.Errorf("ratio = %v, want 0.5", got)
	}
}

func TestEvaluate_ZeroLengthGroundTruth(t *testing.T) {
	e := NewEvaluator(StrictOverlap{})

	for _, gt := range [][]Segment{nil, {{Onset: 0, Offset: 0.0004, Notes: []int{0, 4, 7}}}} {
		_, err := e.Evaluate("t", song(), gt)
		if !errors.IsInvalidGroundTruth(err) {
			t.Errorf("Evaluate() error = %v, want INVALID_GROUND_TRUTH", err)
		}
	}
}

func TestEvaluate_ZeroLengthSystemOutput(t *testing.T) {
	e := NewEvaluator(StrictOverlap{})

	score, err := e.Evaluate("t", nil, song())
	if !errors.IsInvalidResult(err) {
		t.Fatalf("Evaluate() error = %v, want INVALID_RESULT", err)
	}
	if errors.IsFatal(err) {
		t.Error("empty system output should be recoverable")
	}
	if score.Metrics[MetricOverlapRatio] != 0 || score.Weight != 3000 {
		t.Errorf("score = %+v, want ratio 0 weight 3000", score)
	}
}

func TestEvaluate_RatioBounds(t *testing.T) {
	e := NewEvaluator(NewFuzzyOverlap(NewDictionary()))
	systems := [][]Segment{
		song(),
		{{Onset: 0, Offset: 10, Notes: []int{NoChord}}},
		{{Onset: 0.25, Offset: 0.75, Notes: []int{0, 4, 7}}, {Onset: 2, Offset: 2.9, Notes: []int{9, 0, 4}}},
		{{Onset: 0, Offset: 3, Notes: []int{0, 4, 7, 9}}},
	}

	for i, sys := range systems {
		score, err := e.Evaluate("t", sys, song())
		if err != nil {
			t.Fatalf("system %d: Evaluate() error = %v", i, err)
		}
		if r := score.Metrics[MetricOverlapRatio]; r < 0 || r > 1 {
			t.Errorf("system %d: ratio = %v out of [0,1]", i, r)
		}
	}
}

func TestSummarize_WeightedAverage(t *testing.T) {
	e := NewEvaluator(StrictOverlap{})

	scores := []evaluation.TrackScore{
		{TrackID: "a", Metrics: evaluation.Record{MetricOverlapRatio: 0.5}, Weight: 1000},
		{TrackID: "b", Metrics: evaluation.Record{MetricOverlapRatio: 1.0}, Weight: 2000},
	}

	rec := e.Summarize(scores)

	if got := rec[MetricOverlapRatio]; !approx(got, 0.75) {
		t.Errorf("mean = %v, want 0.75", got)
	}
	want := (0.5*1000 + 1.0*2000) / 3000
	if got := rec[MetricWeightedOverlapRatio]; !approx(got, want) {
		t.Errorf("weighted = %v, want %v", got, want)
	}
	if !approx(want, 0.8333333333333334) {
		t.Fatalf("sanity: %v", want)
	}
}

func TestEvaluator_TaskContract(t *testing.T) {
	var task evaluation.Task[[]Segment] = NewEvaluator(StrictOverlap{})

	if task.Name() != TaskName {
		t.Errorf("Name() = %s, want %s", task.Name(), TaskName)
	}
	if len(task.Metrics()) != 1 || len(task.SummaryMetrics()) != 2 {
		t.Errorf("metrics = %v / %v", task.Metrics(), task.SummaryMetrics())
	}
}
