package dataset

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nemaeval/nema-eval/internal/evaluation/chord"
	"github.com/nemaeval/nema-eval/internal/evaluation/key"
	"github.com/nemaeval/nema-eval/internal/pkg/errors"
	"github.com/nemaeval/nema-eval/internal/pkg/logger"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

const keyManifest = `
name: key-test
task: key
ground_truth: gt
exclude: ["*.old.key"]
folds:
  - name: fold1
    tracks: [t01, t02]
  - name: fold2
    tracks: [t03]
jobs:
  - id: sys1
    name: System One
    dir: results/sys1
`

func TestParseManifest_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"missing name", "task: key\nground_truth: gt\nfolds: [{name: f}]\njobs: [{id: a, dir: a}]", "name is required"},
		{"unknown task", "name: x\ntask: beat\nground_truth: gt\nfolds: [{name: f}]\njobs: [{id: a, dir: a}]", "unknown task"},
		{"no folds", "name: x\ntask: key\nground_truth: gt\njobs: [{id: a, dir: a}]", "at least one fold"},
		{"duplicate fold", "name: x\ntask: key\nground_truth: gt\nfolds: [{name: f}, {name: f}]\njobs: [{id: a, dir: a}]", "duplicate fold: f"},
		{"duplicate job", "name: x\ntask: key\nground_truth: gt\nfolds: [{name: f}]\njobs: [{id: a, dir: a}, {id: a, dir: b}]", "duplicate job: a"},
		{"job without dir", "name: x\ntask: key\nground_truth: gt\nfolds: [{name: f}]\njobs: [{id: a}]", "job a has no dir"},
		{"job id with slash", "name: x\ntask: key\nground_truth: gt\nfolds: [{name: f}]\njobs: [{id: a/b, dir: a}]", "validation failed for job id"},
		{"fold name with space", "name: x\ntask: key\nground_truth: gt\nfolds: [{name: fold 1}]\njobs: [{id: a, dir: a}]", "validation failed for fold name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.IsValidation(err) {
				t.Errorf("error code = %s, want VALIDATION_ERROR", errors.CodeOf(err))
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.yaml")
	writeFile(t, path, keyManifest)

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}

	exp := m.Experiment()
	if exp.Name != "key-test" || exp.Task != "key" || len(exp.Folds) != 2 {
		t.Errorf("Experiment() = %+v", exp)
	}
	if got := m.Resolve("gt"); got != filepath.Join(dir, "gt") {
		t.Errorf("Resolve(gt) = %q", got)
	}
	if got := m.Resolve("/abs"); got != "/abs" {
		t.Errorf("Resolve(/abs) = %q", got)
	}
	if dirs := m.Dirs(); len(dirs) != 2 || dirs[1] != filepath.Join(dir, "results/sys1") {
		t.Errorf("Dirs() = %v", dirs)
	}
}

func TestManifest_Ignore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.yaml")
	writeFile(t, path, keyManifest)

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}

	tests := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{filepath.Join(dir, "gt", "t01.key"), false, false},
		{filepath.Join(dir, "gt", ".t01.key.swp"), false, true},
		{filepath.Join(dir, "results", "sys1", "fold1", "t02.old.key"), false, true},
		{filepath.Join(dir, "results", "sys1", "fold1", "t02.key"), false, false},
		{filepath.Join(dir, "results", "sys1", ".cache"), true, true},
		{filepath.Join(dir, "results", "sys1"), true, false},
		{filepath.Join(dir, "elsewhere", "x.tmp"), false, false},
	}

	for _, tt := range tests {
		if got := m.Ignore(tt.path, tt.isDir); got != tt.want {
			t.Errorf("Ignore(%s) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestLoadManifest_Missing(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.IsNotFound(err) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}

func TestLoad_Key(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "manifest.yaml"), keyManifest)
	writeFile(t, filepath.Join(dir, "gt", "t01.key"), "C major\n")
	writeFile(t, filepath.Join(dir, "gt", "t02.key"), "# annotated\nA minor\n")
	writeFile(t, filepath.Join(dir, "gt", "t03.key"), "Eb major\n")
	writeFile(t, filepath.Join(dir, "gt", "notes.txt"), "not a key file")
	writeFile(t, filepath.Join(dir, "results", "sys1", "fold1", "t01.key"), "C major\n")
	writeFile(t, filepath.Join(dir, "results", "sys1", "fold1", "t02.key"), "\n")
	writeFile(t, filepath.Join(dir, "results", "sys1", "fold1", "t02.old.key"), "G major\n")
	writeFile(t, filepath.Join(dir, "results", "sys1", "fold2", "t03.key"), "C minor\n")
	writeFile(t, filepath.Join(dir, "results", "sys1", "fold2", ".hidden.key"), "C minor\n")

	m, err := LoadManifest(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}

	var buf bytes.Buffer
	ds, err := Load(m, KeyFormat(), logger.NewWithWriter(&buf, "info", "text"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if ds.GroundTruth.Len() != 3 {
		t.Errorf("ground truth has %d tracks, want 3", ds.GroundTruth.Len())
	}
	gt, err := ds.GroundTruth.Get("t02")
	if err != nil || gt != (key.Key{Tonic: "A", Mode: "minor"}) {
		t.Errorf("Get(t02) = %v, %v", gt, err)
	}

	if len(ds.Jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(ds.Jobs))
	}
	job := ds.Jobs[0]
	if job.ID != "sys1" || job.Name != "System One" {
		t.Errorf("job = %s/%s", job.ID, job.Name)
	}

	// t02 is empty and skipped; the excluded and hidden files never load.
	if got := job.Results["fold1"]; len(got) != 1 || got[0].TrackID != "t01" {
		t.Errorf("fold1 results = %+v", got)
	}
	if got := job.Results["fold2"]; len(got) != 1 || got[0].TrackID != "t03" {
		t.Errorf("fold2 results = %+v", got)
	}
	if !strings.Contains(buf.String(), "Unreadable result skipped") || !strings.Contains(buf.String(), "track=t02") {
		t.Errorf("expected warning for t02, got: %s", buf.String())
	}
}

func TestLoad_BadGroundTruth(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "manifest.yaml"), keyManifest)
	writeFile(t, filepath.Join(dir, "gt", "t01.key"), "C\n")
	writeFile(t, filepath.Join(dir, "results", "sys1", "fold1", "t01.key"), "C major\n")

	m, err := LoadManifest(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}

	_, err = Load(m, KeyFormat(), logger.Discard())
	if !errors.IsInvalidGroundTruth(err) {
		t.Errorf("Load() error = %v, want INVALID_GROUND_TRUTH", err)
	}
}

func TestLoad_MissingJobDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "manifest.yaml"), keyManifest)
	writeFile(t, filepath.Join(dir, "gt", "t01.key"), "C major\n")

	m, err := LoadManifest(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}

	_, err = Load(m, KeyFormat(), logger.Discard())
	if !errors.IsNotFound(err) {
		t.Errorf("Load() error = %v, want NOT_FOUND", err)
	}
}

func TestChordFormat(t *testing.T) {
	input := `0.0 1.5 C:maj
1.5 2.0 N
# comment
2.0 3.25 A:min7
`
	segs, err := ChordFormat(chord.NewDictionary()).Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(segs) != 3 {
		t.Fatalf("got %d segments, want 3", len(segs))
	}
	if segs[1].Notes[0] != chord.NoChord {
		t.Errorf("segment 1 notes = %v, want no chord", segs[1].Notes)
	}
	if segs[2].Onset != 2.0 || segs[2].Offset != 3.25 || len(segs[2].Notes) != 4 {
		t.Errorf("segment 2 = %+v", segs[2])
	}

	for _, bad := range []string{"0 1", "x 1 C", "0 1 C:bogus", "2 1 C", "0 NaN C", "0 +Inf C", "NaN 1 C"} {
		if _, err := ChordFormat(chord.NewDictionary()).Parse(strings.NewReader(bad)); err == nil {
			t.Errorf("Parse(%q) expected error", bad)
		}
	}
}

func TestChordFormat_HarteDegrees(t *testing.T) {
	input := `0.0 1.0 C:(1,3,5)
1.0 2.0 C:maj(9)
2.0 3.0 C:min(*3)
3.0 4.0 G:7/3
4.0 5.0 F:maj/b7
`
	segs, err := ChordFormat(chord.NewDictionary()).Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := [][]int{
		{0, 4, 7},
		{0, 4, 7, 2},
		{0, 7},
		{7, 11, 2, 5},
		{5, 9, 0, 3},
	}
	if len(segs) != len(want) {
		t.Fatalf("got %d segments, want %d", len(segs), len(want))
	}
	for i, w := range want {
		got := segs[i].Notes
		if len(got) != len(w) {
			t.Errorf("segment %d notes = %v, want %v", i, got, w)
			continue
		}
		for j := range w {
			if got[j] != w[j] {
				t.Errorf("segment %d notes = %v, want %v", i, got, w)
				break
			}
		}
	}
}

func TestMelodyFormat(t *testing.T) {
	frames, err := MelodyFormat().Parse(strings.NewReader("0.00 0\n0.01\t440.5\n0.02 -220\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(frames) != 3 || frames[1].F0 != 440.5 || frames[2].F0 != -220 || frames[2].Time != 0.02 {
		t.Errorf("frames = %+v", frames)
	}

	for _, bad := range []string{"0.0 abc\n", "0.0 NaN\n", "Inf 220\n"} {
		if _, err := MelodyFormat().Parse(strings.NewReader(bad)); err == nil {
			t.Errorf("Parse(%q) expected error", bad)
		}
	}
}

func TestTempoFormat(t *testing.T) {
	tp, err := TempoFormat().Parse(strings.NewReader("120 60 0.7\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if tp.T1 != 120 || tp.T2 != 60 || tp.Salience != 0.7 {
		t.Errorf("tempo = %+v", tp)
	}

	tp, err = TempoFormat().Parse(strings.NewReader("90\t180\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if tp.Salience != defaultSalience {
		t.Errorf("salience = %v, want default %v", tp.Salience, defaultSalience)
	}

	for _, bad := range []string{"", "120", "120 x", "120 60 y", "NaN 60", "120 60 NaN"} {
		if _, err := TempoFormat().Parse(strings.NewReader(bad)); err == nil {
			t.Errorf("Parse(%q) expected error", bad)
		}
	}
}

func TestIsKnownTask(t *testing.T) {
	for _, name := range []string{"chord", "key", "melody", "tempo"} {
		if !IsKnownTask(name) {
			t.Errorf("IsKnownTask(%q) = false", name)
		}
	}
	if IsKnownTask("beat") {
		t.Error("IsKnownTask(beat) = true")
	}
}

func TestFingerprint(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "manifest.yaml"), keyManifest)
	writeFile(t, filepath.Join(dir, "gt", "t01.key"), "C major\n")
	writeFile(t, filepath.Join(dir, "results", "sys1", "fold1", "t01.key"), "C major\n")

	m, err := LoadManifest(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}

	first, err := Fingerprint(m)
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	again, _ := Fingerprint(m)
	if first != again {
		t.Errorf("Fingerprint not stable: %s != %s", first, again)
	}

	// Ignored files do not count.
	writeFile(t, filepath.Join(dir, "results", "sys1", "fold1", "t01.key.swp"), "junk")
	writeFile(t, filepath.Join(dir, "results", "sys1", "fold1", "t01.old.key"), "junk")
	if got, _ := Fingerprint(m); got != first {
		t.Error("ignored files changed the fingerprint")
	}

	writeFile(t, filepath.Join(dir, "results", "sys1", "fold1", "t01.key"), "G major\n")
	if got, _ := Fingerprint(m); got == first {
		t.Error("edited result did not change the fingerprint")
	}
}
