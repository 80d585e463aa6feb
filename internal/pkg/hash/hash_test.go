package hash

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSHA256(t *testing.T) {
	tests := []struct {
		input []byte
		want  string
	}{
		{
			[]byte("hello"),
			"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		},
		{
			[]byte(""),
			"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			got := SHA256(tt.input)
			if got != tt.want {
				t.Errorf("SHA256(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestSHA256Short(t *testing.T) {
	hash := SHA256([]byte("hello"))

	tests := []struct {
		n    int
		want string
	}{
		{8, hash[:8]},
		{16, hash[:16]},
		{64, hash},  // full hash
		{100, hash}, // exceeds length, returns full
	}

	for _, tt := range tests {
		got := SHA256Short([]byte("hello"), tt.n)
		if got != tt.want {
			t.Errorf("SHA256Short(hello, %d) = %s, want %s", tt.n, got, tt.want)
		}
	}
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t01.key")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := File(path)
	if err != nil {
		t.Fatalf("File() error = %v", err)
	}
	if got != SHA256([]byte("hello")) {
		t.Errorf("File() = %s, want hash of contents", got)
	}

	if _, err := File(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestManifest(t *testing.T) {
	a := Manifest(map[string]string{"gt/t01.key": "aa", "gt/t02.key": "bb"})
	b := Manifest(map[string]string{"gt/t02.key": "bb", "gt/t01.key": "aa"})
	if a != b {
		t.Errorf("Manifest depends on insertion order: %s != %s", a, b)
	}

	if c := Manifest(map[string]string{"gt/t01.key": "aa", "gt/t02.key": "bc"}); c == a {
		t.Error("content change did not change the hash")
	}
	// Names and contents must not run together.
	if Manifest(map[string]string{"ab": "c"}) == Manifest(map[string]string{"a": "bc"}) {
		t.Error("name/content boundary collision")
	}
	if Manifest(nil) != SHA256(nil) {
		t.Error("empty manifest should hash like empty input")
	}
}

func BenchmarkSHA256(b *testing.B) {
	data := []byte("benchmark test data for hashing performance measurement")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SHA256(data)
	}
}
