package match

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Some Movie.mp4", "some movie"},
		{"Some__Movie--2020.mkv", "some movie 2020"},
		{"  Show.Name.S01E01.mkv", "show name s01e01"},
		{"UPPER CASE.avi", "upper case"},
		{"a - b_c-d.mp4", "a b c d"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.input); got != tt.expected {
			t.Errorf("Normalize(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestParseEpisode(t *testing.T) {
	parsed := Parse("Show Name - S02E05 - Title.mkv")

	if parsed.Type != TypeEpisode {
		t.Fatalf("Expected episode, got %s", parsed.Type)
	}
	if parsed.Season != 2 || parsed.Episode != 5 {
		t.Errorf("Expected S2E5, got S%dE%d", parsed.Season, parsed.Episode)
	}
	if parsed.Name != "show name" {
		t.Errorf("Expected series name %q, got %q", "show name", parsed.Name)
	}
}

func TestParseEpisodeCaseInsensitive(t *testing.T) {
	parsed := Parse("show.name.s10e12.1080p.mkv")

	if parsed.Type != TypeEpisode {
		t.Fatalf("Expected episode, got %s", parsed.Type)
	}
	if parsed.Season != 10 || parsed.Episode != 12 {
		t.Errorf("Expected S10E12, got S%dE%d", parsed.Season, parsed.Episode)
	}
}

func TestParseMovie(t *testing.T) {
	parsed := Parse("Some Movie.mp4")

	if parsed.Type != TypeMovie {
		t.Fatalf("Expected movie, got %s", parsed.Type)
	}
	if parsed.Name != "some movie" {
		t.Errorf("Expected normalized name %q, got %q", "some movie", parsed.Name)
	}
	if parsed.Season != 0 || parsed.Episode != 0 {
		t.Error("Expected no season/episode for a movie")
	}
}

func TestNamesCompatible(t *testing.T) {
	tests := []struct {
		name      string
		a, b      string
		tolerance float64
		expected  bool
	}{
		{"identical", "some movie", "some movie", 0.5, true},
		{"substring within tolerance", "some movie", "some movie 2020", 0.5, true},
		{"no substring relation", "some movie", "другое кино", 0.5, false},
		{"short accidental substring", "it", "white noise visitation", 0.5, false},
		{"empty name", "", "some movie", 0.5, false},
		{"tight tolerance rejects", "movie", "movie extended directors cut", 0.2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NamesCompatible(tt.a, tt.b, tt.tolerance); got != tt.expected {
				t.Errorf("NamesCompatible(%q, %q, %v) = %v, expected %v",
					tt.a, tt.b, tt.tolerance, got, tt.expected)
			}
		})
	}
}

// writeFile creates a file of the given size in dir
func writeFile(t *testing.T, dir, name string, size int64) {
	t.Helper()

	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("Failed to create %s: %v", name, err)
	}
	defer f.Close()

	if err := f.Truncate(size); err != nil {
		t.Fatalf("Failed to size %s: %v", name, err)
	}
}

func TestScanIndexesFilesAboveSizeFloor(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Some Movie.mp4", 5<<20)
	writeFile(t, dir, "Show Name - S01E02.mkv", 2<<20)
	writeFile(t, dir, "error page.mp4", 100) // below the 1 MiB floor
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0755); err != nil {
		t.Fatal(err)
	}

	m := NewMatcher(0.5, 1, zap.NewNop())

	count, err := m.Scan(dir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if count != 2 {
		t.Errorf("Expected 2 indexed files, got %d", count)
	}
}

func TestScanReplacesIndexWholesale(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Old Movie.mp4", 5<<20)

	m := NewMatcher(0.5, 1, zap.NewNop())
	if _, err := m.Scan(dir); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if err := os.Remove(filepath.Join(dir, "Old Movie.mp4")); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "New Movie.mp4", 5<<20)

	if _, err := m.Scan(dir); err != nil {
		t.Fatalf("Second scan failed: %v", err)
	}

	if _, ok := m.MatchMovie("Old Movie"); ok {
		t.Error("Expected old entry to be gone after rescan")
	}
	if _, ok := m.MatchMovie("New Movie"); !ok {
		t.Error("Expected new entry after rescan")
	}
}

func TestMatchMovie(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Some Movie 2020.mp4", 5<<20)

	m := NewMatcher(0.5, 1, zap.NewNop())
	if _, err := m.Scan(dir); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	rec, ok := m.MatchMovie("Some Movie")
	if !ok {
		t.Fatal("Expected a movie match")
	}
	if rec.Filename != "Some Movie 2020.mp4" {
		t.Errorf("Unexpected match: %s", rec.Filename)
	}

	if _, ok := m.MatchMovie("Completely Different"); ok {
		t.Error("Expected no match for unrelated title")
	}
}

func TestMatchEpisode(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Show Name - S02E05 - Title.mkv", 5<<20)

	m := NewMatcher(0.5, 1, zap.NewNop())
	if _, err := m.Scan(dir); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if _, ok := m.MatchEpisode("Show Name", 2, 5); !ok {
		t.Error("Expected an episode match")
	}

	// Exact season/episode equality is required
	if _, ok := m.MatchEpisode("Show Name", 2, 6); ok {
		t.Error("Expected no match for different episode number")
	}

	if _, ok := m.MatchEpisode("Other Show", 2, 5); ok {
		t.Error("Expected no match for different series")
	}
}

func TestMatcherDoesNotMatchAcrossTypes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Show Name - S01E01.mkv", 5<<20)

	m := NewMatcher(0.5, 1, zap.NewNop())
	if _, err := m.Scan(dir); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if _, ok := m.MatchMovie("Show Name"); ok {
		t.Error("Expected episode file not to match as a movie")
	}
}
