package match

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MediaType classifies a parsed filename
type MediaType string

const (
	TypeMovie   MediaType = "movie"
	TypeEpisode MediaType = "episode"
)

// ParsedName is the structured metadata extracted from a filename
type ParsedName struct {
	Type    MediaType
	Name    string // normalized movie name, or series name for episodes
	Season  int
	Episode int
}

// FileRecord describes a media file found in the download directory.
// Records are transient: the index is rebuilt wholesale on each scan.
type FileRecord struct {
	Key       string // normalized filename, the index key
	Filename  string
	SizeMB    float64
	ScannedAt int64
	Parsed    ParsedName
}

// seasonEpisodePattern matches S<number>E<number> in a normalized name
var seasonEpisodePattern = regexp.MustCompile(`\bs(\d{1,3})\s*e(\d{1,3})\b`)

// separatorRuns collapses runs of spaces, dashes, dots and underscores
var separatorRuns = regexp.MustCompile(`[\s\-_.]+`)

// Normalize strips the extension, lowercases, collapses separator runs to
// single spaces and trims.
func Normalize(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	base = strings.ToLower(base)
	base = separatorRuns.ReplaceAllString(base, " ")
	return strings.TrimSpace(base)
}

// Parse extracts structured metadata from a filename. A name containing a
// season/episode pattern is classified as an episode with the preceding
// substring as the series name; anything else is a movie keyed by its
// normalized name.
func Parse(filename string) ParsedName {
	normalized := Normalize(filename)

	loc := seasonEpisodePattern.FindStringSubmatchIndex(normalized)
	if loc == nil {
		return ParsedName{Type: TypeMovie, Name: normalized}
	}

	season, _ := strconv.Atoi(normalized[loc[2]:loc[3]])
	episode, _ := strconv.Atoi(normalized[loc[4]:loc[5]])
	series := strings.TrimSpace(normalized[:loc[0]])

	return ParsedName{
		Type:    TypeEpisode,
		Name:    series,
		Season:  season,
		Episode: episode,
	}
}

// NamesCompatible reports whether two normalized names are close enough to
// refer to the same title: one must contain the other, and their lengths
// must differ by less than tolerance times the longer length. The tolerance
// guards against short accidental substrings ("it" matching "white noise").
func NamesCompatible(a, b string, tolerance float64) bool {
	if a == "" || b == "" {
		return false
	}

	if !strings.Contains(a, b) && !strings.Contains(b, a) {
		return false
	}

	longer := len(a)
	if len(b) > longer {
		longer = len(b)
	}

	diff := len(a) - len(b)
	if diff < 0 {
		diff = -diff
	}

	return float64(diff) < tolerance*float64(longer)
}

// Matcher reconciles catalog entries against files already on disk
type Matcher struct {
	mu           sync.RWMutex
	index        map[string]FileRecord
	tolerance    float64
	minSizeBytes int64
	logger       *zap.Logger
}

// NewMatcher creates a matcher. Files below minFileSizeMB are ignored by
// scans; tolerance is the movie name length tolerance for NamesCompatible.
func NewMatcher(tolerance float64, minFileSizeMB int, logger *zap.Logger) *Matcher {
	return &Matcher{
		index:        make(map[string]FileRecord),
		tolerance:    tolerance,
		minSizeBytes: int64(minFileSizeMB) << 20,
		logger:       logger,
	}
}

// Scan lists regular files in the directory above the size floor, parses
// each name and rebuilds the index wholesale. It returns the number of
// files indexed.
func (m *Matcher) Scan(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read download directory: %w", err)
	}

	now := time.Now().Unix()
	index := make(map[string]FileRecord)

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			m.logger.Warn("skipping unreadable file",
				zap.String("file", entry.Name()),
				zap.Error(err))
			continue
		}

		if info.Size() < m.minSizeBytes {
			continue
		}

		key := Normalize(entry.Name())
		index[key] = FileRecord{
			Key:       key,
			Filename:  entry.Name(),
			SizeMB:    float64(info.Size()) / (1 << 20),
			ScannedAt: now,
			Parsed:    Parse(entry.Name()),
		}
	}

	m.mu.Lock()
	m.index = index
	m.mu.Unlock()

	m.logger.Info("download directory scanned",
		zap.String("dir", dir),
		zap.Int("files", len(index)))

	return len(index), nil
}

// MatchMovie finds an indexed movie file whose name is compatible with the
// catalog title. It does not mutate state.
func (m *Matcher) MatchMovie(title string) (FileRecord, bool) {
	normalized := Normalize(title)

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, rec := range m.index {
		if rec.Parsed.Type != TypeMovie {
			continue
		}
		if NamesCompatible(rec.Parsed.Name, normalized, m.tolerance) {
			return rec, true
		}
	}

	return FileRecord{}, false
}

// MatchEpisode finds an indexed episode file with the exact season and
// episode numbers and a compatible series name.
func (m *Matcher) MatchEpisode(seriesName string, season, episode int) (FileRecord, bool) {
	normalized := Normalize(seriesName)

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, rec := range m.index {
		if rec.Parsed.Type != TypeEpisode {
			continue
		}
		if rec.Parsed.Season != season || rec.Parsed.Episode != episode {
			continue
		}
		if strings.Contains(rec.Parsed.Name, normalized) || strings.Contains(normalized, rec.Parsed.Name) {
			return rec, true
		}
	}

	return FileRecord{}, false
}

// IndexSize returns the number of files currently indexed
func (m *Matcher) IndexSize() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.index)
}
