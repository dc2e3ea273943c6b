package queue

import (
	"strings"

	"github.com/LambTjops/vod-downloader/internal/catalog"
)

// Job is a queued request to fetch one catalog item to a destination path.
// Jobs are immutable once created and owned by the JobQueue until handed
// to the worker.
type Job struct {
	ID              string       `json:"id"`
	URL             string       `json:"-"`
	DestinationPath string       `json:"-"`
	DisplayName     string       `json:"display_name"`
	Kind            catalog.Kind `json:"kind"`
	ItemID          string       `json:"item_id"`
}

// ItemID builds the stable key identifying a catalog entry independent of
// its eventual filename.
func ItemID(kind catalog.Kind, catalogID string) string {
	return string(kind) + ":" + catalogID
}

// invalidFilenameChars are characters illegal in filesystem paths
const invalidFilenameChars = `<>:"/\|?*`

// SanitizeFilename removes characters illegal in filesystem paths and
// trims surrounding whitespace.
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	for _, r := range name {
		if r == 0 || strings.ContainsRune(invalidFilenameChars, r) {
			continue
		}
		b.WriteRune(r)
	}

	return strings.TrimSpace(b.String())
}
