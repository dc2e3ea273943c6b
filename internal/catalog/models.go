package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexibleID handles catalog identifiers that providers return as either
// JSON strings or numbers.
type FlexibleID string

// UnmarshalJSON implements custom unmarshaling for FlexibleID
func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	// Try to unmarshal as string first
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleID(s)
		return nil
	}

	// Try to unmarshal as number
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleID(n.String())
		return nil
	}

	return fmt.Errorf("FlexibleID must be a string or number")
}

// String returns the string representation
func (f FlexibleID) String() string {
	return string(f)
}

// Int64 returns the int64 representation
func (f FlexibleID) Int64() (int64, error) {
	return strconv.ParseInt(string(f), 10, 64)
}

// FlexibleInt handles numeric fields that providers return as either JSON
// numbers or numeric strings.
type FlexibleInt int

// UnmarshalJSON implements custom unmarshaling for FlexibleInt
func (f *FlexibleInt) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		v, err := n.Int64()
		if err != nil {
			return err
		}
		*f = FlexibleInt(v)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("FlexibleInt: %w", err)
		}
		*f = FlexibleInt(v)
		return nil
	}

	return fmt.Errorf("FlexibleInt must be a number or numeric string")
}

// Int returns the int representation
func (f FlexibleInt) Int() int {
	return int(f)
}

// Kind classifies a catalog item
type Kind string

const (
	KindMovie  Kind = "movie"
	KindSeries Kind = "series"
)

// Valid reports whether k is a known catalog kind
func (k Kind) Valid() bool {
	return k == KindMovie || k == KindSeries
}

// Category represents a VOD or series category
type Category struct {
	ID   FlexibleID `json:"category_id"`
	Name string     `json:"category_name"`

	// Kind tags the category so the right stream listing call can be made
	// later; the provider API does not include it.
	Kind Kind `json:"-"`
}

// DisplayName returns the category name prefixed with its kind tag
func (c *Category) DisplayName() string {
	if c.Kind == KindSeries {
		return "[Series] " + c.Name
	}
	return "[Movie] " + c.Name
}

// Stream represents a single VOD stream (a movie)
type Stream struct {
	ID        FlexibleID `json:"stream_id"`
	Name      string     `json:"name"`
	Icon      string     `json:"stream_icon"`
	Extension string     `json:"container_extension"`
}

// Series represents a TV show entry in a series category
type Series struct {
	ID    FlexibleID `json:"series_id"`
	Name  string     `json:"name"`
	Cover string     `json:"cover"`
}

// Episode represents one episode of a series
type Episode struct {
	ID        FlexibleID  `json:"id"`
	Title     string      `json:"title"`
	Season    FlexibleInt `json:"season"`
	Number    FlexibleInt `json:"episode_num"`
	Extension string      `json:"container_extension"`
}

// SeriesInfo represents the detail response for one series, with the
// provider's per-season episode map flattened into a single list.
type SeriesInfo struct {
	Name     string
	Episodes []Episode
}
