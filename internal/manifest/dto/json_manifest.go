package dto

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/handiism/mc-downloader/internal/model"
)

// Timestamp handles the listing's ISO-8601 times, tolerating empty values.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON parses "2023-06-12T13:25:51+00:00" style timestamps.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	if s == "" {
		ts.Time = time.Time{}
		return nil
	}

	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05Z0700",
		"2006-01-02T15:04:05",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			ts.Time = t
			return nil
		}
	}

	return fmt.Errorf("unable to parse time: %s", s)
}

// JSONManifest is the version_manifest.json listing.
type JSONManifest struct {
	Latest   JSONLatest         `json:"latest"`
	Versions []JSONVersionEntry `json:"versions"`
}

// JSONLatest names the newest release and snapshot.
type JSONLatest struct {
	Release  string `json:"release"`
	Snapshot string `json:"snapshot"`
}

// JSONVersionEntry is one release in the listing.
type JSONVersionEntry struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	URL         string    `json:"url"`
	Time        Timestamp `json:"time"`
	ReleaseTime Timestamp `json:"releaseTime"`
}

// ToSummaries converts the listing, dropping entries without id or URL.
func (jm *JSONManifest) ToSummaries() []model.ReleaseSummary {
	summaries := make([]model.ReleaseSummary, 0, len(jm.Versions))
	for _, v := range jm.Versions {
		if v.ID == "" || v.URL == "" {
			continue
		}
		summaries = append(summaries, model.ReleaseSummary{
			ID:          v.ID,
			Type:        v.Type,
			URL:         v.URL,
			Time:        v.Time.Time,
			ReleaseTime: v.ReleaseTime.Time,
		})
	}
	return summaries
}
