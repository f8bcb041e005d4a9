// DamifeZion | 2026
// catalog.go

package plan

import (
	"log/slog"
)

const (
	NameFree     = "free"
	NameBasic    = "basic"
	NameStandard = "standard"
	NamePremium  = "premium"
	NameFamily   = "family"
)

// Unlimited marks a feature with no numeric cap (family streams and
// profiles).
const Unlimited = -1

type ContentType string

const (
	ContentTrailers ContentType = "trailers"
	ContentVideos   ContentType = "videos"
)

type Features struct {
	ContentAccess       ContentType `json:"content_access"`
	VideoQuality        string      `json:"video_quality"`
	SimultaneousStreams int         `json:"simultaneous_streams"`
	MaxProfiles         int         `json:"max_profiles"`
	Ads                 bool        `json:"ads"`
	OfflineDownloads    bool        `json:"offline_downloads"`
	ExclusiveContent    bool        `json:"exclusive_content"`
	WatchParty          bool        `json:"watch_party"`
	ParentalControls    bool        `json:"parental_controls"`
}

type Entry struct {
	Name     string   `json:"name"`
	Cost     int      `json:"cost"`
	Features Features `json:"features"`
}

// contentBoth grants every content type; a specific value grants only
// itself.
const contentBoth ContentType = "both"

var catalog = map[string]Entry{
	NameFree: {
		Name: NameFree,
		Cost: 0,
		Features: Features{
			ContentAccess:       ContentTrailers,
			VideoQuality:        "SD",
			SimultaneousStreams: 1,
			MaxProfiles:         1,
			Ads:                 true,
		},
	},
	NameBasic: {
		Name: NameBasic,
		Cost: 8,
		Features: Features{
			ContentAccess:       contentBoth,
			VideoQuality:        "SD",
			SimultaneousStreams: 1,
			MaxProfiles:         2,
			ParentalControls:    true,
		},
	},
	NameStandard: {
		Name: NameStandard,
		Cost: 12,
		Features: Features{
			ContentAccess:       contentBoth,
			VideoQuality:        "HD",
			SimultaneousStreams: 2,
			MaxProfiles:         3,
			OfflineDownloads:    true,
			WatchParty:          true,
			ParentalControls:    true,
		},
	},
	NamePremium: {
		Name: NamePremium,
		Cost: 18,
		Features: Features{
			ContentAccess:       contentBoth,
			VideoQuality:        "4K",
			SimultaneousStreams: 4,
			MaxProfiles:         6,
			OfflineDownloads:    true,
			ExclusiveContent:    true,
			WatchParty:          true,
			ParentalControls:    true,
		},
	},
	NameFamily: {
		Name: NameFamily,
		Cost: 25,
		Features: Features{
			ContentAccess:       contentBoth,
			VideoQuality:        "4K",
			SimultaneousStreams: Unlimited,
			MaxProfiles:         Unlimited,
			OfflineDownloads:    true,
			ExclusiveContent:    true,
			WatchParty:          true,
			ParentalControls:    true,
		},
	},
}

var catalogOrder = []string{
	NameFree,
	NameBasic,
	NameStandard,
	NamePremium,
	NameFamily,
}

// Lookup returns the catalog entry for a plan name.
func Lookup(name string) (Entry, bool) {
	entry, ok := catalog[name]
	return entry, ok
}

// Catalog returns every plan entry in tier order.
func Catalog() []Entry {
	entries := make([]Entry, 0, len(catalogOrder))
	for _, name := range catalogOrder {
		entries = append(entries, catalog[name])
	}
	return entries
}

// CanAccessContent reports whether a plan grants the requested content
// type. Unknown plan names deny access and log a warning rather than
// failing.
func CanAccessContent(name string, content ContentType) bool {
	entry, ok := catalog[name]
	if !ok {
		slog.Warn("content access check for unknown plan", "plan", name)
		return false
	}

	if entry.Features.ContentAccess == contentBoth {
		return true
	}

	return entry.Features.ContentAccess == content
}
