package domain

import "time"

// ChangeType classifies a ChangelogEntry.
type ChangeType string

const (
	ChangeAdded   ChangeType = "added"
	ChangeChanged ChangeType = "changed"
	ChangeRemoved ChangeType = "removed"
	ChangeFixed   ChangeType = "fixed"
	ChangeInitial ChangeType = "initial"
)

// ChangeCategory classifies what part of the system a ChangelogEntry
// describes.
type ChangeCategory string

const (
	CategoryModel         ChangeCategory = "model"
	CategoryConfiguration ChangeCategory = "configuration"
	CategoryFeature       ChangeCategory = "feature"
	CategoryDocumentation ChangeCategory = "documentation"
)

// FieldChange is one field-level delta recorded inside a ChangelogEntry.
type FieldChange struct {
	Component string      `json:"component"`
	Old       interface{} `json:"old"`
	New       interface{} `json:"new"`
}

// ChangelogEntry is one append-only record of a model or configuration
// change.
type ChangelogEntry struct {
	ID          string         `json:"id"`
	DateUTC     time.Time      `json:"date_utc"`
	Type        ChangeType     `json:"type"`
	Category    ChangeCategory `json:"category"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Affected    []string       `json:"affected"`
	Changes     []FieldChange  `json:"changes"`
	Author      string         `json:"author,omitempty"`
}
