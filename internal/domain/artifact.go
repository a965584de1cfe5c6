// Package domain holds the artifact records the archive publishes and
// displays, and the catalog queries the UI runs over them.
package domain

import "strings"

// Category is the endangerment status an artifact's language is filed under.
type Category string

const (
	CategorySafe       Category = "Safe"
	CategoryEndangered Category = "Endangered"
	CategoryVulnerable Category = "Vulnerable"
	CategoryExtinct    Category = "Extinct"

	// Uncategorized is the display value for absent or unrecognized categories.
	Uncategorized Category = ""
)

// Categories lists the recognized categories in display order.
var Categories = []Category{CategorySafe, CategoryEndangered, CategoryVulnerable, CategoryExtinct}

// IsKnown reports whether c is one of the four recognized categories.
// Matching is exact: the ledger payload's capitalization is significant.
func (c Category) IsKnown() bool {
	switch c {
	case CategorySafe, CategoryEndangered, CategoryVulnerable, CategoryExtinct:
		return true
	}
	return false
}

// Display returns c when it is recognized and Uncategorized otherwise.
func (c Category) Display() Category {
	if c.IsKnown() {
		return c
	}
	return Uncategorized
}

// ArtifactRecord is one display-ready catalog entry. URL fields are empty when
// the artifact has no content of that kind; a record with no URLs at all is
// still a valid entry.
type ArtifactRecord struct {
	Signature   string   `json:"signature,omitempty"`
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    Category `json:"category,omitempty"`
	PublishDate string   `json:"publishDate,omitempty"`
	VideoURL    string   `json:"videoUrl,omitempty"`
	AudioURL    string   `json:"audioUrl,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	FileURL     string   `json:"fileUrl,omitempty"`
}

// DisplayCategory is the record's category with unknown values folded into
// Uncategorized. The raw value stays available in Category.
func (r ArtifactRecord) DisplayCategory() Category {
	return r.Category.Display()
}

// HasContent reports whether at least one content URL is present.
func (r ArtifactRecord) HasContent() bool {
	return r.VideoURL != "" || r.AudioURL != "" || r.ImageURL != "" || r.FileURL != ""
}

// Metadata is the wire shape stored in the ledger log payload. Field order is
// fixed by this declaration, which keeps encoding deterministic.
type Metadata struct {
	IsInitialized bool     `json:"is_initialized"`
	Name          string   `json:"name" validate:"required,max=200"`
	Title         string   `json:"title" validate:"required,max=200"`
	Description   string   `json:"description" validate:"required,max=5000"`
	VideoFile     *string  `json:"videoFile" validate:"omitempty,cid"`
	AudioFile     *string  `json:"audioFile" validate:"omitempty,cid"`
	TextFile      *string  `json:"textFile" validate:"omitempty,cid"`
	ImageFile     *string  `json:"imageFile" validate:"omitempty,cid"`
	PublishDate   string   `json:"publishDate,omitempty" validate:"omitempty,datetime=02/01/2006"`
	Category      Category `json:"Category" validate:"required,category"`
}

// PublishDateLayout is the DD/MM/YYYY layout of Metadata.PublishDate.
const PublishDateLayout = "02/01/2006"

// Normalize returns m with blank content pointers set to nil. Forms submit
// an empty string for a file that was not uploaded; on the ledger that is an
// absent pointer.
func (m Metadata) Normalize() Metadata {
	for _, p := range []**string{&m.VideoFile, &m.AudioFile, &m.TextFile, &m.ImageFile} {
		if *p != nil && strings.TrimSpace(**p) == "" {
			*p = nil
		}
	}
	return m
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
