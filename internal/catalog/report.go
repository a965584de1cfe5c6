package catalog

import (
	"time"

	"lpp-backend/internal/domain"
	"lpp-backend/internal/ledger"
	appErrors "lpp-backend/pkg/errors"
)

// Reason classifies what happened to one signature during a build.
type Reason string

const (
	ReasonDecoded   Reason = "decoded"
	ReasonTransport Reason = "transport"
	ReasonNotFound  Reason = "not_found"
	ReasonMalformed Reason = "malformed"
)

// reasonFor maps a fetch or decode error onto a skip reason.
func reasonFor(err error) Reason {
	switch {
	case err == nil:
		return ReasonDecoded
	case appErrors.IsNotFound(err):
		return ReasonNotFound
	case appErrors.IsMalformedRecord(err):
		return ReasonMalformed
	default:
		return ReasonTransport
	}
}

// ItemResult is the outcome for one signature. Record is set only when
// Reason is ReasonDecoded.
type ItemResult struct {
	Signature ledger.Signature       `json:"signature"`
	Reason    Reason                 `json:"reason"`
	Record    *domain.ArtifactRecord `json:"-"`
	Err       error                  `json:"-"`
}

// Report summarizes a build. Skips never fail a build; they are counted here
// by reason.
type Report struct {
	ListCalls  int            `json:"list_calls"`
	Signatures int            `json:"signatures"`
	Decoded    int            `json:"decoded"`
	Skipped    map[Reason]int `json:"skipped"`

	// Truncated is set when listing failed before the history ended.
	Truncated        bool   `json:"truncated"`
	EnumerationError string `json:"enumeration_error,omitempty"`

	Duration time.Duration `json:"duration_ns"`
	Items    []ItemResult  `json:"-"`
}

// SkippedItems returns the items that produced no record.
func (r Report) SkippedItems() []ItemResult {
	var out []ItemResult
	for _, item := range r.Items {
		if item.Reason != ReasonDecoded {
			out = append(out, item)
		}
	}
	return out
}

// Catalog is one build's result. It is shared through the session cache and
// must not be modified after Build returns.
type Catalog struct {
	Records []domain.ArtifactRecord `json:"records"`
	Report  Report                  `json:"report"`
	BuiltAt time.Time               `json:"built_at"`
}

// Len returns the number of records.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Records)
}
