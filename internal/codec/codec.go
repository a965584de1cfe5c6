// Package codec converts between the metadata the archive program stores in
// its transaction logs and display-ready artifact records.
//
// The payload line written by the program looks like
//
//	Program log: Stored JSON data: "{\"is_initialized\":true,\"name\":\"Asha\",...}"
//
// The metadata JSON is itself wrapped as a JSON string, so decoding parses
// twice. Payloads that hold the object directly are accepted as well.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"lpp-backend/internal/domain"
	appErrors "lpp-backend/pkg/errors"
)

const (
	// LogPrefix precedes the payload on the log line the program emits.
	LogPrefix = "Program log: Stored JSON data:"

	// PayloadLogIndex is the position of the payload line in a transaction's
	// logs: after the system program invoke/success and the program invoke.
	PayloadLogIndex = 3
)

// Codec encodes metadata for the ledger and decodes it into records whose
// content identifiers are resolved against a retrieval gateway.
type Codec struct {
	gatewayBaseURL string
}

// New creates a codec resolving content identifiers against gatewayBaseURL.
func New(gatewayBaseURL string) *Codec {
	return &Codec{gatewayBaseURL: gatewayBaseURL}
}

// Encode produces the bytes stored as instruction data. The output is
// deterministic for a given Metadata value.
func (c *Codec) Encode(m domain.Metadata) ([]byte, error) {
	inner, err := json.Marshal(m)
	if err != nil {
		return nil, appErrors.NewInternal("encoding metadata", err)
	}
	outer, err := json.Marshal(string(inner))
	if err != nil {
		return nil, appErrors.NewInternal("encoding metadata", err)
	}
	return outer, nil
}

// DecodeLogs decodes the payload line of a transaction's logs.
func (c *Codec) DecodeLogs(logs []string) (domain.ArtifactRecord, error) {
	if len(logs) <= PayloadLogIndex {
		return domain.ArtifactRecord{}, appErrors.NewMalformedRecord(
			fmt.Sprintf("no record: transaction has %d log lines", len(logs)), nil)
	}
	return c.DecodeLine(logs[PayloadLogIndex])
}

// DecodeLine decodes one payload log line into a record.
func (c *Codec) DecodeLine(line string) (domain.ArtifactRecord, error) {
	rest, ok := strings.CutPrefix(line, LogPrefix)
	if !ok {
		return domain.ArtifactRecord{}, appErrors.NewMalformedRecord("log line has no payload prefix", nil)
	}

	m, err := DecodePayload([]byte(strings.TrimSpace(rest)))
	if err != nil {
		return domain.ArtifactRecord{}, err
	}
	return c.Resolve(m), nil
}

// DecodePayload parses the stored payload bytes back into metadata.
func DecodePayload(payload []byte) (domain.Metadata, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return domain.Metadata{}, appErrors.NewMalformedRecord("payload is not JSON", err)
	}

	// A JSON string holds the metadata object as text.
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return domain.Metadata{}, appErrors.NewMalformedRecord("payload string is not decodable", err)
		}
		raw = json.RawMessage(strings.TrimSpace(inner))
		if len(raw) == 0 {
			return domain.Metadata{}, appErrors.NewMalformedRecord("payload string is empty", nil)
		}
	}

	if raw[0] != '{' {
		return domain.Metadata{}, appErrors.NewMalformedRecord("payload is not an object", nil)
	}

	var m domain.Metadata
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&m); err != nil {
		return domain.Metadata{}, appErrors.NewMalformedRecord("metadata is not decodable", err)
	}
	return m, nil
}

// Resolve maps metadata onto a display record. Content identifiers become
// gateway URLs; absent or empty ones stay empty. The category is copied
// verbatim, unknown values included.
func (c *Codec) Resolve(m domain.Metadata) domain.ArtifactRecord {
	return domain.ArtifactRecord{
		Name:        m.Name,
		Title:       m.Title,
		Description: m.Description,
		Category:    m.Category,
		PublishDate: m.PublishDate,
		VideoURL:    c.url(m.VideoFile),
		AudioURL:    c.url(m.AudioFile),
		ImageURL:    c.url(m.ImageFile),
		FileURL:     c.url(m.TextFile),
	}
}

func (c *Codec) url(id *string) string {
	if id == nil || *id == "" {
		return ""
	}
	return c.gatewayBaseURL + *id
}
