// Package quote decodes the endpoint's JSON document into price records.
package quote

import (
	"bytes"
	"encoding/json"
	"time"

	"coinfeed/internal/snapshot"
)

const (
	// DefaultNameField is the element key holding the asset's display name
	DefaultNameField = "long"
	// DefaultPriceField is the element key holding the quoted price
	DefaultPriceField = "price"
)

// Parser turns a JSON array of quote objects into a snapshot. Field names are
// configurable because upstream feeds disagree on them.
type Parser struct {
	NameField  string
	PriceField string

	// Now stamps the snapshot; defaults to time.Now.
	Now func() time.Time
}

// NewParser returns a parser for the given fields, falling back to the
// defaults for empty names.
func NewParser(nameField, priceField string) *Parser {
	if nameField == "" {
		nameField = DefaultNameField
	}
	if priceField == "" {
		priceField = DefaultPriceField
	}
	return &Parser{NameField: nameField, PriceField: priceField}
}

// Result carries the snapshot along with how many elements were dropped.
type Result struct {
	Snapshot snapshot.Snapshot
	Skipped  int
}

// Parse decodes data and returns a snapshot of the usable elements in source
// order. Elements missing the name or price are skipped. Only a payload that
// is not a JSON array at all yields an error.
func (p *Parser) Parse(data []byte) (snapshot.Snapshot, error) {
	res, err := p.ParseResult(data)
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	return res.Snapshot, nil
}

// ParseResult is Parse with the skipped-element count exposed for logging.
func (p *Parser) ParseResult(data []byte) (Result, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Result{}, NewMalformedError("empty payload", nil)
	}
	if trimmed[0] != '[' {
		return Result{}, NewMalformedError("top-level value is not an array", nil)
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(trimmed, &elements); err != nil {
		return Result{}, NewMalformedError("decode array", err)
	}

	nameField, priceField := p.fields()
	records := make([]snapshot.PriceRecord, 0, len(elements))
	skipped := 0
	for _, raw := range elements {
		rec, ok := extract(raw, nameField, priceField)
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return Result{
		Snapshot: snapshot.New(records, now()),
		Skipped:  skipped,
	}, nil
}

func (p *Parser) fields() (string, string) {
	name, price := p.NameField, p.PriceField
	if name == "" {
		name = DefaultNameField
	}
	if price == "" {
		price = DefaultPriceField
	}
	return name, price
}

func extract(raw json.RawMessage, nameField, priceField string) (snapshot.PriceRecord, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return snapshot.PriceRecord{}, false
	}

	name, ok := scalarString(obj[nameField])
	if !ok {
		return snapshot.PriceRecord{}, false
	}
	price, ok := scalarString(obj[priceField])
	if !ok {
		return snapshot.PriceRecord{}, false
	}
	return snapshot.PriceRecord{Name: name, PriceRaw: price}, true
}

// scalarString returns a JSON string's value or a JSON number's literal text.
// Absent, null, empty, boolean and composite values are rejected.
func scalarString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}

	switch c := raw[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || s == "" {
			return "", false
		}
		return s, true
	case c == '-' || (c >= '0' && c <= '9'):
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", false
		}
		return n.String(), true
	default:
		return "", false
	}
}
