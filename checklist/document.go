// Package checklist models the curated A320 checklist document and the
// runtime state layered on top of it: checked/verified flags per item, the
// active phase, and flight-plan values injected into item responses.
package checklist

import (
	"encoding/json"
	"fmt"
	"os"
)

// VerifyCondition compares a sim variable against an expected value.
type VerifyCondition string

const (
	VerifyEq  VerifyCondition = "eq"
	VerifyGte VerifyCondition = "gte"
	VerifyLte VerifyCondition = "lte"
	VerifyGt  VerifyCondition = "gt"
	VerifyLt  VerifyCondition = "lt"
)

// Verify configures automatic verification of an item from sim telemetry.
type Verify struct {
	Var       string          `json:"var"`
	Condition VerifyCondition `json:"condition"`
	Value     float64         `json:"value"`
}

// Evaluate applies the condition to an observed value.
func (v Verify) Evaluate(observed float64) bool {
	switch v.Condition {
	case VerifyEq:
		return observed == v.Value
	case VerifyGte:
		return observed >= v.Value
	case VerifyLte:
		return observed <= v.Value
	case VerifyGt:
		return observed > v.Value
	case VerifyLt:
		return observed < v.Value
	default:
		return false
	}
}

// Item is a single challenge/response line of a checklist.
type Item struct {
	ID               string  `json:"id"`
	Challenge        string  `json:"challenge"`
	Response         string  `json:"response"`
	ResponseTemplate string  `json:"-"`
	Verify           *Verify `json:"verify,omitempty"`

	// Runtime state
	Checked       bool    `json:"checked"`
	Verified      *bool   `json:"verified"`
	SimBriefValue *string `json:"simbrief_value"`
	SimBriefType  *string `json:"simbrief_type"`
}

// Reset clears runtime state and restores the response template.
func (i *Item) Reset() {
	i.Checked = false
	i.Verified = nil
	i.Response = i.ResponseTemplate
	i.SimBriefValue = nil
	i.SimBriefType = nil
}

// Checklist is the set of items for one phase.
type Checklist struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Trigger string  `json:"trigger"`
	Items   []*Item `json:"items"`
}

// Item returns the item with the given id, or nil.
func (c *Checklist) Item(itemID string) *Item {
	for _, it := range c.Items {
		if it.ID == itemID {
			return it
		}
	}
	return nil
}

// Reset clears runtime state on every item.
func (c *Checklist) Reset() {
	for _, it := range c.Items {
		it.Reset()
	}
}

// Clone returns a copy whose items are detached from the original, so a
// snapshot handed to another goroutine stays stable while the manager keeps
// mutating the live checklist. The pointer fields on Item are shared: the
// manager only ever replaces them, never writes through them.
func (c *Checklist) Clone() *Checklist {
	if c == nil {
		return nil
	}
	out := *c
	out.Items = make([]*Item, len(c.Items))
	for i, it := range c.Items {
		copied := *it
		out.Items[i] = &copied
	}
	return &out
}

// IsComplete reports whether every item has been checked.
func (c *Checklist) IsComplete() bool {
	for _, it := range c.Items {
		if !it.Checked {
			return false
		}
	}
	return true
}

// Document is the on-disk checklist file: checklists grouped by flight
// segment. Group names are organizational only; checklists are addressed by
// their phase id.
type Document struct {
	Aircraft string                 `json:"aircraft"`
	Phases   map[string][]Checklist `json:"phases"`
}

// documentGroups is the load order for checklist groups within a document.
var documentGroups = []string{"departure", "climb", "cruise", "arrival"}

// LoadDocument reads and parses a checklist JSON file.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read checklist file: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse checklist file %s: %w", path, err)
	}
	if len(doc.Phases) == 0 {
		return nil, fmt.Errorf("checklist file %s contains no phases", path)
	}
	return &doc, nil
}
