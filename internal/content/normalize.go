package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// FromRow builds a fully defaulted unit from a storage row. Fields present in
// the embedded JSON document win over the relational columns. A content
// document that is not a JSON object is ignored.
func FromRow(row Row, now time.Time) Unit {
	var doc map[string]any
	if len(bytes.TrimSpace(row.ContentJSON)) > 0 {
		if err := json.Unmarshal(row.ContentJSON, &doc); err != nil {
			doc = nil
		}
	}
	return decodeUnit(doc, row, now)
}

// Parse decodes a unit document. Unlike FromRow it reports malformed JSON.
func Parse(doc []byte, now time.Time) (Unit, error) {
	m, err := ParseObject(doc)
	if err != nil {
		return Unit{}, err
	}
	return decodeUnit(m, Row{}, now), nil
}

// ParseObject decodes doc into a JSON object, rejecting any other JSON value.
func ParseObject(doc []byte) (map[string]any, error) {
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invalid JSON: expected an object, got %s", jsonTypeName(v))
	}
	return m, nil
}

// Normalize re-applies the storage defaults to an in-memory unit.
// Normalize(Normalize(u)) equals Normalize(u).
func Normalize(u Unit, now time.Time) Unit {
	return FromRow(u.Row(), now)
}

// Row serializes the unit to its storage shape. The whole document is
// written; saves replace rather than patch.
func (u Unit) Row() Row {
	doc, err := json.Marshal(u)
	if err != nil {
		// Every field of Unit is marshalable; only a broken Activity.Data could get here.
		doc = nil
	}
	return Row{
		ID:          u.ID,
		SubjectID:   u.SubjectID,
		Number:      u.Number,
		Title:       u.Title,
		ContentJSON: doc,
	}
}

// Block returns the block with id, if present.
func (u Unit) Block(id string) (Block, bool) {
	if id == "" {
		return Block{}, false
	}
	for _, b := range u.Blocks {
		if b.ID == id {
			return b, true
		}
	}
	return Block{}, false
}

// Activity finds an activity by id across the unit's blocks.
func (u Unit) Activity(id string) (Activity, bool) {
	if id == "" {
		return Activity{}, false
	}
	for _, b := range u.Blocks {
		for _, a := range b.Activities {
			if a.ID == id {
				return a, true
			}
		}
	}
	return Activity{}, false
}

func decodeUnit(doc map[string]any, row Row, now time.Time) Unit {
	now = now.UTC().Round(0)

	u := Unit{
		ID:        str(row.ID),
		SubjectID: str(row.SubjectID),
		Number:    row.Number,
		Title:     str(row.Title),
		Available: true,
		Meta:      Meta{Version: DefaultVersion, UpdatedAt: now},
		Blocks:    []Block{},
	}
	if doc == nil {
		return u
	}

	if v, ok := present(doc, "id"); ok {
		u.ID = str(v)
	}
	if v, ok := present(doc, "subject_id"); ok {
		u.SubjectID = str(v)
	}
	if v, ok := present(doc, "number"); ok {
		u.Number = num(v)
	}
	if v, ok := present(doc, "title"); ok {
		u.Title = str(v)
	}
	u.Description = str(doc["description"])
	u.Available = boolean(doc["available"], true)
	u.PDFURL = str(doc["pdf_url"])
	u.GuideURL = str(doc["guide_url"])
	u.Meta = decodeMeta(doc["meta"], now)

	for _, bm := range objects(doc["blocks"]) {
		u.Blocks = append(u.Blocks, decodeBlock(bm))
	}
	orderBlocks(u.Blocks)
	return u
}

func present(m map[string]any, key string) (any, bool) {
	v, ok := m[key]
	return v, ok && v != nil
}

// orderBlocks sorts by explicit order, falling back to array position, then
// renumbers 1..n so a second pass is a no-op.
func orderBlocks(blocks []Block) {
	type keyed struct {
		b   Block
		key int
	}
	ks := make([]keyed, len(blocks))
	for i, b := range blocks {
		key := b.Order
		if key <= 0 {
			key = i + 1
		}
		ks[i] = keyed{b, key}
	}
	sort.SliceStable(ks, func(i, j int) bool { return ks[i].key < ks[j].key })
	for i := range ks {
		blocks[i] = ks[i].b
		blocks[i].Order = i + 1
	}
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "an array"
	case string:
		return "a string"
	case float64:
		return "a number"
	case bool:
		return "a boolean"
	default:
		return "an unexpected value"
	}
}
