// Package content defines the learning unit document: units, their ordered
// blocks and the activities embedded in core blocks. Stored rows are
// normalized once at the storage boundary so consumers never null-check.
package content

import "time"

// DefaultVersion is stamped on units that carry no metadata.
const DefaultVersion = "1.0.0"

// Unit is a numbered learning module of a subject.
type Unit struct {
	ID          string  `json:"id"`
	SubjectID   string  `json:"subject_id"`
	Number      int     `json:"number"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Available   bool    `json:"available"`
	PDFURL      string  `json:"pdf_url"`
	GuideURL    string  `json:"guide_url"`
	Meta        Meta    `json:"meta"`
	Blocks      []Block `json:"blocks"`
}

// Meta stamps a unit revision.
type Meta struct {
	Version    string    `json:"version"`
	UpdatedAt  time.Time `json:"updated_at"`
	ChangeNote string    `json:"change_note"`
}

// Block is one ordered section of a unit. Type is kept as authored; use
// ParseBlockType to resolve it.
type Block struct {
	ID                string `json:"id"`
	Order             int    `json:"order"`
	Type              string `json:"type"`
	Title             string `json:"title"`
	Content           string `json:"content"`
	CountsForProgress bool   `json:"counts_for_progress"`

	Roadmap    *Roadmap       `json:"roadmap,omitempty"`
	Activities []Activity     `json:"activities,omitempty"`
	Signals    []Signal       `json:"signals,omitempty"`
	Reference  string         `json:"reference,omitempty"`
	Facts      []Fact         `json:"facts,omitempty"`
	Reflection string         `json:"reflection,omitempty"`
	Questions  []QuizQuestion `json:"questions,omitempty"`
}

// Kind resolves the block's type tag.
func (b Block) Kind() (BlockType, bool) {
	return ParseBlockType(b.Type)
}

// Trackable reports whether the block can be marked visited.
func (b Block) Trackable() bool {
	return b.ID != ""
}

// Roadmap is the payload of roadmap blocks.
type Roadmap struct {
	Items  []Waypoint `json:"items,omitempty"`
	Habits []string   `json:"habits,omitempty"`
}

// Waypoint is one stop of a roadmap.
type Waypoint struct {
	Label   string `json:"label"`
	Minutes int    `json:"minutes,omitempty"`
	Note    string `json:"note,omitempty"`
	Target  string `json:"target,omitempty"`
}

// Signal pairs a warning concept with its rationale.
type Signal struct {
	Concept   string `json:"concept"`
	Rationale string `json:"rationale"`
}

// Fact is a fun-facts card.
type Fact struct {
	Icon    string `json:"icon"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	Connect string `json:"connect,omitempty"`
}

// QuizQuestion is a multiple-choice self-test question.
type QuizQuestion struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options,omitempty"`
}

// RubricItem is one scoring criterion.
type RubricItem struct {
	Criterion string `json:"criterion"`
	Points    int    `json:"points"`
}

// Row is the relational storage shape of a unit.
type Row struct {
	ID          string
	SubjectID   string
	Number      int
	Title       string
	ContentJSON []byte
}
