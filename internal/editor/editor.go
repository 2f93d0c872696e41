// Package editor turns the unit authoring form into a whole-unit
// replacement.
package editor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/p-n-ai/campus/internal/audit"
	"github.com/p-n-ai/campus/internal/content"
	"github.com/p-n-ai/campus/internal/platform/apperr"
	"github.com/p-n-ai/campus/internal/platform/validate"
)

// Form is the authoring surface: three scalar fields plus the rest of the
// unit as raw JSON.
type Form struct {
	SubjectID string `json:"subject_id"`
	Number    string `json:"number"`
	Title     string `json:"title"`
	Body      string `json:"body"`
}

// ParseError reports a content body that is not a JSON object.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "content: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Publisher replaces a stored unit.
type Publisher interface {
	ReplaceUnit(ctx context.Context, u content.Unit) error
}

// Result is a published unit and the schema warnings of its body.
type Result struct {
	Unit     content.Unit `json:"unit"`
	Warnings []string     `json:"warnings"`
}

// remainder is the part of a unit edited as JSON, in display order.
type remainder struct {
	Description string          `json:"description"`
	Available   bool            `json:"available"`
	PDFURL      string          `json:"pdf_url"`
	GuideURL    string          `json:"guide_url"`
	Meta        content.Meta    `json:"meta"`
	Blocks      []content.Block `json:"blocks"`
}

// Draft fills the form from an existing unit.
func Draft(u content.Unit) Form {
	body, err := json.MarshalIndent(remainder{
		Description: u.Description,
		Available:   u.Available,
		PDFURL:      u.PDFURL,
		GuideURL:    u.GuideURL,
		Meta:        u.Meta,
		Blocks:      u.Blocks,
	}, "", "  ")
	if err != nil {
		body = []byte("{}")
	}
	f := Form{SubjectID: u.SubjectID, Title: u.Title, Body: string(body)}
	if u.Number > 0 {
		f.Number = strconv.Itoa(u.Number)
	}
	return f
}

// UnitID is the id given to a new unit.
func UnitID(subjectID string, number int) string {
	return fmt.Sprintf("%s-u%d", subjectID, number)
}

type scalars struct {
	SubjectID string `json:"subject_id" validate:"notblank"`
	Number    int    `json:"number" validate:"gt=0"`
	Title     string `json:"title" validate:"notblank"`
}

// Editor validates forms and publishes the resulting units.
type Editor struct {
	publisher Publisher
	events    audit.Logger
	check     *validate.Validator
	now       func() time.Time
}

func New(publisher Publisher, events audit.Logger) *Editor {
	return &Editor{publisher: publisher, events: events, check: validate.New(), now: time.Now}
}

// Build validates f and assembles the replacement unit without publishing.
// original is the unit being edited, or nil when creating one.
func (e *Editor) Build(f Form, original *content.Unit) (Result, error) {
	number, err := strconv.Atoi(strings.TrimSpace(f.Number))
	if err != nil {
		number = 0
	}
	sc := scalars{SubjectID: strings.TrimSpace(f.SubjectID), Number: number, Title: strings.TrimSpace(f.Title)}
	if err := e.check.Struct(sc); err != nil {
		return Result{}, err
	}

	body := strings.TrimSpace(f.Body)
	if body == "" {
		body = "{}"
	}
	doc, err := content.ParseObject([]byte(body))
	if err != nil {
		return Result{}, apperr.New(apperr.KindValidation, "parsing unit content", &ParseError{Err: err})
	}

	id := UnitID(sc.SubjectID, sc.Number)
	if original != nil && original.ID != "" {
		id = original.ID
	}
	doc["id"] = id
	doc["subject_id"] = sc.SubjectID
	doc["number"] = sc.Number
	doc["title"] = sc.Title

	raw, err := json.Marshal(doc)
	if err != nil {
		return Result{}, apperr.New(apperr.KindValidation, "parsing unit content", &ParseError{Err: err})
	}
	warnings, err := content.Lint(raw)
	if err != nil {
		slog.Warn("unit lint failed", "unit_id", id, "error", err)
	}
	if warnings == nil {
		warnings = []string{}
	}

	u := content.FromRow(content.Row{ID: id, SubjectID: sc.SubjectID, Number: sc.Number, Title: sc.Title, ContentJSON: raw}, e.now())
	return Result{Unit: u, Warnings: warnings}, nil
}

// Submit builds the unit from f and publishes it as one whole-unit
// replacement. Nothing is published when validation or parsing fails.
func (e *Editor) Submit(ctx context.Context, actorID string, f Form, original *content.Unit) (Result, error) {
	res, err := e.Build(f, original)
	if err != nil {
		return Result{}, err
	}
	if err := e.publisher.ReplaceUnit(ctx, res.Unit); err != nil {
		return Result{}, apperr.New(apperr.KindMutation, "publishing unit", err)
	}

	audit.Record(ctx, e.events, audit.Event{
		UserID: actorID,
		Type:   audit.UnitPublished,
		Data: map[string]any{
			"unit_id":  res.Unit.ID,
			"version":  res.Unit.Meta.Version,
			"blocks":   len(res.Unit.Blocks),
			"warnings": len(res.Warnings),
		},
	})
	return res, nil
}
