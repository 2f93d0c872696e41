package content

import (
	"encoding/json"
	"fmt"
)

// Activity is an exercise embedded in a core block. Its Data variant is
// determined by the authored kind.
type Activity struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Instructions string       `json:"instructions"`
	Difficulty   string       `json:"difficulty,omitempty"`
	Minutes      int          `json:"minutes,omitempty"`
	PDFHint      string       `json:"pdf_hint,omitempty"`
	Rubric       []RubricItem `json:"rubric,omitempty"`
	Data         ActivityData `json:"-"`
}

// Kind returns the activity kind, or the raw tag for unknown variants.
func (a Activity) Kind() ActivityKind {
	if a.Data == nil {
		return ""
	}
	return a.Data.Kind()
}

// MarshalJSON writes the wire shape: the common fields plus kind and data.
func (a Activity) MarshalJSON() ([]byte, error) {
	type plain Activity
	data := a.Data
	if data == nil {
		data = Unknown{}
	}
	var payload any = data
	if u, ok := data.(Unknown); ok {
		payload = u.Raw
		if u.Raw == nil {
			payload = map[string]any{}
		}
	}
	return json.Marshal(struct {
		plain
		Kind ActivityKind `json:"kind"`
		Data any          `json:"data"`
	}{plain(a), data.Kind(), payload})
}

// UnmarshalJSON decodes tolerantly: wrong-typed or missing fields become
// zero values and unknown kinds are kept as Unknown.
func (a *Activity) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("decoding activity: %w", err)
	}
	*a = decodeActivity(m)
	return nil
}

// ActivityData is the sealed sum of per-kind payloads.
type ActivityData interface {
	Kind() ActivityKind
	activityData()
}

// StudyGuide is a numbered list of guiding questions.
type StudyGuide struct {
	Questions []GuideQuestion `json:"questions,omitempty"`
}

// GuideQuestion is one study-guide prompt.
type GuideQuestion struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt"`
}

// TableFill is a table the learner completes.
type TableFill struct {
	Columns []string   `json:"columns,omitempty"`
	Rows    []TableRow `json:"rows,omitempty"`
}

// TableRow is one row of a fill-in table; empty cells are blanks.
type TableRow struct {
	ID    string   `json:"id"`
	Cells []string `json:"cells,omitempty"`
}

// MatchPairs asks the learner to pair left items with right items.
type MatchPairs struct {
	Pairs []Pair `json:"pairs,omitempty"`
}

// Pair is one correct left/right association.
type Pair struct {
	ID    string `json:"id"`
	Left  string `json:"left"`
	Right string `json:"right"`
}

// Classify sorts items into categories.
type Classify struct {
	Categories []Category     `json:"categories,omitempty"`
	Items      []ClassifyItem `json:"items,omitempty"`
}

// Category is a classification bucket. Plain-string categories decode with
// ID and Label both set to the string.
type Category struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// ClassifyItem is an item and the category it belongs to.
type ClassifyItem struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Correct string `json:"correct"`
}

// FillBlanks is a sentence with blanks and a word bank.
type FillBlanks struct {
	Sentence string   `json:"sentence"`
	Bank     []string `json:"bank,omitempty"`
}

// CaseStudy is a scenario with tasks.
type CaseStudy struct {
	Scenario string   `json:"scenario"`
	Tasks    []string `json:"tasks,omitempty"`
}

// Timeline is a set of events to order.
type Timeline struct {
	Events []TimelineEvent `json:"events,omitempty"`
}

// TimelineEvent is a labelled point in a timeline.
type TimelineEvent struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Order int    `json:"order"`
}

// DebateCards holds stance cards for a debate.
type DebateCards struct {
	Cards []DebateCard `json:"cards,omitempty"`
}

// DebateCard is one stance with its claim and challenge.
type DebateCard struct {
	ID        string `json:"id"`
	Stance    string `json:"stance"`
	Claim     string `json:"claim"`
	Challenge string `json:"challenge"`
	PDFHint   string `json:"pdf_hint,omitempty"`
}

// DataSnap is a data prompt with response slots.
type DataSnap struct {
	Prompt         string   `json:"prompt"`
	ResponseFormat []string `json:"response_format,omitempty"`
}

// MiniProject is a deliverable with ordered steps.
type MiniProject struct {
	Deliverable string   `json:"deliverable"`
	Steps       []string `json:"steps,omitempty"`
}

// Unknown keeps an activity whose kind is not recognized, with its data as
// authored.
type Unknown struct {
	Tag string
	Raw map[string]any
}

func (StudyGuide) Kind() ActivityKind { return KindStudyGuide }
func (TableFill) Kind() ActivityKind { return KindTableFill }
func (MatchPairs) Kind() ActivityKind { return KindMatchPairs }
func (Classify) Kind() ActivityKind { return KindClassify }
func (FillBlanks) Kind() ActivityKind { return KindFillBlanks }
func (CaseStudy) Kind() ActivityKind { return KindCaseStudy }
func (Timeline) Kind() ActivityKind { return KindTimeline }
func (DebateCards) Kind() ActivityKind { return KindDebateCards }
func (DataSnap) Kind() ActivityKind { return KindDataSnap }
func (MiniProject) Kind() ActivityKind { return KindMiniProject }
func (u Unknown) Kind() ActivityKind { return ActivityKind(u.Tag) }

func (StudyGuide) activityData() {}
func (TableFill) activityData() {}
func (MatchPairs) activityData() {}
func (Classify) activityData() {}
func (FillBlanks) activityData() {}
func (CaseStudy) activityData() {}
func (Timeline) activityData() {}
func (DebateCards) activityData() {}
func (DataSnap) activityData() {}
func (MiniProject) activityData() {}
func (Unknown) activityData() {}

// Visitor handles every activity variant. Adding a variant adds a method
// here, so every implementation stops compiling until it handles it.
type Visitor[R any] interface {
	StudyGuide(StudyGuide) R
	TableFill(TableFill) R
	MatchPairs(MatchPairs) R
	Classify(Classify) R
	FillBlanks(FillBlanks) R
	CaseStudy(CaseStudy) R
	Timeline(Timeline) R
	DebateCards(DebateCards) R
	DataSnap(DataSnap) R
	MiniProject(MiniProject) R
	Unknown(Unknown) R
}

// Visit dispatches d to the matching visitor method. A nil payload is
// treated as an unknown variant.
func Visit[R any](d ActivityData, v Visitor[R]) R {
	switch x := d.(type) {
	case StudyGuide:
		return v.StudyGuide(x)
	case TableFill:
		return v.TableFill(x)
	case MatchPairs:
		return v.MatchPairs(x)
	case Classify:
		return v.Classify(x)
	case FillBlanks:
		return v.FillBlanks(x)
	case CaseStudy:
		return v.CaseStudy(x)
	case Timeline:
		return v.Timeline(x)
	case DebateCards:
		return v.DebateCards(x)
	case DataSnap:
		return v.DataSnap(x)
	case MiniProject:
		return v.MiniProject(x)
	case Unknown:
		return v.Unknown(x)
	default:
		return v.Unknown(Unknown{})
	}
}
