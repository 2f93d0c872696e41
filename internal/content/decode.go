package content

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Tolerant readers over decoded JSON. Wrong types degrade to zero values.

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func num(v any) int {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0
		}
		return int(t)
	case int:
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i)
		}
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		return int(f)
	case string:
		s := strings.TrimSpace(t)
		if i, err := strconv.Atoi(s); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return int(f)
		}
		return 0
	default:
		return 0
	}
}

func boolean(v any, def bool) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			return b
		}
		return def
	case float64:
		return t != 0
	default:
		return def
	}
}

func obj(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func list(v any) []any {
	l, _ := v.([]any)
	return l
}

// strs keeps the non-empty string entries of a list.
func strs(v any) []string {
	var out []string
	for _, it := range list(v) {
		if s := str(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// cells keeps every entry, including blanks, so column positions survive.
func cells(v any) []string {
	l := list(v)
	if len(l) == 0 {
		return nil
	}
	out := make([]string, 0, len(l))
	for _, it := range l {
		out = append(out, str(it))
	}
	return out
}

func objects(v any) []map[string]any {
	var out []map[string]any
	for _, it := range list(v) {
		if m := obj(it); m != nil {
			out = append(out, m)
		}
	}
	return out
}

func stamp(v any) (time.Time, bool) {
	s := str(v)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func idOr(v any, fallback string) string {
	if s := str(v); s != "" {
		return s
	}
	return fallback
}

func decodeMeta(v any, now time.Time) Meta {
	m := obj(v)
	meta := Meta{Version: DefaultVersion, UpdatedAt: now}
	if m == nil {
		return meta
	}
	if s := str(m["version"]); s != "" {
		meta.Version = s
	}
	if t, ok := stamp(m["updated_at"]); ok && !t.IsZero() {
		meta.UpdatedAt = t
	}
	meta.ChangeNote = str(m["change_note"])
	return meta
}

func decodeBlock(m map[string]any) Block {
	b := Block{
		ID:                str(m["id"]),
		Order:             num(m["order"]),
		Type:              str(m["type"]),
		Title:             str(m["title"]),
		Content:           str(m["content"]),
		CountsForProgress: boolean(m["counts_for_progress"], true),
		Reference:         str(m["reference"]),
		Reflection:        str(m["reflection"]),
	}

	if rm := obj(m["roadmap"]); rm != nil {
		r := Roadmap{Habits: strs(rm["habits"])}
		for _, it := range objects(rm["items"]) {
			r.Items = append(r.Items, Waypoint{
				Label:   str(it["label"]),
				Minutes: num(it["minutes"]),
				Note:    str(it["note"]),
				Target:  str(it["target"]),
			})
		}
		if len(r.Items) > 0 || len(r.Habits) > 0 {
			b.Roadmap = &r
		}
	}
	for _, it := range objects(m["activities"]) {
		b.Activities = append(b.Activities, decodeActivity(it))
	}
	for _, it := range objects(m["signals"]) {
		b.Signals = append(b.Signals, Signal{Concept: str(it["concept"]), Rationale: str(it["rationale"])})
	}
	for _, it := range objects(m["facts"]) {
		b.Facts = append(b.Facts, Fact{
			Icon:    str(it["icon"]),
			Title:   str(it["title"]),
			Body:    str(it["body"]),
			Connect: str(it["connect"]),
		})
	}
	for i, it := range objects(m["questions"]) {
		b.Questions = append(b.Questions, QuizQuestion{
			ID:      idOr(it["id"], fmt.Sprintf("q%d", i+1)),
			Prompt:  str(it["prompt"]),
			Options: strs(it["options"]),
		})
	}
	return b
}

func decodeActivity(m map[string]any) Activity {
	a := Activity{
		ID:           str(m["id"]),
		Title:        str(m["title"]),
		Instructions: str(m["instructions"]),
		Difficulty:   str(m["difficulty"]),
		Minutes:      num(m["minutes"]),
		PDFHint:      str(m["pdf_hint"]),
	}
	for _, it := range objects(m["rubric"]) {
		a.Rubric = append(a.Rubric, RubricItem{Criterion: str(it["criterion"]), Points: num(it["points"])})
	}

	tag := str(m["kind"])
	data := obj(m["data"])
	kind, ok := ParseActivityKind(tag)
	if !ok {
		if data == nil {
			data = map[string]any{}
		}
		a.Data = Unknown{Tag: tag, Raw: data}
		return a
	}
	a.Data = decodeActivityData(kind, data)
	return a
}

func decodeActivityData(kind ActivityKind, d map[string]any) ActivityData {
	switch kind {
	case KindStudyGuide:
		var out StudyGuide
		for i, q := range objects(d["questions"]) {
			out.Questions = append(out.Questions, GuideQuestion{
				ID:     idOr(q["id"], fmt.Sprintf("q%d", i+1)),
				Prompt: str(q["prompt"]),
			})
		}
		return out
	case KindTableFill:
		out := TableFill{Columns: cells(d["columns"])}
		for i, r := range objects(d["rows"]) {
			out.Rows = append(out.Rows, TableRow{
				ID:    idOr(r["id"], fmt.Sprintf("r%d", i+1)),
				Cells: cells(r["cells"]),
			})
		}
		return out
	case KindMatchPairs:
		var out MatchPairs
		for i, p := range objects(d["pairs"]) {
			out.Pairs = append(out.Pairs, Pair{
				ID:    idOr(p["id"], fmt.Sprintf("pair-%d", i+1)),
				Left:  str(p["left"]),
				Right: str(p["right"]),
			})
		}
		return out
	case KindClassify:
		var out Classify
		for _, c := range list(d["categories"]) {
			switch t := c.(type) {
			case map[string]any:
				id, label := str(t["id"]), str(t["label"])
				if id == "" {
					id = label
				}
				if label == "" {
					label = id
				}
				if id != "" {
					out.Categories = append(out.Categories, Category{ID: id, Label: label})
				}
			default:
				if s := str(t); s != "" {
					out.Categories = append(out.Categories, Category{ID: s, Label: s})
				}
			}
		}
		for i, it := range objects(d["items"]) {
			out.Items = append(out.Items, ClassifyItem{
				ID:      idOr(it["id"], fmt.Sprintf("i%d", i+1)),
				Label:   str(it["label"]),
				Correct: str(it["correct"]),
			})
		}
		return out
	case KindFillBlanks:
		return FillBlanks{Sentence: str(d["sentence"]), Bank: strs(d["bank"])}
	case KindCaseStudy:
		return CaseStudy{Scenario: str(d["scenario"]), Tasks: strs(d["tasks"])}
	case KindTimeline:
		var out Timeline
		for i, e := range objects(d["events"]) {
			out.Events = append(out.Events, TimelineEvent{
				ID:    idOr(e["id"], fmt.Sprintf("e%d", i+1)),
				Label: str(e["label"]),
				Order: num(e["order"]),
			})
		}
		return out
	case KindDebateCards:
		var out DebateCards
		for i, c := range objects(d["cards"]) {
			out.Cards = append(out.Cards, DebateCard{
				ID:        idOr(c["id"], fmt.Sprintf("c%d", i+1)),
				Stance:    str(c["stance"]),
				Claim:     str(c["claim"]),
				Challenge: str(c["challenge"]),
				PDFHint:   str(c["pdf_hint"]),
			})
		}
		return out
	case KindDataSnap:
		return DataSnap{Prompt: str(d["prompt"]), ResponseFormat: strs(d["response_format"])}
	case KindMiniProject:
		return MiniProject{Deliverable: str(d["deliverable"]), Steps: strs(d["steps"])}
	}
	return Unknown{Tag: string(kind), Raw: d}
}
