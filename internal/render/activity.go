package render

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/p-n-ai/campus/internal/content"
)

// Activity renders the read-only preview of a. Payloads with nothing to show
// produce no body; unknown kinds produce an unsupported notice.
func Activity(a content.Activity) Node {
	attrs := map[string]string{"kind": string(a.Kind())}
	if a.ID != "" {
		attrs["id"] = a.ID
	}
	if a.Difficulty != "" {
		attrs["difficulty"] = a.Difficulty
	}

	n := Node{Kind: KindActivity, Attrs: attrs}
	n.Children = append(n.Children, text(KindTitle, a.Title)...)
	n.Children = append(n.Children, text("instructions", a.Instructions)...)
	n.Children = append(n.Children, minutes(a.Minutes)...)
	n.Children = append(n.Children, text("hint", a.PDFHint)...)
	n.Children = append(n.Children, content.Visit[[]Node](a.Data, preview{})...)
	n.Children = append(n.Children, rubric(a.Rubric)...)
	return n
}

func rubric(r []content.RubricItem) []Node {
	var rows []Node
	for _, it := range r {
		if it.Criterion == "" {
			continue
		}
		rows = append(rows, Node{
			Kind:  KindItem,
			Text:  it.Criterion,
			Attrs: map[string]string{"points": strconv.Itoa(it.Points)},
		})
	}
	return group(KindRubric, nil, rows)
}

type preview struct{}

func (preview) StudyGuide(d content.StudyGuide) []Node {
	var qs []Node
	for _, q := range d.Questions {
		if q.Prompt == "" {
			continue
		}
		qs = append(qs, Node{Kind: KindItem, Text: q.Prompt, Attrs: map[string]string{"id": q.ID}})
	}
	return group(KindList, map[string]string{"of": "questions"}, qs)
}

func (preview) TableFill(d content.TableFill) []Node {
	if len(d.Columns) == 0 && len(d.Rows) == 0 {
		return nil
	}
	var rows []Node
	if len(d.Columns) > 0 {
		head := Node{Kind: KindRow, Attrs: map[string]string{"head": "true"}}
		for _, c := range d.Columns {
			head.Children = append(head.Children, Node{Kind: KindCell, Text: cell(c)})
		}
		rows = append(rows, head)
	}
	for _, r := range d.Rows {
		row := Node{Kind: KindRow, Attrs: map[string]string{"id": r.ID}}
		width := max(len(r.Cells), len(d.Columns))
		for i := range width {
			v := ""
			if i < len(r.Cells) {
				v = r.Cells[i]
			}
			row.Children = append(row.Children, Node{Kind: KindCell, Text: cell(v)})
		}
		rows = append(rows, row)
	}
	return []Node{{Kind: KindTable, Children: rows}}
}

func cell(v string) string {
	if v == "" {
		return Placeholder
	}
	return v
}

func (preview) MatchPairs(d content.MatchPairs) []Node {
	var left, right []Node
	for _, p := range d.Pairs {
		left = append(left, text(KindItem, p.Left)...)
		right = append(right, text(KindItem, p.Right)...)
	}
	cols := append(group(KindList, map[string]string{"side": "left"}, left),
		group(KindList, map[string]string{"side": "right"}, right)...)
	return group(KindColumns, nil, cols)
}

func (preview) Classify(d content.Classify) []Node {
	var chips []Node
	for _, it := range d.Items {
		chips = append(chips, text(KindChip, it.Label)...)
	}
	var cats []Node
	for _, c := range d.Categories {
		cats = append(cats, Node{Kind: KindItem, Text: c.Label, Attrs: map[string]string{"id": c.ID}})
	}
	out := group(KindChips, nil, chips)
	return append(out, group(KindList, map[string]string{"of": "categories"}, cats)...)
}

func (preview) FillBlanks(d content.FillBlanks) []Node {
	var bank []Node
	for _, w := range d.Bank {
		bank = append(bank, text(KindChip, w)...)
	}
	out := text("sentence", d.Sentence)
	return append(out, group(KindChips, map[string]string{"of": "bank"}, bank)...)
}

func (preview) CaseStudy(d content.CaseStudy) []Node {
	out := text("scenario", d.Scenario)
	return append(out, group(KindList, map[string]string{"of": "tasks"}, items(d.Tasks))...)
}

func (preview) Timeline(d content.Timeline) []Node {
	events := slices.Clone(d.Events)
	slices.SortStableFunc(events, func(a, b content.TimelineEvent) int { return cmp.Compare(a.Order, b.Order) })
	var out []Node
	for _, e := range events {
		if e.Label == "" {
			continue
		}
		out = append(out, Node{Kind: KindItem, Text: e.Label, Attrs: map[string]string{"order": strconv.Itoa(e.Order)}})
	}
	return group(KindList, map[string]string{"of": "events"}, out)
}

func (preview) DebateCards(d content.DebateCards) []Node {
	var cards []Node
	for _, c := range d.Cards {
		card := Node{Kind: KindCard, Attrs: map[string]string{"id": c.ID}}
		card.Children = append(card.Children, text("stance", c.Stance)...)
		card.Children = append(card.Children, text("claim", c.Claim)...)
		card.Children = append(card.Children, text("challenge", c.Challenge)...)
		card.Children = append(card.Children, text("hint", c.PDFHint)...)
		if len(card.Children) > 0 {
			cards = append(cards, card)
		}
	}
	return group(KindGrid, map[string]string{"columns": "2"}, cards)
}

func (preview) DataSnap(d content.DataSnap) []Node {
	var slots []Node
	for _, f := range d.ResponseFormat {
		slots = append(slots, text("slot", f)...)
	}
	out := text("prompt", d.Prompt)
	return append(out, group(KindList, map[string]string{"of": "slots"}, slots)...)
}

func (preview) MiniProject(d content.MiniProject) []Node {
	out := text("deliverable", d.Deliverable)
	return append(out, group(KindList, map[string]string{"of": "steps"}, items(d.Steps))...)
}

func (preview) Unknown(u content.Unknown) []Node {
	return []Node{{Kind: KindUnsupported, Text: "This activity type is not supported yet.", Attrs: map[string]string{"kind": u.Tag}}}
}
