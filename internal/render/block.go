package render

import (
	"strconv"

	"github.com/p-n-ai/campus/internal/content"
)

// ToggleEvent asks for a block's visited flag to be flipped.
type ToggleEvent struct {
	BlockID string `json:"block_id"`
}

// Toggle returns the event emitted by a block's visited control. Blocks
// without an id cannot be tracked and have no control.
func Toggle(b content.Block) (ToggleEvent, bool) {
	if !b.Trackable() {
		return ToggleEvent{}, false
	}
	return ToggleEvent{BlockID: b.ID}, true
}

// Block renders b at position index (0-based). Unknown type tags get the
// generic presentation: header and content only.
func Block(b content.Block, index int, visited bool) Node {
	variant := "generic"
	kind, known := b.Kind()
	if known {
		variant = string(kind)
	}

	attrs := map[string]string{"type": b.Type, "variant": variant}
	if b.ID != "" {
		attrs["id"] = b.ID
	}

	n := Node{Kind: KindBlock, Attrs: attrs}
	n.Children = append(n.Children, header(b, index, visited))
	n.Children = append(n.Children, text(KindText, b.Content)...)
	if known {
		n.Children = append(n.Children, sections(kind, b)...)
	}
	return n
}

func header(b content.Block, index int, visited bool) Node {
	step := strconv.Itoa(index + 1)
	indicator := "pending"
	if visited {
		indicator = "done"
	}
	h := Node{
		Kind:  KindHeader,
		Attrs: map[string]string{"step": step, "visited": strconv.FormatBool(visited)},
		Children: []Node{
			{Kind: KindStep, Text: step},
			{Kind: KindIndicator, Text: indicator, Attrs: map[string]string{"toggle": strconv.FormatBool(b.Trackable())}},
		},
	}
	h.Children = append(h.Children, text(KindTitle, b.Title)...)
	return h
}

func sections(kind content.BlockType, b content.Block) []Node {
	switch kind {
	case content.BlockRoadmap:
		return roadmap(b.Roadmap)
	case content.BlockCore:
		var acts []Node
		for _, a := range b.Activities {
			acts = append(acts, Activity(a))
		}
		return group(KindList, map[string]string{"of": "activities"}, acts)
	case content.BlockWarningSignals:
		var cards []Node
		for _, s := range b.Signals {
			if s.Concept == "" && s.Rationale == "" {
				continue
			}
			card := Node{Kind: KindCard}
			card.Children = append(card.Children, text(KindTitle, s.Concept)...)
			card.Children = append(card.Children, text(KindText, s.Rationale)...)
			cards = append(cards, card)
		}
		out := group(KindGrid, nil, cards)
		return append(out, text("reference", b.Reference)...)
	case content.BlockFunFacts:
		var cards []Node
		for _, f := range b.Facts {
			card := Node{Kind: KindCard}
			card.Children = append(card.Children, text("icon", f.Icon)...)
			card.Children = append(card.Children, text(KindTitle, f.Title)...)
			card.Children = append(card.Children, text(KindText, f.Body)...)
			card.Children = append(card.Children, text("connect", f.Connect)...)
			if len(card.Children) > 0 {
				cards = append(cards, card)
			}
		}
		out := group(KindList, map[string]string{"of": "facts"}, cards)
		return append(out, text("reflection", b.Reflection)...)
	case content.BlockSelfTest:
		var qs []Node
		for _, q := range b.Questions {
			item := Node{Kind: KindItem, Attrs: map[string]string{"id": q.ID}}
			item.Children = append(item.Children, text(KindText, q.Prompt)...)
			item.Children = append(item.Children, group(KindList, map[string]string{"of": "options"}, items(q.Options))...)
			qs = append(qs, item)
		}
		return group(KindList, map[string]string{"of": "questions"}, qs)
	}
	return nil
}

func roadmap(r *content.Roadmap) []Node {
	if r == nil {
		return nil
	}
	var stops []Node
	for _, w := range r.Items {
		item := Node{Kind: KindItem}
		item.Children = append(item.Children, text(KindTitle, w.Label)...)
		item.Children = append(item.Children, minutes(w.Minutes)...)
		item.Children = append(item.Children, text("note", w.Note)...)
		item.Children = append(item.Children, text("target", w.Target)...)
		stops = append(stops, item)
	}
	out := group(KindList, map[string]string{"of": "waypoints"}, stops)
	return append(out, group(KindChecklist, nil, items(r.Habits))...)
}

// Unit renders every block of u in order. visited reports the visited state
// of a block id.
func Unit(u content.Unit, visited func(blockID string) bool) Node {
	n := Node{
		Kind:  KindUnit,
		Attrs: map[string]string{"id": u.ID, "number": strconv.Itoa(u.Number), "version": u.Meta.Version},
	}
	n.Children = append(n.Children, text(KindTitle, u.Title)...)
	n.Children = append(n.Children, text(KindText, u.Description)...)
	for i, b := range u.Blocks {
		n.Children = append(n.Children, Block(b, i, b.Trackable() && visited != nil && visited(b.ID)))
	}
	return n
}
