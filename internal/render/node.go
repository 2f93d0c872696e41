// Package render turns units into a presentation tree. The tree is plain data
// (served as JSON) and is also printed as an HTML preview.
package render

import "strconv"

// Node is one element of the presentation tree.
type Node struct {
	Kind     string            `json:"kind"`
	Text     string            `json:"text,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Children []Node            `json:"children,omitempty"`
}

// Node kinds.
const (
	KindUnit        = "unit"
	KindBlock       = "block"
	KindHeader      = "header"
	KindStep        = "step"
	KindIndicator   = "indicator"
	KindTitle       = "title"
	KindText        = "text"
	KindList        = "list"
	KindItem        = "item"
	KindChecklist   = "checklist"
	KindBadge       = "badge"
	KindGrid        = "grid"
	KindCard        = "card"
	KindTable       = "table"
	KindRow         = "row"
	KindCell        = "cell"
	KindChips       = "chips"
	KindChip        = "chip"
	KindColumns     = "columns"
	KindActivity    = "activity"
	KindRubric      = "rubric"
	KindUnsupported = "unsupported"
)

// Placeholder is shown in table cells the learner has to fill in.
const Placeholder = "—"

// Find returns the first node of kind in a depth-first walk of n.
func (n Node) Find(kind string) (Node, bool) {
	if n.Kind == kind {
		return n, true
	}
	for _, c := range n.Children {
		if found, ok := c.Find(kind); ok {
			return found, true
		}
	}
	return Node{}, false
}

// Count returns how many nodes of kind appear in n, n included.
func (n Node) Count(kind string) int {
	total := 0
	if n.Kind == kind {
		total++
	}
	for _, c := range n.Children {
		total += c.Count(kind)
	}
	return total
}

func text(kind, s string) []Node {
	if s == "" {
		return nil
	}
	return []Node{{Kind: kind, Text: s}}
}

// group wraps children in a node of kind, or yields nothing when empty.
func group(kind string, attrs map[string]string, children []Node) []Node {
	if len(children) == 0 {
		return nil
	}
	return []Node{{Kind: kind, Attrs: attrs, Children: children}}
}

func items(labels []string) []Node {
	var out []Node
	for _, l := range labels {
		out = append(out, text(KindItem, l)...)
	}
	return out
}

func minutes(n int) []Node {
	if n <= 0 {
		return nil
	}
	return []Node{{Kind: KindBadge, Text: strconv.Itoa(n) + " min", Attrs: map[string]string{"minutes": strconv.Itoa(n)}}}
}
