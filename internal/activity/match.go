// Package activity hosts the interactive players for match_pairs and
// fill_blanks activities. Every other kind is preview-only.
package activity

import (
	"math/rand/v2"

	"github.com/p-n-ai/campus/internal/content"
)

// Outcome reports what a selection did.
type Outcome string

const (
	Ignored   Outcome = "ignored"
	Selected  Outcome = "selected"
	Correct   Outcome = "correct"
	Wrong     Outcome = "wrong"
	Completed Outcome = "completed"
	Updated   Outcome = "updated"
)

// MatchState is the observable state of a match_pairs player.
type MatchState string

const (
	StateIdle        MatchState = "idle"
	StateOneSelected MatchState = "one_selected"
	StateAllMatched  MatchState = "all_matched"
)

// Match is a tap-to-match board. Left items keep their authored order; the
// right column is a permutation fixed when the board is created.
type Match struct {
	Pairs    []content.Pair `json:"pairs"`
	Right    []int          `json:"right"`
	Matched  []bool         `json:"matched"`
	Selected int            `json:"selected"`
	Wrong    bool           `json:"wrong"`
}

// NewMatch builds a board for d, shuffling the right column with rng.
// A nil rng uses the package-level source.
func NewMatch(d content.MatchPairs, rng *rand.Rand) *Match {
	n := len(d.Pairs)
	m := &Match{
		Pairs:    append([]content.Pair(nil), d.Pairs...),
		Right:    make([]int, n),
		Matched:  make([]bool, n),
		Selected: -1,
	}
	for i := range m.Right {
		m.Right[i] = i
	}
	swap := func(i, j int) { m.Right[i], m.Right[j] = m.Right[j], m.Right[i] }
	if rng != nil {
		rng.Shuffle(n, swap)
	} else {
		rand.Shuffle(n, swap)
	}
	return m
}

// State derives the board state.
func (m *Match) State() MatchState {
	if m.Complete() {
		return StateAllMatched
	}
	if m.Selected >= 0 {
		return StateOneSelected
	}
	return StateIdle
}

// MatchedCount returns how many pairs are locked.
func (m *Match) MatchedCount() int {
	n := 0
	for _, ok := range m.Matched {
		if ok {
			n++
		}
	}
	return n
}

// Complete reports whether every pair is matched. A board without pairs is
// never complete.
func (m *Match) Complete() bool {
	return len(m.Pairs) > 0 && m.MatchedCount() == len(m.Pairs)
}

// SelectLeft picks the left item at index i. Matched items and out-of-range
// indexes are ignored, as is everything once the board is complete.
func (m *Match) SelectLeft(i int) Outcome {
	if m.Complete() || i < 0 || i >= len(m.Pairs) || m.Matched[i] {
		return Ignored
	}
	m.Selected = i
	m.Wrong = false
	return Selected
}

// SelectRight picks the right item at display position pos and resolves the
// pending left selection against it.
func (m *Match) SelectRight(pos int) Outcome {
	if m.Selected < 0 || pos < 0 || pos >= len(m.Right) {
		return Ignored
	}
	target := m.Right[pos]
	if m.Matched[target] {
		return Ignored
	}

	left := m.Selected
	m.Selected = -1
	if m.Pairs[left].ID != m.Pairs[target].ID {
		m.Wrong = true
		return Wrong
	}
	m.Matched[left] = true
	m.Wrong = false
	if m.Complete() {
		return Completed
	}
	return Correct
}

// RightItems returns the right column in display order.
func (m *Match) RightItems() []string {
	out := make([]string, len(m.Right))
	for pos, i := range m.Right {
		out[pos] = m.Pairs[i].Right
	}
	return out
}

// Reset clears matches, selection and the wrong flag. The right column keeps
// its order.
func (m *Match) Reset() {
	for i := range m.Matched {
		m.Matched[i] = false
	}
	m.Selected = -1
	m.Wrong = false
}
