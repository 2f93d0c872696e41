// Package progress tracks which unit blocks a learner has visited and derives
// completion percentages from those records.
package progress

import (
	"math"
	"time"

	"github.com/p-n-ai/campus/internal/content"
)

// Record statuses that count as visited.
const (
	StatusVisited   = "visited"
	StatusCompleted = "completed"
)

// BlocksPerUnitEstimate is the per-unit row count assumed by SubjectPercent
// when exact block counts are not loaded.
const BlocksPerUnitEstimate = 5

// Record marks one block of one unit for one learner.
type Record struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	SubjectID string    `json:"subject_id"`
	UnitID    string    `json:"unit_id"`
	BlockID   string    `json:"block_id"`
	Visited   bool      `json:"visited"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Done reports whether the record marks its block as visited.
func (r Record) Done() bool {
	return r.Visited || r.Status == StatusVisited || r.Status == StatusCompleted
}

// Visited returns the set of block ids marked visited by any record. Records
// without a block id are ignored.
func Visited(records []Record) map[string]bool {
	out := make(map[string]bool)
	for _, r := range records {
		if r.BlockID != "" && r.Done() {
			out[r.BlockID] = true
		}
	}
	return out
}

// UnitPercent is the share of counted blocks of u that are visited, 0..100.
// Records of other units are ignored when they carry a unit id.
func UnitPercent(u content.Unit, records []Record) int {
	var scoped []Record
	for _, r := range records {
		if r.UnitID == "" || r.UnitID == u.ID {
			scoped = append(scoped, r)
		}
	}
	visited := Visited(scoped)

	counted, done := 0, 0
	for _, b := range u.Blocks {
		if !b.CountsForProgress {
			continue
		}
		counted++
		if b.Trackable() && visited[b.ID] {
			done++
		}
	}
	return percent(done, counted)
}

// SubjectPercent approximates subject progress from a raw visited-row count,
// assuming BlocksPerUnitEstimate rows per unit.
func SubjectPercent(rows, units int) int {
	return percent(rows, max(units, 1)*BlocksPerUnitEstimate)
}

func percent(n, total int) int {
	p := math.Round(100 * float64(n) / float64(max(total, 1)))
	return int(min(max(p, 0), 100))
}
