package content

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// BlockType is the closed set of block categories.
type BlockType string

const (
	BlockThreshold        BlockType = "threshold"
	BlockRoadmap          BlockType = "roadmap"
	BlockCore             BlockType = "core"
	BlockWarningSignals   BlockType = "warning_signals"
	BlockPause            BlockType = "pause"
	BlockPitfalls         BlockType = "pitfalls"
	BlockFunFacts         BlockType = "fun_facts"
	BlockCrossReferences  BlockType = "cross_references"
	BlockRereading        BlockType = "rereading"
	BlockEmotionalCheckin BlockType = "emotional_checkin"
	BlockSelfTest         BlockType = "self_test"
	BlockClosing          BlockType = "closing"
)

// BlockTypes lists every block category in canonical order.
var BlockTypes = []BlockType{
	BlockThreshold, BlockRoadmap, BlockCore, BlockWarningSignals, BlockPause, BlockPitfalls,
	BlockFunFacts, BlockCrossReferences, BlockRereading, BlockEmotionalCheckin, BlockSelfTest, BlockClosing,
}

// ActivityKind is the closed set of activity variants.
type ActivityKind string

const (
	KindStudyGuide  ActivityKind = "study_guide"
	KindTableFill   ActivityKind = "table_fill"
	KindMatchPairs  ActivityKind = "match_pairs"
	KindClassify    ActivityKind = "classify"
	KindFillBlanks  ActivityKind = "fill_blanks"
	KindCaseStudy   ActivityKind = "case_study"
	KindTimeline    ActivityKind = "timeline"
	KindDebateCards ActivityKind = "debate_cards"
	KindDataSnap    ActivityKind = "data_snap"
	KindMiniProject ActivityKind = "mini_project"
)

// ActivityKinds lists every activity kind in canonical order.
var ActivityKinds = []ActivityKind{
	KindStudyGuide, KindTableFill, KindMatchPairs, KindClassify, KindFillBlanks,
	KindCaseStudy, KindTimeline, KindDebateCards, KindDataSnap, KindMiniProject,
}

var (
	blockByKey    = map[string]BlockType{"corecontent": BlockCore}
	activityByKey = map[string]ActivityKind{}
)

func init() {
	for _, t := range BlockTypes {
		blockByKey[foldTag(string(t))] = t
	}
	for _, k := range ActivityKinds {
		activityByKey[foldTag(string(k))] = k
	}
}

// ParseBlockType resolves an authored tag. Matching ignores case, accents and
// separators, so "Warning-Signals" and "warning_signals" are the same tag.
func ParseBlockType(tag string) (BlockType, bool) {
	t, ok := blockByKey[foldTag(tag)]
	return t, ok
}

// ParseActivityKind resolves an authored activity kind the same way.
func ParseActivityKind(tag string) (ActivityKind, bool) {
	k, ok := activityByKey[foldTag(tag)]
	return k, ok
}

// foldTag reduces a tag to lowercase unaccented letters and digits.
func foldTag(tag string) string {
	stripAccents := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(stripAccents, strings.TrimSpace(tag))
	if err != nil {
		s = tag
	}
	s = cases.Fold().String(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
