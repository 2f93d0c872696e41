package activity_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/p-n-ai/campus/internal/activity"
	"github.com/p-n-ai/campus/internal/content"
	"github.com/p-n-ai/campus/internal/platform/cache/redistest"
)

var key = activity.Key{UserID: "u1", UnitID: "bio-u1", ActivityID: "a1"}

func newPlayer(store activity.SessionStore) *activity.Player {
	return activity.NewPlayer(store, nil,
		activity.WithRand(func() *rand.Rand { return rand.New(rand.NewPCG(1, 2)) }),
		activity.WithClock(func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }),
	)
}

func TestPlayer_OpenRejectsPreviewKinds(t *testing.T) {
	p := newPlayer(activity.NewMemorySessionStore())
	_, err := p.Open(context.Background(), key, content.Activity{ID: "a1", Data: content.Timeline{}})
	if !errors.Is(err, activity.ErrNotInteractive) {
		t.Errorf("Open() error = %v, want ErrNotInteractive", err)
	}
}

func TestPlayer_MatchSessionSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	store := activity.NewMemorySessionStore()
	a := content.Activity{ID: "a1", Data: pairs(2)}

	p := newPlayer(store)
	sess, err := p.Open(ctx, key, a)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, out, err := p.Apply(ctx, key, a, activity.Command{Action: activity.ActionSelectLeft, Index: 0}); err != nil || out != activity.Selected {
		t.Fatalf("Apply(select_left) = %s, %v", out, err)
	}
	pos := positionOf(sess.Match, 0)
	if _, out, err := p.Apply(ctx, key, a, activity.Command{Action: activity.ActionSelectRight, Index: pos}); err != nil || out != activity.Correct {
		t.Fatalf("Apply(select_right) = %s, %v", out, err)
	}

	again, err := newPlayer(store).Open(ctx, key, a)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	if again.Match.MatchedCount() != 1 {
		t.Errorf("MatchedCount() after reopen = %d, want 1", again.Match.MatchedCount())
	}
}

func TestPlayer_FillBlanksCheck(t *testing.T) {
	ctx := context.Background()
	a := content.Activity{ID: "a1", Data: content.FillBlanks{Sentence: "___ is blue", Bank: []string{"a", "b"}}}
	p := newPlayer(activity.NewMemorySessionStore())

	if _, _, err := p.Apply(ctx, key, a, activity.Command{Action: activity.ActionAnswer, Text: "zzz"}); err != nil {
		t.Fatalf("Apply(answer) error = %v", err)
	}
	sess, _, err := p.Apply(ctx, key, a, activity.Command{Action: activity.ActionCheck})
	if err != nil {
		t.Fatalf("Apply(check) error = %v", err)
	}
	if !sess.Blanks.Acknowledged || sess.Blanks.Answer != "zzz" {
		t.Errorf("Blanks = %+v, want acknowledged with answer kept", sess.Blanks)
	}

	sess, _, err = p.Apply(ctx, key, a, activity.Command{Action: activity.ActionReset})
	if err != nil {
		t.Fatalf("Apply(reset) error = %v", err)
	}
	if sess.Blanks.Acknowledged || sess.Blanks.Answer != "" {
		t.Errorf("Blanks after reset = %+v", sess.Blanks)
	}
}

func TestPlayer_UnknownAction(t *testing.T) {
	a := content.Activity{ID: "a1", Data: pairs(1)}
	p := newPlayer(activity.NewMemorySessionStore())
	_, _, err := p.Apply(context.Background(), key, a, activity.Command{Action: "check"})
	if !errors.Is(err, activity.ErrUnknownAction) {
		t.Errorf("Apply() error = %v, want ErrUnknownAction", err)
	}
}

func TestPlayer_KindChangeStartsFresh(t *testing.T) {
	ctx := context.Background()
	store := activity.NewMemorySessionStore()
	p := newPlayer(store)

	if _, err := p.Open(ctx, key, content.Activity{ID: "a1", Data: pairs(2)}); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	sess, err := p.Open(ctx, key, content.Activity{ID: "a1", Data: content.FillBlanks{Sentence: "s"}})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if sess.Blanks == nil || sess.Match != nil {
		t.Errorf("session = %+v, want a fresh fill_blanks session", sess)
	}
}

type failingStore struct{ activity.SessionStore }

func (failingStore) Load(context.Context, activity.Key) (*activity.Session, error) {
	return nil, errors.New("connection refused")
}

func TestPlayer_BrokenLoadStartsFresh(t *testing.T) {
	p := newPlayer(failingStore{activity.NewMemorySessionStore()})
	sess, err := p.Open(context.Background(), key, content.Activity{ID: "a1", Data: pairs(2)})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if sess.Match == nil || sess.Match.MatchedCount() != 0 {
		t.Errorf("session = %+v, want a fresh board", sess)
	}
}

func TestMemorySessionStore_Isolation(t *testing.T) {
	ctx := context.Background()
	s := activity.NewMemorySessionStore()
	sess := &activity.Session{Key: key, Kind: content.KindMatchPairs, Match: activity.NewMatch(pairs(2), nil)}
	if err := s.Save(ctx, sess); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	sess.Match.Matched[0] = true

	got, err := s.Load(ctx, key)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Match.Matched[0] {
		t.Error("stored session should not alias the caller's board")
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Load(ctx, key); !errors.Is(err, activity.ErrNoSession) {
		t.Errorf("Load() after Delete error = %v, want ErrNoSession", err)
	}
}

func TestRedisSessionStore(t *testing.T) {
	ctx := context.Background()
	store := activity.NewRedisSessionStore(redistest.Cache(t), time.Minute)
	a := content.Activity{ID: "a1", Data: pairs(3)}

	p := newPlayer(store)
	first, err := p.Open(ctx, key, a)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	again, err := newPlayer(store).Open(ctx, key, a)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	if len(again.Match.Right) != 3 || again.Match.Right[0] != first.Match.Right[0] {
		t.Errorf("reopened board = %+v, want the stored shuffle", again.Match)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Load(ctx, key); !errors.Is(err, activity.ErrNoSession) {
		t.Errorf("Load() after Delete error = %v, want ErrNoSession", err)
	}
}
