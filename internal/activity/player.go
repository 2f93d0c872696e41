package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/p-n-ai/campus/internal/content"
)

// ErrNotInteractive is returned for activity kinds that only have a preview.
var ErrNotInteractive = errors.New("activity kind is not interactive")

// ErrUnknownAction is returned for commands the player does not understand.
var ErrUnknownAction = errors.New("unknown player action")

// Player actions.
const (
	ActionSelectLeft  = "select_left"
	ActionSelectRight = "select_right"
	ActionAnswer      = "answer"
	ActionCheck       = "check"
	ActionReset       = "reset"
)

// Command is one learner input.
type Command struct {
	Action string `json:"action"`
	Index  int    `json:"index,omitempty"`
	Text   string `json:"text,omitempty"`
}

// Interactive reports whether kind has a player.
func Interactive(kind content.ActivityKind) bool {
	return kind == content.KindMatchPairs || kind == content.KindFillBlanks
}

// Player opens and drives sessions, persisting every change.
type Player struct {
	store  SessionStore
	logger *slog.Logger
	rng    func() *rand.Rand
	now    func() time.Time
}

// Option configures a Player.
type Option func(*Player)

// WithRand seeds the shuffle of new match boards.
func WithRand(rng func() *rand.Rand) Option {
	return func(p *Player) { p.rng = rng }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Player) { p.now = now }
}

func NewPlayer(store SessionStore, logger *slog.Logger, opts ...Option) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Player{
		store:  store,
		logger: logger,
		rng:    func() *rand.Rand { return nil },
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Open returns the learner's stored session for a, or a fresh one.
func (p *Player) Open(ctx context.Context, key Key, a content.Activity) (*Session, error) {
	if !Interactive(a.Kind()) {
		return nil, fmt.Errorf("%w: %s", ErrNotInteractive, a.Kind())
	}
	sess, err := p.store.Load(ctx, key)
	switch {
	case err == nil && sess.Kind == a.Kind():
		return sess, nil
	case err != nil && !errors.Is(err, ErrNoSession):
		// A broken store should not block the activity.
		p.logger.Warn("player session load failed, starting fresh", "key", key.String(), "error", err)
	}

	sess = p.fresh(key, a)
	if err := p.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("opening player %s: %w", key, err)
	}
	return sess, nil
}

func (p *Player) fresh(key Key, a content.Activity) *Session {
	sess := &Session{Key: key, Kind: a.Kind(), UpdatedAt: p.now().UTC()}
	switch d := a.Data.(type) {
	case content.MatchPairs:
		sess.Match = NewMatch(d, p.rng())
	case content.FillBlanks:
		sess.Blanks = &Blanks{Sentence: d.Sentence, Bank: append([]string(nil), d.Bank...)}
	}
	return sess
}

// Apply runs cmd against the learner's session and saves the result.
func (p *Player) Apply(ctx context.Context, key Key, a content.Activity, cmd Command) (*Session, Outcome, error) {
	sess, err := p.Open(ctx, key, a)
	if err != nil {
		return nil, "", err
	}

	var out Outcome
	switch {
	case sess.Match != nil:
		out, err = applyMatch(sess.Match, cmd)
	case sess.Blanks != nil:
		out, err = applyBlanks(sess.Blanks, cmd)
	}
	if err != nil {
		return sess, "", err
	}
	if out == Ignored {
		return sess, out, nil
	}

	sess.UpdatedAt = p.now().UTC()
	if err := p.store.Save(ctx, sess); err != nil {
		return nil, "", fmt.Errorf("saving player %s: %w", key, err)
	}
	if out == Completed {
		p.logger.Info("activity completed", "user_id", key.UserID, "unit_id", key.UnitID, "activity_id", key.ActivityID)
	}
	return sess, out, nil
}

func applyMatch(m *Match, cmd Command) (Outcome, error) {
	switch cmd.Action {
	case ActionSelectLeft:
		return m.SelectLeft(cmd.Index), nil
	case ActionSelectRight:
		return m.SelectRight(cmd.Index), nil
	case ActionReset:
		m.Reset()
		return Updated, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
}

func applyBlanks(b *Blanks, cmd Command) (Outcome, error) {
	switch cmd.Action {
	case ActionAnswer:
		b.SetAnswer(cmd.Text)
		return Updated, nil
	case ActionCheck:
		b.Check()
		return Updated, nil
	case ActionReset:
		b.Reset()
		return Updated, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
}
