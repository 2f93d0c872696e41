package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/campus/internal/activity"
	"github.com/p-n-ai/campus/internal/campus"
	"github.com/p-n-ai/campus/internal/content"
	"github.com/p-n-ai/campus/internal/platform/apperr"
)

// playerFrame is sent after opening a session and after every command.
type playerFrame struct {
	Session  *activity.Session `json:"session,omitempty"`
	Outcome  activity.Outcome  `json:"outcome,omitempty"`
	Complete bool              `json:"complete"`
	Error    string            `json:"error,omitempty"`
}

func frame(sess *activity.Session, out activity.Outcome) playerFrame {
	f := playerFrame{Session: sess, Outcome: out}
	switch {
	case sess == nil:
	case sess.Match != nil:
		f.Complete = sess.Match.Complete()
	case sess.Blanks != nil:
		f.Complete = sess.Blanks.Acknowledged
	}
	return f
}

// playable resolves the activity in the request path for sess.
func (s *Server) playable(ctx context.Context, sess campus.Session, r *http.Request) (activity.Key, content.Activity, error) {
	unitID, activityID := r.PathValue("unit"), r.PathValue("activity")
	view, err := s.app.Unit(ctx, sess, unitID)
	if err != nil {
		return activity.Key{}, content.Activity{}, err
	}
	a, ok := view.Unit.Activity(activityID)
	if !ok {
		return activity.Key{}, content.Activity{}, apperr.New(apperr.KindNotFound, "opening activity",
			fmt.Errorf("activity %q not in unit %s", activityID, unitID))
	}
	if !activity.Interactive(a.Kind()) {
		return activity.Key{}, content.Activity{}, fmt.Errorf("%w: %s", activity.ErrNotInteractive, a.Kind())
	}
	return activity.Key{UserID: sess.Profile.ID, UnitID: unitID, ActivityID: activityID}, a, nil
}

func (s *Server) handleOpenActivity(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.authorize(w, r)
	if !ok {
		return
	}
	key, a, err := s.playable(r.Context(), sess, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ps, err := s.player.Open(r.Context(), key, a)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, frame(ps, ""))
}

func (s *Server) handleActivityCommand(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.authorize(w, r)
	if !ok {
		return
	}
	key, a, err := s.playable(r.Context(), sess, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var cmd activity.Command
	if err := decodeJSON(w, r, &cmd); err != nil {
		s.writeError(w, r, err)
		return
	}
	ps, out, err := s.player.Apply(r.Context(), key, a, cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, frame(ps, out))
}

// handlePlayerSocket drives one activity session over a WebSocket. The
// client sends Command frames and receives a playerFrame for each.
func (s *Server) handlePlayerSocket(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.authorize(w, r)
	if !ok {
		return
	}
	key, a, err := s.playable(r.Context(), sess, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("player websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	ps, err := s.player.Open(ctx, key, a)
	if err != nil {
		s.logger.Warn("player open failed", "key", key.String(), "error", err)
		conn.Close(websocket.StatusInternalError, "session unavailable")
		return
	}
	if err := wsjson.Write(ctx, conn, frame(ps, "")); err != nil {
		return
	}

	for {
		var cmd activity.Command
		if err := wsjson.Read(ctx, conn, &cmd); err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				if !errors.Is(err, context.Canceled) {
					s.logger.Warn("player websocket read failed", "key", key.String(), "error", err)
				}
			}
			return
		}

		ps, out, err := s.player.Apply(ctx, key, a, cmd)
		reply := frame(ps, out)
		if err != nil {
			reply.Error = err.Error()
		}
		if err := wsjson.Write(ctx, conn, reply); err != nil {
			s.logger.Warn("player websocket write failed", "key", key.String(), "error", err)
			return
		}
	}
}
