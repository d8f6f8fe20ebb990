package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/pmello/settlers-backend/internal/engine"
	"github.com/pmello/settlers-backend/internal/hub"
	"github.com/pmello/settlers-backend/internal/room"
	"github.com/pmello/settlers-backend/pkg/types"
)

const (
	writeTimeout = 3 * time.Second
	readTimeout  = 60 * time.Second
)

// session is one websocket connection's room binding. A connection is
// bound to at most one seat at a time.
type session struct {
	conn   *websocket.Conn
	log    *zap.Logger
	room   *room.Room
	pid    int
	outbox chan types.ServerMessage
	bound  bool
}

// Handler upgrades to websocket and runs the session protocol: the
// client sends create_room / join_room / reconnect to bind a seat, then
// room-scoped messages.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		s := &session{conn: conn, log: log}
		defer s.unbind()

		// Writer goroutine: drains whatever outbox the session is bound
		// to. Rebinding swaps the channel, so drain via the session.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()

		for {
			ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				s.write(r.Context(), types.ErrorMessage(engine.CodeInvalid, "bad json", nil))
				continue
			}
			if !s.dispatch(r.Context(), writeCtx, h, cm) {
				return
			}
		}
	}
}

// dispatch handles one client frame. Returns false to end the session.
func (s *session) dispatch(ctx, writeCtx context.Context, h *hub.Hub, cm types.ClientMessage) bool {
	switch cm.Type {
	case types.MsgHello:
		s.write(ctx, types.ServerMessage{Type: types.MsgHello})

	case types.MsgCreateRoom:
		if s.bound {
			s.write(ctx, types.ErrorMessage(engine.CodeIllegal, "already in a room", nil))
			return true
		}
		reply := make(chan hub.CreateResult, 1)
		h.Inbox() <- hub.CreateRoom{MaxPlayers: cm.MaxPlayers, Reply: reply}
		res := <-reply
		if res.Room == nil {
			s.write(ctx, types.ErrorMessage(engine.CodeInvalid, "room creation failed", nil))
			return true
		}
		s.join(ctx, writeCtx, res.Room, room.Join{Name: cm.Name})

	case types.MsgJoinRoom:
		if s.bound {
			s.write(ctx, types.ErrorMessage(engine.CodeIllegal, "already in a room", nil))
			return true
		}
		rm := lookupRoom(h, cm.RoomCode)
		if rm == nil {
			s.write(ctx, types.ErrorMessage(engine.CodeNotFound, "room not found", nil))
			return true
		}
		s.join(ctx, writeCtx, rm, room.Join{Name: cm.Name})

	case types.MsgReconnect:
		if s.bound {
			s.write(ctx, types.ErrorMessage(engine.CodeIllegal, "already in a room", nil))
			return true
		}
		rm := lookupRoom(h, cm.RoomCode)
		if rm == nil {
			s.write(ctx, types.ErrorMessage(engine.CodeNotFound, "room not found", nil))
			return true
		}
		s.reconnect(ctx, writeCtx, rm, cm.Token)

	case types.MsgSetMap:
		if !s.requireBound(ctx) {
			return true
		}
		s.room.Inbox() <- room.SetMap{PID: s.pid, MapID: cm.MapID, MapData: cm.MapData}

	case types.MsgStartMatch:
		if !s.requireBound(ctx) {
			return true
		}
		s.room.Inbox() <- room.StartMatch{PID: s.pid}

	case types.MsgRematch:
		if !s.requireBound(ctx) {
			return true
		}
		s.room.Inbox() <- room.Rematch{PID: s.pid}

	case types.MsgCmd:
		if !s.requireBound(ctx) {
			return true
		}
		if cm.Cmd == nil {
			s.write(ctx, types.ErrorMessage(engine.CodeInvalid, "cmd required", nil))
			return true
		}
		s.room.Inbox() <- room.SubmitCmd{PID: s.pid, CmdID: cm.CmdID, Seq: cm.Seq, Cmd: *cm.Cmd}

	case types.MsgLeave:
		s.unbind()
		return false

	default:
		s.write(ctx, types.ErrorMessage(engine.CodeInvalid, "unknown message type: "+cm.Type, nil))
	}
	return true
}

func lookupRoom(h *hub.Hub, code string) *room.Room {
	reply := make(chan *room.Room, 1)
	h.Inbox() <- hub.GetRoom{Code: code, Reply: reply}
	return <-reply
}

func (s *session) join(ctx, writeCtx context.Context, rm *room.Room, j room.Join) {
	out := make(chan types.ServerMessage, 16)
	reply := make(chan room.JoinResult, 1)
	j.Outbox = out
	j.Reply = reply
	rm.Inbox() <- j
	res := <-reply
	if res.Err != nil {
		s.write(ctx, types.ServerMessage{Type: types.MsgError, Error: res.Err})
		return
	}
	s.bind(writeCtx, rm, res.PID, out)
}

func (s *session) reconnect(ctx, writeCtx context.Context, rm *room.Room, token string) {
	out := make(chan types.ServerMessage, 16)
	reply := make(chan room.JoinResult, 1)
	rm.Inbox() <- room.Reconnect{Token: token, Outbox: out, Reply: reply}
	res := <-reply
	if res.Err != nil {
		s.write(ctx, types.ServerMessage{Type: types.MsgError, Error: res.Err})
		return
	}
	s.bind(writeCtx, rm, res.PID, out)
}

// bind attaches the session to a seat and starts pumping its outbox to
// the socket.
func (s *session) bind(writeCtx context.Context, rm *room.Room, pid int, out chan types.ServerMessage) {
	s.room = rm
	s.pid = pid
	s.outbox = out
	s.bound = true
	go func() {
		for m := range out {
			s.write(writeCtx, m)
		}
	}()
}

func (s *session) unbind() {
	if !s.bound {
		return
	}
	s.room.Inbox() <- room.Leave{PID: s.pid, Outbox: s.outbox}
	s.bound = false
}

func (s *session) requireBound(ctx context.Context) bool {
	if !s.bound {
		s.write(ctx, types.ErrorMessage(engine.CodeForbidden, "join a room first", nil))
	}
	return s.bound
}

func (s *session) write(ctx context.Context, m types.ServerMessage) {
	payload, err := json.Marshal(m)
	if err != nil {
		s.log.Error("marshal server message", zap.Error(err))
		return
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = s.conn.Write(wctx, websocket.MessageText, payload)
}
