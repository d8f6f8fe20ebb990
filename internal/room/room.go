package room

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"math/big"
	mrand "math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/pmello/settlers-backend/internal/engine"
	"github.com/pmello/settlers-backend/pkg/types"
)

const (
	inboxSize    = 64
	outboxSize   = 16
	tokenLength  = 22
	tickInterval = 5 * time.Second
	maxPlayers   = 4
)

type Msg interface{ isRoomMsg() }

// JoinResult answers Join and Reconnect requests.
type JoinResult struct {
	PID   int
	Token string
	Err   *types.ErrorBody
}

type Join struct {
	Name   string
	Outbox chan types.ServerMessage
	Reply  chan JoinResult
}

func (Join) isRoomMsg() {}

type Reconnect struct {
	Token  string
	Outbox chan types.ServerMessage
	Reply  chan JoinResult
}

func (Reconnect) isRoomMsg() {}

// Leave carries the leaving session's outbox so a stale session cannot
// kick a seat that has since been reclaimed by reconnect.
type Leave struct {
	PID    int
	Outbox chan types.ServerMessage
}

func (Leave) isRoomMsg() {}

// SetMap switches the room to a preset (MapID) or to validated custom
// map JSON (MapData).
type SetMap struct {
	PID     int
	MapID   string
	MapData []byte
}

func (SetMap) isRoomMsg() {}

type StartMatch struct{ PID int }

func (StartMatch) isRoomMsg() {}

type Rematch struct{ PID int }

func (Rematch) isRoomMsg() {}

// SubmitCmd carries one player command plus its idempotency envelope.
type SubmitCmd struct {
	PID   int
	CmdID string
	Seq   int
	Cmd   engine.Command
}

func (SubmitCmd) isRoomMsg() {}

// GetView reflects internal state without data races. Test-only.
type GetView struct {
	Reply chan View
}

func (GetView) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

// View is a race-free copy of the room's observable state.
type View struct {
	Code      string
	MapID     string
	Players   []types.PlayerInfo
	Connected int
	Started   bool
	Version   int
	Hash      string
}

// Slot is one seat. A seat survives disconnects; Token lets the same
// player reclaim it.
type Slot struct {
	PID       int
	Name      string
	Token     string
	Connected bool
	LastSeq   int
	seenCmds  map[string]bool
	outbox    chan types.ServerMessage
}

// Config carries the knobs a room needs from process config.
type Config struct {
	IdleTimeout time.Duration
	ForcedRolls []int
	MaxPlayers  int
	Log         *zap.Logger
}

// Room owns one lobby and at most one running match. All state is
// confined to the actor goroutine; callers talk through Inbox.
type Room struct {
	code string
	cfg  Config
	log  *zap.Logger

	inbox  chan Msg
	ctx    context.Context
	cancel context.CancelFunc

	slots      []*Slot
	maxPlayers int
	mapID      string
	customDef  *engine.MapDefinition

	match     *engine.GameState
	version   int
	lastHash  string
	rollRNG   *mrand.Rand
	forcedIdx int

	// emptyCh receives the room code once the room has been empty for
	// IdleTimeout, so the hub can tear it down.
	emptyCh   chan<- string
	idleTimer *time.Timer
}

func NewRoom(parent context.Context, code string, cfg Config, emptyCh chan<- string) *Room {
	ctx, cancel := context.WithCancel(parent)
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	mp := cfg.MaxPlayers
	if mp < 2 || mp > maxPlayers {
		mp = maxPlayers
	}
	r := &Room{
		code:       code,
		cfg:        cfg,
		log:        log.With(zap.String("room", code)),
		inbox:      make(chan Msg, inboxSize),
		ctx:        ctx,
		cancel:     cancel,
		maxPlayers: mp,
		mapID:      engine.DefaultMapID,
		emptyCh:    emptyCh,
	}
	go r.loop()
	return r
}

func (r *Room) Inbox() chan<- Msg { return r.inbox }

func (r *Room) Code() string { return r.code }

func (r *Room) loop() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	r.armIdleTimer()
	var idleC <-chan time.Time
	if r.idleTimer != nil {
		idleC = r.idleTimer.C
	}

	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case <-ticker.C:
			if r.match != nil {
				r.broadcast(types.Tick(r.version, r.lastHash))
			}

		case <-idleC:
			if r.connectedCount() == 0 {
				r.log.Info("room idle, requesting teardown")
				select {
				case r.emptyCh <- r.code:
				default:
				}
				r.shutdown()
				return
			}

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				msg.Reply <- r.handleJoin(msg)
			case Reconnect:
				msg.Reply <- r.handleReconnect(msg)
			case Leave:
				r.handleLeave(msg)
			case SetMap:
				r.handleSetMap(msg)
			case StartMatch:
				r.handleStartMatch(msg.PID)
			case Rematch:
				r.handleRematch(msg.PID)
			case SubmitCmd:
				r.handleCmd(msg)
			case GetView:
				msg.Reply <- r.view()
			case Shutdown:
				r.shutdown()
				return
			}
			r.armIdleTimer()
			if r.idleTimer != nil {
				idleC = r.idleTimer.C
			} else {
				idleC = nil
			}
		}
	}
}

func (r *Room) shutdown() {
	for _, s := range r.slots {
		if s.Connected {
			close(s.outbox)
			s.Connected = false
		}
	}
	r.cancel()
}

func (r *Room) connectedCount() int {
	n := 0
	for _, s := range r.slots {
		if s.Connected {
			n++
		}
	}
	return n
}

// armIdleTimer keeps exactly one idle timer pending while the room is
// empty, and none while anyone is connected.
func (r *Room) armIdleTimer() {
	if r.cfg.IdleTimeout <= 0 {
		return
	}
	if r.connectedCount() > 0 {
		if r.idleTimer != nil {
			r.idleTimer.Stop()
			r.idleTimer = nil
		}
		return
	}
	if r.idleTimer == nil {
		r.idleTimer = time.NewTimer(r.cfg.IdleTimeout)
	}
}

func (r *Room) handleJoin(msg Join) JoinResult {
	name := msg.Name
	if name == "" {
		name = "player"
	}

	// Name-based rejoin: a disconnected seat with a matching name is
	// reclaimed, mid-match included, so a client that lost its reconnect
	// token can still re-enter.
	for _, s := range r.slots {
		if s.Connected || s.Name != name {
			continue
		}
		s.outbox = msg.Outbox
		s.Connected = true
		r.log.Info("player rejoined by name", zap.Int("pid", s.PID))
		r.sendTo(s, types.ReconnectToken(r.code, s.PID, s.Token, s.LastSeq))
		if r.match != nil {
			if m, ok := r.matchStateFor(s.PID, nil); ok {
				r.sendTo(s, m)
			}
		}
		r.broadcastRoomState()
		return JoinResult{PID: s.PID, Token: s.Token}
	}

	if r.match != nil {
		return JoinResult{Err: &types.ErrorBody{Code: engine.CodeIllegal, Message: "match already started"}}
	}
	if len(r.slots) >= r.maxPlayers {
		return JoinResult{Err: &types.ErrorBody{Code: engine.CodeIllegal, Message: "room is full"}}
	}
	token, err := newToken()
	if err != nil {
		return JoinResult{Err: &types.ErrorBody{Code: engine.CodeInvalid, Message: "token generation failed"}}
	}
	s := &Slot{
		PID:       len(r.slots),
		Name:      name,
		Token:     token,
		Connected: true,
		LastSeq:   0,
		seenCmds:  make(map[string]bool),
		outbox:    msg.Outbox,
	}
	r.slots = append(r.slots, s)
	r.log.Info("player joined", zap.Int("pid", s.PID), zap.String("name", name))
	r.sendTo(s, types.ReconnectToken(r.code, s.PID, token, 0))
	r.broadcastRoomState()
	return JoinResult{PID: s.PID, Token: token}
}

func (r *Room) handleReconnect(msg Reconnect) JoinResult {
	for _, s := range r.slots {
		if s.Token != msg.Token {
			continue
		}
		if s.Connected {
			close(s.outbox)
		}
		s.outbox = msg.Outbox
		s.Connected = true
		r.log.Info("player reconnected", zap.Int("pid", s.PID))
		r.sendTo(s, types.ReconnectToken(r.code, s.PID, s.Token, s.LastSeq))
		r.sendTo(s, r.roomStateMsg())
		if r.match != nil {
			if m, ok := r.matchStateFor(s.PID, nil); ok {
				r.sendTo(s, m)
			}
		}
		r.broadcastRoomState()
		return JoinResult{PID: s.PID, Token: s.Token}
	}
	return JoinResult{Err: &types.ErrorBody{Code: engine.CodeNotFound, Message: "unknown reconnect token"}}
}

// handleLeave marks the seat disconnected. Seats are never reassigned;
// the token still reclaims the seat mid-match.
func (r *Room) handleLeave(msg Leave) {
	if msg.PID < 0 || msg.PID >= len(r.slots) {
		return
	}
	s := r.slots[msg.PID]
	if !s.Connected {
		return
	}
	if msg.Outbox != nil && s.outbox != msg.Outbox {
		return // stale session, seat already reclaimed
	}
	s.Connected = false
	close(s.outbox)
	r.log.Info("player left", zap.Int("pid", msg.PID))
	r.broadcastRoomState()
}

func (r *Room) handleSetMap(msg SetMap) {
	if r.match != nil {
		r.errTo(msg.PID, engine.CodeIllegal, "match already started")
		return
	}
	if msg.PID != 0 {
		r.errTo(msg.PID, engine.CodeForbidden, "only the host can change the map")
		return
	}
	if len(msg.MapData) > 0 {
		def, err := engine.ParseMapData(msg.MapData)
		if err != nil {
			r.errTo(msg.PID, engine.CodeInvalid, "map rejected: "+err.Error())
			return
		}
		r.customDef = def
		r.mapID = "custom"
		r.broadcastRoomState()
		return
	}
	if _, err := engine.PresetMap(msg.MapID); err != nil {
		r.errTo(msg.PID, engine.CodeNotFound, "unknown map: "+msg.MapID)
		return
	}
	r.customDef = nil
	r.mapID = msg.MapID
	r.broadcastRoomState()
}

func (r *Room) handleStartMatch(pid int) {
	if r.match != nil {
		r.errTo(pid, engine.CodeIllegal, "match already started")
		return
	}
	if pid != 0 {
		r.errTo(pid, engine.CodeForbidden, "only the host can start the match")
		return
	}
	if len(r.slots) < 2 {
		r.errTo(pid, engine.CodeIllegal, "need at least 2 players")
		return
	}
	r.startMatch(pid)
}

func (r *Room) handleRematch(pid int) {
	if r.match == nil {
		r.errTo(pid, engine.CodeIllegal, "no match to rematch")
		return
	}
	if !r.match.GameOver {
		r.errTo(pid, engine.CodeIllegal, "match still running")
		return
	}
	if pid != 0 {
		r.errTo(pid, engine.CodeForbidden, "only the host can start a rematch")
		return
	}
	r.startMatch(pid)
}

// startMatch builds a fresh game from a new random seed. Seats keep
// their pids and tokens; per-seat sequence tracking restarts.
func (r *Room) startMatch(pid int) {
	seed, err := newSeed()
	if err != nil {
		r.errTo(pid, engine.CodeInvalid, "seed generation failed")
		return
	}
	def := r.customDef
	if def == nil {
		var perr error
		def, perr = engine.PresetMap(r.mapID)
		if perr != nil {
			r.errTo(pid, engine.CodeNotFound, "unknown map: "+r.mapID)
			return
		}
	}
	names := make([]string, len(r.slots))
	for i, s := range r.slots {
		names[i] = s.Name
	}
	g, err := engine.NewGame(def, r.mapID, seed, names)
	if err != nil {
		r.errTo(pid, engine.CodeInvalid, "map rejected: "+err.Error())
		return
	}
	r.match = g
	r.version = 1
	r.rollRNG = mrand.New(mrand.NewSource(seed))
	r.forcedIdx = 0
	for _, s := range r.slots {
		s.LastSeq = 0
		s.seenCmds = make(map[string]bool)
	}
	r.log.Info("match started",
		zap.String("map", r.mapID),
		zap.Int64("seed", seed),
		zap.Int("players", len(r.slots)))
	r.broadcastMatchState(nil)
}

// nextRoll returns the next dice total: the configured forced sequence
// when present, two fair dice otherwise.
func (r *Room) nextRoll() int {
	if len(r.cfg.ForcedRolls) > 0 {
		roll := r.cfg.ForcedRolls[r.forcedIdx%len(r.cfg.ForcedRolls)]
		r.forcedIdx++
		return roll
	}
	return 2 + r.rollRNG.Intn(6) + r.rollRNG.Intn(6)
}

func (r *Room) handleCmd(msg SubmitCmd) {
	if msg.PID < 0 || msg.PID >= len(r.slots) {
		return
	}
	s := r.slots[msg.PID]

	if r.match == nil {
		r.errTo(msg.PID, engine.CodeIllegal, "no match running")
		return
	}

	// Idempotent replay: a seq at or below the watermark, or a cmd id we
	// have seen, gets its ack resent and nothing else.
	if msg.Seq <= s.LastSeq || (msg.CmdID != "" && s.seenCmds[msg.CmdID]) {
		r.sendTo(s, types.CmdAck(types.CmdAckBody{
			CmdID: msg.CmdID, Seq: msg.Seq,
			LastSeqApplied: s.LastSeq, Duplicate: true,
		}))
		return
	}
	if msg.Seq != s.LastSeq+1 {
		r.sendTo(s, types.ErrorMessage(engine.CodeOutOfOrder, "command sequence gap",
			map[string]any{"got": msg.Seq, "want": s.LastSeq + 1}))
		return
	}

	// The watermark advances even when the rules reject the command, so a
	// client cannot wedge its sequence on an illegal move.
	s.LastSeq = msg.Seq
	if msg.CmdID != "" {
		s.seenCmds[msg.CmdID] = true
	}

	cmd := msg.Cmd
	if cmd.Type == engine.CmdRoll {
		roll := r.nextRoll()
		cmd.Roll = &roll
	}

	events, err := r.match.Apply(msg.PID, cmd)
	applied := err == nil
	r.sendTo(s, types.CmdAck(types.CmdAckBody{
		CmdID: msg.CmdID, Seq: msg.Seq,
		LastSeqApplied: s.LastSeq, Applied: applied,
	}))
	if err != nil {
		if re, ok := err.(*engine.RuleError); ok {
			r.sendTo(s, types.ErrorMessage(re.Code, re.Message, re.Detail))
		} else {
			r.sendTo(s, types.ErrorMessage(engine.CodeInvalid, err.Error(), nil))
		}
		return
	}

	r.version++
	r.broadcastMatchState(events)
	if r.match.GameOver {
		r.log.Info("match over", zap.Intp("winner", r.match.Winner))
	}
}

// matchStateFor builds the redacted match_state frame for one viewer.
func (r *Room) matchStateFor(viewer int, events []engine.Event) (types.ServerMessage, bool) {
	snap := r.match.Snapshot()
	_, hash, err := snap.SnapshotBytes()
	if err != nil {
		r.log.Error("snapshot encode failed", zap.Error(err))
		return types.ServerMessage{}, false
	}
	r.lastHash = hash
	raw, err := json.Marshal(snap.RedactFor(viewer))
	if err != nil {
		r.log.Error("snapshot encode failed", zap.Error(err))
		return types.ServerMessage{}, false
	}
	return types.MatchState(r.version, hash, raw, redactEvents(events, viewer)), true
}

// redactEvents strips per-viewer hidden payloads: the card type on
// another player's dev card purchase.
func redactEvents(events []engine.Event, viewer int) []engine.Event {
	out := make([]engine.Event, len(events))
	copy(out, events)
	for i := range out {
		if out[i].Type == engine.EvtBuyDev && out[i].PID != viewer {
			out[i].Card = ""
		}
	}
	return out
}

func (r *Room) broadcastMatchState(events []engine.Event) {
	for _, s := range r.slots {
		if !s.Connected {
			continue
		}
		if m, ok := r.matchStateFor(s.PID, events); ok {
			r.sendTo(s, m)
		}
	}
}

func (r *Room) roomStateMsg() types.ServerMessage {
	players := make([]types.PlayerInfo, len(r.slots))
	for i, s := range r.slots {
		players[i] = types.PlayerInfo{PID: s.PID, Name: s.Name, Connected: s.Connected}
	}
	return types.RoomState(r.code, r.mapID, players, r.match != nil)
}

func (r *Room) broadcastRoomState() {
	r.broadcast(r.roomStateMsg())
}

func (r *Room) broadcast(m types.ServerMessage) {
	for _, s := range r.slots {
		if s.Connected {
			r.sendTo(s, m)
		}
	}
}

// sendTo delivers without blocking the actor. A full outbox means the
// client is too slow; it gets dropped and may reconnect by token.
func (r *Room) sendTo(s *Slot, m types.ServerMessage) {
	if !s.Connected {
		return
	}
	select {
	case s.outbox <- m:
	default:
		r.log.Warn("dropping slow client", zap.Int("pid", s.PID))
		close(s.outbox)
		s.Connected = false
	}
}

func (r *Room) errTo(pid int, code, message string) {
	if pid < 0 || pid >= len(r.slots) {
		return
	}
	r.sendTo(r.slots[pid], types.ErrorMessage(code, message, nil))
}

func (r *Room) view() View {
	players := make([]types.PlayerInfo, len(r.slots))
	for i, s := range r.slots {
		players[i] = types.PlayerInfo{PID: s.PID, Name: s.Name, Connected: s.Connected}
	}
	return View{
		Code:      r.code,
		MapID:     r.mapID,
		Players:   players,
		Connected: r.connectedCount(),
		Started:   r.match != nil,
		Version:   r.version,
		Hash:      r.lastHash,
	}
}

const tokenCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func newToken() (string, error) {
	b := make([]byte, tokenLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(tokenCharset))))
		if err != nil {
			return "", err
		}
		b[i] = tokenCharset[n.Int64()]
	}
	return string(b), nil
}

func newSeed() (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		return 0, err
	}
	return n.Int64(), nil
}
