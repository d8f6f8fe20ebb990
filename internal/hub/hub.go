package hub

import (
	"context"
	"crypto/rand"
	"math/big"

	"go.uber.org/zap"

	"github.com/pmello/settlers-backend/internal/room"
)

type HubMsg interface{ isHubMsg() }

// CreateRoom allocates a fresh room under a new unique code. MaxPlayers
// of 0 takes the room default.
type CreateRoom struct {
	MaxPlayers int
	Reply      chan CreateResult
}

type CreateResult struct {
	Code string
	Room *room.Room
}

type GetRoom struct {
	Code  string
	Reply chan *room.Room
}

type RemoveRoom struct {
	Code string
}

type ShutdownHub struct{}

func (CreateRoom) isHubMsg() {}
func (GetRoom) isHubMsg()    {}
func (RemoveRoom) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}

// Hub owns the room registry. Room codes are generated here so creation
// and collision checking happen on one goroutine.
type Hub struct {
	inbox   chan HubMsg
	rooms   map[string]*room.Room
	roomCfg room.Config
	emptyCh chan string
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, roomCfg room.Config) *Hub {
	ctx, cancel := context.WithCancel(parent)
	log := roomCfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		rooms:   make(map[string]*room.Room),
		roomCfg: roomCfg,
		emptyCh: make(chan string, 16),
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case code := <-h.emptyCh:
			if _, ok := h.rooms[code]; ok {
				h.log.Info("removing idle room", zap.String("room", code))
				delete(h.rooms, code)
			}

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				code, err := h.newCode()
				if err != nil {
					h.log.Error("room code generation failed", zap.Error(err))
					msg.Reply <- CreateResult{}
					break
				}
				cfg := h.roomCfg
				if msg.MaxPlayers > 0 {
					cfg.MaxPlayers = msg.MaxPlayers
				}
				rm := room.NewRoom(h.ctx, code, cfg, h.emptyCh)
				h.rooms[code] = rm
				h.log.Info("room created", zap.String("room", code))
				msg.Reply <- CreateResult{Code: code, Room: rm}

			case GetRoom:
				msg.Reply <- h.rooms[msg.Code] // may be nil

			case RemoveRoom:
				if rm, ok := h.rooms[msg.Code]; ok {
					rm.Inbox() <- room.Shutdown{}
					delete(h.rooms, msg.Code)
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for _, rm := range h.rooms {
		rm.Inbox() <- room.Shutdown{}
	}
	clear(h.rooms)
	h.cancel()
}

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// newCode returns a 6-char code not currently in use.
func (h *Hub) newCode() (string, error) {
	for {
		b := make([]byte, 6)
		for i := range b {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
			if err != nil {
				return "", err
			}
			b[i] = codeCharset[n.Int64()]
		}
		code := string(b)
		if _, taken := h.rooms[code]; !taken {
			return code, nil
		}
	}
}
