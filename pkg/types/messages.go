package types

import (
	"encoding/json"

	"github.com/pmello/settlers-backend/internal/engine"
)

// Client -> server message types.
const (
	MsgHello      = "hello"
	MsgCreateRoom = "create_room"
	MsgJoinRoom   = "join_room"
	MsgReconnect  = "reconnect"
	MsgSetMap     = "set_map"
	MsgStartMatch = "start_match"
	MsgRematch    = "rematch"
	MsgCmd        = "cmd"
	MsgLeave      = "leave"
)

// Server -> client message types. The server greets with "hello" too.
const (
	MsgReconnectToken = "reconnect_token"
	MsgRoomState      = "room_state"
	MsgMatchState     = "match_state"
	MsgCmdAck         = "cmd_ack"
	MsgTick           = "tick"
	MsgError          = "error"
)

// ClientMessage is every client -> server frame. Fields beyond Type are
// message-specific.
type ClientMessage struct {
	Type       string          `json:"type"`
	Name       string          `json:"name,omitempty"`
	RoomCode   string          `json:"room_code,omitempty"`
	Token      string          `json:"reconnect_token,omitempty"`
	MaxPlayers int             `json:"max_players,omitempty"`
	MapID      string          `json:"map_id,omitempty"`
	MapData    json.RawMessage `json:"map_data,omitempty"`
	CmdID      string          `json:"cmd_id,omitempty"`
	Seq        int             `json:"seq,omitempty"`
	Cmd        *engine.Command `json:"cmd,omitempty"`
}

// PlayerInfo is one seat in the room roster.
type PlayerInfo struct {
	PID       int    `json:"pid"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

// ErrorBody carries a stable machine-readable code plus human text.
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Detail  map[string]any `json:"detail,omitempty"`
}

// CmdAckBody confirms receipt of one command. Applied is false when the
// rules rejected it; Duplicate is true when the command was already
// processed and the ack is a replay.
type CmdAckBody struct {
	CmdID          string `json:"cmd_id"`
	Seq            int    `json:"seq"`
	LastSeqApplied int    `json:"last_seq_applied"`
	Applied        bool   `json:"applied"`
	Duplicate      bool   `json:"duplicate,omitempty"`
}

// ServerMessage is every server -> client frame.
type ServerMessage struct {
	Type           string          `json:"type"`
	RoomCode       string          `json:"room_code,omitempty"`
	PID            *int            `json:"pid,omitempty"`
	Host           *int            `json:"host,omitempty"`
	Token          string          `json:"reconnect_token,omitempty"`
	LastSeqApplied *int            `json:"last_seq_applied,omitempty"`
	MapID          string          `json:"map_id,omitempty"`
	Players        []PlayerInfo    `json:"players,omitempty"`
	Started        bool            `json:"started,omitempty"`
	Version        int             `json:"version,omitempty"`
	Hash           string          `json:"state_hash,omitempty"`
	State          json.RawMessage `json:"state,omitempty"`
	Events         []engine.Event  `json:"events,omitempty"`
	Ack            *CmdAckBody     `json:"ack,omitempty"`
	Error          *ErrorBody      `json:"error,omitempty"`
}

func ErrorMessage(code, message string, detail map[string]any) ServerMessage {
	return ServerMessage{
		Type:  MsgError,
		Error: &ErrorBody{Code: code, Message: message, Detail: detail},
	}
}

func RoomState(code, mapID string, players []PlayerInfo, started bool) ServerMessage {
	host := 0 // seat 0 is always the host
	return ServerMessage{
		Type:     MsgRoomState,
		RoomCode: code,
		Host:     &host,
		MapID:    mapID,
		Players:  players,
		Started:  started,
	}
}

func MatchState(version int, hash string, state json.RawMessage, events []engine.Event) ServerMessage {
	return ServerMessage{
		Type:    MsgMatchState,
		Version: version,
		Hash:    hash,
		State:   state,
		Events:  events,
	}
}

func CmdAck(body CmdAckBody) ServerMessage {
	return ServerMessage{Type: MsgCmdAck, Ack: &body}
}

func Tick(version int, hash string) ServerMessage {
	return ServerMessage{Type: MsgTick, Version: version, Hash: hash}
}

// ReconnectToken confirms a seat binding and hands out the token that
// reclaims it. lastSeq tells the client where its command sequence
// resumes after a reconnect.
func ReconnectToken(code string, pid int, token string, lastSeq int) ServerMessage {
	return ServerMessage{
		Type: MsgReconnectToken, RoomCode: code, PID: &pid,
		Token: token, LastSeqApplied: &lastSeq,
	}
}
