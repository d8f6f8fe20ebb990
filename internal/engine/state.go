package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Resource kinds. The bank and every player hand is a map keyed by these.
const (
	Wood  = "wood"
	Brick = "brick"
	Sheep = "sheep"
	Wheat = "wheat"
	Ore   = "ore"
)

// Resources lists every resource kind in canonical order.
var Resources = []string{Wood, Brick, Sheep, Wheat, Ore}

// Terrain kinds.
const (
	TerrainForest    = "forest"
	TerrainHills     = "hills"
	TerrainPasture   = "pasture"
	TerrainFields    = "fields"
	TerrainMountains = "mountains"
	TerrainDesert    = "desert"
	TerrainSea       = "sea"
	TerrainGold      = "gold"
)

// terrainResource maps producing terrains to the resource they yield.
// Desert and sea yield nothing; gold yields a player-chosen resource and
// is handled separately.
var terrainResource = map[string]string{
	TerrainForest:    Wood,
	TerrainHills:     Brick,
	TerrainPasture:   Sheep,
	TerrainFields:    Wheat,
	TerrainMountains: Ore,
}

var allTerrains = map[string]bool{
	TerrainForest:    true,
	TerrainHills:     true,
	TerrainPasture:   true,
	TerrainFields:    true,
	TerrainMountains: true,
	TerrainDesert:    true,
	TerrainSea:       true,
	TerrainGold:      true,
}

// Build costs.
var (
	costRoad       = map[string]int{Wood: 1, Brick: 1}
	costShip       = map[string]int{Wood: 1, Sheep: 1}
	costSettlement = map[string]int{Wood: 1, Brick: 1, Sheep: 1, Wheat: 1}
	costCity       = map[string]int{Wheat: 2, Ore: 3}
	costDev        = map[string]int{Sheep: 1, Wheat: 1, Ore: 1}
)

// Development card types.
const (
	DevKnight       = "knight"
	DevVictoryPoint = "victory_point"
	DevRoadBuilding = "road_building"
	DevYearOfPlenty = "year_of_plenty"
	DevMonopoly     = "monopoly"
)

const bankPerResource = 19

// XY is a pixel position on the board plane.
type XY [2]float64

// EdgeID identifies an edge by its two vertex ids with A < B. It
// serializes as "a,b" both as a JSON value and as a JSON map key.
type EdgeID struct {
	A int
	B int
}

// Edge builds a normalized EdgeID from two vertex ids.
func Edge(a, b int) EdgeID {
	if a > b {
		a, b = b, a
	}
	return EdgeID{A: a, B: b}
}

// Touches reports whether v is one of the edge's endpoints.
func (e EdgeID) Touches(v int) bool { return e.A == v || e.B == v }

// Other returns the endpoint opposite v.
func (e EdgeID) Other(v int) int {
	if e.A == v {
		return e.B
	}
	return e.A
}

func (e EdgeID) String() string { return fmt.Sprintf("%d,%d", e.A, e.B) }

// MarshalText implements encoding.TextMarshaler so EdgeID works as a
// JSON map key.
func (e EdgeID) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *EdgeID) UnmarshalText(text []byte) error {
	parts := strings.SplitN(string(text), ",", 2)
	if len(parts) != 2 {
		return fmt.Errorf("edge key %q: want \"a,b\"", text)
	}
	a, err := strconv.Atoi(parts[0])
	if err != nil {
		return fmt.Errorf("edge key %q: %w", text, err)
	}
	b, err := strconv.Atoi(parts[1])
	if err != nil {
		return fmt.Errorf("edge key %q: %w", text, err)
	}
	*e = Edge(a, b)
	return nil
}

// Tile is one hex on the board. Immutable after generation.
type Tile struct {
	Q       int    `json:"q"`
	R       int    `json:"r"`
	Terrain string `json:"terrain"`
	Number  int    `json:"number,omitempty"` // 0 means no token
	Center  XY     `json:"center"`
}

// produces reports whether the tile yields a fixed resource on a roll.
func (t Tile) produces() bool {
	_, ok := terrainResource[t.Terrain]
	return ok
}

// Port grants a discounted bank-trade rate to whoever holds a building
// on either endpoint of its edge. Kind is "3:1" or "2:1:<resource>".
type Port struct {
	Edge EdgeID `json:"edge"`
	Kind string `json:"kind"`
}

// Building occupies a vertex. Level 1 is a settlement, level 2 a city.
type Building struct {
	Owner int `json:"owner"`
	Level int `json:"level"`
}

// DevCard is a development card in a player's hand. New cards cannot be
// played until the owner's next turn.
type DevCard struct {
	Type string `json:"type"`
	New  bool   `json:"new,omitempty"`
}

// PlayerState is one seat's mutable state for the lifetime of a match.
type PlayerState struct {
	PID           int            `json:"pid"`
	Name          string         `json:"name"`
	Resources     map[string]int `json:"res"`
	VP            int            `json:"vp"`
	KnightsPlayed int            `json:"knights_played"`
	DevCards      []DevCard      `json:"dev_cards"`
}

// HandSize is the player's total resource card count.
func (p *PlayerState) HandSize() int {
	total := 0
	for _, n := range p.Resources {
		total += n
	}
	return total
}

func (p *PlayerState) canPay(cost map[string]int) bool {
	for res, n := range cost {
		if p.Resources[res] < n {
			return false
		}
	}
	return true
}

// Trade offer statuses.
const (
	OfferActive   = "active"
	OfferAccepted = "accepted"
	OfferDeclined = "declined"
	OfferCanceled = "canceled"
)

// TradeOffer is a player-to-player trade proposal. To is nil when the
// offer is open to anyone.
type TradeOffer struct {
	ID          int            `json:"offer_id"`
	From        int            `json:"from_pid"`
	To          *int           `json:"to_pid,omitempty"`
	Give        map[string]int `json:"give"`
	Get         map[string]int `json:"get"`
	Status      string         `json:"status"`
	CreatedTurn int            `json:"created_turn"`
}

// RulesConfig carries per-match rule knobs, filled from the map
// definition's rules block.
type RulesConfig struct {
	TargetVP       int  `json:"target_vp"`
	MaxRoads       int  `json:"max_roads"`
	MaxSettlements int  `json:"max_settlements"`
	MaxCities      int  `json:"max_cities"`
	MaxShips       int  `json:"max_ships"`
	EnableShips    bool `json:"enable_ships"`
	EnablePirate   bool `json:"enable_pirate"`
	EnableGold     bool `json:"enable_gold"`
	EnableMoveShip bool `json:"enable_move_ship"`
}

func defaultRules() RulesConfig {
	return RulesConfig{
		TargetVP:       10,
		MaxRoads:       15,
		MaxSettlements: 5,
		MaxCities:      4,
		MaxShips:       15,
	}
}

// Board is the generated tile/vertex/edge/port graph. Only the occupancy
// maps mutate after generation.
type Board struct {
	Tiles       []Tile           `json:"tiles"`
	Vertices    map[int]XY       `json:"vertices"`
	VertexTiles map[int][]int    `json:"vertex_tiles"`
	EdgeTiles   map[EdgeID][]int `json:"edge_tiles"`
	Ports       []Port           `json:"ports"`

	OccupiedVertices map[int]Building `json:"occupied_v"`
	OccupiedEdges    map[EdgeID]int   `json:"occupied_e"`
	OccupiedShips    map[EdgeID]int   `json:"occupied_ships"`
}

// HasEdge reports whether the edge exists in the graph.
func (b *Board) HasEdge(e EdgeID) bool {
	_, ok := b.EdgeTiles[e]
	return ok
}

// vertexNeighbors returns the vertices joined to v by an edge.
func (b *Board) vertexNeighbors(v int) []int {
	var out []int
	for e := range b.EdgeTiles {
		if e.Touches(v) {
			out = append(out, e.Other(v))
		}
	}
	return out
}

// edgeHasSea reports whether the edge touches at least one sea tile.
func (b *Board) edgeHasSea(e EdgeID) bool {
	for _, ti := range b.EdgeTiles[e] {
		if b.Tiles[ti].Terrain == TerrainSea {
			return true
		}
	}
	return false
}

// Pending action kinds. At most one pending action exists at a time.
const (
	PendingNone       = ""
	PendingDiscard    = "discard"
	PendingRobberMove = "robber_move"
	PendingChooseGold = "choose_gold"
)

// Game phases.
const (
	PhaseSetup = "setup"
	PhaseMain  = "main"
	PhaseOver  = "over"
)

// Setup sub-steps.
const (
	setupNeedSettlement = "settlement"
	setupNeedRoad       = "road"
)

// Achievements tracks the longest-road and largest-army awards.
type Achievements struct {
	LongestRoadOwner *int `json:"longest_road_owner,omitempty"`
	LongestRoadLen   int  `json:"longest_road_len"`
	LargestArmyOwner *int `json:"largest_army_owner,omitempty"`
	LargestArmySize  int  `json:"largest_army_size"`
}

// GameState is the whole authoritative match state. It is created per
// match and owned by a single room actor; Apply is the only mutator.
type GameState struct {
	Seed  int64
	Size  float64
	MapID string
	Rules RulesConfig
	Board *Board

	Players []*PlayerState
	Bank    map[string]int

	Phase       string
	Turn        int // pid whose turn it is
	Rolled      bool
	LastRoll    int // 0 until rolled this turn
	RollHistory []int

	SetupOrder  []int
	SetupIdx    int
	SetupNeed   string
	SetupAnchor *int // vertex of the settlement just placed

	RobberTile int
	PirateTile *int

	Pending         string
	PendingPID      *int // robber mover / roller during discard
	DiscardRequired map[int]int
	DiscardDone     map[int]bool
	GoldOwed        map[int]int

	DevDeck       []string
	DevPlayedTurn bool
	FreeRoads     int // road-building grants for the current player
	ShipMovedTurn bool

	Awards Achievements

	GameOver bool
	Winner   *int

	TradeOffers []*TradeOffer
	NextOfferID int
}

// Player returns the player with the given pid.
func (g *GameState) Player(pid int) *PlayerState {
	return g.Players[pid]
}

func (g *GameState) validPID(pid int) bool {
	return pid >= 0 && pid < len(g.Players)
}

// setupActor returns the pid expected to act during setup.
func (g *GameState) setupActor() int {
	return g.SetupOrder[g.SetupIdx]
}

func (g *GameState) countRoads(pid int) int {
	n := 0
	for _, owner := range g.Board.OccupiedEdges {
		if owner == pid {
			n++
		}
	}
	return n
}

func (g *GameState) countShips(pid int) int {
	n := 0
	for _, owner := range g.Board.OccupiedShips {
		if owner == pid {
			n++
		}
	}
	return n
}

func (g *GameState) countBuildings(pid, level int) int {
	n := 0
	for _, b := range g.Board.OccupiedVertices {
		if b.Owner == pid && b.Level == level {
			n++
		}
	}
	return n
}

// pirateAdjacent reports whether the pirate sits on a tile touching e.
func (g *GameState) pirateAdjacent(e EdgeID) bool {
	if g.PirateTile == nil {
		return false
	}
	for _, ti := range g.Board.EdgeTiles[e] {
		if ti == *g.PirateTile {
			return true
		}
	}
	return false
}

func intPtr(v int) *int { return &v }
