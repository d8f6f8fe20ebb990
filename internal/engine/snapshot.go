package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// SnapshotTile is one hex as clients see it.
type SnapshotTile struct {
	Q       int        `json:"q"`
	R       int        `json:"r"`
	Terrain string     `json:"terrain"`
	Number  int        `json:"number"`
	Center  [2]float64 `json:"center"`
}

// SnapshotPlayer is one seat's public view plus its private hand. The
// transport redacts Resources and DevCards for other seats.
type SnapshotPlayer struct {
	PID           int            `json:"pid"`
	Name          string         `json:"name"`
	Resources     map[string]int `json:"res"`
	HandSize      int            `json:"hand_size"`
	VP            int            `json:"vp"`
	KnightsPlayed int            `json:"knights_played"`
	DevCards      []DevCard      `json:"dev_cards"`
	DevCardCount  int            `json:"dev_card_count"`
	Roads         int            `json:"roads"`
	Ships         int            `json:"ships"`
	Settlements   int            `json:"settlements"`
	Cities        int            `json:"cities"`
}

// SnapshotOffer mirrors TradeOffer for the wire.
type SnapshotOffer struct {
	ID     int            `json:"offer_id"`
	From   int            `json:"from_pid"`
	To     *int           `json:"to_pid,omitempty"`
	Give   map[string]int `json:"give"`
	Get    map[string]int `json:"get"`
	Status string         `json:"status"`
}

// Snapshot is the full client-facing match state. Its JSON encoding is
// canonical: maps marshal with sorted keys and slices are emitted in a
// fixed order, so equal states produce equal bytes and equal hashes.
type Snapshot struct {
	MapID string      `json:"map_id"`
	Rules RulesConfig `json:"rules"`

	Tiles       []SnapshotTile     `json:"tiles"`
	Vertices    map[int][2]float64 `json:"vertices"`
	VertexTiles map[int][]int      `json:"vertex_tiles"`
	Edges       []EdgeID           `json:"edges"`
	Ports       []Port             `json:"ports"`

	Buildings map[int]Building `json:"buildings"`
	Roads     map[EdgeID]int   `json:"roads"`
	Ships     map[EdgeID]int   `json:"ships"`

	Players []SnapshotPlayer `json:"players"`
	Bank    map[string]int   `json:"bank"`

	Phase       string `json:"phase"`
	Turn        int    `json:"turn"`
	Rolled      bool   `json:"rolled"`
	LastRoll    int    `json:"last_roll"`
	RollHistory []int  `json:"roll_history"`

	SetupOrder []int  `json:"setup_order,omitempty"`
	SetupIdx   int    `json:"setup_idx,omitempty"`
	SetupNeed  string `json:"setup_need,omitempty"`

	RobberTile int  `json:"robber_tile"`
	PirateTile *int `json:"pirate_tile,omitempty"`

	Pending         string      `json:"pending,omitempty"`
	PendingPID      *int        `json:"pending_pid,omitempty"`
	DiscardRequired map[int]int `json:"discard_required,omitempty"`
	GoldOwed        map[int]int `json:"gold_owed,omitempty"`

	DevDeckCount int          `json:"dev_deck_count"`
	Awards       Achievements `json:"awards"`

	TradeOffers []SnapshotOffer `json:"trade_offers,omitempty"`

	GameOver bool `json:"game_over"`
	Winner   *int `json:"winner,omitempty"`
}

// Snapshot builds the full unredacted view of the state.
func (g *GameState) Snapshot() *Snapshot {
	b := g.Board

	tiles := make([]SnapshotTile, len(b.Tiles))
	for i, t := range b.Tiles {
		tiles[i] = SnapshotTile{Q: t.Q, R: t.R, Terrain: t.Terrain, Number: t.Number, Center: t.Center}
	}

	vertices := make(map[int][2]float64, len(b.Vertices))
	for vid, p := range b.Vertices {
		vertices[vid] = p
	}
	vertexTiles := make(map[int][]int, len(b.VertexTiles))
	for vid, tis := range b.VertexTiles {
		vertexTiles[vid] = append([]int(nil), tis...)
	}

	edges := make([]EdgeID, 0, len(b.EdgeTiles))
	for e := range b.EdgeTiles {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].A != edges[j].A {
			return edges[i].A < edges[j].A
		}
		return edges[i].B < edges[j].B
	})

	buildings := make(map[int]Building, len(b.OccupiedVertices))
	for vid, occ := range b.OccupiedVertices {
		buildings[vid] = occ
	}
	roads := make(map[EdgeID]int, len(b.OccupiedEdges))
	for e, owner := range b.OccupiedEdges {
		roads[e] = owner
	}
	ships := make(map[EdgeID]int, len(b.OccupiedShips))
	for e, owner := range b.OccupiedShips {
		ships[e] = owner
	}

	players := make([]SnapshotPlayer, len(g.Players))
	for i, p := range g.Players {
		players[i] = SnapshotPlayer{
			PID:           p.PID,
			Name:          p.Name,
			Resources:     copyBundleAll(p.Resources),
			HandSize:      p.HandSize(),
			VP:            p.VP,
			KnightsPlayed: p.KnightsPlayed,
			DevCards:      append([]DevCard(nil), p.DevCards...),
			DevCardCount:  len(p.DevCards),
			Roads:         g.countRoads(p.PID),
			Ships:         g.countShips(p.PID),
			Settlements:   g.countBuildings(p.PID, 1),
			Cities:        g.countBuildings(p.PID, 2),
		}
	}

	offers := make([]SnapshotOffer, 0, len(g.TradeOffers))
	for _, o := range g.TradeOffers {
		offers = append(offers, SnapshotOffer{
			ID: o.ID, From: o.From, To: o.To,
			Give: copyBundleAll(o.Give), Get: copyBundleAll(o.Get),
			Status: o.Status,
		})
	}

	snap := &Snapshot{
		MapID:        g.MapID,
		Rules:        g.Rules,
		Tiles:        tiles,
		Vertices:     vertices,
		VertexTiles:  vertexTiles,
		Edges:        edges,
		Ports:        append([]Port(nil), b.Ports...),
		Buildings:    buildings,
		Roads:        roads,
		Ships:        ships,
		Players:      players,
		Bank:         copyBundleAll(g.Bank),
		Phase:        g.Phase,
		Turn:         g.Turn,
		Rolled:       g.Rolled,
		LastRoll:     g.LastRoll,
		RollHistory:  append([]int(nil), g.RollHistory...),
		RobberTile:   g.RobberTile,
		PirateTile:   g.PirateTile,
		Pending:      g.Pending,
		PendingPID:   g.PendingPID,
		DevDeckCount: len(g.DevDeck),
		Awards:       g.Awards,
		GameOver:     g.GameOver,
		Winner:       g.Winner,
	}
	if g.Phase == PhaseSetup {
		snap.SetupOrder = append([]int(nil), g.SetupOrder...)
		snap.SetupIdx = g.SetupIdx
		snap.SetupNeed = g.SetupNeed
	}
	if len(g.DiscardRequired) > 0 {
		snap.DiscardRequired = copyIntMap(g.DiscardRequired)
	}
	if len(g.GoldOwed) > 0 {
		snap.GoldOwed = copyIntMap(g.GoldOwed)
	}
	if len(offers) > 0 {
		snap.TradeOffers = offers
	}
	return snap
}

// SnapshotBytes marshals the snapshot and returns its bytes plus the
// hex sha-256 of those bytes. encoding/json sorts map keys, so the hash
// is stable for equal states.
func (s *Snapshot) SnapshotBytes() ([]byte, string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, "", err
	}
	sum := sha256.Sum256(raw)
	return raw, hex.EncodeToString(sum[:]), nil
}

// RedactFor strips hidden information for a viewer seat: other players'
// hand contents and dev card types. Pass -1 for a spectator view.
func (s *Snapshot) RedactFor(viewer int) *Snapshot {
	out := *s
	out.Players = make([]SnapshotPlayer, len(s.Players))
	copy(out.Players, s.Players)
	for i := range out.Players {
		if out.Players[i].PID == viewer {
			continue
		}
		out.Players[i].Resources = nil
		out.Players[i].DevCards = nil
	}
	return &out
}

func copyBundleAll(b map[string]int) map[string]int {
	out := make(map[string]int, len(b))
	for res, n := range b {
		out[res] = n
	}
	return out
}

func copyIntMap(m map[int]int) map[int]int {
	out := make(map[int]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
