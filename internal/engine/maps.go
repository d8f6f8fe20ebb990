package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// MapVersion is the only map schema version this engine accepts.
const MapVersion = 1

// DefaultMapID names the preset used when a room never calls set_map.
const DefaultMapID = "base_standard"

// NumberSpec is a tile's number token slot in a map definition: a fixed
// value, absent, or "random" (drawn from the number deck).
type NumberSpec struct {
	Random bool
	Value  int
}

func (n *NumberSpec) UnmarshalJSON(data []byte) error {
	if string(data) == `"random"` {
		n.Random = true
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("number must be int or \"random\"")
	}
	n.Value = v
	return nil
}

func (n NumberSpec) MarshalJSON() ([]byte, error) {
	if n.Random {
		return []byte(`"random"`), nil
	}
	return json.Marshal(n.Value)
}

// TileSpec places one hex in a map definition. Terrain may be "random"
// (drawn from the terrain deck).
type TileSpec struct {
	Q       int         `json:"q"`
	R       int         `json:"r"`
	Terrain string      `json:"terrain"`
	Number  *NumberSpec `json:"number,omitempty"`
}

// PortSpec pins a port to an explicit edge of the generated graph.
type PortSpec struct {
	Edge [2]int `json:"edge"`
	Kind string `json:"type"`
}

// PortsAuto asks the builder to distribute ports over coastal edges.
type PortsAuto struct {
	Count int      `json:"count,omitempty"`
	Deck  []string `json:"deck,omitempty"`
}

// RulesSpec is the optional rules block of a map definition.
type RulesSpec struct {
	TargetVP       *int        `json:"target_vp,omitempty"`
	EnableShips    bool        `json:"enable_ships,omitempty"`
	EnablePirate   bool        `json:"enable_pirate,omitempty"`
	EnableGold     bool        `json:"enable_gold,omitempty"`
	EnableMoveShip bool        `json:"enable_move_ship,omitempty"`
	Limits         *LimitsSpec `json:"limits,omitempty"`
}

// LimitsSpec overrides per-player piece maximums.
type LimitsSpec struct {
	Roads       *int `json:"roads,omitempty"`
	Settlements *int `json:"settlements,omitempty"`
	Cities      *int `json:"cities,omitempty"`
	Ships       *int `json:"ships,omitempty"`
}

// MapDefinition is the validated schema a board is generated from,
// either a built-in preset or client-supplied map data.
type MapDefinition struct {
	Version     int        `json:"version"`
	Name        string     `json:"name,omitempty"`
	Tiles       []TileSpec `json:"tiles"`
	TerrainDeck []string   `json:"terrain_deck,omitempty"`
	NumberDeck  []int      `json:"number_deck,omitempty"`
	Ports       []PortSpec `json:"ports,omitempty"`
	PortsAuto   *PortsAuto `json:"ports_auto,omitempty"`
	Rules       *RulesSpec `json:"rules,omitempty"`
	RobberTile  *int       `json:"robber_tile,omitempty"`
	PirateTile  *int       `json:"pirate_tile,omitempty"`
}

func defaultTerrainDeck() []string {
	deck := make([]string, 0, 19)
	add := func(t string, n int) {
		for i := 0; i < n; i++ {
			deck = append(deck, t)
		}
	}
	add(TerrainForest, 4)
	add(TerrainHills, 3)
	add(TerrainPasture, 4)
	add(TerrainFields, 4)
	add(TerrainMountains, 3)
	add(TerrainDesert, 1)
	return deck
}

func defaultNumberDeck() []int {
	return []int{2, 3, 3, 4, 4, 5, 5, 6, 6, 8, 8, 9, 9, 10, 10, 11, 11, 12}
}

func defaultPortDeck() []string {
	deck := []string{"3:1", "3:1", "3:1", "3:1"}
	for _, r := range Resources {
		deck = append(deck, "2:1:"+r)
	}
	return deck
}

// Validate checks a map definition before any board is built. The
// returned MapError names the offending element.
func (m *MapDefinition) Validate() error {
	if m.Version != MapVersion {
		return mapErr("unsupported map version", map[string]any{"version": m.Version})
	}
	if len(m.Tiles) == 0 {
		return mapErr("tiles must be non-empty", nil)
	}

	randomTerrain := 0
	randomNumbers := 0
	for i, t := range m.Tiles {
		if t.Terrain == "random" {
			randomTerrain++
		} else if !allTerrains[t.Terrain] {
			return mapErr("unknown terrain", map[string]any{"index": i, "terrain": t.Terrain})
		}
		if t.Number == nil {
			continue
		}
		if t.Number.Random {
			randomNumbers++
			continue
		}
		n := t.Number.Value
		if n < 2 || n > 12 || n == 7 {
			return mapErr("tile number out of range", map[string]any{"index": i, "number": n})
		}
	}

	terrainDeck := m.TerrainDeck
	if terrainDeck == nil {
		terrainDeck = defaultTerrainDeck()
	}
	if randomTerrain > len(terrainDeck) {
		return mapErr("terrain_deck too small", map[string]any{
			"need": randomTerrain, "have": len(terrainDeck),
		})
	}
	for i, t := range terrainDeck {
		if !allTerrains[t] {
			return mapErr("unknown terrain in terrain_deck", map[string]any{"index": i, "terrain": t})
		}
	}
	numberDeck := m.NumberDeck
	if numberDeck == nil {
		numberDeck = defaultNumberDeck()
	}
	for i, n := range numberDeck {
		if n < 2 || n > 12 || n == 7 {
			return mapErr("number_deck value out of range", map[string]any{"index": i, "number": n})
		}
	}

	for i, p := range m.Ports {
		if p.Edge[0] == p.Edge[1] {
			return mapErr("port edge endpoints equal", map[string]any{"index": i})
		}
		if p.Kind == "" {
			return mapErr("port type required", map[string]any{"index": i})
		}
	}

	if m.RobberTile != nil && (*m.RobberTile < 0 || *m.RobberTile >= len(m.Tiles)) {
		return mapErr("robber_tile out of range", map[string]any{"robber_tile": *m.RobberTile})
	}
	if m.PirateTile != nil && (*m.PirateTile < 0 || *m.PirateTile >= len(m.Tiles)) {
		return mapErr("pirate_tile out of range", map[string]any{"pirate_tile": *m.PirateTile})
	}
	return nil
}

// ParseMapData validates raw client-supplied map JSON.
func ParseMapData(data []byte) (*MapDefinition, error) {
	var def MapDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, mapErr("map json invalid", map[string]any{"error": err.Error()})
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// rulesConfig folds the definition's rules block over the defaults.
func (m *MapDefinition) rulesConfig() RulesConfig {
	cfg := defaultRules()
	r := m.Rules
	if r == nil {
		return cfg
	}
	if r.TargetVP != nil {
		cfg.TargetVP = *r.TargetVP
	}
	cfg.EnableShips = r.EnableShips
	cfg.EnablePirate = r.EnablePirate
	cfg.EnableGold = r.EnableGold
	cfg.EnableMoveShip = r.EnableMoveShip
	if l := r.Limits; l != nil {
		if l.Roads != nil {
			cfg.MaxRoads = *l.Roads
		}
		if l.Settlements != nil {
			cfg.MaxSettlements = *l.Settlements
		}
		if l.Cities != nil {
			cfg.MaxCities = *l.Cities
		}
		if l.Ships != nil {
			cfg.MaxShips = *l.Ships
		}
	}
	return cfg
}

// materializeTiles resolves random terrain/number slots against the
// shuffled decks and returns the concrete tiles plus the desert index.
func (m *MapDefinition) materializeTiles(rng *rand.Rand, size float64) ([]Tile, int) {
	terrainDeck := append([]string(nil), m.TerrainDeck...)
	if terrainDeck == nil {
		terrainDeck = defaultTerrainDeck()
	}
	numberDeck := append([]int(nil), m.NumberDeck...)
	if numberDeck == nil {
		numberDeck = defaultNumberDeck()
	}
	rng.Shuffle(len(terrainDeck), func(i, j int) {
		terrainDeck[i], terrainDeck[j] = terrainDeck[j], terrainDeck[i]
	})
	rng.Shuffle(len(numberDeck), func(i, j int) {
		numberDeck[i], numberDeck[j] = numberDeck[j], numberDeck[i]
	})

	tiles := make([]Tile, 0, len(m.Tiles))
	desert := -1
	ti, ni := 0, 0
	for _, spec := range m.Tiles {
		terrain := spec.Terrain
		if terrain == "random" {
			terrain = terrainDeck[ti]
			ti++
		}
		number := 0
		if spec.Number != nil {
			if spec.Number.Random {
				if terrain != TerrainDesert && terrain != TerrainSea && ni < len(numberDeck) {
					number = numberDeck[ni]
					ni++
				}
			} else {
				number = spec.Number.Value
			}
		}
		if terrain == TerrainDesert {
			desert = len(tiles)
		}
		tiles = append(tiles, Tile{
			Q:       spec.Q,
			R:       spec.R,
			Terrain: terrain,
			Number:  number,
			Center:  axialToPixel(spec.Q, spec.R, size),
		})
	}
	return tiles, desert
}

// autoPorts picks coastal edges at even angular intervals around the
// board center and deals shuffled port kinds onto them. A coastal edge
// touches exactly one land tile.
func autoPorts(b *Board, deck []string, count int, rng *rand.Rand) []Port {
	var coast []EdgeID
	for e, adj := range b.EdgeTiles {
		land := 0
		for _, ti := range adj {
			if b.Tiles[ti].Terrain != TerrainSea {
				land++
			}
		}
		if land == 1 {
			coast = append(coast, e)
		}
	}
	if len(coast) == 0 {
		return nil
	}

	angle := func(e EdgeID) float64 {
		a, bb := b.Vertices[e.A], b.Vertices[e.B]
		mx := (a[0] + bb[0]) / 2
		my := (a[1] + bb[1]) / 2
		return math.Atan2(my, mx)
	}
	sort.Slice(coast, func(i, j int) bool {
		ai, aj := angle(coast[i]), angle(coast[j])
		if ai != aj {
			return ai < aj
		}
		return coast[i].String() < coast[j].String()
	})

	picked := coast
	if len(coast) >= count {
		picked = make([]EdgeID, 0, count)
		for i := 0; i < count; i++ {
			picked = append(picked, coast[i*len(coast)/count%len(coast)])
		}
	}

	kinds := append([]string(nil), deck...)
	rng.Shuffle(len(kinds), func(i, j int) { kinds[i], kinds[j] = kinds[j], kinds[i] })
	if len(kinds) > len(picked) {
		kinds = kinds[:len(picked)]
	}

	ports := make([]Port, 0, len(kinds))
	for i, k := range kinds {
		ports = append(ports, Port{Edge: picked[i], Kind: k})
	}
	return ports
}

// MapInfo describes a preset for listings.
type MapInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type preset struct {
	info  MapInfo
	build func() *MapDefinition
}

var presets = []preset{
	{
		info: MapInfo{
			ID:          "base_standard",
			Name:        "Base Standard",
			Description: "Classic 19-hex base map with standard decks.",
		},
		build: func() *MapDefinition { return basePreset(nil) },
	},
	{
		info: MapInfo{
			ID:          "base_12vp",
			Name:        "Base: 12 VP",
			Description: "Standard base map with victory target 12.",
		},
		build: func() *MapDefinition {
			def := basePreset(nil)
			def.Rules = &RulesSpec{TargetVP: intPtr(12)}
			return def
		},
	},
	{
		info: MapInfo{
			ID:          "seafarers_ring",
			Name:        "Seafarers: Sea Ring",
			Description: "Base island inside a sea ring, with ships, pirate and a gold field.",
		},
		build: seafarersRingPreset,
	},
}

// ListMaps returns the built-in preset registry.
func ListMaps() []MapInfo {
	out := make([]MapInfo, 0, len(presets))
	for _, p := range presets {
		out = append(out, p.info)
	}
	return out
}

// PresetMap returns a fresh definition for a preset id.
func PresetMap(id string) (*MapDefinition, error) {
	for _, p := range presets {
		if p.info.ID == id {
			return p.build(), nil
		}
	}
	return nil, mapErr("unknown map preset", map[string]any{"map_id": id})
}

// baseAxial is the classic 19-hex layout, rows 3-4-5-4-3.
var baseAxial = [][2]int{
	{0, -2}, {1, -2}, {2, -2},
	{-1, -1}, {0, -1}, {1, -1}, {2, -1},
	{-2, 0}, {-1, 0}, {0, 0}, {1, 0}, {2, 0},
	{-2, 1}, {-1, 1}, {0, 1}, {1, 1},
	{-2, 2}, {-1, 2}, {0, 2},
}

func basePreset(extra [][2]int) *MapDefinition {
	tiles := make([]TileSpec, 0, len(baseAxial)+len(extra))
	for _, qr := range baseAxial {
		tiles = append(tiles, TileSpec{
			Q: qr[0], R: qr[1], Terrain: "random", Number: &NumberSpec{Random: true},
		})
	}
	for _, qr := range extra {
		tiles = append(tiles, TileSpec{Q: qr[0], R: qr[1], Terrain: TerrainSea})
	}
	return &MapDefinition{
		Version:   MapVersion,
		Tiles:     tiles,
		PortsAuto: &PortsAuto{Count: 9},
	}
}

func seafarersRingPreset() *MapDefinition {
	def := basePreset(axialRing(3))
	// Swap one fields for a gold tile in the draw deck.
	deck := defaultTerrainDeck()
	for i, t := range deck {
		if t == TerrainFields {
			deck[i] = TerrainGold
			break
		}
	}
	def.TerrainDeck = deck
	def.Rules = &RulesSpec{
		EnableShips:    true,
		EnablePirate:   true,
		EnableGold:     true,
		EnableMoveShip: true,
	}
	return def
}

var axialDirs = [6][2]int{{1, 0}, {1, -1}, {0, -1}, {-1, 0}, {-1, 1}, {0, 1}}

// axialRing returns the hex ring at the given radius from the origin.
func axialRing(radius int) [][2]int {
	q, r := -radius, radius // start at direction 4 * radius
	var out [][2]int
	for side := 0; side < 6; side++ {
		for step := 0; step < radius; step++ {
			out = append(out, [2]int{q, r})
			q += axialDirs[side][0]
			r += axialDirs[side][1]
		}
	}
	return out
}
