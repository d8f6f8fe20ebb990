package engine

import (
	"math"
	"math/rand"
)

const sqrt3 = 1.7320508075688772

// DefaultHexSize is the pixel radius of one hex.
const DefaultHexSize = 58.0

// quantStep is the grid step corner coordinates are snapped to so that
// shared corners of adjacent tiles collide to one vertex key.
const quantStep = 0.5

func axialToPixel(q, r int, size float64) XY {
	x := size * sqrt3 * (float64(q) + float64(r)/2.0)
	y := size * 1.5 * float64(r)
	return XY{x, y}
}

// hexCorners returns the six corner points of a pointy-top hex.
func hexCorners(center XY, size float64) [6]XY {
	var out [6]XY
	for i := 0; i < 6; i++ {
		ang := (30 + 60*float64(i)) * math.Pi / 180
		out[i] = XY{
			center[0] + size*math.Cos(ang),
			center[1] + size*math.Sin(ang),
		}
	}
	return out
}

func quantKey(p XY) [2]int {
	return [2]int{
		int(math.Round(p[0] / quantStep)),
		int(math.Round(p[1] / quantStep)),
	}
}

// buildGraph derives the deduplicated vertex set and the edge set from
// the tile layout. Vertex ids are assigned in tile order, so the graph
// is identical for identical tile slices.
func buildGraph(tiles []Tile, size float64) (map[int]XY, map[int][]int, map[EdgeID][]int) {
	byKey := make(map[[2]int]int)
	vertices := make(map[int]XY)
	vertexTiles := make(map[int][]int)
	edgeTiles := make(map[EdgeID][]int)

	for ti, t := range tiles {
		corners := hexCorners(t.Center, size)
		var vids [6]int
		for i, p := range corners {
			k := quantKey(p)
			vid, ok := byKey[k]
			if !ok {
				vid = len(vertices)
				byKey[k] = vid
				vertices[vid] = p
			}
			vids[i] = vid
			vertexTiles[vid] = append(vertexTiles[vid], ti)
		}
		for i := 0; i < 6; i++ {
			e := Edge(vids[i], vids[(i+1)%6])
			edgeTiles[e] = append(edgeTiles[e], ti)
		}
	}
	return vertices, vertexTiles, edgeTiles
}

func newDevDeck(rng *rand.Rand) []string {
	deck := make([]string, 0, 25)
	add := func(t string, n int) {
		for i := 0; i < n; i++ {
			deck = append(deck, t)
		}
	}
	add(DevKnight, 14)
	add(DevVictoryPoint, 5)
	add(DevRoadBuilding, 2)
	add(DevYearOfPlenty, 2)
	add(DevMonopoly, 2)
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	return deck
}

// snakeOrder is the setup draft order: forward through all players, then
// reversed.
func snakeOrder(n int) []int {
	out := make([]int, 0, 2*n)
	for i := 0; i < n; i++ {
		out = append(out, i)
	}
	for i := n - 1; i >= 0; i-- {
		out = append(out, i)
	}
	return out
}

// NewGame builds a full match state from a validated map definition and
// a seed. The same definition, seed and player list always produce an
// identical state, which reconnection and replay rely on.
func NewGame(def *MapDefinition, mapID string, seed int64, names []string) (*GameState, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if len(names) < 2 {
		return nil, mapErr("need at least 2 players", map[string]any{"players": len(names)})
	}

	rng := rand.New(rand.NewSource(seed))
	size := DefaultHexSize
	tiles, desert := def.materializeTiles(rng, size)
	vertices, vertexTiles, edgeTiles := buildGraph(tiles, size)

	board := &Board{
		Tiles:            tiles,
		Vertices:         vertices,
		VertexTiles:      vertexTiles,
		EdgeTiles:        edgeTiles,
		OccupiedVertices: make(map[int]Building),
		OccupiedEdges:    make(map[EdgeID]int),
		OccupiedShips:    make(map[EdgeID]int),
	}

	if def.Ports != nil {
		for _, p := range def.Ports {
			e := Edge(p.Edge[0], p.Edge[1])
			if !board.HasEdge(e) {
				return nil, mapErr("port edge not in graph", map[string]any{"edge": p.Edge})
			}
			board.Ports = append(board.Ports, Port{Edge: e, Kind: p.Kind})
		}
	} else {
		count := 9
		deck := defaultPortDeck()
		if pa := def.PortsAuto; pa != nil {
			if pa.Count > 0 {
				count = pa.Count
			}
			if pa.Deck != nil {
				deck = pa.Deck
			}
		}
		board.Ports = autoPorts(board, deck, count, rng)
	}

	rules := def.rulesConfig()

	robber := 0
	if def.RobberTile != nil {
		robber = *def.RobberTile
	} else if desert >= 0 {
		robber = desert
	}

	var pirate *int
	if def.PirateTile != nil {
		pirate = intPtr(*def.PirateTile)
	} else if rules.EnablePirate {
		for ti, t := range tiles {
			if t.Terrain == TerrainSea {
				pirate = intPtr(ti)
				break
			}
		}
	}

	players := make([]*PlayerState, len(names))
	for i, name := range names {
		players[i] = &PlayerState{
			PID:       i,
			Name:      name,
			Resources: zeroResources(),
		}
	}

	bank := make(map[string]int, len(Resources))
	for _, r := range Resources {
		bank[r] = bankPerResource
	}

	return &GameState{
		Seed:            seed,
		Size:            size,
		MapID:           mapID,
		Rules:           rules,
		Board:           board,
		Players:         players,
		Bank:            bank,
		Phase:           PhaseSetup,
		SetupOrder:      snakeOrder(len(names)),
		SetupNeed:       setupNeedSettlement,
		RobberTile:      robber,
		PirateTile:      pirate,
		DevDeck:         newDevDeck(rng),
		DiscardRequired: make(map[int]int),
		DiscardDone:     make(map[int]bool),
		GoldOwed:        make(map[int]int),
		NextOfferID:     1,
	}, nil
}

func zeroResources() map[string]int {
	out := make(map[string]int, len(Resources))
	for _, r := range Resources {
		out[r] = 0
	}
	return out
}
