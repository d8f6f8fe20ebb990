package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// seaGame returns a seafarers match in player 0's rolled turn with a
// settlement on a coastal vertex. The returned edge is an unoccupied sea
// edge touching that settlement.
func seaGame(t *testing.T) (*GameState, EdgeID) {
	t.Helper()
	def, err := PresetMap("seafarers_ring")
	require.NoError(t, err)
	g, err := NewGame(def, "seafarers_ring", 8, []string{"ada", "bob"})
	require.NoError(t, err)
	g.Phase = PhaseMain
	g.Turn = 0
	g.Rolled = true

	for _, vid := range sortedVertexIDs(g) {
		land, sea := false, false
		for _, ti := range g.Board.VertexTiles[vid] {
			if g.Board.Tiles[ti].Terrain == TerrainSea {
				sea = true
			} else {
				land = true
			}
		}
		if !land || !sea {
			continue
		}
		for _, e := range sortedEdges(g) {
			if e.Touches(vid) && g.Board.edgeHasSea(e) && !g.pirateAdjacent(e) {
				settleAt(g, 0, vid)
				return g, e
			}
		}
	}
	t.Fatalf("no coastal vertex found")
	return nil, EdgeID{}
}

func TestBuildShipRequiresFlag(t *testing.T) {
	g := mainPhaseGame(t) // flower map, ships disabled
	_, err := g.Apply(0, Command{Type: CmdBuildShip, Edge: &[2]int{0, 1}})
	require.Error(t, err)
}

func TestBuildShip(t *testing.T) {
	g, e := seaGame(t)

	_, err := g.Apply(0, Command{Type: CmdBuildShip, Edge: &[2]int{e.A, e.B}})
	require.Error(t, err) // wood + sheep required

	giveResources(g, 0, map[string]int{Wood: 1, Sheep: 1})
	_, err = g.Apply(0, Command{Type: CmdBuildShip, Edge: &[2]int{e.A, e.B}})
	require.NoError(t, err)
	require.Equal(t, 0, g.Board.OccupiedShips[e])
	require.Equal(t, 1, g.countShips(0))

	// The same edge cannot hold a second piece.
	giveResources(g, 0, map[string]int{Wood: 1, Sheep: 1})
	_, err = g.Apply(0, Command{Type: CmdBuildShip, Edge: &[2]int{e.A, e.B}})
	require.Error(t, err)
}

func TestBuildShipConnectsThroughShips(t *testing.T) {
	g, e := seaGame(t)
	g.Board.OccupiedShips[e] = 0

	// Extend from the free end of the first ship.
	var next EdgeID
	found := false
	for _, cand := range sortedEdges(g) {
		if cand != e && g.canPlaceShip(0, cand) {
			next, found = cand, true
			break
		}
	}
	require.True(t, found)
	giveResources(g, 0, map[string]int{Wood: 1, Sheep: 1})
	_, err := g.Apply(0, Command{Type: CmdBuildShip, Edge: &[2]int{next.A, next.B}})
	require.NoError(t, err)

	// A road cannot go on a pure sea edge.
	for _, cand := range sortedEdges(g) {
		onlySea := true
		for _, ti := range g.Board.EdgeTiles[cand] {
			if g.Board.Tiles[ti].Terrain != TerrainSea {
				onlySea = false
			}
		}
		if onlySea {
			require.False(t, g.canPlaceRoad(0, cand, nil))
		}
	}
}

func TestBuildShipBlockedByPirate(t *testing.T) {
	g, e := seaGame(t)

	var seaTile int
	for _, ti := range g.Board.EdgeTiles[e] {
		if g.Board.Tiles[ti].Terrain == TerrainSea {
			seaTile = ti
		}
	}
	g.PirateTile = intPtr(seaTile)

	giveResources(g, 0, map[string]int{Wood: 1, Sheep: 1})
	_, err := g.Apply(0, Command{Type: CmdBuildShip, Edge: &[2]int{e.A, e.B}})
	require.Error(t, err)
}

func TestMoveShip(t *testing.T) {
	g, e := seaGame(t)
	g.Board.OccupiedShips[e] = 0

	// Pick a destination that stays connected once the ship has left its
	// current edge.
	delete(g.Board.OccupiedShips, e)
	var to EdgeID
	found := false
	for _, cand := range sortedEdges(g) {
		if cand != e && g.canPlaceShip(0, cand) {
			to, found = cand, true
			break
		}
	}
	g.Board.OccupiedShips[e] = 0
	require.True(t, found)

	_, err := g.Apply(0, Command{Type: CmdMoveShip, Edge: &[2]int{e.A, e.B}, ToEdge: &[2]int{to.A, to.B}})
	require.NoError(t, err)
	require.True(t, g.ShipMovedTurn)
	_, ok := g.Board.OccupiedShips[e]
	require.False(t, ok)
	require.Equal(t, 0, g.Board.OccupiedShips[to])

	// Only one ship move per turn.
	_, err = g.Apply(0, Command{Type: CmdMoveShip, Edge: &[2]int{to.A, to.B}, ToEdge: &[2]int{e.A, e.B}})
	require.Error(t, err)

	// The flag resets at end of turn.
	_, err = g.Apply(0, Command{Type: CmdEndTurn})
	require.NoError(t, err)
	require.False(t, g.ShipMovedTurn)
}

func TestMoveShipRejectsLockedShip(t *testing.T) {
	g, e := seaGame(t)
	g.Board.OccupiedShips[e] = 0

	// Close both ends: the settlement holds one end, a second ship chain
	// covers the other.
	var second EdgeID
	found := false
	for _, cand := range sortedEdges(g) {
		if cand != e && g.canPlaceShip(0, cand) && (cand.Touches(e.A) || cand.Touches(e.B)) {
			// must attach at the end opposite the settlement
			second, found = cand, true
			break
		}
	}
	require.True(t, found)
	g.Board.OccupiedShips[second] = 0

	if !g.shipIsOpen(0, e) {
		_, err := g.Apply(0, Command{Type: CmdMoveShip, Edge: &[2]int{e.A, e.B}, ToEdge: &[2]int{second.A, second.B}})
		require.Error(t, err)
	}
}

func TestMovePirateStealsFromShipOwner(t *testing.T) {
	g, e := seaGame(t)
	g.Board.OccupiedShips[e] = 1 // victim's ship
	giveResources(g, 1, map[string]int{Ore: 2})

	var seaTile int
	for _, ti := range g.Board.EdgeTiles[e] {
		if g.Board.Tiles[ti].Terrain == TerrainSea {
			seaTile = ti
		}
	}

	g.Pending = PendingRobberMove
	g.PendingPID = intPtr(0)

	// The pirate may not sit on land.
	var landTile int
	for ti, tile := range g.Board.Tiles {
		if tile.Terrain != TerrainSea {
			landTile = ti
			break
		}
	}
	_, err := g.Apply(0, Command{Type: CmdMovePirate, Tile: intPtr(landTile)})
	require.Error(t, err)

	events, err := g.Apply(0, Command{Type: CmdMovePirate, Tile: intPtr(seaTile)})
	require.NoError(t, err)
	require.Equal(t, seaTile, *g.PirateTile)
	require.Equal(t, PendingNone, g.Pending)
	require.True(t, events[0].Stolen)
	require.Equal(t, 1, g.Player(0).Resources[Ore])
	require.Equal(t, 1, g.Player(1).Resources[Ore])
}
