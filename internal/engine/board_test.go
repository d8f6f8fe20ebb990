package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// flowerDef is a 7-hex test layout with fixed terrains and numbers so
// tests can target specific tiles.
//
//	tile 0: desert (center)
//	tile 1: forest 5    tile 2: hills 9    tile 3: pasture 10
//	tile 4: mountains 8 tile 5: fields 4   tile 6: forest 3
func flowerDef() *MapDefinition {
	num := func(n int) *NumberSpec { return &NumberSpec{Value: n} }
	return &MapDefinition{
		Version: MapVersion,
		Name:    "test flower",
		Tiles: []TileSpec{
			{Q: 0, R: 0, Terrain: TerrainDesert},
			{Q: 1, R: 0, Terrain: TerrainForest, Number: num(5)},
			{Q: 0, R: 1, Terrain: TerrainHills, Number: num(9)},
			{Q: -1, R: 1, Terrain: TerrainPasture, Number: num(10)},
			{Q: -1, R: 0, Terrain: TerrainMountains, Number: num(8)},
			{Q: 0, R: -1, Terrain: TerrainFields, Number: num(4)},
			{Q: 1, R: -1, Terrain: TerrainForest, Number: num(3)},
		},
	}
}

func newFlowerGame(t *testing.T, names ...string) *GameState {
	t.Helper()
	if len(names) == 0 {
		names = []string{"ada", "bob"}
	}
	g, err := NewGame(flowerDef(), "test_flower", 42, names)
	require.NoError(t, err)
	return g
}

func TestBuildGraphFlowerCounts(t *testing.T) {
	g := newFlowerGame(t)
	// A 7-hex flower dedups to 24 vertices and 30 edges.
	require.Len(t, g.Board.Vertices, 24)
	require.Len(t, g.Board.EdgeTiles, 30)
	// Robber starts on the desert.
	require.Equal(t, 0, g.RobberTile)
	require.Equal(t, TerrainDesert, g.Board.Tiles[g.RobberTile].Terrain)
}

func TestBuildGraphStandardCounts(t *testing.T) {
	def, err := PresetMap("base_standard")
	require.NoError(t, err)
	g, err := NewGame(def, "base_standard", 7, []string{"a", "b", "c"})
	require.NoError(t, err)

	require.Len(t, g.Board.Tiles, 19)
	require.Len(t, g.Board.Vertices, 54)
	require.Len(t, g.Board.EdgeTiles, 72)
	require.Len(t, g.Board.Ports, 9)

	// Every port edge is coastal: exactly one adjacent land tile.
	for _, p := range g.Board.Ports {
		require.Len(t, g.Board.EdgeTiles[p.Edge], 1)
	}
}

func TestNewGameDeterministic(t *testing.T) {
	def, err := PresetMap("base_standard")
	require.NoError(t, err)
	a, err := NewGame(def, "base_standard", 99, []string{"a", "b"})
	require.NoError(t, err)
	def2, err := PresetMap("base_standard")
	require.NoError(t, err)
	b, err := NewGame(def2, "base_standard", 99, []string{"a", "b"})
	require.NoError(t, err)

	require.Equal(t, a.Board.Tiles, b.Board.Tiles)
	require.Equal(t, a.Board.Ports, b.Board.Ports)
	require.Equal(t, a.DevDeck, b.DevDeck)

	c, err := NewGame(def, "base_standard", 100, []string{"a", "b"})
	require.NoError(t, err)
	require.NotEqual(t, a.Board.Tiles, c.Board.Tiles)
}

func TestSeafarersPresetHasSeaRing(t *testing.T) {
	def, err := PresetMap("seafarers_ring")
	require.NoError(t, err)
	g, err := NewGame(def, "seafarers_ring", 5, []string{"a", "b"})
	require.NoError(t, err)

	sea := 0
	for _, tile := range g.Board.Tiles {
		if tile.Terrain == TerrainSea {
			sea++
		}
	}
	require.Equal(t, 18, sea)
	require.True(t, g.Rules.EnableShips)
	require.True(t, g.Rules.EnablePirate)
	require.NotNil(t, g.PirateTile)
	require.Equal(t, TerrainSea, g.Board.Tiles[*g.PirateTile].Terrain)
}

func TestMapValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*MapDefinition)
	}{
		{"bad version", func(m *MapDefinition) { m.Version = 2 }},
		{"no tiles", func(m *MapDefinition) { m.Tiles = nil }},
		{"bad terrain", func(m *MapDefinition) { m.Tiles[0].Terrain = "lava" }},
		{"number seven", func(m *MapDefinition) { m.Tiles[1].Number = &NumberSpec{Value: 7} }},
		{"number out of range", func(m *MapDefinition) { m.Tiles[1].Number = &NumberSpec{Value: 13} }},
		{"robber off board", func(m *MapDefinition) { m.RobberTile = intPtr(99) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			def := flowerDef()
			tc.mutate(def)
			err := def.Validate()
			require.Error(t, err)
			var me *MapError
			require.ErrorAs(t, err, &me)
		})
	}
}

func TestParseMapData(t *testing.T) {
	raw := []byte(`{
		"version": 1,
		"tiles": [
			{"q": 0, "r": 0, "terrain": "fields", "number": 6},
			{"q": 1, "r": 0, "terrain": "random", "number": "random"},
			{"q": 0, "r": 1, "terrain": "desert"}
		],
		"terrain_deck": ["forest"],
		"number_deck": [8]
	}`)
	def, err := ParseMapData(raw)
	require.NoError(t, err)
	require.Len(t, def.Tiles, 3)
	require.True(t, def.Tiles[1].Number.Random)
	require.Equal(t, 6, def.Tiles[0].Number.Value)

	_, err = ParseMapData([]byte(`{"version": 1`))
	require.Error(t, err)
}

func TestPortEdgeMustExist(t *testing.T) {
	def := flowerDef()
	def.Ports = []PortSpec{{Edge: [2]int{900, 901}, Kind: "3:1"}}
	_, err := NewGame(def, "x", 1, []string{"a", "b"})
	require.Error(t, err)
}

func TestSnakeOrder(t *testing.T) {
	require.Equal(t, []int{0, 1, 1, 0}, snakeOrder(2))
	require.Equal(t, []int{0, 1, 2, 3, 3, 2, 1, 0}, snakeOrder(4))
}
