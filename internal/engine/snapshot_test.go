package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// playScript drives a fresh game through setup plus a few main-phase
// commands, all deterministic.
func playScript(t *testing.T, seed int64) *GameState {
	t.Helper()
	g, err := NewGame(flowerDef(), "test_flower", seed, []string{"ada", "bob"})
	require.NoError(t, err)
	completeSetup(t, g)

	_, err = g.Apply(0, Command{Type: CmdRoll, Roll: intPtr(5)})
	require.NoError(t, err)
	_, err = g.Apply(0, Command{Type: CmdEndTurn})
	require.NoError(t, err)
	_, err = g.Apply(1, Command{Type: CmdRoll, Roll: intPtr(9)})
	require.NoError(t, err)
	return g
}

func TestSnapshotDeterministic(t *testing.T) {
	a := playScript(t, 77)
	b := playScript(t, 77)

	rawA, hashA, err := a.Snapshot().SnapshotBytes()
	require.NoError(t, err)
	rawB, hashB, err := b.Snapshot().SnapshotBytes()
	require.NoError(t, err)

	require.Equal(t, rawA, rawB)
	require.Equal(t, hashA, hashB)

	// A different seed diverges.
	c := playScript(t, 78)
	_, hashC, err := c.Snapshot().SnapshotBytes()
	require.NoError(t, err)
	require.NotEqual(t, hashA, hashC)
}

func TestSnapshotHashChangesWithState(t *testing.T) {
	g := playScript(t, 3)
	_, before, err := g.Snapshot().SnapshotBytes()
	require.NoError(t, err)

	giveResources(g, 0, map[string]int{Wood: 1})
	_, after, err := g.Snapshot().SnapshotBytes()
	require.NoError(t, err)
	require.NotEqual(t, before, after)
}

func TestSnapshotContents(t *testing.T) {
	g := playScript(t, 12)
	snap := g.Snapshot()

	require.Equal(t, "test_flower", snap.MapID)
	require.Len(t, snap.Tiles, 7)
	require.Len(t, snap.Vertices, 24)
	require.Len(t, snap.Edges, 30)
	require.Len(t, snap.Buildings, 4)
	require.Equal(t, 25, snap.DevDeckCount)
	require.Equal(t, PhaseMain, snap.Phase)
	require.Equal(t, []int{5, 9}, snap.RollHistory)
	// Setup bookkeeping is omitted outside the setup phase.
	require.Empty(t, snap.SetupNeed)

	for _, p := range snap.Players {
		require.Equal(t, 2, p.Settlements)
		require.Equal(t, 2, p.Roads)
	}
}

func TestSnapshotRedaction(t *testing.T) {
	g := playScript(t, 21)
	g.Player(1).DevCards = []DevCard{{Type: DevKnight}}
	snap := g.Snapshot()

	view := snap.RedactFor(0)
	require.NotNil(t, view.Players[0].Resources)
	require.Nil(t, view.Players[1].Resources)
	require.Nil(t, view.Players[1].DevCards)
	// Counts stay visible.
	require.Equal(t, g.Player(1).HandSize(), view.Players[1].HandSize)
	require.Equal(t, 1, view.Players[1].DevCardCount)

	// The unredacted snapshot is untouched.
	require.NotNil(t, snap.Players[1].Resources)

	spectator := snap.RedactFor(-1)
	require.Nil(t, spectator.Players[0].Resources)
	require.Nil(t, spectator.Players[1].Resources)
}

func TestEdgeIDJSONRoundTrip(t *testing.T) {
	e := Edge(9, 4)
	require.Equal(t, "4,9", e.String())

	text, err := e.MarshalText()
	require.NoError(t, err)
	var back EdgeID
	require.NoError(t, back.UnmarshalText(text))
	require.Equal(t, e, back)

	require.Error(t, back.UnmarshalText([]byte("nope")))
}
