package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuyDev(t *testing.T) {
	g := mainPhaseGame(t)
	g.DevDeck = []string{DevKnight, DevMonopoly}

	_, err := g.Apply(0, Command{Type: CmdBuyDev})
	require.Error(t, err) // no resources

	giveResources(g, 0, map[string]int{Sheep: 1, Wheat: 1, Ore: 1})
	events, err := g.Apply(0, Command{Type: CmdBuyDev})
	require.NoError(t, err)
	require.Equal(t, DevKnight, events[0].Card)
	require.Len(t, g.DevDeck, 1)
	require.Equal(t, []DevCard{{Type: DevKnight, New: true}}, g.Player(0).DevCards)

	// A just-bought card cannot be played this turn.
	_, err = g.Apply(0, Command{Type: CmdPlayDev, Card: DevKnight})
	require.Error(t, err)
}

func TestBuyDevVictoryPointCountsImmediately(t *testing.T) {
	g := mainPhaseGame(t)
	g.DevDeck = []string{DevVictoryPoint}
	giveResources(g, 0, map[string]int{Sheep: 1, Wheat: 1, Ore: 1})

	_, err := g.Apply(0, Command{Type: CmdBuyDev})
	require.NoError(t, err)
	require.Equal(t, 1, g.Player(0).VP)

	// And it can never be played.
	g.Player(0).DevCards[0].New = false
	_, err = g.Apply(0, Command{Type: CmdPlayDev, Card: DevVictoryPoint})
	require.Error(t, err)
}

func TestBuyDevEmptyDeck(t *testing.T) {
	g := mainPhaseGame(t)
	g.DevDeck = nil
	giveResources(g, 0, map[string]int{Sheep: 1, Wheat: 1, Ore: 1})
	_, err := g.Apply(0, Command{Type: CmdBuyDev})
	require.Error(t, err)
}

func TestPlayKnight(t *testing.T) {
	g := mainPhaseGame(t)
	g.Rolled = false // a knight may lead the turn
	g.Player(0).DevCards = []DevCard{{Type: DevKnight}}

	events, err := g.Apply(0, Command{Type: CmdPlayDev, Card: DevKnight})
	require.NoError(t, err)
	require.Equal(t, PendingRobberMove, g.Pending)
	require.Equal(t, 0, *g.PendingPID)
	require.Equal(t, 1, g.Player(0).KnightsPlayed)
	require.Equal(t, PendingRobberMove, events[0].Pending)
	require.Empty(t, g.Player(0).DevCards)

	// Resolve the robber, then a second card this turn is rejected.
	_, err = g.Apply(0, Command{Type: CmdMoveRobber, Tile: intPtr(3)})
	require.NoError(t, err)
	g.Player(0).DevCards = []DevCard{{Type: DevKnight}}
	_, err = g.Apply(0, Command{Type: CmdPlayDev, Card: DevKnight})
	require.Error(t, err)
}

func TestPlayRoadBuilding(t *testing.T) {
	g := newFlowerGame(t)
	completeSetup(t, g)
	drainHand(g, 0)
	drainHand(g, 1)
	_, err := g.Apply(0, Command{Type: CmdRoll, Roll: intPtr(2)})
	require.NoError(t, err)
	g.Player(0).DevCards = []DevCard{{Type: DevRoadBuilding}}

	_, err = g.Apply(0, Command{Type: CmdPlayDev, Card: DevRoadBuilding})
	require.NoError(t, err)
	require.Equal(t, 2, g.FreeRoads)

	// Two roads for free, a third needs resources.
	for i := 0; i < 2; i++ {
		var target EdgeID
		found := false
		for _, e := range sortedEdges(g) {
			if g.canPlaceRoad(0, e, nil) {
				target, found = e, true
				break
			}
		}
		require.True(t, found)
		_, err = g.Apply(0, Command{Type: CmdPlaceRoad, Edge: &[2]int{target.A, target.B}, Free: true})
		require.NoError(t, err)
	}
	require.Equal(t, 0, g.FreeRoads)
	for _, e := range sortedEdges(g) {
		if g.canPlaceRoad(0, e, nil) {
			_, err = g.Apply(0, Command{Type: CmdPlaceRoad, Edge: &[2]int{e.A, e.B}, Free: true})
			require.Error(t, err)
			break
		}
	}
}

func TestPlayYearOfPlenty(t *testing.T) {
	g := mainPhaseGame(t)
	g.Player(0).DevCards = []DevCard{{Type: DevYearOfPlenty}}

	_, err := g.Apply(0, Command{Type: CmdPlayDev, Card: DevYearOfPlenty, Res: Ore, ResB: Wheat})
	require.NoError(t, err)
	require.Equal(t, 1, g.Player(0).Resources[Ore])
	require.Equal(t, 1, g.Player(0).Resources[Wheat])

	// Bank-empty request is rejected and the card stays in hand.
	g.Player(0).DevCards = []DevCard{{Type: DevYearOfPlenty}}
	g.DevPlayedTurn = false
	g.Bank[Brick] = 0
	_, err = g.Apply(0, Command{Type: CmdPlayDev, Card: DevYearOfPlenty, Res: Brick, ResB: Brick})
	require.Error(t, err)
	require.Len(t, g.Player(0).DevCards, 1)
}

func TestPlayMonopoly(t *testing.T) {
	g := newFlowerGame(t, "ada", "bob", "cy")
	g.Phase = PhaseMain
	g.Turn = 0
	g.Rolled = true
	g.Player(0).DevCards = []DevCard{{Type: DevMonopoly}}
	giveResources(g, 1, map[string]int{Wheat: 3})
	giveResources(g, 2, map[string]int{Wheat: 2, Ore: 1})

	events, err := g.Apply(0, Command{Type: CmdPlayDev, Card: DevMonopoly, Res: Wheat})
	require.NoError(t, err)
	require.Equal(t, 5, g.Player(0).Resources[Wheat])
	require.Equal(t, 0, g.Player(1).Resources[Wheat])
	require.Equal(t, 0, g.Player(2).Resources[Wheat])
	require.Equal(t, 1, g.Player(2).Resources[Ore])
	require.Equal(t, 5, events[0].Amount)
}
