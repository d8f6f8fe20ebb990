package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// mainPhaseGame returns a flower game forced into player 0's rolled
// main-phase turn with empty hands.
func mainPhaseGame(t *testing.T) *GameState {
	t.Helper()
	g := newFlowerGame(t)
	g.Phase = PhaseMain
	g.Turn = 0
	g.Rolled = true
	return g
}

// settleAt drops a settlement without paying, for test fixtures.
func settleAt(g *GameState, pid, vid int) {
	g.Board.OccupiedVertices[vid] = Building{Owner: pid, Level: 1}
}

func TestBankTradeRates(t *testing.T) {
	g := mainPhaseGame(t)
	vid := vertexOnTile(g, 1)
	settleAt(g, 0, vid)
	var portEdge EdgeID
	for _, e := range sortedEdges(g) {
		if e.Touches(vid) {
			portEdge = e
			break
		}
	}

	cases := []struct {
		name  string
		ports []Port
		rate  int
	}{
		{"no port", nil, 4},
		{"generic port", []Port{{Edge: portEdge, Kind: "3:1"}}, 3},
		{"specific beats generic", []Port{
			{Edge: portEdge, Kind: "3:1"},
			{Edge: portEdge, Kind: "2:1:" + Wood},
		}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g.Board.Ports = tc.ports
			require.Equal(t, tc.rate, g.bestTradeRate(0, Wood))
		})
	}

	// A specific port for another resource does not help.
	g.Board.Ports = []Port{{Edge: portEdge, Kind: "2:1:" + Ore}}
	require.Equal(t, 4, g.bestTradeRate(0, Wood))
}

func TestBankTradeExchange(t *testing.T) {
	g := mainPhaseGame(t)
	giveResources(g, 0, map[string]int{Wood: 4})

	_, err := g.Apply(0, Command{Type: CmdTradeBank, Give: Wood, Get: Ore})
	require.NoError(t, err)
	require.Equal(t, 0, g.Player(0).Resources[Wood])
	require.Equal(t, 1, g.Player(0).Resources[Ore])
	require.Equal(t, bankPerResource, g.Bank[Wood])
	require.Equal(t, bankPerResource-1, g.Bank[Ore])

	// Insufficient hand.
	_, err = g.Apply(0, Command{Type: CmdTradeBank, Give: Wood, Get: Ore})
	require.Error(t, err)

	// Bank out of the requested resource.
	giveResources(g, 0, map[string]int{Wood: 4})
	g.Bank[Sheep] = 0
	_, err = g.Apply(0, Command{Type: CmdTradeBank, Give: Wood, Get: Sheep})
	require.Error(t, err)

	// Same resource both ways.
	_, err = g.Apply(0, Command{Type: CmdTradeBank, Give: Wood, Get: Wood})
	require.Error(t, err)
}

func TestTradeOfferLifecycle(t *testing.T) {
	g := mainPhaseGame(t)
	giveResources(g, 0, map[string]int{Wood: 2})
	giveResources(g, 1, map[string]int{Ore: 1})

	// Offering more than the hand holds is rejected.
	_, err := g.Apply(0, Command{Type: CmdOfferCreate, Offer: &OfferSpec{
		Give: map[string]int{Wood: 3}, Get: map[string]int{Ore: 1},
	}})
	require.Error(t, err)

	events, err := g.Apply(0, Command{Type: CmdOfferCreate, Offer: &OfferSpec{
		Give: map[string]int{Wood: 2}, Get: map[string]int{Ore: 1},
	}})
	require.NoError(t, err)
	offerID := events[0].OfferID
	require.Equal(t, 1, offerID)

	// The offerer cannot accept their own offer.
	_, err = g.Apply(0, Command{Type: CmdOfferAccept, OfferID: offerID})
	require.Error(t, err)

	_, err = g.Apply(1, Command{Type: CmdOfferAccept, OfferID: offerID})
	require.NoError(t, err)
	require.Equal(t, 2, g.Player(1).Resources[Wood])
	require.Equal(t, 1, g.Player(0).Resources[Ore])
	require.Equal(t, OfferAccepted, g.findOffer(offerID).Status)

	// A settled offer cannot be responded to again.
	_, err = g.Apply(1, Command{Type: CmdOfferDecline, OfferID: offerID})
	require.Error(t, err)
}

func TestTradeOfferTargeting(t *testing.T) {
	g := newFlowerGame(t, "ada", "bob", "cy")
	g.Phase = PhaseMain
	g.Turn = 0
	g.Rolled = true
	giveResources(g, 0, map[string]int{Wood: 1})

	events, err := g.Apply(0, Command{Type: CmdOfferCreate, Offer: &OfferSpec{
		To:   intPtr(2),
		Give: map[string]int{Wood: 1}, Get: map[string]int{Ore: 1},
	}})
	require.NoError(t, err)
	offerID := events[0].OfferID

	// Player 1 is not the addressee.
	_, err = g.Apply(1, Command{Type: CmdOfferAccept, OfferID: offerID})
	require.Error(t, err)

	// Addressee lacks the asked resources.
	_, err = g.Apply(2, Command{Type: CmdOfferAccept, OfferID: offerID})
	require.Error(t, err)

	giveResources(g, 2, map[string]int{Ore: 1})
	_, err = g.Apply(2, Command{Type: CmdOfferAccept, OfferID: offerID})
	require.NoError(t, err)
}

func TestEndTurnCancelsActiveOffers(t *testing.T) {
	g := mainPhaseGame(t)
	giveResources(g, 0, map[string]int{Wood: 1})
	events, err := g.Apply(0, Command{Type: CmdOfferCreate, Offer: &OfferSpec{
		Give: map[string]int{Wood: 1}, Get: map[string]int{Ore: 1},
	}})
	require.NoError(t, err)
	offerID := events[0].OfferID

	events, err = g.Apply(0, Command{Type: CmdEndTurn})
	require.NoError(t, err)
	require.Equal(t, OfferCanceled, g.findOffer(offerID).Status)

	found := false
	for _, ev := range events {
		if ev.Type == EvtOfferCanceled {
			require.Equal(t, []int{offerID}, ev.OfferIDs)
			found = true
		}
	}
	require.True(t, found)
}
