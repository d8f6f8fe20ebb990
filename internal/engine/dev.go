package engine

import "sort"

func (g *GameState) applyBuyDev(pid int) ([]Event, error) {
	if err := g.requireTurn(pid); err != nil {
		return nil, err
	}
	if len(g.DevDeck) == 0 {
		return nil, errIllegal("development deck is empty")
	}
	p := g.Player(pid)
	if !p.canPay(costDev) {
		return nil, errIllegal("not enough resources")
	}
	g.payToBank(pid, costDev)
	card := g.DevDeck[0]
	g.DevDeck = g.DevDeck[1:]
	p.DevCards = append(p.DevCards, DevCard{Type: card, New: true})
	if card == DevVictoryPoint {
		p.VP++
	}
	// Card type is in the event so the buyer's client can show it; the
	// transport strips it before fanning out to other players.
	events := []Event{{Type: EvtBuyDev, PID: pid, Card: card}}
	return g.withWinCheck(events), nil
}

// takeDevCard removes one playable (not new) card of the given type from
// the hand. Victory point cards are passive and never playable.
func (p *PlayerState) takeDevCard(card string) bool {
	for i, c := range p.DevCards {
		if c.Type == card && !c.New {
			p.DevCards = append(p.DevCards[:i], p.DevCards[i+1:]...)
			return true
		}
	}
	return false
}

func (g *GameState) applyPlayDev(pid int, cmd Command) ([]Event, error) {
	if g.Phase != PhaseMain || g.Turn != pid {
		return nil, errIllegal("not your turn")
	}
	if g.DevPlayedTurn {
		return nil, errIllegal("already played a card this turn")
	}
	switch cmd.Card {
	case DevKnight:
		return g.playKnight(pid)
	case DevRoadBuilding:
		return g.playRoadBuilding(pid)
	case DevYearOfPlenty:
		return g.playYearOfPlenty(pid, cmd)
	case DevMonopoly:
		return g.playMonopoly(pid, cmd)
	case DevVictoryPoint:
		return nil, errIllegal("victory point cards are not playable")
	}
	return nil, errInvalid("unknown card: " + cmd.Card)
}

// A knight may be played before rolling; the other cards require the
// roll to have happened.
func (g *GameState) playKnight(pid int) ([]Event, error) {
	p := g.Player(pid)
	if !p.takeDevCard(DevKnight) {
		return nil, errIllegal("no playable knight")
	}
	g.DevPlayedTurn = true
	p.KnightsPlayed++
	g.updateLargestArmy()
	g.Pending = PendingRobberMove
	g.PendingPID = intPtr(pid)
	events := []Event{{Type: EvtPlayDev, PID: pid, Card: DevKnight, Pending: PendingRobberMove}}
	return g.withWinCheck(events), nil
}

func (g *GameState) playRoadBuilding(pid int) ([]Event, error) {
	if !g.Rolled {
		return nil, errIllegal("roll first")
	}
	if !g.Player(pid).takeDevCard(DevRoadBuilding) {
		return nil, errIllegal("no playable road building")
	}
	g.DevPlayedTurn = true
	g.FreeRoads += 2
	return []Event{{Type: EvtPlayDev, PID: pid, Card: DevRoadBuilding, Amount: 2}}, nil
}

func (g *GameState) playYearOfPlenty(pid int, cmd Command) ([]Event, error) {
	if !g.Rolled {
		return nil, errIllegal("roll first")
	}
	if !validResource(cmd.Res) || !validResource(cmd.ResB) {
		return nil, errInvalid("two resources required")
	}
	qty, qtyB := cmd.Qty, cmd.QtyB
	if qty <= 0 {
		qty = 1
	}
	if qtyB <= 0 {
		qtyB = 1
	}
	if qty+qtyB != 2 {
		return nil, errInvalid("year of plenty grants exactly 2 resources")
	}
	if cmd.Res == cmd.ResB {
		qty, qtyB = 2, 0
	}
	if g.Bank[cmd.Res] < qty || g.Bank[cmd.ResB] < qtyB {
		return nil, errIllegal("bank cannot cover the request")
	}
	p := g.Player(pid)
	if !p.takeDevCard(DevYearOfPlenty) {
		return nil, errIllegal("no playable year of plenty")
	}
	g.DevPlayedTurn = true
	g.Bank[cmd.Res] -= qty
	p.Resources[cmd.Res] += qty
	if qtyB > 0 {
		g.Bank[cmd.ResB] -= qtyB
		p.Resources[cmd.ResB] += qtyB
	}
	granted := map[string]int{cmd.Res: qty}
	if qtyB > 0 {
		granted[cmd.ResB] += qtyB
	}
	return []Event{{Type: EvtPlayDev, PID: pid, Card: DevYearOfPlenty, Granted: granted}}, nil
}

func (g *GameState) playMonopoly(pid int, cmd Command) ([]Event, error) {
	if !g.Rolled {
		return nil, errIllegal("roll first")
	}
	if !validResource(cmd.Res) {
		return nil, errInvalid("invalid resource: " + cmd.Res)
	}
	p := g.Player(pid)
	if !p.takeDevCard(DevMonopoly) {
		return nil, errIllegal("no playable monopoly")
	}
	g.DevPlayedTurn = true

	pids := make([]int, 0, len(g.Players))
	for _, other := range g.Players {
		if other.PID != pid {
			pids = append(pids, other.PID)
		}
	}
	sort.Ints(pids)
	taken := 0
	for _, opid := range pids {
		other := g.Player(opid)
		n := other.Resources[cmd.Res]
		other.Resources[cmd.Res] = 0
		p.Resources[cmd.Res] += n
		taken += n
	}
	return []Event{{Type: EvtPlayDev, PID: pid, Card: DevMonopoly, Resource: cmd.Res, Amount: taken}}, nil
}
