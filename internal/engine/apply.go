package engine

import "sort"

// Command types accepted by Apply.
const (
	CmdPlaceSettlement = "place_settlement"
	CmdPlaceRoad       = "place_road"
	CmdUpgradeCity     = "upgrade_city"
	CmdBuildShip       = "build_ship"
	CmdMoveShip        = "move_ship"
	CmdRoll            = "roll"
	CmdDiscard         = "discard"
	CmdMoveRobber      = "move_robber"
	CmdMovePirate      = "move_pirate"
	CmdChooseGold      = "choose_gold"
	CmdTradeBank       = "trade_bank"
	CmdBuyDev          = "buy_dev"
	CmdPlayDev         = "play_dev"
	CmdOfferCreate     = "trade_offer_create"
	CmdOfferAccept     = "trade_offer_accept"
	CmdOfferDecline    = "trade_offer_decline"
	CmdOfferCancel     = "trade_offer_cancel"
	CmdEndTurn         = "end_turn"
)

// OfferSpec is the payload of trade_offer_create.
type OfferSpec struct {
	To   *int           `json:"to,omitempty"`
	Give map[string]int `json:"give"`
	Get  map[string]int `json:"get"`
}

// Command is one player action. Fields beyond Type are command-specific;
// pointers distinguish "absent" from zero values.
type Command struct {
	Type     string         `json:"type"`
	Vertex   *int           `json:"vid,omitempty"`
	Edge     *[2]int        `json:"eid,omitempty"`
	ToEdge   *[2]int        `json:"to_eid,omitempty"`
	Tile     *int           `json:"tile,omitempty"`
	Victim   *int           `json:"victim,omitempty"`
	Roll     *int           `json:"roll,omitempty"`
	Free     bool           `json:"free,omitempty"`
	Give     string         `json:"give,omitempty"`
	Get      string         `json:"get,omitempty"`
	Qty      int            `json:"qty,omitempty"`
	Res      string         `json:"res,omitempty"`
	ResB     string         `json:"res_b,omitempty"`
	QtyB     int            `json:"qty_b,omitempty"`
	Card     string         `json:"card,omitempty"`
	Discards map[string]int `json:"discards,omitempty"`
	Offer    *OfferSpec     `json:"offer,omitempty"`
	OfferID  int            `json:"offer_id,omitempty"`
}

// Event types emitted by Apply for observers.
const (
	EvtPlaceSettlement  = "place_settlement"
	EvtPlaceRoad        = "place_road"
	EvtUpgradeCity      = "upgrade_city"
	EvtBuildShip        = "build_ship"
	EvtMoveShip         = "move_ship"
	EvtInitialResources = "initial_resources"
	EvtRoll             = "roll"
	EvtDiscard          = "discard"
	EvtDiscardComplete  = "discard_complete"
	EvtMoveRobber       = "move_robber"
	EvtMovePirate       = "move_pirate"
	EvtChooseGold       = "choose_gold"
	EvtTradeBank        = "trade_bank"
	EvtBuyDev           = "buy_dev"
	EvtPlayDev          = "play_dev"
	EvtOfferCreated     = "trade_offer_created"
	EvtOfferAccepted    = "trade_offer_accepted"
	EvtOfferDeclined    = "trade_offer_declined"
	EvtOfferCanceled    = "trade_offer_canceled"
	EvtEndTurn          = "end_turn"
	EvtGameOver         = "game_over"
)

// Event is a domain fact for observers (clients, bots, logs). The stolen
// resource kind is never included.
type Event struct {
	Type     string         `json:"type"`
	PID      int            `json:"pid"`
	Vertex   *int           `json:"vid,omitempty"`
	Edge     *EdgeID        `json:"eid,omitempty"`
	ToEdge   *EdgeID        `json:"to_eid,omitempty"`
	Tile     *int           `json:"tile,omitempty"`
	Roll     int            `json:"roll,omitempty"`
	Card     string         `json:"card,omitempty"`
	Resource string         `json:"res,omitempty"`
	Amount   int            `json:"amount,omitempty"`
	Rate     int            `json:"rate,omitempty"`
	Granted  map[string]int `json:"granted,omitempty"`
	Required map[int]int    `json:"required,omitempty"`
	Pending  string         `json:"pending,omitempty"`
	Victim   *int           `json:"victim,omitempty"`
	Stolen   bool           `json:"stolen,omitempty"`
	OfferID  int            `json:"offer_id,omitempty"`
	OfferIDs []int          `json:"offer_ids,omitempty"`
	Winner   *int           `json:"winner,omitempty"`
}

// Apply validates and applies one command for one player. On error the
// state is untouched; on success it returns the events the mutation
// produced. It is the only mutator of GameState.
func (g *GameState) Apply(pid int, cmd Command) ([]Event, error) {
	if !g.validPID(pid) {
		return nil, errInvalid("unknown player")
	}
	if g.GameOver {
		return nil, errGameOver()
	}

	switch g.Pending {
	case PendingDiscard:
		if cmd.Type != CmdDiscard {
			return nil, errPending("resolve discard first")
		}
	case PendingRobberMove:
		if cmd.Type != CmdMoveRobber && !(g.Rules.EnablePirate && cmd.Type == CmdMovePirate) {
			return nil, errPending("resolve robber move first")
		}
	case PendingChooseGold:
		if cmd.Type != CmdChooseGold {
			return nil, errPending("resolve gold choice first")
		}
	}

	switch cmd.Type {
	case CmdPlaceSettlement:
		return g.applyPlaceSettlement(pid, cmd)
	case CmdPlaceRoad:
		return g.applyPlaceRoad(pid, cmd)
	case CmdUpgradeCity:
		return g.applyUpgradeCity(pid, cmd)
	case CmdBuildShip:
		return g.applyBuildShip(pid, cmd)
	case CmdMoveShip:
		return g.applyMoveShip(pid, cmd)
	case CmdRoll:
		return g.applyRoll(pid, cmd)
	case CmdDiscard:
		return g.applyDiscard(pid, cmd)
	case CmdMoveRobber:
		return g.applyMoveRobber(pid, cmd)
	case CmdMovePirate:
		return g.applyMovePirate(pid, cmd)
	case CmdChooseGold:
		return g.applyChooseGold(pid, cmd)
	case CmdTradeBank:
		return g.applyTradeBank(pid, cmd)
	case CmdBuyDev:
		return g.applyBuyDev(pid)
	case CmdPlayDev:
		return g.applyPlayDev(pid, cmd)
	case CmdOfferCreate:
		return g.applyOfferCreate(pid, cmd)
	case CmdOfferAccept, CmdOfferDecline, CmdOfferCancel:
		return g.applyOfferRespond(pid, cmd)
	case CmdEndTurn:
		return g.applyEndTurn(pid)
	}
	return nil, errInvalid("unknown command: " + cmd.Type)
}

// requireTurn checks the actor owns the current main-phase turn and has
// rolled.
func (g *GameState) requireTurn(pid int) error {
	if g.Phase != PhaseMain || g.Turn != pid {
		return errIllegal("not your turn")
	}
	if !g.Rolled {
		return errIllegal("roll first")
	}
	return nil
}

// canPlaceSettlement checks vertex occupancy, the distance rule and,
// when requireRoad is set, adjacency to the actor's road or ship.
func (g *GameState) canPlaceSettlement(pid, vid int, requireRoad bool) bool {
	b := g.Board
	if _, ok := b.Vertices[vid]; !ok {
		return false
	}
	if _, occupied := b.OccupiedVertices[vid]; occupied {
		return false
	}
	for _, nb := range b.vertexNeighbors(vid) {
		if _, occupied := b.OccupiedVertices[nb]; occupied {
			return false
		}
	}
	if !requireRoad {
		return true
	}
	for e := range b.EdgeTiles {
		if !e.Touches(vid) {
			continue
		}
		if owner, ok := b.OccupiedEdges[e]; ok && owner == pid {
			return true
		}
		if owner, ok := b.OccupiedShips[e]; ok && owner == pid {
			return true
		}
	}
	return false
}

// edgeOccupied distinguishes "owner 0" from "unoccupied" on occupancy
// maps whose zero value is a valid pid.
func edgeOccupied(m map[EdgeID]int, e EdgeID) bool {
	_, ok := m[e]
	return ok
}

// canPlaceRoad checks edge occupancy and the network-connectivity rule:
// the edge must touch the actor's building, or the actor's road through
// a vertex not blocked by an enemy building. mustTouch pins setup roads
// to the settlement just placed.
func (g *GameState) canPlaceRoad(pid int, e EdgeID, mustTouch *int) bool {
	b := g.Board
	if !b.HasEdge(e) {
		return false
	}
	if edgeOccupied(b.OccupiedEdges, e) || edgeOccupied(b.OccupiedShips, e) {
		return false
	}
	if mustTouch != nil && !e.Touches(*mustTouch) {
		return false
	}
	for _, v := range [2]int{e.A, e.B} {
		if occ, ok := b.OccupiedVertices[v]; ok {
			if occ.Owner == pid {
				return true
			}
			continue // enemy building blocks pass-through
		}
		for other := range b.EdgeTiles {
			if other == e || !other.Touches(v) {
				continue
			}
			if owner, ok := b.OccupiedEdges[other]; ok && owner == pid {
				return true
			}
		}
	}
	return false
}

// canPlaceShip mirrors canPlaceRoad for ships: the edge must touch sea,
// must not touch the pirate's tile, and connects through the actor's
// buildings or other ships (roads do not extend a shipping route).
func (g *GameState) canPlaceShip(pid int, e EdgeID) bool {
	b := g.Board
	if !b.HasEdge(e) || !b.edgeHasSea(e) {
		return false
	}
	if edgeOccupied(b.OccupiedEdges, e) || edgeOccupied(b.OccupiedShips, e) {
		return false
	}
	if g.pirateAdjacent(e) {
		return false
	}
	for _, v := range [2]int{e.A, e.B} {
		if occ, ok := b.OccupiedVertices[v]; ok {
			if occ.Owner == pid {
				return true
			}
			continue
		}
		for other := range b.EdgeTiles {
			if other == e || !other.Touches(v) {
				continue
			}
			if owner, ok := b.OccupiedShips[other]; ok && owner == pid {
				return true
			}
		}
	}
	return false
}

func (g *GameState) applyPlaceSettlement(pid int, cmd Command) ([]Event, error) {
	if cmd.Vertex == nil {
		return nil, errInvalid("vid required")
	}
	vid := *cmd.Vertex
	b := g.Board

	if g.Phase == PhaseSetup {
		if g.setupActor() != pid {
			return nil, errIllegal("not your setup turn")
		}
		if g.SetupNeed != setupNeedSettlement {
			return nil, errIllegal("road placement expected")
		}
		if !g.canPlaceSettlement(pid, vid, false) {
			return nil, errIllegal("settlement not allowed there")
		}
		before := g.countBuildings(pid, 1)
		b.OccupiedVertices[vid] = Building{Owner: pid, Level: 1}
		g.Player(pid).VP++
		g.SetupNeed = setupNeedRoad
		g.SetupAnchor = intPtr(vid)

		var events []Event
		if before+1 == 2 {
			granted := g.grantSetupResources(pid, vid)
			events = append(events, Event{
				Type: EvtInitialResources, PID: pid, Vertex: intPtr(vid), Granted: granted,
			})
		}
		events = append(events, Event{Type: EvtPlaceSettlement, PID: pid, Vertex: intPtr(vid)})
		g.updateLongestRoad()
		return g.withWinCheck(events), nil
	}

	if err := g.requireTurn(pid); err != nil {
		return nil, err
	}
	if !g.canPlaceSettlement(pid, vid, true) {
		return nil, errIllegal("settlement not allowed there")
	}
	if g.countBuildings(pid, 1) >= g.Rules.MaxSettlements {
		return nil, errIllegal("no settlement pieces left")
	}
	if !g.Player(pid).canPay(costSettlement) {
		return nil, errIllegal("not enough resources")
	}
	g.payToBank(pid, costSettlement)
	b.OccupiedVertices[vid] = Building{Owner: pid, Level: 1}
	g.Player(pid).VP++
	g.updateLongestRoad()
	events := []Event{{Type: EvtPlaceSettlement, PID: pid, Vertex: intPtr(vid)}}
	return g.withWinCheck(events), nil
}

// grantSetupResources gives one resource per producing tile adjacent to
// the second settlement, capped by bank stock. Gold, desert and sea
// grant nothing here.
func (g *GameState) grantSetupResources(pid, vid int) map[string]int {
	granted := make(map[string]int)
	for _, ti := range g.Board.VertexTiles[vid] {
		res, ok := terrainResource[g.Board.Tiles[ti].Terrain]
		if !ok || g.Bank[res] <= 0 {
			continue
		}
		g.Bank[res]--
		g.Player(pid).Resources[res]++
		granted[res]++
	}
	return granted
}

func (g *GameState) applyPlaceRoad(pid int, cmd Command) ([]Event, error) {
	if cmd.Edge == nil {
		return nil, errInvalid("eid required")
	}
	e := Edge(cmd.Edge[0], cmd.Edge[1])
	b := g.Board

	if g.Phase == PhaseSetup {
		if g.setupActor() != pid {
			return nil, errIllegal("not your setup turn")
		}
		if g.SetupNeed != setupNeedRoad {
			return nil, errIllegal("settlement placement expected")
		}
		if !g.canPlaceRoad(pid, e, g.SetupAnchor) {
			return nil, errIllegal("road not allowed there")
		}
		b.OccupiedEdges[e] = pid
		g.SetupNeed = setupNeedSettlement
		g.SetupAnchor = nil
		g.SetupIdx++
		if g.SetupIdx >= len(g.SetupOrder) {
			g.Phase = PhaseMain
			g.Turn = 0
			g.Rolled = false
		}
		g.updateLongestRoad()
		events := []Event{{Type: EvtPlaceRoad, PID: pid, Edge: &e}}
		return g.withWinCheck(events), nil
	}

	if err := g.requireTurn(pid); err != nil {
		return nil, err
	}
	if !g.canPlaceRoad(pid, e, nil) {
		return nil, errIllegal("road not allowed there")
	}
	if g.countRoads(pid) >= g.Rules.MaxRoads {
		return nil, errIllegal("no road pieces left")
	}
	if cmd.Free {
		if g.FreeRoads <= 0 {
			return nil, errIllegal("no free roads available")
		}
		g.FreeRoads--
	} else {
		if !g.Player(pid).canPay(costRoad) {
			return nil, errIllegal("not enough resources")
		}
		g.payToBank(pid, costRoad)
	}
	b.OccupiedEdges[e] = pid
	g.updateLongestRoad()
	events := []Event{{Type: EvtPlaceRoad, PID: pid, Edge: &e}}
	return g.withWinCheck(events), nil
}

func (g *GameState) applyUpgradeCity(pid int, cmd Command) ([]Event, error) {
	if cmd.Vertex == nil {
		return nil, errInvalid("vid required")
	}
	if err := g.requireTurn(pid); err != nil {
		return nil, err
	}
	vid := *cmd.Vertex
	occ, ok := g.Board.OccupiedVertices[vid]
	if !ok || occ.Owner != pid || occ.Level != 1 {
		return nil, errIllegal("need your settlement to upgrade")
	}
	if g.countBuildings(pid, 2) >= g.Rules.MaxCities {
		return nil, errIllegal("no city pieces left")
	}
	if !g.Player(pid).canPay(costCity) {
		return nil, errIllegal("not enough resources")
	}
	g.payToBank(pid, costCity)
	g.Board.OccupiedVertices[vid] = Building{Owner: pid, Level: 2}
	g.Player(pid).VP++
	events := []Event{{Type: EvtUpgradeCity, PID: pid, Vertex: intPtr(vid)}}
	return g.withWinCheck(events), nil
}

func (g *GameState) applyBuildShip(pid int, cmd Command) ([]Event, error) {
	if !g.Rules.EnableShips {
		return nil, errInvalid("ships disabled on this map")
	}
	if cmd.Edge == nil {
		return nil, errInvalid("eid required")
	}
	if err := g.requireTurn(pid); err != nil {
		return nil, err
	}
	e := Edge(cmd.Edge[0], cmd.Edge[1])
	if !g.canPlaceShip(pid, e) {
		return nil, errIllegal("ship not allowed there")
	}
	if g.countShips(pid) >= g.Rules.MaxShips {
		return nil, errIllegal("no ship pieces left")
	}
	if !g.Player(pid).canPay(costShip) {
		return nil, errIllegal("not enough resources")
	}
	g.payToBank(pid, costShip)
	g.Board.OccupiedShips[e] = pid
	return []Event{{Type: EvtBuildShip, PID: pid, Edge: &e}}, nil
}

// shipIsOpen reports whether the ship at e has at least one endpoint
// free of the owner's other pieces; only open ships may be moved.
func (g *GameState) shipIsOpen(pid int, e EdgeID) bool {
	b := g.Board
	for _, v := range [2]int{e.A, e.B} {
		attached := false
		if occ, ok := b.OccupiedVertices[v]; ok && occ.Owner == pid {
			attached = true
		}
		for other, owner := range b.OccupiedShips {
			if other != e && other.Touches(v) && owner == pid {
				attached = true
			}
		}
		if !attached {
			return true
		}
	}
	return false
}

func (g *GameState) applyMoveShip(pid int, cmd Command) ([]Event, error) {
	if !g.Rules.EnableShips || !g.Rules.EnableMoveShip {
		return nil, errInvalid("ship movement disabled on this map")
	}
	if cmd.Edge == nil || cmd.ToEdge == nil {
		return nil, errInvalid("eid and to_eid required")
	}
	if err := g.requireTurn(pid); err != nil {
		return nil, err
	}
	if g.ShipMovedTurn {
		return nil, errIllegal("already moved a ship this turn")
	}
	from := Edge(cmd.Edge[0], cmd.Edge[1])
	to := Edge(cmd.ToEdge[0], cmd.ToEdge[1])
	owner, ok := g.Board.OccupiedShips[from]
	if !ok || owner != pid {
		return nil, errIllegal("no ship of yours there")
	}
	if g.pirateAdjacent(from) {
		return nil, errIllegal("pirate blocks that ship")
	}
	if !g.shipIsOpen(pid, from) {
		return nil, errIllegal("ship is locked inside a route")
	}
	delete(g.Board.OccupiedShips, from)
	if !g.canPlaceShip(pid, to) {
		g.Board.OccupiedShips[from] = pid
		return nil, errIllegal("ship not allowed there")
	}
	g.Board.OccupiedShips[to] = pid
	g.ShipMovedTurn = true
	return []Event{{Type: EvtMoveShip, PID: pid, Edge: &from, ToEdge: &to}}, nil
}

func (g *GameState) applyRoll(pid int, cmd Command) ([]Event, error) {
	if g.Phase != PhaseMain || g.Turn != pid {
		return nil, errIllegal("not your turn")
	}
	if g.Rolled {
		return nil, errIllegal("already rolled")
	}
	if cmd.Roll == nil {
		return nil, errInvalid("roll value required")
	}
	roll := *cmd.Roll
	if roll < 2 || roll > 12 {
		return nil, errInvalid("roll out of range")
	}
	g.Rolled = true
	g.LastRoll = roll
	g.RollHistory = append(g.RollHistory, roll)

	if roll == 7 {
		required := make(map[int]int)
		for _, p := range g.Players {
			if total := p.HandSize(); total > 7 {
				required[p.PID] = total / 2
			}
		}
		g.PendingPID = intPtr(pid)
		if len(required) > 0 {
			g.Pending = PendingDiscard
			g.DiscardRequired = required
			g.DiscardDone = make(map[int]bool)
			return []Event{{Type: EvtRoll, PID: pid, Roll: roll, Pending: PendingDiscard, Required: required}}, nil
		}
		g.Pending = PendingRobberMove
		return []Event{{Type: EvtRoll, PID: pid, Roll: roll, Pending: PendingRobberMove}}, nil
	}

	g.distribute(roll)
	events := []Event{{Type: EvtRoll, PID: pid, Roll: roll}}
	if g.collectGold(roll) {
		g.Pending = PendingChooseGold
		events[0].Pending = PendingChooseGold
	}
	return events, nil
}

// distribute grants resources for a non-7 roll. Vertices are visited in
// id order so bank capping is deterministic.
func (g *GameState) distribute(roll int) {
	b := g.Board
	vids := make([]int, 0, len(b.OccupiedVertices))
	for vid := range b.OccupiedVertices {
		vids = append(vids, vid)
	}
	sort.Ints(vids)

	for _, vid := range vids {
		occ := b.OccupiedVertices[vid]
		for _, ti := range b.VertexTiles[vid] {
			t := b.Tiles[ti]
			if t.Number != roll || ti == g.RobberTile {
				continue
			}
			res, ok := terrainResource[t.Terrain]
			if !ok {
				continue
			}
			amount := 1
			if occ.Level == 2 {
				amount = 2
			}
			if give := min(amount, g.Bank[res]); give > 0 {
				g.Bank[res] -= give
				g.Player(occ.Owner).Resources[res] += give
			}
		}
	}
}

// collectGold records owed gold picks for buildings adjacent to gold
// tiles matching the roll. Returns true when any player is owed.
func (g *GameState) collectGold(roll int) bool {
	if !g.Rules.EnableGold {
		return false
	}
	b := g.Board
	vids := make([]int, 0, len(b.OccupiedVertices))
	for vid := range b.OccupiedVertices {
		vids = append(vids, vid)
	}
	sort.Ints(vids)

	owed := false
	for _, vid := range vids {
		occ := b.OccupiedVertices[vid]
		for _, ti := range b.VertexTiles[vid] {
			t := b.Tiles[ti]
			if t.Terrain != TerrainGold || t.Number != roll || ti == g.RobberTile {
				continue
			}
			amount := 1
			if occ.Level == 2 {
				amount = 2
			}
			g.GoldOwed[occ.Owner] += amount
			owed = true
		}
	}
	return owed
}

func (g *GameState) applyDiscard(pid int, cmd Command) ([]Event, error) {
	if g.Pending != PendingDiscard {
		return nil, errIllegal("no discard pending")
	}
	need := g.DiscardRequired[pid]
	if need <= 0 {
		return nil, errIllegal("no discard required for you")
	}
	if g.DiscardDone[pid] {
		return nil, errIllegal("already discarded")
	}
	if len(cmd.Discards) == 0 {
		return nil, errInvalid("discards required")
	}
	total := 0
	p := g.Player(pid)
	for res, n := range cmd.Discards {
		if !validResource(res) {
			return nil, errInvalid("invalid resource: " + res)
		}
		if n < 0 {
			return nil, errInvalid("negative discard")
		}
		if p.Resources[res] < n {
			return nil, errIllegal("not enough " + res)
		}
		total += n
	}
	if total != need {
		return nil, &RuleError{
			Code: CodeInvalid, Message: "discard count mismatch",
			Detail: map[string]any{"needed": need, "got": total},
		}
	}
	for res, n := range cmd.Discards {
		p.Resources[res] -= n
		g.Bank[res] += n
	}
	g.DiscardDone[pid] = true

	events := []Event{{Type: EvtDiscard, PID: pid, Amount: need}}
	if len(g.DiscardDone) == len(g.DiscardRequired) {
		g.DiscardRequired = make(map[int]int)
		g.DiscardDone = make(map[int]bool)
		g.Pending = PendingRobberMove
		events = append(events, Event{Type: EvtDiscardComplete, PID: pid, Pending: PendingRobberMove})
	}
	return events, nil
}

// robberVictims lists players with a building on the tile holding at
// least one resource, excluding the thief, in pid order.
func (g *GameState) robberVictims(tile, thief int) []int {
	seen := make(map[int]bool)
	for vid, occ := range g.Board.OccupiedVertices {
		if occ.Owner == thief || seen[occ.Owner] {
			continue
		}
		for _, ti := range g.Board.VertexTiles[vid] {
			if ti == tile && g.Player(occ.Owner).HandSize() > 0 {
				seen[occ.Owner] = true
			}
		}
	}
	out := make([]int, 0, len(seen))
	for pid := range seen {
		out = append(out, pid)
	}
	sort.Ints(out)
	return out
}

// stealOne moves one resource from victim to thief: the victim's most
// plentiful kind, ties broken alphabetically. Deterministic so replays
// agree; observers only learn that a steal happened.
func (g *GameState) stealOne(thief, victim int) bool {
	res := g.Player(victim).Resources
	best := ""
	for _, r := range Resources {
		if res[r] <= 0 {
			continue
		}
		if best == "" || res[r] > res[best] || (res[r] == res[best] && r < best) {
			best = r
		}
	}
	if best == "" {
		return false
	}
	res[best]--
	g.Player(thief).Resources[best]++
	return true
}

func (g *GameState) applyMoveRobber(pid int, cmd Command) ([]Event, error) {
	if g.Pending != PendingRobberMove {
		return nil, errIllegal("no robber move pending")
	}
	if g.PendingPID == nil || *g.PendingPID != pid {
		return nil, errIllegal("not your robber move")
	}
	if cmd.Tile == nil {
		return nil, errInvalid("tile required")
	}
	tile := *cmd.Tile
	if tile < 0 || tile >= len(g.Board.Tiles) {
		return nil, errInvalid("unknown tile")
	}
	if g.Board.Tiles[tile].Terrain == TerrainSea {
		return nil, errIllegal("robber cannot enter the sea")
	}
	if tile == g.RobberTile {
		return nil, errIllegal("robber already there")
	}

	victims := g.robberVictims(tile, pid)
	victim := -1
	if cmd.Victim != nil {
		if !containsInt(victims, *cmd.Victim) {
			return nil, errIllegal("victim not adjacent to that tile")
		}
		victim = *cmd.Victim
	} else if len(victims) > 0 {
		victim = victims[0]
	}

	g.RobberTile = tile
	stolen := false
	var victimPtr *int
	if victim >= 0 {
		stolen = g.stealOne(pid, victim)
		victimPtr = intPtr(victim)
	}
	g.Pending = PendingNone
	g.PendingPID = nil
	return []Event{{Type: EvtMoveRobber, PID: pid, Tile: intPtr(tile), Victim: victimPtr, Stolen: stolen}}, nil
}

// pirateVictims lists players with a ship on an edge of the tile and at
// least one resource, excluding the thief.
func (g *GameState) pirateVictims(tile, thief int) []int {
	seen := make(map[int]bool)
	for e, owner := range g.Board.OccupiedShips {
		if owner == thief || seen[owner] {
			continue
		}
		for _, ti := range g.Board.EdgeTiles[e] {
			if ti == tile && g.Player(owner).HandSize() > 0 {
				seen[owner] = true
			}
		}
	}
	out := make([]int, 0, len(seen))
	for pid := range seen {
		out = append(out, pid)
	}
	sort.Ints(out)
	return out
}

func (g *GameState) applyMovePirate(pid int, cmd Command) ([]Event, error) {
	if !g.Rules.EnablePirate {
		return nil, errInvalid("pirate disabled on this map")
	}
	if g.Pending != PendingRobberMove {
		return nil, errIllegal("no robber move pending")
	}
	if g.PendingPID == nil || *g.PendingPID != pid {
		return nil, errIllegal("not your robber move")
	}
	if cmd.Tile == nil {
		return nil, errInvalid("tile required")
	}
	tile := *cmd.Tile
	if tile < 0 || tile >= len(g.Board.Tiles) {
		return nil, errInvalid("unknown tile")
	}
	if g.Board.Tiles[tile].Terrain != TerrainSea {
		return nil, errIllegal("pirate must stay at sea")
	}
	if g.PirateTile != nil && tile == *g.PirateTile {
		return nil, errIllegal("pirate already there")
	}

	victims := g.pirateVictims(tile, pid)
	victim := -1
	if cmd.Victim != nil {
		if !containsInt(victims, *cmd.Victim) {
			return nil, errIllegal("victim has no ship on that tile")
		}
		victim = *cmd.Victim
	} else if len(victims) > 0 {
		victim = victims[0]
	}

	g.PirateTile = intPtr(tile)
	stolen := false
	var victimPtr *int
	if victim >= 0 {
		stolen = g.stealOne(pid, victim)
		victimPtr = intPtr(victim)
	}
	g.Pending = PendingNone
	g.PendingPID = nil
	return []Event{{Type: EvtMovePirate, PID: pid, Tile: intPtr(tile), Victim: victimPtr, Stolen: stolen}}, nil
}

func (g *GameState) applyChooseGold(pid int, cmd Command) ([]Event, error) {
	if g.Pending != PendingChooseGold {
		return nil, errIllegal("no gold choice pending")
	}
	owed := g.GoldOwed[pid]
	if owed <= 0 {
		return nil, errIllegal("no gold owed to you")
	}
	if !validResource(cmd.Res) {
		return nil, errInvalid("invalid resource: " + cmd.Res)
	}
	qty := cmd.Qty
	if qty <= 0 || qty > owed {
		return nil, errInvalid("invalid gold quantity")
	}
	// Owed picks are consumed even when the bank cannot cover the choice,
	// otherwise an empty bank would deadlock the pending action.
	give := min(qty, g.Bank[cmd.Res])
	g.Bank[cmd.Res] -= give
	g.Player(pid).Resources[cmd.Res] += give
	g.GoldOwed[pid] -= qty
	if g.GoldOwed[pid] <= 0 {
		delete(g.GoldOwed, pid)
	}
	if len(g.GoldOwed) == 0 {
		g.Pending = PendingNone
	}
	return []Event{{Type: EvtChooseGold, PID: pid, Resource: cmd.Res, Amount: give}}, nil
}

func (g *GameState) applyEndTurn(pid int) ([]Event, error) {
	if g.Phase != PhaseMain || g.Turn != pid {
		return nil, errIllegal("not your turn")
	}
	if !g.Rolled {
		return nil, errIllegal("roll before ending the turn")
	}

	var canceled []int
	for _, offer := range g.TradeOffers {
		if offer.Status == OfferActive {
			offer.Status = OfferCanceled
			canceled = append(canceled, offer.ID)
		}
	}

	for i := range g.Player(pid).DevCards {
		g.Player(pid).DevCards[i].New = false
	}
	g.DevPlayedTurn = false
	g.FreeRoads = 0
	g.ShipMovedTurn = false

	g.Turn = (g.Turn + 1) % len(g.Players)
	g.Rolled = false
	g.LastRoll = 0

	events := []Event{{Type: EvtEndTurn, PID: pid}}
	if canceled != nil {
		events = append(events, Event{Type: EvtOfferCanceled, PID: pid, OfferIDs: canceled})
	}
	return events, nil
}

// payToBank moves a cost bundle from the player into the bank.
func (g *GameState) payToBank(pid int, cost map[string]int) {
	for res, n := range cost {
		g.Player(pid).Resources[res] -= n
		g.Bank[res] += n
	}
}

// withWinCheck appends a game_over event when the last mutation pushed a
// player to the victory target.
func (g *GameState) withWinCheck(events []Event) []Event {
	if g.checkWin() {
		events = append(events, Event{Type: EvtGameOver, PID: *g.Winner, Winner: g.Winner})
	}
	return events
}

func validResource(res string) bool {
	for _, r := range Resources {
		if r == res {
			return true
		}
	}
	return false
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
