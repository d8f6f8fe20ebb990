package engine

// portsFor returns the port kinds reachable by pid's buildings.
func (g *GameState) portsFor(pid int) map[string]bool {
	out := make(map[string]bool)
	for _, port := range g.Board.Ports {
		for _, v := range [2]int{port.Edge.A, port.Edge.B} {
			if occ, ok := g.Board.OccupiedVertices[v]; ok && occ.Owner == pid {
				out[port.Kind] = true
			}
		}
	}
	return out
}

// bestTradeRate returns the cheapest bank rate pid has for giving res:
// 2 with a matching specific port, 3 with a generic port, 4 otherwise.
func (g *GameState) bestTradeRate(pid int, res string) int {
	ports := g.portsFor(pid)
	if ports["2:1:"+res] {
		return 2
	}
	if ports["3:1"] {
		return 3
	}
	return 4
}

func (g *GameState) applyTradeBank(pid int, cmd Command) ([]Event, error) {
	if err := g.requireTurn(pid); err != nil {
		return nil, err
	}
	if !validResource(cmd.Give) {
		return nil, errInvalid("invalid resource: " + cmd.Give)
	}
	if !validResource(cmd.Get) {
		return nil, errInvalid("invalid resource: " + cmd.Get)
	}
	if cmd.Give == cmd.Get {
		return nil, errInvalid("give and get must differ")
	}
	qty := cmd.Qty
	if qty <= 0 {
		qty = 1
	}
	rate := g.bestTradeRate(pid, cmd.Give)
	p := g.Player(pid)
	if p.Resources[cmd.Give] < rate*qty {
		return nil, errIllegal("not enough " + cmd.Give)
	}
	if g.Bank[cmd.Get] < qty {
		return nil, errIllegal("bank is out of " + cmd.Get)
	}
	p.Resources[cmd.Give] -= rate * qty
	g.Bank[cmd.Give] += rate * qty
	g.Bank[cmd.Get] -= qty
	p.Resources[cmd.Get] += qty
	return []Event{{
		Type: EvtTradeBank, PID: pid,
		Resource: cmd.Get, Amount: qty, Rate: rate,
	}}, nil
}

// findOffer returns the offer with the given id, or nil.
func (g *GameState) findOffer(id int) *TradeOffer {
	for _, o := range g.TradeOffers {
		if o.ID == id {
			return o
		}
	}
	return nil
}

func validBundle(b map[string]int) bool {
	if len(b) == 0 {
		return false
	}
	total := 0
	for res, n := range b {
		if !validResource(res) || n < 0 {
			return false
		}
		total += n
	}
	return total > 0
}

func (g *GameState) applyOfferCreate(pid int, cmd Command) ([]Event, error) {
	if err := g.requireTurn(pid); err != nil {
		return nil, err
	}
	if cmd.Offer == nil {
		return nil, errInvalid("offer required")
	}
	spec := cmd.Offer
	if !validBundle(spec.Give) || !validBundle(spec.Get) {
		return nil, errInvalid("offer needs non-empty give and get")
	}
	if spec.To != nil {
		if !g.validPID(*spec.To) {
			return nil, errInvalid("unknown target player")
		}
		if *spec.To == pid {
			return nil, errInvalid("cannot target yourself")
		}
	}
	p := g.Player(pid)
	for res, n := range spec.Give {
		if p.Resources[res] < n {
			return nil, errIllegal("not enough " + res + " to offer")
		}
	}
	offer := &TradeOffer{
		ID:          g.NextOfferID,
		From:        pid,
		To:          spec.To,
		Give:        copyBundle(spec.Give),
		Get:         copyBundle(spec.Get),
		Status:      OfferActive,
		CreatedTurn: g.Turn,
	}
	g.NextOfferID++
	g.TradeOffers = append(g.TradeOffers, offer)
	return []Event{{Type: EvtOfferCreated, PID: pid, OfferID: offer.ID}}, nil
}

func (g *GameState) applyOfferRespond(pid int, cmd Command) ([]Event, error) {
	offer := g.findOffer(cmd.OfferID)
	if offer == nil {
		return nil, &RuleError{Code: CodeNotFound, Message: "no such offer"}
	}
	if offer.Status != OfferActive {
		return nil, errIllegal("offer is no longer active")
	}

	switch cmd.Type {
	case CmdOfferCancel:
		if offer.From != pid {
			return nil, errIllegal("only the offerer can cancel")
		}
		offer.Status = OfferCanceled
		return []Event{{Type: EvtOfferCanceled, PID: pid, OfferID: offer.ID}}, nil

	case CmdOfferDecline:
		if offer.From == pid {
			return nil, errIllegal("cancel your own offer instead")
		}
		if offer.To != nil && *offer.To != pid {
			return nil, errIllegal("offer not addressed to you")
		}
		offer.Status = OfferDeclined
		return []Event{{Type: EvtOfferDeclined, PID: pid, OfferID: offer.ID}}, nil

	case CmdOfferAccept:
		if offer.From == pid {
			return nil, errIllegal("cannot accept your own offer")
		}
		if offer.To != nil && *offer.To != pid {
			return nil, errIllegal("offer not addressed to you")
		}
		from := g.Player(offer.From)
		acc := g.Player(pid)
		for res, n := range offer.Give {
			if from.Resources[res] < n {
				return nil, errIllegal("offerer can no longer cover the offer")
			}
		}
		for res, n := range offer.Get {
			if acc.Resources[res] < n {
				return nil, errIllegal("not enough resources to accept")
			}
		}
		for res, n := range offer.Give {
			from.Resources[res] -= n
			acc.Resources[res] += n
		}
		for res, n := range offer.Get {
			acc.Resources[res] -= n
			from.Resources[res] += n
		}
		offer.Status = OfferAccepted
		return []Event{{Type: EvtOfferAccepted, PID: pid, OfferID: offer.ID}}, nil
	}
	return nil, errInvalid("unknown offer command")
}

func copyBundle(b map[string]int) map[string]int {
	out := make(map[string]int, len(b))
	for res, n := range b {
		if n > 0 {
			out[res] = n
		}
	}
	return out
}
