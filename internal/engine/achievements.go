package engine

import "sort"

// longestRoadLength returns pid's longest simple road path in edges.
// Traversal may not pass through a vertex holding an enemy building; the
// starting vertex of a walk is exempt.
func (g *GameState) longestRoadLength(pid int) int {
	b := g.Board
	owned := make([]EdgeID, 0)
	for e, owner := range b.OccupiedEdges {
		if owner == pid {
			owned = append(owned, e)
		}
	}
	if len(owned) == 0 {
		return 0
	}
	sort.Slice(owned, func(i, j int) bool {
		if owned[i].A != owned[j].A {
			return owned[i].A < owned[j].A
		}
		return owned[i].B < owned[j].B
	})

	adj := make(map[int][]EdgeID)
	for _, e := range owned {
		adj[e.A] = append(adj[e.A], e)
		adj[e.B] = append(adj[e.B], e)
	}

	blocked := func(v, start int) bool {
		if v == start {
			return false
		}
		occ, ok := b.OccupiedVertices[v]
		return ok && occ.Owner != pid
	}

	best := 0
	var walk func(v, start int, used map[EdgeID]bool, depth int)
	walk = func(v, start int, used map[EdgeID]bool, depth int) {
		if depth > best {
			best = depth
		}
		if blocked(v, start) {
			return
		}
		for _, e := range adj[v] {
			if used[e] {
				continue
			}
			used[e] = true
			walk(e.Other(v), start, used, depth+1)
			delete(used, e)
		}
	}

	starts := make([]int, 0, len(adj))
	for v := range adj {
		starts = append(starts, v)
	}
	sort.Ints(starts)
	for _, v := range starts {
		walk(v, v, make(map[EdgeID]bool), 0)
	}
	return best
}

// updateLongestRoad re-evaluates the longest-road award. The award needs
// 5+ edges and a unique leader; any tie for the maximum clears it, even
// against the current holder.
func (g *GameState) updateLongestRoad() {
	lengths := make([]int, len(g.Players))
	bestLen, bestCount := 0, 0
	for i := range g.Players {
		lengths[i] = g.longestRoadLength(i)
		if lengths[i] > bestLen {
			bestLen, bestCount = lengths[i], 1
		} else if lengths[i] == bestLen {
			bestCount++
		}
	}

	a := &g.Awards
	prev := a.LongestRoadOwner

	switch {
	case bestLen < 5:
		a.LongestRoadOwner = nil
		a.LongestRoadLen = 0
	case bestCount > 1:
		a.LongestRoadOwner = nil
		a.LongestRoadLen = bestLen
	default:
		for i, l := range lengths {
			if l == bestLen {
				a.LongestRoadOwner = intPtr(i)
				a.LongestRoadLen = bestLen
				break
			}
		}
	}

	g.applyAwardDelta(prev, a.LongestRoadOwner)
}

// updateLargestArmy re-evaluates the largest-army award: 3+ knights and
// a unique leader. A tie for the maximum clears it, same as longest road.
func (g *GameState) updateLargestArmy() {
	a := &g.Awards
	prev := a.LargestArmyOwner

	bestSize, bestCount := 0, 0
	for _, p := range g.Players {
		if p.KnightsPlayed > bestSize {
			bestSize, bestCount = p.KnightsPlayed, 1
		} else if p.KnightsPlayed == bestSize {
			bestCount++
		}
	}

	switch {
	case bestSize < 3:
		a.LargestArmyOwner = nil
		a.LargestArmySize = 0
	case bestCount > 1:
		a.LargestArmyOwner = nil
		a.LargestArmySize = bestSize
	default:
		for _, p := range g.Players {
			if p.KnightsPlayed == bestSize {
				a.LargestArmyOwner = intPtr(p.PID)
				a.LargestArmySize = bestSize
				break
			}
		}
	}

	g.applyAwardDelta(prev, a.LargestArmyOwner)
}

// applyAwardDelta moves the 2 VP an award is worth when it changes hands.
func (g *GameState) applyAwardDelta(prev, next *int) {
	if prev != nil && (next == nil || *next != *prev) {
		g.Player(*prev).VP -= 2
	}
	if next != nil && (prev == nil || *prev != *next) {
		g.Player(*next).VP += 2
	}
}

// checkWin flips the game to over when a player reaches the victory
// target. First in pid order wins a simultaneous tie, which only award
// swaps can produce.
func (g *GameState) checkWin() bool {
	if g.GameOver {
		return false
	}
	for _, p := range g.Players {
		if p.VP >= g.Rules.TargetVP {
			g.GameOver = true
			g.Winner = intPtr(p.PID)
			g.Phase = PhaseOver
			return true
		}
	}
	return false
}
