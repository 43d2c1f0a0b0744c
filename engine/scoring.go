package engine

// scoreRound settles a finished eight-trick round, then either closes the set
// or deals the next round.
//
// A round in which trump was never revealed is a draw. Otherwise only the
// bidding partnership's pips move: +multiplier when its card points reach
// the adjusted target, -multiplier when they fall short.
func (g *GameState) scoreRound() {
	team := g.BidderTeam()
	res := RoundResult{
		Active:     true,
		Round:      g.Round,
		BidderTeam: team,
		Bid:        g.HighestBid.Amount,
		Target:     g.Target(),
		Multiplier: g.Multiplier(),
		TeamPoints: g.TeamPoints,
		Draw:       !g.TrumpRevealed,
	}
	if !res.Draw {
		res.Made = g.TeamPoints[team] >= res.Target
		if res.Made {
			res.PipDelta[team] = res.Multiplier
		} else {
			res.PipDelta[team] = -res.Multiplier
		}
		g.GamePoints[team] += res.PipDelta[team]
	}
	g.RoundPopup = res

	if g.setOver() {
		g.endSet(team)
		return
	}
	g.nextRound()
}

// scoreSingleHand settles the one-trick variant: the trick winner's
// partnership takes the pips and the match ends.
func (g *GameState) scoreSingleHand(winner int) {
	team := Team(winner)
	mult := g.Multiplier()
	g.GamePoints[team] += mult
	res := RoundResult{
		Active:     true,
		Round:      g.Round,
		BidderTeam: g.BidderTeam(),
		Bid:        g.HighestBid.Amount,
		Target:     g.Target(),
		Multiplier: mult,
		TeamPoints: g.TeamPoints,
		Made:       team == g.BidderTeam(),
	}
	res.PipDelta[team] = mult
	g.RoundPopup = res
	g.SetsWon[team]++
	g.SetPopup = SetResult{Active: true, Set: g.Set, Winner: team, GamePoints: g.GamePoints}
	g.Phase = PhaseCompleted
	g.Winner = team
}

func (g *GameState) setOver() bool {
	for _, p := range g.GamePoints {
		if abs(p) >= g.Rules.SetThreshold {
			return true
		}
	}
	return false
}

// SetWinner returns the partnership whose pip total has the higher magnitude,
// so a side sliding to -6 still takes the set. Equal magnitudes go to
// tiebreak.
func SetWinner(points [NumTeams]int, tiebreak int) int {
	a, b := abs(points[0]), abs(points[1])
	switch {
	case a > b:
		return 0
	case b > a:
		return 1
	}
	return tiebreak
}

// endSet records the set, then completes the match once a partnership holds
// a majority of the configured sets, or starts a fresh set.
func (g *GameState) endSet(bidderTeam int) {
	w := SetWinner(g.GamePoints, bidderTeam)
	g.SetsWon[w]++
	g.SetPopup = SetResult{Active: true, Set: g.Set, Winner: w, GamePoints: g.GamePoints}

	if g.SetsWon[w]*2 > g.Rules.numSets() {
		g.Phase = PhaseCompleted
		g.Winner = w
		return
	}
	g.Set++
	g.GamePoints = [NumTeams]int{}
	g.nextRound()
}

func (g *GameState) nextRound() {
	g.Round++
	g.DealerIndex = NextSeat(g.DealerIndex)
	g.startRound()
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
