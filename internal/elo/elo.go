// Package elo computes performance-adjusted Elo deltas for a finalized
// scrim. The computation is deterministic, keeps the scrim-wide delta sum
// at zero before integer rounding, and is monotonic in the match result.
package elo

import (
	"math"
	"scrimhub/internal/domain"
)

const (
	// SeedRating is the rating assumed for players never seen before and
	// for a team side with no rated members.
	SeedRating = 1200

	// KFactor is recorded on every history row so past deltas stay
	// explainable if the constant ever changes.
	KFactor = 32

	minPerformance = 0.75
	maxPerformance = 1.25

	marginWeight = 0.5
)

// Player is one rated participant entering the computation.
type Player struct {
	NameKey string
	Rating  int
	Team    domain.Team
	Kills   int
}

// Input is a finalized scrim reduced to what the rating update needs.
type Input struct {
	TeamA      []Player
	TeamB      []Player
	TeamAScore int
	TeamBScore int
}

// Delta is the outcome for one player.
type Delta struct {
	NameKey string
	Team    domain.Team
	Result  domain.MatchResult
	Change  int
}

// Compute returns one delta per player. Steps:
//
//  1. expected score per player from their own rating against the other
//     team's average (seeded when the other side has no rated members)
//  2. base delta K * (actual - expected)
//  3. performance multiplier from the player's share of their team's kills,
//     clamped to [0.75, 1.25]; inverted when the base delta is negative so
//     strong play in a loss softens the punishment
//  4. round-margin factor on the magnitude
//  5. recentered by the mean so the scrim-wide sum is zero, then rounded
func Compute(in Input) []Delta {
	players := make([]Player, 0, len(in.TeamA)+len(in.TeamB))
	players = append(players, in.TeamA...)
	players = append(players, in.TeamB...)
	if len(players) == 0 {
		return nil
	}

	avgA := teamAverage(in.TeamA)
	avgB := teamAverage(in.TeamB)
	killsA := teamKills(in.TeamA)
	killsB := teamKills(in.TeamB)

	margin := 0.0
	if total := in.TeamAScore + in.TeamBScore; total > 0 {
		margin = math.Abs(float64(in.TeamAScore-in.TeamBScore)) / float64(total)
	}
	marginFactor := 1 + marginWeight*margin

	raw := make([]float64, len(players))
	deltas := make([]Delta, len(players))
	for i, p := range players {
		oppAvg := avgB
		roundsFor, roundsAgainst := in.TeamAScore, in.TeamBScore
		teamTotalKills, teamSize := killsA, len(in.TeamA)
		if p.Team == domain.TeamB {
			oppAvg = avgA
			roundsFor, roundsAgainst = in.TeamBScore, in.TeamAScore
			teamTotalKills, teamSize = killsB, len(in.TeamB)
		}

		result := classify(roundsFor, roundsAgainst)
		base := float64(KFactor) * (actualScore(result) - expectedScore(p.Rating, oppAvg))

		mult := performanceMultiplier(p.Kills, teamTotalKills, teamSize)
		if base < 0 {
			// A hard carry should not eat the same loss as a passenger.
			mult = 2 - mult
		}

		raw[i] = base * mult * marginFactor
		deltas[i] = Delta{NameKey: p.NameKey, Team: p.Team, Result: result}
	}

	var drift float64
	for _, v := range raw {
		drift += v
	}
	drift /= float64(len(raw))

	for i := range raw {
		deltas[i].Change = int(math.Round(raw[i] - drift))
	}
	return deltas
}

// Expected score of a player rated own against an opponent rated opp.
func expectedScore(own, opp int) float64 {
	return 1 / (1 + math.Pow(10, float64(opp-own)/400))
}

func actualScore(result domain.MatchResult) float64 {
	switch result {
	case domain.ResultWin:
		return 1
	case domain.ResultDraw:
		return 0.5
	default:
		return 0
	}
}

func classify(roundsFor, roundsAgainst int) domain.MatchResult {
	switch {
	case roundsFor > roundsAgainst:
		return domain.ResultWin
	case roundsFor < roundsAgainst:
		return domain.ResultLoss
	default:
		return domain.ResultDraw
	}
}

func teamAverage(team []Player) int {
	if len(team) == 0 {
		return SeedRating
	}
	sum := 0
	for _, p := range team {
		sum += p.Rating
	}
	return sum / len(team)
}

func teamKills(team []Player) int {
	sum := 0
	for _, p := range team {
		sum += p.Kills
	}
	return sum
}

// performanceMultiplier compares the player's kill share against an even
// split of the team's kills.
func performanceMultiplier(kills, teamTotalKills, teamSize int) float64 {
	if teamTotalKills == 0 || teamSize == 0 {
		return 1
	}
	share := float64(kills) / float64(teamTotalKills)
	even := 1 / float64(teamSize)
	mult := 1 + 0.25*(share/even-1)
	return math.Min(maxPerformance, math.Max(minPerformance, mult))
}
