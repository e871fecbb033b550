package elo

import (
	"math"
	"testing"

	"scrimhub/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evenFiveVFive(rating int) Input {
	in := Input{TeamAScore: 13, TeamBScore: 7}
	names := []string{"a1", "a2", "a3", "a4", "a5"}
	for _, n := range names {
		in.TeamA = append(in.TeamA, Player{NameKey: n, Rating: rating, Team: domain.TeamA, Kills: 15})
	}
	for _, n := range []string{"b1", "b2", "b3", "b4", "b5"} {
		in.TeamB = append(in.TeamB, Player{NameKey: n, Rating: rating, Team: domain.TeamB, Kills: 12})
	}
	return in
}

func sumChanges(deltas []Delta) int {
	sum := 0
	for _, d := range deltas {
		sum += d.Change
	}
	return sum
}

func TestComputeEmptyInput(t *testing.T) {
	assert.Nil(t, Compute(Input{TeamAScore: 13, TeamBScore: 7}))
}

func TestComputeZeroSum(t *testing.T) {
	inputs := []Input{
		evenFiveVFive(1200),
		{
			TeamA: []Player{
				{NameKey: "smurf", Rating: 1900, Team: domain.TeamA, Kills: 30},
				{NameKey: "newbie", Rating: 1050, Team: domain.TeamA, Kills: 4},
			},
			TeamB: []Player{
				{NameKey: "mid1", Rating: 1300, Team: domain.TeamB, Kills: 11},
				{NameKey: "mid2", Rating: 1280, Team: domain.TeamB, Kills: 13},
			},
			TeamAScore: 13,
			TeamBScore: 11,
		},
	}

	for _, in := range inputs {
		deltas := Compute(in)
		n := len(in.TeamA) + len(in.TeamB)
		require.Len(t, deltas, n)

		// Recentering zeroes the sum before rounding, so the rounded
		// sum can drift at most half a point per player.
		assert.LessOrEqual(t, math.Abs(float64(sumChanges(deltas))), float64(n)/2)
	}
}

func TestComputeWinnersGainLosersLose(t *testing.T) {
	deltas := Compute(evenFiveVFive(1200))

	for _, d := range deltas {
		switch d.Team {
		case domain.TeamA:
			assert.Equal(t, domain.ResultWin, d.Result)
			assert.Positive(t, d.Change, "winner %s", d.NameKey)
		case domain.TeamB:
			assert.Equal(t, domain.ResultLoss, d.Result)
			assert.Negative(t, d.Change, "loser %s", d.NameKey)
		}
	}
}

func TestComputeDraw(t *testing.T) {
	in := Input{
		TeamA:      []Player{{NameKey: "strong", Rating: 1500, Team: domain.TeamA, Kills: 10}},
		TeamB:      []Player{{NameKey: "weak", Rating: 1100, Team: domain.TeamB, Kills: 10}},
		TeamAScore: 12,
		TeamBScore: 12,
	}
	deltas := Compute(in)
	require.Len(t, deltas, 2)

	byName := map[string]Delta{}
	for _, d := range deltas {
		byName[d.NameKey] = d
		assert.Equal(t, domain.ResultDraw, d.Result)
	}

	// Drawing against a much weaker opponent costs rating.
	assert.Negative(t, byName["strong"].Change)
	assert.Positive(t, byName["weak"].Change)
}

func TestComputeUpsetPaysMore(t *testing.T) {
	underdogWin := Compute(Input{
		TeamA:      []Player{{NameKey: "dog", Rating: 1000, Team: domain.TeamA, Kills: 20}},
		TeamB:      []Player{{NameKey: "fav", Rating: 1400, Team: domain.TeamB, Kills: 20}},
		TeamAScore: 13,
		TeamBScore: 11,
	})
	expectedWin := Compute(Input{
		TeamA:      []Player{{NameKey: "fav", Rating: 1400, Team: domain.TeamA, Kills: 20}},
		TeamB:      []Player{{NameKey: "dog", Rating: 1000, Team: domain.TeamB, Kills: 20}},
		TeamAScore: 13,
		TeamBScore: 11,
	})

	assert.Greater(t, underdogWin[0].Change, expectedWin[0].Change)
}

func TestComputeMarginScalesMagnitude(t *testing.T) {
	narrow := Compute(evenFiveVFive(1200))

	blowout := evenFiveVFive(1200)
	blowout.TeamBScore = 1
	wide := Compute(blowout)

	assert.Greater(t, wide[0].Change, narrow[0].Change)
}

func TestComputeCarrySoftensLoss(t *testing.T) {
	in := Input{
		TeamA: []Player{
			{NameKey: "w1", Rating: 1200, Team: domain.TeamA, Kills: 13},
			{NameKey: "w2", Rating: 1200, Team: domain.TeamA, Kills: 13},
		},
		TeamB: []Player{
			{NameKey: "carry", Rating: 1200, Team: domain.TeamB, Kills: 20},
			{NameKey: "passenger", Rating: 1200, Team: domain.TeamB, Kills: 2},
		},
		TeamAScore: 13,
		TeamBScore: 9,
	}
	deltas := Compute(in)

	byName := map[string]Delta{}
	for _, d := range deltas {
		byName[d.NameKey] = d
	}
	assert.Negative(t, byName["carry"].Change)
	assert.Negative(t, byName["passenger"].Change)
	assert.Greater(t, byName["carry"].Change, byName["passenger"].Change,
		"top fragger should lose less than the bottom fragger")
}

func TestComputeMonotonicInResult(t *testing.T) {
	base := Input{
		TeamA: []Player{
			{NameKey: "p", Rating: 1200, Team: domain.TeamA, Kills: 20},
			{NameKey: "mate", Rating: 1200, Team: domain.TeamA, Kills: 2},
		},
		TeamB: []Player{
			{NameKey: "o1", Rating: 1200, Team: domain.TeamB, Kills: 13},
			{NameKey: "o2", Rating: 1200, Team: domain.TeamB, Kills: 13},
		},
	}

	changeFor := func(a, b int) int {
		in := base
		in.TeamAScore, in.TeamBScore = a, b
		for _, d := range Compute(in) {
			if d.NameKey == "p" {
				return d.Change
			}
		}
		t.Fatal("player p missing from deltas")
		return 0
	}

	win := changeFor(13, 7)
	draw := changeFor(12, 12)
	loss := changeFor(7, 13)

	assert.Greater(t, win, draw)
	assert.Greater(t, draw, loss)
}

func TestComputeDeterministic(t *testing.T) {
	in := evenFiveVFive(1234)
	assert.Equal(t, Compute(in), Compute(in))
}

func TestPerformanceMultiplierBounds(t *testing.T) {
	// 50 of the team's 50 kills, way past the clamp.
	assert.Equal(t, maxPerformance, performanceMultiplier(50, 50, 5))
	// Zero kills on a full team floors out.
	assert.Equal(t, minPerformance, performanceMultiplier(0, 50, 5))
	// Exactly even share is neutral.
	assert.Equal(t, 1.0, performanceMultiplier(10, 50, 5))
	// No kills recorded at all stays neutral.
	assert.Equal(t, 1.0, performanceMultiplier(0, 0, 5))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, domain.ResultWin, classify(13, 7))
	assert.Equal(t, domain.ResultLoss, classify(7, 13))
	assert.Equal(t, domain.ResultDraw, classify(12, 12))
}
