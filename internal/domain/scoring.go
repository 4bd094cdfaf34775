package domain

import (
	"sort"
	"time"
)

// DefaultQuestionTimeLimit applies to every round of a match.
const DefaultQuestionTimeLimit = 20 * time.Second

// Rating deltas applied on settlement.
const (
	WinRatingDelta  = 10
	LossRatingDelta = -5
	DrawRatingDelta = 0
)

// ScoreAnswer returns the points for one submission: the whole seconds left on the
// clock for a correct answer, zero for a late or wrong one.
func ScoreAnswer(correct bool, timeSpentMs int64, limit time.Duration) int {
	if !correct {
		return 0
	}
	if timeSpentMs < 0 {
		timeSpentMs = 0
	}
	remaining := limit.Milliseconds() - timeSpentMs
	if remaining <= 0 {
		return 0
	}
	return int(remaining / 1000)
}

// Accuracy is correct/total as a percentage, 0 when total is 0.
func Accuracy(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}

// Settle ranks the seated players of a finished room and builds its result.
// The result id is left empty for the caller to assign.
func Settle(room Room, now time.Time) MatchResult {
	players := room.Players.List()
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].Score > players[j].Score
	})

	draw := len(players) == MaxPlayers && players[0].Score == players[1].Score

	result := MatchResult{
		RoomID:        room.ID,
		IsDraw:        draw,
		Players:       make(map[string]PlayerResult, len(players)),
		QuestionCount: room.QuestionCount,
		Difficulty:    room.Difficulty,
		EndTime:       now,
	}
	if room.EndTime != nil {
		result.EndTime = *room.EndTime
	}
	if room.StartTime != nil {
		result.StartTime = *room.StartTime
		result.Duration = result.EndTime.Sub(result.StartTime)
	}

	for i, p := range players {
		rank := i + 1
		delta := WinRatingDelta
		switch {
		case draw:
			rank = 1
			delta = DrawRatingDelta
		case i > 0:
			delta = LossRatingDelta
		}
		result.Players[p.UserID] = PlayerResult{
			UserID:         p.UserID,
			DisplayName:    p.DisplayName,
			Score:          p.Score,
			CorrectCount:   p.CorrectCount,
			TotalQuestions: room.QuestionCount,
			Accuracy:       Accuracy(p.CorrectCount, room.QuestionCount),
			Rank:           rank,
			RatingDelta:    delta,
		}
	}
	if len(players) > 0 {
		result.WinnerID = players[0].UserID
	}
	if len(players) > 1 && !draw {
		result.LoserID = players[1].UserID
	}
	return result
}

// Apply folds one match outcome into the aggregate.
func (s UserStats) Apply(pr PlayerResult, playedAt time.Time) UserStats {
	s.TotalMatches++
	switch {
	case pr.RatingDelta > 0:
		s.Wins++
		s.CurrentStreak++
	case pr.RatingDelta < 0:
		s.Losses++
		s.CurrentStreak = 0
	default:
		s.Draws++
		s.CurrentStreak = 0
	}
	if s.CurrentStreak > s.BestStreak {
		s.BestStreak = s.CurrentStreak
	}
	s.Rating += pr.RatingDelta
	s.TotalScore += pr.Score
	n := float64(s.TotalMatches)
	s.AverageAccuracy = (s.AverageAccuracy*(n-1) + pr.Accuracy) / n
	s.LastPlayedAt = playedAt
	return s
}
