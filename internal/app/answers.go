package app

import (
	"context"
	"errors"

	"quiz-battle-service/internal/domain"
)

// AnswerOutcome summarises one submission for the submitting player.
type AnswerOutcome struct {
	QuestionIndex int  `json:"questionIndex"`
	Correct       bool `json:"correct"`
	Awarded       int  `json:"awarded"`
	TotalScore    int  `json:"totalScore"`
	// Duplicate is set when the player had already answered this index; nothing changed.
	Duplicate bool `json:"duplicate"`
	// Advanced is set when this submission completed the round.
	Advanced bool `json:"advanced"`
	// Finished is set when this submission completed the final round.
	Finished     bool `json:"finished"`
	CurrentIndex int  `json:"currentIndex"`
}

// SubmitAnswer records the caller's answer for a question and, once every seated
// player has answered the current round, advances the room or finishes the match.
// Recording and advancing commit in one CAS, so duplicate or racing submissions
// cannot advance a round twice.
func (s *MatchService) SubmitAnswer(ctx context.Context, roomID, userID string, questionIndex int, selected string, timeSpentMs int64) (AnswerOutcome, error) {
	if err := authorize(ctx, userID); err != nil {
		return AnswerOutcome{}, err
	}

	var outcome AnswerOutcome
	room, err := s.rooms.Update(ctx, roomID, func(r *domain.Room) error {
		outcome = AnswerOutcome{QuestionIndex: questionIndex, CurrentIndex: r.CurrentQuestionIndex}
		if questionIndex < 0 || questionIndex >= len(r.Questions) {
			return domain.ErrInvalidQuestionIndex
		}
		player := r.Players.Find(userID)
		if player == nil {
			return domain.ErrPlayerNotFound
		}
		if prev, ok := player.AnswerFor(questionIndex); ok {
			outcome.Correct = prev.Correct
			outcome.Awarded = prev.Points
			outcome.TotalScore = player.Score
			outcome.Duplicate = true
			return errNoChange
		}
		if r.Status != domain.StatusInProgress {
			return domain.ErrMatchNotInProgress
		}

		now := s.now()
		question := r.Questions[questionIndex]
		correct := selected == question.CorrectAnswer
		points := domain.ScoreAnswer(correct, timeSpentMs, s.timeLimit)

		player.Answers = append(player.Answers, domain.Answer{
			QuestionIndex: questionIndex,
			Selected:      selected,
			Correct:       correct,
			Points:        points,
			TimeSpentMs:   timeSpentMs,
			SubmittedAt:   now,
		})
		player.Score += points
		if correct {
			player.CorrectCount++
		}
		player.LastSeen = now

		outcome.Correct = correct
		outcome.Awarded = points
		outcome.TotalScore = player.Score

		for r.Status == domain.StatusInProgress && r.AllAnswered(r.CurrentQuestionIndex) {
			if r.CurrentQuestionIndex+1 < len(r.Questions) {
				r.CurrentQuestionIndex++
				outcome.Advanced = true
				continue
			}
			r.Status = domain.StatusFinished
			r.EndTime = &now
			outcome.Finished = true
		}
		outcome.CurrentIndex = r.CurrentQuestionIndex
		return nil
	})
	if errors.Is(err, errNoChange) {
		return outcome, nil
	}
	if err != nil {
		return AnswerOutcome{}, err
	}

	if outcome.Finished {
		s.log.Info("match finished", "room", room.ID)
		settled := room.Clone()
		// Close must not abort settlement: the result is only written here.
		s.background("settle", room.ID, func(context.Context) error {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(s.bgCtx), settleTimeout)
			defer cancel()
			return s.settle(ctx, settled)
		})
	} else if outcome.Advanced {
		s.log.Debug("round advanced", "room", room.ID, "index", room.CurrentQuestionIndex)
	}
	return outcome, nil
}
