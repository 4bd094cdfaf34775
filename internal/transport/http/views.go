package http

import (
	"quiz-battle-service/internal/domain"
)

// roomView is the room as seen by viewerID. Until the room is over it hides the answer
// key, and opponents' answers to the open round keep only the fact that they answered.
// Opponents' score and correct count are rolled back to completed rounds to match.
func roomView(room domain.Room, viewerID string) domain.Room {
	if room.Status.IsTerminal() {
		return room
	}
	room = room.Clone()
	for i := range room.Questions {
		room.Questions[i].CorrectAnswer = ""
		room.Questions[i].Explanation = ""
	}
	for _, p := range room.Players.List() {
		if p.UserID == viewerID {
			continue
		}
		for i := range p.Answers {
			a := &p.Answers[i]
			if a.QuestionIndex < room.CurrentQuestionIndex {
				continue
			}
			p.Score -= a.Points
			if a.Correct {
				p.CorrectCount--
			}
			a.Selected = ""
			a.Correct = false
			a.Points = 0
		}
	}
	return room
}
