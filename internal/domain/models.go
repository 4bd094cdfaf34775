package domain

import "time"

// RoomMode distinguishes stranger matchmaking from invite-only rooms.
type RoomMode string

const (
	ModeQuickMatch  RoomMode = "QUICK_MATCH"
	ModeFriendMatch RoomMode = "FRIEND_MATCH"
)

// RoomStatus is the room lifecycle state.
type RoomStatus string

const (
	StatusWaiting    RoomStatus = "WAITING"
	StatusStarting   RoomStatus = "STARTING"
	StatusInProgress RoomStatus = "IN_PROGRESS"
	StatusFinished   RoomStatus = "FINISHED"
	StatusCancelled  RoomStatus = "CANCELLED"
)

// IsTerminal reports whether no further transitions are possible.
func (s RoomStatus) IsTerminal() bool {
	switch s {
	case StatusFinished, StatusCancelled:
		return true
	case StatusWaiting, StatusStarting, StatusInProgress:
		return false
	}
	return false
}

// AcceptsJoins reports whether a player may still take a seat.
func (s RoomStatus) AcceptsJoins() bool {
	switch s {
	case StatusWaiting, StatusStarting:
		return true
	case StatusInProgress, StatusFinished, StatusCancelled:
		return false
	}
	return false
}

// Valid reports whether s is a known status.
func (s RoomStatus) Valid() bool {
	switch s {
	case StatusWaiting, StatusStarting, StatusInProgress, StatusFinished, StatusCancelled:
		return true
	}
	return false
}

// MaxPlayers is the number of seats in a room.
const MaxPlayers = 2

// Question is immutable once a room has been created with it.
type Question struct {
	ID            string   `json:"id"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
	ImageURL      string   `json:"imageUrl,omitempty"`
}

// Answer is one submission by a player for a question index.
type Answer struct {
	QuestionIndex int       `json:"questionIndex"`
	Selected      string    `json:"selected"`
	Correct       bool      `json:"correct"`
	Points        int       `json:"points"`
	TimeSpentMs   int64     `json:"timeSpentMs"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

// Player is a seated participant.
type Player struct {
	UserID       string    `json:"userId"`
	DisplayName  string    `json:"displayName"`
	Online       bool      `json:"online"`
	Ready        bool      `json:"ready"`
	LastSeen     time.Time `json:"lastSeen"`
	Score        int       `json:"score"`
	CorrectCount int       `json:"correctCount"`
	Answers      []Answer  `json:"answers"`
}

// AnswerFor returns the player's answer for a question index.
func (p *Player) AnswerFor(questionIndex int) (Answer, bool) {
	for _, a := range p.Answers {
		if a.QuestionIndex == questionIndex {
			return a, true
		}
	}
	return Answer{}, false
}

// HasAnswered reports whether the player answered the given index.
func (p *Player) HasAnswered(questionIndex int) bool {
	_, ok := p.AnswerFor(questionIndex)
	return ok
}

// Seats holds at most MaxPlayers players. Empty seats are nil.
type Seats [MaxPlayers]*Player

// Count returns the number of occupied seats.
func (s *Seats) Count() int {
	n := 0
	for _, p := range s {
		if p != nil {
			n++
		}
	}
	return n
}

// Find returns the player seated under userID.
func (s *Seats) Find(userID string) *Player {
	for _, p := range s {
		if p != nil && p.UserID == userID {
			return p
		}
	}
	return nil
}

// Seat places the player, replacing an existing entry with the same user id.
func (s *Seats) Seat(player Player) error {
	for i, p := range s {
		if p != nil && p.UserID == player.UserID {
			s[i] = &player
			return nil
		}
	}
	for i, p := range s {
		if p == nil {
			s[i] = &player
			return nil
		}
	}
	return ErrRoomFull
}

// Remove empties the seat held by userID and reports whether one was found.
func (s *Seats) Remove(userID string) bool {
	for i, p := range s {
		if p != nil && p.UserID == userID {
			s[i] = nil
			return true
		}
	}
	return false
}

// List returns the seated players in seat order.
func (s *Seats) List() []*Player {
	out := make([]*Player, 0, MaxPlayers)
	for _, p := range s {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

// Room is the shared document for one match between two players.
type Room struct {
	ID                   string     `json:"id"`
	Code                 string     `json:"code"`
	Mode                 RoomMode   `json:"mode"`
	Difficulty           string     `json:"difficulty"`
	QuestionCount        int        `json:"questionCount"`
	Status               RoomStatus `json:"status"`
	HostID               string     `json:"hostId"`
	Players              Seats      `json:"players"`
	Questions            []Question `json:"questions"`
	CurrentQuestionIndex int        `json:"currentQuestionIndex"`
	StartTime            *time.Time `json:"startTime,omitempty"`
	EndTime              *time.Time `json:"endTime,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
	// Version is bumped by the store on every committed write.
	Version int64 `json:"version"`
}

// AllAnswered reports whether every seated player answered questionIndex.
func (r *Room) AllAnswered(questionIndex int) bool {
	players := r.Players.List()
	if len(players) == 0 {
		return false
	}
	for _, p := range players {
		if !p.HasAnswered(questionIndex) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy so callers can mutate without aliasing store state.
func (r Room) Clone() Room {
	out := r
	for i, p := range r.Players {
		if p == nil {
			continue
		}
		cp := *p
		cp.Answers = append([]Answer(nil), p.Answers...)
		out.Players[i] = &cp
	}
	out.Questions = make([]Question, len(r.Questions))
	for i, q := range r.Questions {
		q.Options = append([]string(nil), q.Options...)
		out.Questions[i] = q
	}
	if r.StartTime != nil {
		t := *r.StartTime
		out.StartTime = &t
	}
	if r.EndTime != nil {
		t := *r.EndTime
		out.EndTime = &t
	}
	return out
}

// RoomTransition is a distinct (room, status) pair observed by a watcher.
type RoomTransition struct {
	RoomID string     `json:"roomId"`
	Status RoomStatus `json:"status"`
}

// PlayerResult is a participant's line in a MatchResult.
type PlayerResult struct {
	UserID         string  `json:"userId"`
	DisplayName    string  `json:"displayName"`
	Score          int     `json:"score"`
	CorrectCount   int     `json:"correctCount"`
	TotalQuestions int     `json:"totalQuestions"`
	Accuracy       float64 `json:"accuracy"`
	Rank           int     `json:"rank"`
	RatingDelta    int     `json:"ratingDelta"`
}

// MatchResult is written once per finished room and never modified.
type MatchResult struct {
	ID            string                  `json:"id"`
	RoomID        string                  `json:"roomId"`
	WinnerID      string                  `json:"winnerId"`
	LoserID       string                  `json:"loserId"`
	IsDraw        bool                    `json:"isDraw"`
	Players       map[string]PlayerResult `json:"players"`
	QuestionCount int                     `json:"questionCount"`
	Difficulty    string                  `json:"difficulty"`
	StartTime     time.Time               `json:"startTime"`
	EndTime       time.Time               `json:"endTime"`
	Duration      time.Duration           `json:"duration"`
}

// UserStats aggregates a user's PvP history.
type UserStats struct {
	UserID          string    `json:"userId"`
	TotalMatches    int       `json:"totalMatches"`
	Wins            int       `json:"wins"`
	Losses          int       `json:"losses"`
	Draws           int       `json:"draws"`
	CurrentStreak   int       `json:"currentStreak"`
	BestStreak      int       `json:"bestStreak"`
	Rating          int       `json:"rating"`
	TotalScore      int       `json:"totalScore"`
	AverageAccuracy float64   `json:"averageAccuracy"`
	LastPlayedAt    time.Time `json:"lastPlayedAt"`
}
