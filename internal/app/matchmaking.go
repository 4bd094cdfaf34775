package app

import (
	"context"
	"errors"
	"fmt"

	"quiz-battle-service/internal/domain"
	"github.com/google/uuid"
)

const maxCodeAttempts = 5

// FindQuickMatch seats the caller in the oldest compatible waiting room, or opens a new one.
func (s *MatchService) FindQuickMatch(ctx context.Context, userID, displayName, difficulty string, questionCount int) (domain.Room, error) {
	if err := authorize(ctx, userID); err != nil {
		return domain.Room{}, err
	}
	if err := s.checkQuestionCount(questionCount); err != nil {
		return domain.Room{}, err
	}

	candidates, err := s.rooms.List(ctx, domain.ModeQuickMatch)
	if err != nil {
		return domain.Room{}, err
	}
	for _, candidate := range candidates {
		if !quickMatchFits(candidate, userID, difficulty, questionCount) {
			continue
		}
		room, err := s.join(ctx, candidate.ID, userID, displayName)
		switch {
		case err == nil:
			s.log.Info("quick match joined", "room", room.ID, "user", userID)
			return room, nil
		case errors.Is(err, domain.ErrRoomFull),
			errors.Is(err, domain.ErrMatchAlreadyStarted),
			errors.Is(err, domain.ErrRoomNotFound):
			// Another player claimed it between the scan and the join.
			s.log.Debug("quick match candidate lost", "room", candidate.ID, "user", userID, "error", err)
		default:
			return domain.Room{}, err
		}
	}

	return s.createRoom(ctx, domain.ModeQuickMatch, userID, displayName, difficulty, questionCount)
}

// CreateRoom opens a friend-match room whose join code can be shared.
func (s *MatchService) CreateRoom(ctx context.Context, userID, displayName, difficulty string, questionCount int) (domain.Room, error) {
	if err := authorize(ctx, userID); err != nil {
		return domain.Room{}, err
	}
	if err := s.checkQuestionCount(questionCount); err != nil {
		return domain.Room{}, err
	}
	return s.createRoom(ctx, domain.ModeFriendMatch, userID, displayName, difficulty, questionCount)
}

// JoinRoom seats the caller in a room given its id or its 6-character join code.
func (s *MatchService) JoinRoom(ctx context.Context, roomIDOrCode, userID, displayName string) (domain.Room, error) {
	if err := authorize(ctx, userID); err != nil {
		return domain.Room{}, err
	}
	roomID := roomIDOrCode
	if domain.LooksLikeJoinCode(roomIDOrCode) {
		resolved, err := s.rooms.ResolveCode(ctx, domain.NormalizeJoinCode(roomIDOrCode))
		if err != nil {
			return domain.Room{}, err
		}
		roomID = resolved
	}
	return s.join(ctx, roomID, userID, displayName)
}

func (s *MatchService) join(ctx context.Context, roomID, userID, displayName string) (domain.Room, error) {
	now := s.now()
	room, err := s.rooms.Update(ctx, roomID, func(r *domain.Room) error {
		if !r.Status.AcceptsJoins() {
			return domain.ErrMatchAlreadyStarted
		}
		if existing := r.Players.Find(userID); existing != nil {
			existing.DisplayName = displayName
			existing.Online = true
			existing.Ready = true
			existing.LastSeen = now
			return nil
		}
		return r.Players.Seat(domain.Player{
			UserID:      userID,
			DisplayName: displayName,
			Online:      true,
			Ready:       true,
			LastSeen:    now,
		})
	})
	if err != nil {
		return domain.Room{}, err
	}

	if room.Players.Count() == domain.MaxPlayers && room.Status == domain.StatusWaiting {
		s.triggerStart(room.ID)
	}
	return room, nil
}

func (s *MatchService) createRoom(ctx context.Context, mode domain.RoomMode, userID, displayName, difficulty string, questionCount int) (domain.Room, error) {
	questions := s.drawQuestions(ctx, difficulty, questionCount)

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := domain.NewJoinCode()
		if err != nil {
			return domain.Room{}, fmt.Errorf("generate join code: %w", err)
		}
		now := s.now()
		room := domain.Room{
			ID:            uuid.NewString(),
			Code:          code,
			Mode:          mode,
			Difficulty:    difficulty,
			QuestionCount: questionCount,
			Status:        domain.StatusWaiting,
			HostID:        userID,
			Questions:     questions,
			CreatedAt:     now,
		}
		if err := room.Players.Seat(domain.Player{
			UserID:      userID,
			DisplayName: displayName,
			Online:      true,
			Ready:       true,
			LastSeen:    now,
		}); err != nil {
			return domain.Room{}, err
		}

		created, err := s.rooms.Create(ctx, room)
		if errors.Is(err, domain.ErrCodeTaken) {
			continue
		}
		if err != nil {
			return domain.Room{}, err
		}

		// Read back before handing out the id so a half-written room is never advertised.
		verified, err := s.rooms.Get(ctx, created.ID)
		if err == nil && verified.Players.Find(userID) == nil {
			err = fmt.Errorf("room %s missing host after create", created.ID)
		}
		if err != nil {
			if derr := s.rooms.Delete(ctx, created.ID, created.Version); derr != nil {
				s.log.Warn("discard unverified room", "room", created.ID, "error", derr)
			}
			return domain.Room{}, fmt.Errorf("verify room: %w", err)
		}

		s.log.Info("room created", "room", verified.ID, "code", verified.Code, "mode", mode, "host", userID)
		return verified, nil
	}
	return domain.Room{}, fmt.Errorf("allocate join code: %w", domain.ErrCodeTaken)
}

func (s *MatchService) drawQuestions(ctx context.Context, difficulty string, count int) []domain.Question {
	if s.questions != nil {
		qs, err := s.questions.Questions(ctx, difficulty, count)
		if err == nil && len(qs) == count && validQuestions(qs) {
			return qs
		}
		s.log.Warn("question supplier failed, using local questions", "difficulty", difficulty, "count", count, "error", err)
	}
	return GenerateLocalQuestions(difficulty, count)
}

func (s *MatchService) checkQuestionCount(n int) error {
	if n <= 0 || n > s.maxQuestions {
		return fmt.Errorf("%w: %d (max %d)", domain.ErrInvalidQuestionCount, n, s.maxQuestions)
	}
	return nil
}

func quickMatchFits(room domain.Room, userID, difficulty string, questionCount int) bool {
	return room.Mode == domain.ModeQuickMatch &&
		room.Status == domain.StatusWaiting &&
		room.Difficulty == difficulty &&
		room.QuestionCount == questionCount &&
		room.Players.Count() == 1 &&
		room.Players.Find(userID) == nil &&
		len(room.Questions) > 0
}
