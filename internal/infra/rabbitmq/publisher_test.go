package rabbitmq

import (
	"encoding/json"
	"testing"
	"time"

	"quiz-battle-service/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

func TestMatchFinishedMessage(t *testing.T) {
	now := time.Date(2024, 9, 2, 10, 0, 0, 0, time.UTC)
	result := domain.MatchResult{
		ID:       "result-1",
		RoomID:   "room-1",
		WinnerID: "a",
		LoserID:  "b",
		Players: map[string]domain.PlayerResult{
			"a": {UserID: "a", Score: 15, Rank: 1, RatingDelta: domain.WinRatingDelta},
			"b": {UserID: "b", Score: 10, Rank: 2, RatingDelta: domain.LossRatingDelta},
		},
	}

	msg, err := NewMatchFinishedMessage(result, now)
	if err != nil {
		t.Fatalf("build message: %v", err)
	}
	if msg.DeliveryMode != amqp.Persistent || msg.MessageId != "result-1" || msg.Type != MatchFinishedType {
		t.Fatalf("unexpected message headers: %+v", msg)
	}

	var event MatchFinishedEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if event.Type != MatchFinishedType || !event.OccurredAt.Equal(now) {
		t.Fatalf("unexpected envelope: %+v", event)
	}
	if event.Result.WinnerID != "a" || event.Result.Players["b"].RatingDelta != domain.LossRatingDelta {
		t.Fatalf("unexpected result: %+v", event.Result)
	}
}
