package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrAuth is returned when the caller is not the identity it acts for.
	ErrAuth = errors.New("caller identity mismatch")
	// ErrRoomNotFound is returned when a room id or join code does not resolve.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomFull is returned when both seats are taken.
	ErrRoomFull = errors.New("room is full")
	// ErrMatchAlreadyStarted is returned when joining a room past STARTING.
	ErrMatchAlreadyStarted = errors.New("match already started")
	// ErrInvalidQuestionIndex indicates a submission outside the question list.
	ErrInvalidQuestionIndex = errors.New("invalid question index")
	// ErrPlayerNotFound indicates the user is not seated in the room.
	ErrPlayerNotFound = errors.New("player not found in room")
	// ErrMatchNotInProgress is returned when answering outside IN_PROGRESS.
	ErrMatchNotInProgress = errors.New("match not in progress")
	// ErrVersionConflict is returned when a conditional write lost a race.
	ErrVersionConflict = errors.New("room version conflict")
	// ErrCodeTaken indicates a join code collision on room creation.
	ErrCodeTaken = errors.New("join code already in use")
	// ErrResultExists is returned when a match result was already recorded.
	ErrResultExists = errors.New("match result already recorded")
	// ErrResultNotFound is returned when a room has no settled result.
	ErrResultNotFound = errors.New("match result not found")
	// ErrInvalidQuestionCount rejects rooms requested with no questions or too many.
	ErrInvalidQuestionCount = errors.New("question count out of range")
	// ErrNotEnoughQuestions is returned when a pool cannot fill a match.
	ErrNotEnoughQuestions = errors.New("not enough questions for difficulty")
	// ErrStore classifies failures of the underlying storage.
	ErrStore = errors.New("store failure")
)

// StoreError wraps an adapter failure (network, codec, driver).
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrStore) match any StoreError.
func (e *StoreError) Is(target error) bool { return target == ErrStore }

// NewStoreError wraps err as a StoreError; nil stays nil.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
