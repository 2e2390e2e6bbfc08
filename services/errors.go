package services

import "errors"

// Operation errors surfaced by the room services. Controllers map these onto
// HTTP statuses; anything not in this list is treated as a storage failure.
var (
	// Validation
	ErrInvalidCode = errors.New("invalid room code format")

	// Capacity / preconditions
	ErrRoomFull         = errors.New("room is full")
	ErrRaceInProgress   = errors.New("race is already in progress")
	ErrNotEnoughPlayers = errors.New("need at least 2 players")

	// Authorization
	ErrNotHost = errors.New("only the host can start the race")

	// Code allocation
	ErrCodeExhausted    = errors.New("could not allocate a unique room code")
	ErrCodeNotPersisted = errors.New("room code was not persisted")
)
