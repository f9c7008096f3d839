package services

import "errors"

var (
	ErrInsufficientCredits    = errors.New("insufficient credits")
	ErrAlreadyJoined          = errors.New("already joined")
	ErrChallengeEnded         = errors.New("challenge has ended")
	ErrNotParticipant         = errors.New("not a participant")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrNotFound               = errors.New("not found")
	ErrInvalidInput           = errors.New("invalid input")
	ErrForbidden              = errors.New("forbidden")
)
