package room

import "errors"

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomNameTaken       = errors.New("room name already taken")
	ErrParticipantNotFound = errors.New("participant not found")
)
