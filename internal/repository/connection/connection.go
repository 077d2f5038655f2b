package connection

import "errors"

var (
	ErrAlreadyExists = errors.New("connection already exists")
	ErrNotFound      = errors.New("connection not found")
)

// Binding ties a live websocket session to an authenticated identity.
// RoomId is empty until the identity enters a room. IsAdmin is set from
// the verified token at bind time and maintained by the server on admin
// transfers, never from client payloads.
type Binding struct {
	ConnId  string
	UserId  string
	RoomId  string
	IsAdmin bool
}
