package controller

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/V1b3Harshal/providers-backend-sub000/internal/service/room"
	"github.com/V1b3Harshal/providers-backend-sub000/pkg/rest"
)

// bearerClaims extracts and verifies the Authorization bearer token.
func (c controller) bearerClaims(r *http.Request) (*room.Claims, error) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return nil, room.ErrNotAuthenticated
	}

	return c.roomService.VerifyToken(token)
}

func (c controller) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, room.ErrRoomNotFound), errors.Is(err, room.ErrParticipantNotFound):
		rest.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, room.ErrInvalidToken):
		rest.WriteError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, room.ErrPermissionDenied), errors.Is(err, room.ErrNotAuthenticated):
		rest.WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, room.ErrRoomNameTaken), errors.Is(err, room.ErrAlreadyInRoom), errors.Is(err, room.ErrRoomFull):
		rest.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, room.ErrInvalidAction):
		rest.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		rest.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (c controller) readValidatedJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := rest.ReadJSON(r, dst); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "invalid request body")
		return false
	}

	if validationErrors, ok := c.validate.Validate(dst); !ok {
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{
			"statusCode": http.StatusUnprocessableEntity,
			"error":      http.StatusText(http.StatusUnprocessableEntity),
			"details":    validationErrors,
		})
		return false
	}

	return true
}

type createRoomRequest struct {
	Name       string `json:"name" validate:"required,max=64"`
	MediaId    string `json:"mediaId" validate:"required"`
	MediaType  string `json:"mediaType" validate:"required,oneof=movie tv"`
	ProviderId string `json:"providerId"`
}

func (c controller) createRoom(w http.ResponseWriter, r *http.Request) {
	claims, err := c.bearerClaims(r)
	if err != nil {
		c.writeServiceError(w, err)
		return
	}

	var req createRoomRequest
	if !c.readValidatedJSON(w, r, &req) {
		return
	}

	created, err := c.roomService.CreateRoom(r.Context(), &room.CreateRoomParams{
		Name:       req.Name,
		AdminId:    claims.UserId,
		MediaId:    req.MediaId,
		MediaType:  req.MediaType,
		ProviderId: req.ProviderId,
	})
	if err != nil {
		c.writeServiceError(w, err)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"room": created})
}

func (c controller) getRoom(w http.ResponseWriter, r *http.Request) {
	fetched, err := c.roomService.GetRoom(r.Context(), chi.URLParam(r, "room-id"))
	if err != nil {
		c.writeServiceError(w, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"room": fetched})
}

func (c controller) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := c.roomService.ListRooms(r.Context())
	if err != nil {
		c.writeServiceError(w, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"rooms": rooms})
}

func (c controller) joinRoom(w http.ResponseWriter, r *http.Request) {
	claims, err := c.bearerClaims(r)
	if err != nil {
		c.writeServiceError(w, err)
		return
	}

	resp, err := c.roomService.JoinRoom(r.Context(), &room.JoinRoomParams{
		RoomId: chi.URLParam(r, "room-id"),
		UserId: claims.UserId,
	})
	if err != nil {
		c.writeServiceError(w, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{
		"room":    resp.Room,
		"isAdmin": resp.IsAdmin,
	})
}

func (c controller) leaveRoom(w http.ResponseWriter, r *http.Request) {
	claims, err := c.bearerClaims(r)
	if err != nil {
		c.writeServiceError(w, err)
		return
	}

	if err := c.roomService.LeaveRoom(r.Context(), &room.LeaveRoomParams{
		RoomId: chi.URLParam(r, "room-id"),
		UserId: claims.UserId,
	}); err != nil {
		c.writeServiceError(w, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"success": true})
}

type transferAdminRequest struct {
	NewAdminId string `json:"newAdminId" validate:"required"`
}

func (c controller) transferAdmin(w http.ResponseWriter, r *http.Request) {
	claims, err := c.bearerClaims(r)
	if err != nil {
		c.writeServiceError(w, err)
		return
	}

	var req transferAdminRequest
	if !c.readValidatedJSON(w, r, &req) {
		return
	}

	if err := c.roomService.TransferAdmin(r.Context(), &room.TransferAdminParams{
		RoomId:        chi.URLParam(r, "room-id"),
		SenderId:      claims.UserId,
		SenderIsAdmin: claims.IsAdmin,
		NewAdminId:    req.NewAdminId,
	}); err != nil {
		c.writeServiceError(w, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"success": true})
}

type kickUserRequest struct {
	UserId string `json:"userId" validate:"required"`
}

func (c controller) kickUser(w http.ResponseWriter, r *http.Request) {
	claims, err := c.bearerClaims(r)
	if err != nil {
		c.writeServiceError(w, err)
		return
	}

	var req kickUserRequest
	if !c.readValidatedJSON(w, r, &req) {
		return
	}

	if err := c.roomService.KickUser(r.Context(), &room.KickUserParams{
		RoomId:        chi.URLParam(r, "room-id"),
		SenderId:      claims.UserId,
		SenderIsAdmin: claims.IsAdmin,
		TargetId:      req.UserId,
	}); err != nil {
		c.writeServiceError(w, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"success": true})
}

func (c controller) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.roomService.GetStats(r.Context())
	if err != nil {
		c.writeServiceError(w, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"stats": stats})
}

type createTokenRequest struct {
	UserId  string `json:"userId" validate:"required"`
	IsAdmin bool   `json:"isAdmin"`
}

// createToken issues a signed token for development and testing. The
// caller must present the server secret, browsers never hit this.
func (c controller) createToken(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Server-Secret") != c.secret {
		rest.WriteError(w, http.StatusForbidden, "forbidden")
		return
	}

	var req createTokenRequest
	if !c.readValidatedJSON(w, r, &req) {
		return
	}

	token, err := c.roomService.GenerateToken(req.UserId, req.IsAdmin)
	if err != nil {
		c.writeServiceError(w, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"token": token})
}
