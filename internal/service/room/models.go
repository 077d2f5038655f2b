package room

import "github.com/V1b3Harshal/providers-backend-sub000/internal/repository/room"

// event types broadcast to every connection bound to a room
const (
	EventRoomCreated     = "room_created"
	EventUserJoined      = "user_joined"
	EventUserLeft        = "user_left"
	EventAdminChanged    = "admin_changed"
	EventRoomDeleted     = "room_deleted"
	EventPlaybackUpdated = "playback_updated"
	EventEpisodeChanged  = "episode_changed"
	EventProviderChanged = "provider_changed"
	EventMediaChanged    = "media_changed"
	EventTimeSkipped     = "time_skipped"
	EventSessionEnded    = "session_ended"
	EventUserKicked      = "user_kicked"
)

const ReasonAdminDisconnected = "admin_disconnected"

type State struct {
	IsPlaying      bool    `json:"isPlaying"`
	CurrentTime    float64 `json:"currentTime"`
	Duration       float64 `json:"duration"`
	PlaybackRate   float64 `json:"playbackRate"`
	CurrentEpisode int     `json:"currentEpisode"`
	ProviderUrl    string  `json:"providerUrl"`
}

type Room struct {
	Id           string   `json:"id"`
	Name         string   `json:"name"`
	AdminId      string   `json:"adminId"`
	MediaId      string   `json:"mediaId"`
	MediaType    string   `json:"mediaType"`
	ProviderId   string   `json:"providerId"`
	Participants []string `json:"participants"`
	CurrentState State    `json:"currentState"`
	CreatedAt    int64    `json:"createdAt"`
	UpdatedAt    int64    `json:"updatedAt"`
}

type Stats struct {
	Rooms        int `json:"rooms"`
	Participants int `json:"participants"`
	Connections  int `json:"connections"`
}

type Issuer struct {
	UserId  string `json:"userId"`
	IsAdmin bool   `json:"isAdmin"`
}

type RoomCreatedPayload struct {
	Room Room `json:"room"`
}

type UserJoinedPayload struct {
	RoomId       string   `json:"roomId"`
	UserId       string   `json:"userId"`
	Participants []string `json:"participants"`
}

type UserLeftPayload struct {
	RoomId       string   `json:"roomId"`
	UserId       string   `json:"userId"`
	Participants []string `json:"participants"`
}

type AdminChangedPayload struct {
	RoomId   string `json:"roomId"`
	OldAdmin string `json:"oldAdmin"`
	NewAdmin string `json:"newAdmin"`
}

type RoomDeletedPayload struct {
	RoomId string `json:"roomId"`
}

type SessionEndedPayload struct {
	RoomId string `json:"roomId"`
	Reason string `json:"reason"`
}

type UserKickedPayload struct {
	RoomId       string   `json:"roomId"`
	UserId       string   `json:"userId"`
	By           string   `json:"by"`
	Participants []string `json:"participants"`
}

type PlaybackPayload struct {
	RoomId    string `json:"roomId"`
	Action    string `json:"action"`
	State     State  `json:"state"`
	Issuer    Issuer `json:"issuer"`
	Timestamp int64  `json:"timestamp"`
}

func toState(record *room.Room) State {
	return State{
		IsPlaying:      record.IsPlaying,
		CurrentTime:    record.CurrentTime,
		Duration:       record.Duration,
		PlaybackRate:   record.PlaybackRate,
		CurrentEpisode: record.CurrentEpisode,
		ProviderUrl:    record.ProviderUrl,
	}
}

func toRoom(roomId string, record *room.Room, participants []string) Room {
	return Room{
		Id:           roomId,
		Name:         record.Name,
		AdminId:      record.AdminId,
		MediaId:      record.MediaId,
		MediaType:    record.MediaType,
		ProviderId:   record.ProviderId,
		Participants: participants,
		CurrentState: toState(record),
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
	}
}
