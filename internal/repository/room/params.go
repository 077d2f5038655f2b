package room

type SetRoomParams struct {
	RoomId         string
	Name           string
	AdminId        string
	MediaId        string
	MediaType      string
	ProviderId     string
	IsPlaying      bool
	CurrentTime    float64
	Duration       float64
	PlaybackRate   float64
	CurrentEpisode int
	ProviderUrl    string
	CreatedAt      int64
	UpdatedAt      int64
}

type UpdateStateParams struct {
	RoomId         string
	MediaId        string
	IsPlaying      bool
	CurrentTime    float64
	Duration       float64
	PlaybackRate   float64
	CurrentEpisode int
	ProviderUrl    string
	UpdatedAt      int64
}

type UpdateAdminParams struct {
	RoomId    string
	AdminId   string
	UpdatedAt int64
}

type RemoveRoomParams struct {
	RoomId string
	Name   string
}

type AddParticipantParams struct {
	RoomId string
	UserId string
}

type RemoveParticipantParams struct {
	RoomId string
	UserId string
}
