package room

// Room is the durable record layout of a room hash.
type Room struct {
	Name           string  `redis:"name"`
	AdminId        string  `redis:"admin_id"`
	MediaId        string  `redis:"media_id"`
	MediaType      string  `redis:"media_type"`
	ProviderId     string  `redis:"provider_id"`
	IsPlaying      bool    `redis:"is_playing"`
	CurrentTime    float64 `redis:"current_time"`
	Duration       float64 `redis:"duration"`
	PlaybackRate   float64 `redis:"playback_rate"`
	CurrentEpisode int     `redis:"current_episode"`
	ProviderUrl    string  `redis:"provider_url"`
	CreatedAt      int64   `redis:"created_at"`
	UpdatedAt      int64   `redis:"updated_at"`
}
