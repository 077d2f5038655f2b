package room

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V1b3Harshal/providers-backend-sub000/internal/repository/room"
)

func baseRecord() room.Room {
	return room.Room{
		Name:           "movie-night",
		AdminId:        "admin-1",
		MediaId:        "tt0133093",
		MediaType:      "movie",
		ProviderId:     "vidsrc",
		IsPlaying:      false,
		CurrentTime:    300,
		Duration:       7200,
		PlaybackRate:   1,
		CurrentEpisode: 1,
		ProviderUrl:    "https://vidsrc.xyz/embed/movie/tt0133093",
	}
}

func TestReduce(t *testing.T) {
	tests := []struct {
		name      string
		action    Action
		eventType string
		check     func(t *testing.T, next room.Room)
	}{
		{
			name:      "play sets isPlaying",
			action:    PlayAction{},
			eventType: EventPlaybackUpdated,
			check: func(t *testing.T, next room.Room) {
				assert.True(t, next.IsPlaying)
				assert.Equal(t, 300.0, next.CurrentTime, "play must not touch currentTime")
			},
		},
		{
			name:      "pause clears isPlaying",
			action:    PauseAction{},
			eventType: EventPlaybackUpdated,
			check: func(t *testing.T, next room.Room) {
				assert.False(t, next.IsPlaying)
			},
		},
		{
			name:      "seek moves currentTime",
			action:    SeekAction{CurrentTime: 1234.5},
			eventType: EventPlaybackUpdated,
			check: func(t *testing.T, next room.Room) {
				assert.Equal(t, 1234.5, next.CurrentTime)
			},
		},
		{
			name:      "updateTime moves currentTime",
			action:    UpdateTimeAction{CurrentTime: 42},
			eventType: EventPlaybackUpdated,
			check: func(t *testing.T, next room.Room) {
				assert.Equal(t, 42.0, next.CurrentTime)
			},
		},
		{
			name:      "setPlaybackRate",
			action:    SetPlaybackRateAction{Rate: 1.5},
			eventType: EventPlaybackUpdated,
			check: func(t *testing.T, next room.Room) {
				assert.Equal(t, 1.5, next.PlaybackRate)
			},
		},
		{
			name:      "changeEpisode resets currentTime",
			action:    ChangeEpisodeAction{Episode: 4},
			eventType: EventEpisodeChanged,
			check: func(t *testing.T, next room.Room) {
				assert.Equal(t, 4, next.CurrentEpisode)
				assert.Equal(t, 0.0, next.CurrentTime)
				assert.Equal(t, "https://vidsrc.xyz/embed/movie/tt0133093", next.ProviderUrl, "changeEpisode must not re-derive providerUrl")
			},
		},
		{
			name:      "changeEpisode floors at 1",
			action:    ChangeEpisodeAction{Episode: 0},
			eventType: EventEpisodeChanged,
			check: func(t *testing.T, next room.Room) {
				assert.Equal(t, 1, next.CurrentEpisode)
			},
		},
		{
			name:      "changeProvider re-derives url and resets currentTime",
			action:    ChangeProviderAction{Provider: "vidlink"},
			eventType: EventProviderChanged,
			check: func(t *testing.T, next room.Room) {
				assert.Contains(t, next.ProviderUrl, "vidlink")
				assert.Equal(t, 0.0, next.CurrentTime)
				assert.Equal(t, "vidsrc", next.ProviderId, "changeProvider must not rewrite providerId")
			},
		},
		{
			name:      "changeMedia resets episode and time",
			action:    ChangeMediaAction{MediaId: "tt0234215"},
			eventType: EventMediaChanged,
			check: func(t *testing.T, next room.Room) {
				assert.Equal(t, "tt0234215", next.MediaId)
				assert.Equal(t, 1, next.CurrentEpisode)
				assert.Equal(t, 0.0, next.CurrentTime)
				assert.Contains(t, next.ProviderUrl, "tt0234215")
			},
		},
		{
			name:      "fastForward with explicit amount",
			action:    FastForwardAction{SkipAmount: 30},
			eventType: EventTimeSkipped,
			check: func(t *testing.T, next room.Room) {
				assert.Equal(t, 330.0, next.CurrentTime)
			},
		},
		{
			name:      "fastForward defaults to 120",
			action:    FastForwardAction{},
			eventType: EventTimeSkipped,
			check: func(t *testing.T, next room.Room) {
				assert.Equal(t, 420.0, next.CurrentTime)
			},
		},
		{
			name:      "fastForward may overshoot duration",
			action:    FastForwardAction{SkipAmount: 10000},
			eventType: EventTimeSkipped,
			check: func(t *testing.T, next room.Room) {
				assert.Equal(t, 10300.0, next.CurrentTime, "currentTime is not clamped to duration")
			},
		},
		{
			name:      "rewind defaults to 120",
			action:    RewindAction{},
			eventType: EventTimeSkipped,
			check: func(t *testing.T, next room.Room) {
				assert.Equal(t, 180.0, next.CurrentTime)
			},
		},
		{
			name:      "rewind clamps at zero",
			action:    RewindAction{SkipAmount: 100000},
			eventType: EventTimeSkipped,
			check: func(t *testing.T, next room.Room) {
				assert.Equal(t, 0.0, next.CurrentTime, "currentTime must never go negative")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := baseRecord()
			next, eventType := reduce(record, tt.action)
			assert.Equal(t, tt.eventType, eventType)
			tt.check(t, next)
		})
	}
}

func TestParseAction(t *testing.T) {
	t.Run("round trips every known type", func(t *testing.T) {
		cases := map[string]string{
			"play":            ``,
			"pause":           ``,
			"seek":            `{"currentTime": 12}`,
			"updateTime":      `{"currentTime": 12}`,
			"setPlaybackRate": `{"rate": 2}`,
			"changeEpisode":   `{"episode": 3}`,
			"changeProvider":  `{"provider": "vidlink"}`,
			"changeMedia":     `{"mediaId": "tt1"}`,
			"fastForward":     `{"skipAmount": 30}`,
			"rewind":          `{}`,
		}
		for actionType, data := range cases {
			action, err := ParseAction(actionType, json.RawMessage(data))
			require.NoError(t, err, actionType)
			assert.Equal(t, actionType, ActionName(action))
		}
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		_, err := ParseAction("explode", nil)
		require.ErrorIs(t, err, ErrInvalidAction)
	})

	t.Run("rejects negative seek", func(t *testing.T) {
		_, err := ParseAction("seek", json.RawMessage(`{"currentTime": -1}`))
		require.ErrorIs(t, err, ErrInvalidAction)
	})

	t.Run("rejects non-positive rate", func(t *testing.T) {
		_, err := ParseAction("setPlaybackRate", json.RawMessage(`{"rate": 0}`))
		require.ErrorIs(t, err, ErrInvalidAction)
	})

	t.Run("rejects empty provider", func(t *testing.T) {
		_, err := ParseAction("changeProvider", json.RawMessage(`{}`))
		require.ErrorIs(t, err, ErrInvalidAction)
	})

	t.Run("rejects malformed payload", func(t *testing.T) {
		_, err := ParseAction("seek", json.RawMessage(`{"currentTime": "nope"}`))
		require.ErrorIs(t, err, ErrInvalidAction)
	})
}
