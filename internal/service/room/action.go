package room

import (
	"encoding/json"
	"fmt"

	"github.com/V1b3Harshal/providers-backend-sub000/internal/repository/room"
	"github.com/V1b3Harshal/providers-backend-sub000/pkg/embedurl"
)

const defaultSkipAmount = 120

// Action is a playback command. The set is closed: anything that does
// not parse into one of these variants is rejected before reducing.
type Action interface {
	actionName() string
}

type PlayAction struct{}

type PauseAction struct{}

type SeekAction struct {
	CurrentTime float64
}

type UpdateTimeAction struct {
	CurrentTime float64
}

type SetPlaybackRateAction struct {
	Rate float64
}

type ChangeEpisodeAction struct {
	Episode int
}

type ChangeProviderAction struct {
	Provider string
}

type ChangeMediaAction struct {
	MediaId string
}

type FastForwardAction struct {
	SkipAmount float64
}

type RewindAction struct {
	SkipAmount float64
}

func (PlayAction) actionName() string            { return "play" }
func (PauseAction) actionName() string           { return "pause" }
func (SeekAction) actionName() string            { return "seek" }
func (UpdateTimeAction) actionName() string      { return "updateTime" }
func (SetPlaybackRateAction) actionName() string { return "setPlaybackRate" }
func (ChangeEpisodeAction) actionName() string   { return "changeEpisode" }
func (ChangeProviderAction) actionName() string  { return "changeProvider" }
func (ChangeMediaAction) actionName() string     { return "changeMedia" }
func (FastForwardAction) actionName() string     { return "fastForward" }
func (RewindAction) actionName() string          { return "rewind" }

// ActionName returns the wire name of an action.
func ActionName(a Action) string {
	return a.actionName()
}

// ParseAction decodes a wire action {type, data} into its variant.
func ParseAction(actionType string, data json.RawMessage) (Action, error) {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}

	switch actionType {
	case "play":
		return PlayAction{}, nil
	case "pause":
		return PauseAction{}, nil
	case "seek", "updateTime":
		var d struct {
			CurrentTime float64 `json:"currentTime"`
		}
		if err := json.Unmarshal(data, &d); err != nil || d.CurrentTime < 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidAction, actionType)
		}
		if actionType == "seek" {
			return SeekAction{CurrentTime: d.CurrentTime}, nil
		}
		return UpdateTimeAction{CurrentTime: d.CurrentTime}, nil
	case "setPlaybackRate":
		var d struct {
			Rate float64 `json:"rate"`
		}
		if err := json.Unmarshal(data, &d); err != nil || d.Rate <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidAction, actionType)
		}
		return SetPlaybackRateAction{Rate: d.Rate}, nil
	case "changeEpisode":
		var d struct {
			Episode int `json:"episode"`
		}
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidAction, actionType)
		}
		return ChangeEpisodeAction{Episode: d.Episode}, nil
	case "changeProvider":
		var d struct {
			Provider string `json:"provider"`
		}
		if err := json.Unmarshal(data, &d); err != nil || d.Provider == "" {
			return nil, fmt.Errorf("%w: %s", ErrInvalidAction, actionType)
		}
		return ChangeProviderAction{Provider: d.Provider}, nil
	case "changeMedia":
		var d struct {
			MediaId string `json:"mediaId"`
		}
		if err := json.Unmarshal(data, &d); err != nil || d.MediaId == "" {
			return nil, fmt.Errorf("%w: %s", ErrInvalidAction, actionType)
		}
		return ChangeMediaAction{MediaId: d.MediaId}, nil
	case "fastForward":
		var d struct {
			SkipAmount float64 `json:"skipAmount"`
		}
		if err := json.Unmarshal(data, &d); err != nil || d.SkipAmount < 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidAction, actionType)
		}
		return FastForwardAction{SkipAmount: d.SkipAmount}, nil
	case "rewind":
		var d struct {
			SkipAmount float64 `json:"skipAmount"`
		}
		if err := json.Unmarshal(data, &d); err != nil || d.SkipAmount < 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidAction, actionType)
		}
		return RewindAction{SkipAmount: d.SkipAmount}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidAction, actionType)
	}
}

// reduce maps (current record, action) to the next record and the event
// broadcast for it. Pure: no clock, no io.
//
// currentTime is deliberately not clamped to duration on fastForward,
// matching the observable behavior clients already rely on.
func reduce(record room.Room, action Action) (room.Room, string) {
	switch a := action.(type) {
	case PlayAction:
		record.IsPlaying = true
		return record, EventPlaybackUpdated
	case PauseAction:
		record.IsPlaying = false
		return record, EventPlaybackUpdated
	case SeekAction:
		record.CurrentTime = a.CurrentTime
		return record, EventPlaybackUpdated
	case UpdateTimeAction:
		record.CurrentTime = a.CurrentTime
		return record, EventPlaybackUpdated
	case SetPlaybackRateAction:
		record.PlaybackRate = a.Rate
		return record, EventPlaybackUpdated
	case ChangeEpisodeAction:
		episode := a.Episode
		if episode < 1 {
			episode = 1
		}
		record.CurrentEpisode = episode
		record.CurrentTime = 0
		return record, EventEpisodeChanged
	case ChangeProviderAction:
		record.ProviderUrl = embedurl.Derive(a.Provider, record.MediaType, record.MediaId, record.CurrentEpisode)
		record.CurrentTime = 0
		return record, EventProviderChanged
	case ChangeMediaAction:
		record.MediaId = a.MediaId
		record.CurrentEpisode = 1
		record.CurrentTime = 0
		record.ProviderUrl = embedurl.Derive(record.ProviderId, record.MediaType, a.MediaId, 1)
		return record, EventMediaChanged
	case FastForwardAction:
		skip := a.SkipAmount
		if skip == 0 {
			skip = defaultSkipAmount
		}
		record.CurrentTime += skip
		return record, EventTimeSkipped
	case RewindAction:
		skip := a.SkipAmount
		if skip == 0 {
			skip = defaultSkipAmount
		}
		record.CurrentTime = max(0, record.CurrentTime-skip)
		return record, EventTimeSkipped
	default:
		return record, ""
	}
}
