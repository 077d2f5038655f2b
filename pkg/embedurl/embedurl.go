// Package embedurl derives provider embed urls for a media item. Every
// supported provider is template-addressable, no remote lookup is needed.
package embedurl

import "fmt"

const (
	MediaTypeMovie = "movie"
	MediaTypeTV    = "tv"
)

const DefaultProvider = "vidsrc"

type templates struct {
	movie string
	tv    string
}

var providers = map[string]templates{
	"vidsrc": {
		movie: "https://vidsrc.xyz/embed/movie/%s",
		tv:    "https://vidsrc.xyz/embed/tv/%s/%d",
	},
	"vidlink": {
		movie: "https://vidlink.pro/movie/%s",
		tv:    "https://vidlink.pro/tv/%s/1/%d",
	},
	"embedsu": {
		movie: "https://embed.su/embed/movie/%s",
		tv:    "https://embed.su/embed/tv/%s/1/%d",
	},
	"autoembed": {
		movie: "https://player.autoembed.cc/embed/movie/%s",
		tv:    "https://player.autoembed.cc/embed/tv/%s/1/%d",
	},
}

func IsSupported(providerId string) bool {
	_, ok := providers[providerId]
	return ok
}

// Derive builds the embed url for the given provider and media item.
// Unknown providers fall back to the default provider's templates.
func Derive(providerId, mediaType, mediaId string, episode int) string {
	t, ok := providers[providerId]
	if !ok {
		t = providers[DefaultProvider]
	}

	if mediaType == MediaTypeTV {
		if episode < 1 {
			episode = 1
		}
		return fmt.Sprintf(t.tv, mediaId, episode)
	}

	return fmt.Sprintf(t.movie, mediaId)
}
