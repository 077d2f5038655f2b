package embedurl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerive(t *testing.T) {
	assert.Equal(t, "https://vidsrc.xyz/embed/movie/tt0133093", Derive("vidsrc", MediaTypeMovie, "tt0133093", 0))
	assert.Equal(t, "https://vidsrc.xyz/embed/tv/tt0944947/3", Derive("vidsrc", MediaTypeTV, "tt0944947", 3))
	assert.Equal(t, "https://vidlink.pro/tv/tt0944947/1/1", Derive("vidlink", MediaTypeTV, "tt0944947", 0), "episode floors at 1")

	// unknown providers fall back to the default templates
	assert.Equal(t, Derive(DefaultProvider, MediaTypeMovie, "tt1", 0), Derive("bogus", MediaTypeMovie, "tt1", 0))
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("vidsrc"))
	assert.True(t, IsSupported("autoembed"))
	assert.False(t, IsSupported("bogus"))
}
