package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidArtStyle(t *testing.T) {
	assert.True(t, IsValidArtStyle(ArtStyleTraditional))
	assert.True(t, IsValidArtStyle(ArtStyleBlackAndWhite))
	assert.False(t, IsValidArtStyle(ArtStyle("Photorealistic")))
}

func TestIsValidTargetAudience(t *testing.T) {
	assert.True(t, IsValidTargetAudience(AudienceTeens))
	assert.True(t, IsValidTargetAudience(AudienceAllAges))
	assert.False(t, IsValidTargetAudience(TargetAudience("Toddlers")))
}

func TestIsValidContentRating(t *testing.T) {
	assert.True(t, IsValidContentRating(ContentRatingPG13))
	assert.True(t, IsValidContentRating(ContentRatingR))
	assert.False(t, IsValidContentRating(ContentRating("NC-17")))
}

func TestIsValidGenre(t *testing.T) {
	assert.True(t, IsValidGenre(GenreSciFi))
	assert.Len(t, ValidGenres, 16)
	assert.False(t, IsValidGenre(Genre("Noir")))
}
