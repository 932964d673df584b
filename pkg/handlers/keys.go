package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/apperrors"
)

// BlobStore key layout (spec §3, bit-exact; consumed by both producer and
// consumer sides). NNN and MMM are zero-padded 3-digit decimal integers.
func storyKey(userID, storyID string) string {
	return fmt.Sprintf("stories/%s/%s/story.md", userID, storyID)
}

func episodeKey(userID, storyID string, episodeNumber int) string {
	return fmt.Sprintf("episodes/%s/%s/%03d/episode.md", userID, storyID, episodeNumber)
}

func episodePDFKey(userID, storyID string, episodeNumber int) string {
	return fmt.Sprintf("episodes/%s/%s/%03d/episode.pdf", userID, storyID, episodeNumber)
}

func sceneImageKey(userID, storyID string, episodeNumber, sceneIndex int) string {
	return fmt.Sprintf("episodes/%s/%s/%03d/images/image-%03d.png", userID, storyID, episodeNumber, sceneIndex)
}

// parseEpisodeKey extracts (userID, storyID, episodeNumber) from an
// episode.md blob key of the form episodes/{userId}/{storyId}/{NNN}/episode.md
// (spec §4.10 step 1). A malformed key is a permanent error.
func parseEpisodeKey(key string) (userID, storyID string, episodeNumber int, err error) {
	parts := strings.Split(key, "/")
	if len(parts) != 5 || parts[0] != "episodes" || parts[4] != "episode.md" {
		return "", "", 0, apperrors.Newf(apperrors.KindValidation, "malformed episode key %q", key)
	}
	n, convErr := strconv.Atoi(parts[3])
	if convErr != nil || n < 1 {
		return "", "", 0, apperrors.Newf(apperrors.KindValidation, "malformed episode number in key %q", key)
	}
	return parts[1], parts[2], n, nil
}
