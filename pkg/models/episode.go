package models

import "time"

// Episode belongs to exactly one Story; (StoryID, EpisodeNumber) is unique
// and episodes of a story form a contiguous prefix of the naturals starting
// at 1 (spec §3, §8). When Status is COMPLETED and PDFS3Key is set,
// ImageCount MUST be >= 1 and PDFS3Key MUST resolve to a valid PDF.
type Episode struct {
	EpisodeID     string    `json:"episodeId" dynamodbav:"episodeId"`
	StoryID       string    `json:"storyId" dynamodbav:"storyId"`
	EpisodeNumber int       `json:"episodeNumber" dynamodbav:"episodeNumber"`
	S3Key         string    `json:"s3Key" dynamodbav:"s3Key"`
	PDFS3Key      *string   `json:"pdfS3Key,omitempty" dynamodbav:"pdfS3Key,omitempty"`
	ImageCount    int       `json:"imageCount" dynamodbav:"imageCount"`
	Status        Status    `json:"status" dynamodbav:"status"`
	ErrorMessage  *string   `json:"errorMessage,omitempty" dynamodbav:"errorMessage,omitempty"`
	CreatedAt     time.Time `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt" dynamodbav:"updatedAt"`
}

// IsContiguous reports whether episodes, sorted ascending by EpisodeNumber,
// number {1..N} with no gaps. An empty slice is vacuously contiguous.
func IsContiguous(episodes []Episode) bool {
	for i, ep := range episodes {
		if ep.EpisodeNumber != i+1 {
			return false
		}
	}
	return true
}
