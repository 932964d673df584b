package models

import "time"

// Story is owned by exactly one user. When Status is COMPLETED, S3Key MUST
// resolve to a non-empty markdown object (spec §3, §8).
type Story struct {
	StoryID   string    `json:"storyId" dynamodbav:"storyId"`
	UserID    string    `json:"userId" dynamodbav:"userId"`
	Title     string    `json:"title" dynamodbav:"title"`
	S3Key     string    `json:"s3Key" dynamodbav:"s3Key"`
	Status    Status    `json:"status" dynamodbav:"status"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" dynamodbav:"updatedAt"`
}
