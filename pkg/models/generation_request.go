package models

import "time"

// GenerationRequest is created once per batch and once per continuation
// (spec §3). Its status is monotone along Status's chain; once terminal it
// is immutable except for observability fields (ErrorMessage, Progress,
// CurrentStep).
type GenerationRequest struct {
	RequestID       string      `json:"requestId" dynamodbav:"requestId"`
	UserID          string      `json:"userId" dynamodbav:"userId"`
	Type            RequestType `json:"type" dynamodbav:"type"`
	Status          Status      `json:"status" dynamodbav:"status"`
	RelatedEntityID string      `json:"relatedEntityId" dynamodbav:"relatedEntityId"`
	CreatedAt       time.Time   `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt" dynamodbav:"updatedAt"`
	ErrorMessage    *string     `json:"errorMessage,omitempty" dynamodbav:"errorMessage,omitempty"`
	Progress        *int        `json:"progress,omitempty" dynamodbav:"progress,omitempty"`
	CurrentStep     *string     `json:"currentStep,omitempty" dynamodbav:"currentStep,omitempty"`
}
