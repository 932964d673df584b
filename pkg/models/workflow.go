package models

import "time"

// BatchWorkflow tracks the cross-story progress of one batch (spec §4.11,
// §9 glossary "Workflow"). It is not one of the four entities spec.md
// names explicitly, but C11 (the batch advancer) needs somewhere durable
// to count completions across StatusUpdate deliveries, since
// GenerationRequest carries only generic observability fields (see
// DESIGN.md Open Questions).
type BatchWorkflow struct {
	WorkflowID       string         `json:"workflowId" dynamodbav:"workflowId"`
	RequestID        string         `json:"requestId" dynamodbav:"requestId"`
	UserID           string         `json:"userId" dynamodbav:"userId"`
	NumberOfStories  int            `json:"numberOfStories" dynamodbav:"numberOfStories"`
	BatchSize        int            `json:"batchSize" dynamodbav:"batchSize"`
	CurrentBatch     int            `json:"currentBatch" dynamodbav:"currentBatch"`
	TotalBatches     int            `json:"totalBatches" dynamodbav:"totalBatches"`
	StoriesCompleted int            `json:"storiesCompleted" dynamodbav:"storiesCompleted"`
	// WaveSize is the number of stories launched in the current (most
	// recent) wave; WaveCompleted counts how many of those have reached a
	// terminal IMAGE-stage outcome. The advancer only starts the next wave
	// once WaveCompleted reaches WaveSize (spec §8 batch-progression law).
	WaveSize      int `json:"waveSize" dynamodbav:"waveSize"`
	WaveCompleted int `json:"waveCompleted" dynamodbav:"waveCompleted"`
	Status           Status         `json:"status" dynamodbav:"status"`
	Preferences      Preferences    `json:"preferences" dynamodbav:"preferences"`
	Insights         map[string]any `json:"insights,omitempty" dynamodbav:"insights,omitempty"`
	CreatedAt        time.Time      `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt" dynamodbav:"updatedAt"`
}

// Done reports whether every requested story has reached a terminal state.
func (w BatchWorkflow) Done() bool {
	return w.StoriesCompleted >= w.NumberOfStories
}
