package events

import (
	"github.com/codeready-toolchain/manga-orchestrator/pkg/models"
)

// Stage names for StatusUpdate (spec §3, §4.11).
type Stage string

const (
	StageStory   Stage = "STORY"
	StageEpisode Stage = "EPISODE"
	StageImage   Stage = "IMAGE"
)

// Outcome values for StatusUpdate.
type Outcome string

const (
	OutcomeStarted   Outcome = "STARTED"
	OutcomeCompleted Outcome = "COMPLETED"
	OutcomeFailed    Outcome = "FAILED"
)

// common holds the three fields every detail payload carries per spec §3:
// userId, a correlation id, and a timestamp. It is embedded, not wrapped,
// so JSON marshaling keeps a flat detail object.
type common struct {
	UserID        string `json:"userId"`
	CorrelationID string `json:"correlationId"`
	Timestamp     string `json:"timestamp"`
}

// NewCommon builds the shared fields for a detail payload, stamping the
// current time. Tests that need a fixed instant should construct common
// fields by hand.
func NewCommon(userID, correlationID string) common {
	return common{UserID: userID, CorrelationID: correlationID, Timestamp: nowISO8601()}
}

// BatchStoryRequested starts generation of the first story of a new batch
// workflow (C6 -> C8). Later waves are started directly by the batch
// advancer via StoryRequested (C11 -> C8, spec §4.11), not this variant.
// StoryID is minted by the publisher (spec §4.6 step 5), the same pattern
// ContinueEpisodeRequested.EpisodeID uses for C9, so redelivery of this
// event finds and reuses the existing Story record instead of creating a
// second one.
type BatchStoryRequested struct {
	common
	WorkflowID      string             `json:"workflowId"`
	RequestID       string             `json:"requestId"`
	StoryID         string             `json:"storyId"`
	NumberOfStories int                `json:"numberOfStories"`
	CurrentBatch    int                `json:"currentBatch"`
	TotalBatches    int                `json:"totalBatches"`
	Preferences     models.Preferences `json:"preferences"`
	Insights        map[string]any     `json:"insights,omitempty"`
}

// StoryRequested asks the story handler (C8) to generate one story.
// WorkflowID is carried (not part of §3's canonical field list, added per
// the batch-tracking Open Question decision in DESIGN.md) so the terminal
// StatusUpdate can reach the batch advancer (C11, §4.11); it is empty for
// stories generated outside a batch.
type StoryRequested struct {
	common
	StoryID     string             `json:"storyId"`
	RequestID   string             `json:"requestId"`
	WorkflowID  string             `json:"workflowId,omitempty"`
	Preferences models.Preferences `json:"preferences"`
	Insights    map[string]any     `json:"insights,omitempty"`
}

// EpisodeRequested asks the episode handler (C9) to generate episode 1 of
// storyId, following completed story generation. WorkflowID is threaded
// through for the same reason as StoryRequested.WorkflowID.
type EpisodeRequested struct {
	common
	StoryID       string             `json:"storyId"`
	EpisodeNumber int                `json:"episodeNumber"`
	StoryS3Key    string             `json:"storyS3Key"`
	WorkflowID    string             `json:"workflowId,omitempty"`
	Preferences   models.Preferences `json:"preferences"`
}

// ContinueEpisodeRequested asks the episode handler (C9) to generate the
// next episode of an already-completed story (C7 -> C9). EpisodeID carries
// the id C7 already minted and returned to the caller (spec §4.7 step 7)
// so C9 creates the Episode record under that same id rather than minting
// a second, disconnected one; not part of §3's canonical field list (see
// DESIGN.md Open Questions, same resolution as WorkflowID on the other
// variants).
type ContinueEpisodeRequested struct {
	common
	StoryID             string             `json:"storyId"`
	EpisodeID           string             `json:"episodeId"`
	NextEpisodeNumber   int                `json:"nextEpisodeNumber"`
	OriginalPreferences models.Preferences `json:"originalPreferences"`
	StoryS3Key          string             `json:"storyS3Key"`
}

// ImageRequested asks the image/PDF handler (C10) to generate scene images
// and assemble the PDF for one episode. WorkflowID is threaded through for
// the same reason as StoryRequested.WorkflowID.
type ImageRequested struct {
	common
	EpisodeID    string `json:"episodeId"`
	EpisodeS3Key string `json:"episodeS3Key"`
	WorkflowID   string `json:"workflowId,omitempty"`
}

// StatusUpdate reports a stage lifecycle transition. TargetID is the
// story/episode id the stage concerns; the batch advancer (C11) listens
// for IMAGE-stage terminal outcomes carrying a WorkflowID.
type StatusUpdate struct {
	common
	TargetID     string  `json:"targetId"`
	Stage        Stage   `json:"stage"`
	Outcome      Outcome `json:"outcome"`
	ErrorMessage *string `json:"errorMessage,omitempty"`
	WorkflowID   string  `json:"workflowId,omitempty"`
}
