package events

import "github.com/codeready-toolchain/manga-orchestrator/pkg/models"

// These constructors exist because `common` is unexported: producers
// outside this package cannot fill it via a keyed composite literal, only
// through a constructor living in this package or through promoted-field
// assignment. One constructor per variant keeps producers (pkg/api,
// pkg/handlers) from having to know the embedding trick.

func NewBatchStoryRequestedDetail(userID, correlationID, workflowID, requestID, storyID string, numberOfStories, currentBatch, totalBatches int, prefs models.Preferences, insights map[string]any) BatchStoryRequested {
	return BatchStoryRequested{
		common:          NewCommon(userID, correlationID),
		WorkflowID:      workflowID,
		RequestID:       requestID,
		StoryID:         storyID,
		NumberOfStories: numberOfStories,
		CurrentBatch:    currentBatch,
		TotalBatches:    totalBatches,
		Preferences:     prefs,
		Insights:        insights,
	}
}

func NewStoryRequestedDetail(userID, correlationID, storyID, requestID, workflowID string, prefs models.Preferences, insights map[string]any) StoryRequested {
	return StoryRequested{
		common:      NewCommon(userID, correlationID),
		StoryID:     storyID,
		RequestID:   requestID,
		WorkflowID:  workflowID,
		Preferences: prefs,
		Insights:    insights,
	}
}

func NewEpisodeRequestedDetail(userID, correlationID, storyID string, episodeNumber int, storyS3Key, workflowID string, prefs models.Preferences) EpisodeRequested {
	return EpisodeRequested{
		common:        NewCommon(userID, correlationID),
		StoryID:       storyID,
		EpisodeNumber: episodeNumber,
		StoryS3Key:    storyS3Key,
		WorkflowID:    workflowID,
		Preferences:   prefs,
	}
}

func NewContinueEpisodeRequestedDetail(userID, correlationID, storyID, episodeID string, nextEpisodeNumber int, originalPrefs models.Preferences, storyS3Key string) ContinueEpisodeRequested {
	return ContinueEpisodeRequested{
		common:              NewCommon(userID, correlationID),
		StoryID:             storyID,
		EpisodeID:           episodeID,
		NextEpisodeNumber:   nextEpisodeNumber,
		OriginalPreferences: originalPrefs,
		StoryS3Key:          storyS3Key,
	}
}

func NewImageRequestedDetail(userID, correlationID, episodeID, episodeS3Key, workflowID string) ImageRequested {
	return ImageRequested{
		common:       NewCommon(userID, correlationID),
		EpisodeID:    episodeID,
		EpisodeS3Key: episodeS3Key,
		WorkflowID:   workflowID,
	}
}

func NewStatusUpdateDetail(userID, correlationID, targetID string, stage Stage, outcome Outcome, errorMessage *string, workflowID string) StatusUpdate {
	return StatusUpdate{
		common:       NewCommon(userID, correlationID),
		TargetID:     targetID,
		Stage:        stage,
		Outcome:      outcome,
		ErrorMessage: errorMessage,
		WorkflowID:   workflowID,
	}
}
