package events

import (
	"testing"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope_RoundTripsThroughDecode(t *testing.T) {
	detail := StoryRequested{
		common:      NewCommon("user-1", "corr-1"),
		StoryID:     "story-1",
		RequestID:   "req-1",
		Preferences: models.Preferences{UserID: "user-1", Genres: []string{"Fantasy"}},
	}

	env, err := NewStoryRequestedEnvelope(detail)
	require.NoError(t, err)
	assert.Equal(t, SourceWorkflow, env.Source)
	assert.Equal(t, DetailTypeStoryRequested, env.DetailType)

	decoded, err := Decode(env)
	require.NoError(t, err)

	got, ok := decoded.(StoryRequested)
	require.True(t, ok)
	assert.Equal(t, detail.StoryID, got.StoryID)
	assert.Equal(t, detail.RequestID, got.RequestID)
	assert.Equal(t, detail.UserID, got.UserID)
}

func TestDecode_UnknownDetailTypeIsError(t *testing.T) {
	env := Envelope{Source: SourceWorkflow, DetailType: "SomethingElse", Detail: []byte(`{}`)}

	_, err := Decode(env)
	assert.Error(t, err)
}

func TestDecode_AllVariantsRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		make func() (Envelope, error)
	}{
		{"BatchStoryRequested", func() (Envelope, error) {
			return NewBatchStoryRequestedEnvelope(BatchStoryRequested{
				common: NewCommon("u1", "c1"), WorkflowID: "w1", RequestID: "r1",
				NumberOfStories: 2, CurrentBatch: 1, TotalBatches: 2,
			})
		}},
		{"EpisodeRequested", func() (Envelope, error) {
			return NewEpisodeRequestedEnvelope(EpisodeRequested{
				common: NewCommon("u1", "c1"), StoryID: "s1", EpisodeNumber: 1, StoryS3Key: "stories/u1/s1/story.md",
			})
		}},
		{"ContinueEpisodeRequested", func() (Envelope, error) {
			return NewContinueEpisodeRequestedEnvelope(ContinueEpisodeRequested{
				common: NewCommon("u1", "c1"), StoryID: "s1", NextEpisodeNumber: 2, StoryS3Key: "stories/u1/s1/story.md",
			})
		}},
		{"ImageRequested", func() (Envelope, error) {
			return NewImageRequestedEnvelope(ImageRequested{
				common: NewCommon("u1", "c1"), EpisodeID: "e1", EpisodeS3Key: "episodes/u1/s1/001/episode.md",
			})
		}},
		{"StatusUpdate", func() (Envelope, error) {
			return NewStatusUpdateEnvelope(SourceEpisode, StatusUpdate{
				common: NewCommon("u1", "c1"), TargetID: "e1", Stage: StageImage, Outcome: OutcomeCompleted,
			})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := tt.make()
			require.NoError(t, err)
			decoded, err := Decode(env)
			require.NoError(t, err)
			assert.NotNil(t, decoded)
		})
	}
}

func TestStatusUpdate_CarriesWorkflowIDForBatchAdvancer(t *testing.T) {
	detail := StatusUpdate{
		common:     NewCommon("u1", "c1"),
		TargetID:   "story-1",
		Stage:      StageImage,
		Outcome:    OutcomeCompleted,
		WorkflowID: "workflow-1",
	}
	env, err := NewStatusUpdateEnvelope(SourceEpisode, detail)
	require.NoError(t, err)

	decoded, err := Decode(env)
	require.NoError(t, err)

	got := decoded.(StatusUpdate)
	assert.Equal(t, "workflow-1", got.WorkflowID)
}
