package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/events"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/models"
)

func TestHandleStatusUpdate_IgnoresNonImageStage(t *testing.T) {
	h, _, bus, _, _ := testHandlers()

	detail := events.NewStatusUpdateDetail("user-1", "corr-1", "episode-1", events.StageEpisode, events.OutcomeCompleted, nil, "workflow-1")
	require.NoError(t, h.HandleStatusUpdate(context.Background(), detail))
	assert.Equal(t, 0, bus.Len())
}

func TestHandleStatusUpdate_IgnoresNonBatchUpdate(t *testing.T) {
	h, _, bus, _, _ := testHandlers()

	detail := events.NewStatusUpdateDetail("user-1", "corr-1", "episode-1", events.StageImage, events.OutcomeCompleted, nil, "")
	require.NoError(t, h.HandleStatusUpdate(context.Background(), detail))
	assert.Equal(t, 0, bus.Len())
}

func TestHandleStatusUpdate_UnknownWorkflowIsNoOp(t *testing.T) {
	h, _, bus, _, _ := testHandlers()

	detail := events.NewStatusUpdateDetail("user-1", "corr-1", "episode-1", events.StageImage, events.OutcomeCompleted, nil, "missing-workflow")
	require.NoError(t, h.HandleStatusUpdate(context.Background(), detail))
	assert.Equal(t, 0, bus.Len())
}

func TestHandleStatusUpdate_AlreadyTerminalWorkflowIsNoOp(t *testing.T) {
	h, meta, bus, _, _ := testHandlers()
	now := time.Now().UTC()
	require.NoError(t, meta.CreateBatchWorkflow(context.Background(), models.BatchWorkflow{
		WorkflowID: "workflow-1", RequestID: "req-1", UserID: "user-1",
		NumberOfStories: 2, BatchSize: 1, CurrentBatch: 2, TotalBatches: 2,
		Status: models.StatusCompleted, Preferences: prefs,
		CreatedAt: now, UpdatedAt: now,
	}))

	detail := events.NewStatusUpdateDetail("user-1", "corr-1", "episode-1", events.StageImage, events.OutcomeCompleted, nil, "workflow-1")
	require.NoError(t, h.HandleStatusUpdate(context.Background(), detail))
	assert.Equal(t, 0, bus.Len())
}

func TestHandleStatusUpdate_AdvancesToNextWave(t *testing.T) {
	h, meta, bus, _, _ := testHandlers()
	now := time.Now().UTC()
	require.NoError(t, meta.CreateBatchWorkflow(context.Background(), models.BatchWorkflow{
		WorkflowID: "workflow-1", RequestID: "req-1", UserID: "user-1",
		NumberOfStories: 3, BatchSize: 1, CurrentBatch: 1, TotalBatches: 3, WaveSize: 1,
		Status: models.StatusProcessing, Preferences: prefs,
		CreatedAt: now, UpdatedAt: now,
	}))

	detail := events.NewStatusUpdateDetail("user-1", "corr-1", "episode-1", events.StageImage, events.OutcomeCompleted, nil, "workflow-1")
	require.NoError(t, h.HandleStatusUpdate(context.Background(), detail))

	wf, err := meta.GetBatchWorkflow(context.Background(), "workflow-1")
	require.NoError(t, err)
	assert.Equal(t, 1, wf.StoriesCompleted)
	assert.Equal(t, 2, wf.CurrentBatch)
	assert.Equal(t, models.StatusProcessing, wf.Status)
	assert.Equal(t, 1, bus.Len(), "one StoryRequested published for the next wave")
}

// TestHandleStatusUpdate_WaveBarrierWaitsForWholeWave exercises batchSize >
// 1: a batch of numberOfStories=9, batchSize=3 bootstraps with a
// single-story wave from C6, then must launch exactly 3 new stories once
// that bootstrap story completes, and must NOT launch any more until all 3
// of that new wave have completed too (the over-launch this advancer used
// to produce for every individual completion).
func TestHandleStatusUpdate_WaveBarrierWaitsForWholeWave(t *testing.T) {
	h, meta, bus, _, _ := testHandlers()
	now := time.Now().UTC()
	require.NoError(t, meta.CreateBatchWorkflow(context.Background(), models.BatchWorkflow{
		WorkflowID: "workflow-1", RequestID: "req-1", UserID: "user-1",
		NumberOfStories: 9, BatchSize: 3, CurrentBatch: 1, TotalBatches: 3, WaveSize: 1,
		Status: models.StatusProcessing, Preferences: prefs,
		CreatedAt: now, UpdatedAt: now,
	}))

	// story1 (wave1, the bootstrap story from C6) completes.
	detail := events.NewStatusUpdateDetail("user-1", "corr-1", "episode-1", events.StageImage, events.OutcomeCompleted, nil, "workflow-1")
	require.NoError(t, h.HandleStatusUpdate(context.Background(), detail))

	wf, err := meta.GetBatchWorkflow(context.Background(), "workflow-1")
	require.NoError(t, err)
	assert.Equal(t, 1, wf.StoriesCompleted)
	assert.Equal(t, 2, wf.CurrentBatch)
	assert.Equal(t, 3, wf.WaveSize)
	assert.Equal(t, 0, wf.WaveCompleted)
	assert.Equal(t, 3, bus.Len(), "exactly batchSize stories launched for wave 2")

	stories, err := meta.ListUserStories(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, stories, 3, "wave 2's 3 stories were all created")

	// story2 of wave2 completes: only 1 of the 3 wave-2 stories is done, so
	// no further stories may be launched yet.
	before := bus.Len()
	require.NoError(t, h.HandleStatusUpdate(context.Background(), detail))
	wf, err = meta.GetBatchWorkflow(context.Background(), "workflow-1")
	require.NoError(t, err)
	assert.Equal(t, 2, wf.StoriesCompleted)
	assert.Equal(t, 1, wf.WaveCompleted)
	assert.Equal(t, 2, wf.CurrentBatch, "still on wave 2, not advanced early")
	assert.Equal(t, before, bus.Len(), "no new stories launched until the whole wave completes")

	// story3 of wave2 completes: still 2/3.
	require.NoError(t, h.HandleStatusUpdate(context.Background(), detail))
	wf, err = meta.GetBatchWorkflow(context.Background(), "workflow-1")
	require.NoError(t, err)
	assert.Equal(t, 2, wf.CurrentBatch)
	assert.Equal(t, before, bus.Len())

	// story4 of wave2 completes: wave 2 is now fully done (3/3); the
	// remaining 9-4=5 stories need only min(batchSize, remaining)=3 more
	// for wave 3.
	require.NoError(t, h.HandleStatusUpdate(context.Background(), detail))
	wf, err = meta.GetBatchWorkflow(context.Background(), "workflow-1")
	require.NoError(t, err)
	assert.Equal(t, 4, wf.StoriesCompleted)
	assert.Equal(t, 3, wf.CurrentBatch)
	assert.Equal(t, 3, wf.WaveSize)
	assert.Equal(t, 0, wf.WaveCompleted)
	assert.Equal(t, before+3, bus.Len(), "exactly batchSize stories launched for wave 3, never more than 9 total")
}

func TestHandleStatusUpdate_FinalStoryMarksWorkflowCompleted(t *testing.T) {
	h, meta, bus, _, _ := testHandlers()
	now := time.Now().UTC()
	require.NoError(t, meta.CreateBatchWorkflow(context.Background(), models.BatchWorkflow{
		WorkflowID: "workflow-1", RequestID: "req-1", UserID: "user-1",
		NumberOfStories: 2, BatchSize: 1, CurrentBatch: 2, TotalBatches: 2,
		Status: models.StatusProcessing, Preferences: prefs, StoriesCompleted: 1,
		CreatedAt: now, UpdatedAt: now,
	}))

	detail := events.NewStatusUpdateDetail("user-1", "corr-1", "episode-1", events.StageImage, events.OutcomeCompleted, nil, "workflow-1")
	require.NoError(t, h.HandleStatusUpdate(context.Background(), detail))

	wf, err := meta.GetBatchWorkflow(context.Background(), "workflow-1")
	require.NoError(t, err)
	assert.Equal(t, 2, wf.StoriesCompleted)
	assert.Equal(t, models.StatusCompleted, wf.Status)
	assert.Equal(t, 0, bus.Len(), "no further batch story requested once the workflow is done")
}
