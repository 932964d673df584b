package metastore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/apperrors"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/models"
)

// InMemoryStore is a MetaStore fake backed by plain maps guarded by a
// mutex. It is used by handler unit tests and the full-pipeline
// integration test so the whole core is runnable without network access.
type InMemoryStore struct {
	mu sync.Mutex

	requests    map[string]models.GenerationRequest
	stories     map[string]models.Story
	episodes    map[string]models.Episode // key: episodeKey(storyID, episodeNumber)
	preferences map[string]models.Preferences
	workflows   map[string]models.BatchWorkflow
}

// NewInMemoryStore creates an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		requests:    make(map[string]models.GenerationRequest),
		stories:     make(map[string]models.Story),
		episodes:    make(map[string]models.Episode),
		preferences: make(map[string]models.Preferences),
		workflows:   make(map[string]models.BatchWorkflow),
	}
}

func episodeKey(storyID string, episodeNumber int) string {
	return fmt.Sprintf("%s#%d", storyID, episodeNumber)
}

func (s *InMemoryStore) CreateRequest(_ context.Context, req models.GenerationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[req.RequestID]; exists {
		return nil // idempotent: creating an already-present request is a no-op
	}
	s.requests[req.RequestID] = req
	return nil
}

func (s *InMemoryStore) UpdateRequestStatus(_ context.Context, requestID string, status models.Status, update RequestUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[requestID]
	if !ok {
		return apperrors.NewConflictError(fmt.Sprintf("generation request %q not found", requestID))
	}

	if req.Status != status {
		if !req.Status.CanTransitionTo(status) {
			return apperrors.NewConflictError(
				fmt.Sprintf("illegal status transition for request %q: %s -> %s", requestID, req.Status, status))
		}
		req.Status = status
	}

	if update.ErrorMessage != nil {
		req.ErrorMessage = update.ErrorMessage
	}
	if update.Progress != nil {
		req.Progress = update.Progress
	}
	if update.CurrentStep != nil {
		req.CurrentStep = update.CurrentStep
	}
	req.UpdatedAt = time.Now().UTC()

	s.requests[requestID] = req
	return nil
}

func (s *InMemoryStore) GetRequestByUserAndId(_ context.Context, userID, requestID string) (*models.GenerationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[requestID]
	if !ok || req.UserID != userID {
		return nil, apperrors.NewNotFoundError("generation request")
	}
	out := req
	return &out, nil
}

func (s *InMemoryStore) CreateStory(_ context.Context, story models.Story) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.stories[story.StoryID]; exists {
		return nil
	}
	s.stories[story.StoryID] = story
	return nil
}

func (s *InMemoryStore) UpdateStoryStatus(_ context.Context, storyID string, status models.Status, update StoryUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	story, ok := s.stories[storyID]
	if !ok {
		return apperrors.NewConflictError(fmt.Sprintf("story %q not found", storyID))
	}

	if story.Status != status {
		if !story.Status.CanTransitionTo(status) {
			return apperrors.NewConflictError(
				fmt.Sprintf("illegal status transition for story %q: %s -> %s", storyID, story.Status, status))
		}
		story.Status = status
	}

	if update.Title != nil {
		story.Title = *update.Title
	}
	if update.S3Key != nil {
		story.S3Key = *update.S3Key
	}
	story.UpdatedAt = time.Now().UTC()

	s.stories[storyID] = story
	return nil
}

func (s *InMemoryStore) GetStory(_ context.Context, userID, storyID string) (*models.Story, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	story, ok := s.stories[storyID]
	if !ok || story.UserID != userID {
		return nil, apperrors.NewNotFoundError("story")
	}
	out := story
	return &out, nil
}

func (s *InMemoryStore) ListUserStories(_ context.Context, userID string) ([]models.Story, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Story
	for _, story := range s.stories {
		if story.UserID == userID {
			out = append(out, story)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) CreateEpisode(_ context.Context, episode models.Episode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := episodeKey(episode.StoryID, episode.EpisodeNumber)
	if _, exists := s.episodes[key]; exists {
		return nil
	}
	s.episodes[key] = episode
	return nil
}

func (s *InMemoryStore) UpdateEpisodeStatus(_ context.Context, storyID string, episodeNumber int, status models.Status, update EpisodeUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := episodeKey(storyID, episodeNumber)
	episode, ok := s.episodes[key]
	if !ok {
		return apperrors.NewConflictError(fmt.Sprintf("episode %s#%d not found", storyID, episodeNumber))
	}

	if episode.Status != status {
		if !episode.Status.CanTransitionTo(status) {
			return apperrors.NewConflictError(
				fmt.Sprintf("illegal status transition for episode %s#%d: %s -> %s", storyID, episodeNumber, episode.Status, status))
		}
		episode.Status = status
	}

	if update.S3Key != nil {
		episode.S3Key = *update.S3Key
	}
	if update.PDFS3Key != nil {
		episode.PDFS3Key = update.PDFS3Key
	}
	if update.ImageCount != nil {
		episode.ImageCount = *update.ImageCount
	}
	if update.ErrorMessage != nil {
		episode.ErrorMessage = update.ErrorMessage
	}
	episode.UpdatedAt = time.Now().UTC()

	s.episodes[key] = episode
	return nil
}

func (s *InMemoryStore) GetEpisode(_ context.Context, storyID string, episodeNumber int) (*models.Episode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	episode, ok := s.episodes[episodeKey(storyID, episodeNumber)]
	if !ok {
		return nil, apperrors.NewNotFoundError("episode")
	}
	out := episode
	return &out, nil
}

func (s *InMemoryStore) ListStoryEpisodes(_ context.Context, storyID string) ([]models.Episode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Episode
	for _, episode := range s.episodes {
		if episode.StoryID == storyID {
			out = append(out, episode)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EpisodeNumber < out[j].EpisodeNumber })
	return out, nil
}

func (s *InMemoryStore) GetLatestPreferences(_ context.Context, userID string) (*models.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs, ok := s.preferences[userID]
	if !ok {
		return nil, apperrors.NewNotFoundError("preferences")
	}
	out := prefs
	return &out, nil
}

func (s *InMemoryStore) SavePreferences(_ context.Context, prefs models.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs.UpdatedAt = time.Now().UTC()
	if existing, ok := s.preferences[prefs.UserID]; ok {
		prefs.CreatedAt = existing.CreatedAt
	} else {
		prefs.CreatedAt = prefs.UpdatedAt
	}
	s.preferences[prefs.UserID] = prefs
	return nil
}

func (s *InMemoryStore) CreateBatchWorkflow(_ context.Context, workflow models.BatchWorkflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.workflows[workflow.WorkflowID]; exists {
		return nil
	}
	s.workflows[workflow.WorkflowID] = workflow
	return nil
}

func (s *InMemoryStore) GetBatchWorkflow(_ context.Context, workflowID string) (*models.BatchWorkflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.workflows[workflowID]
	if !ok {
		return nil, apperrors.NewNotFoundError("batch workflow")
	}
	out := w
	return &out, nil
}

func (s *InMemoryStore) IncrementStoriesCompleted(_ context.Context, workflowID string) (*models.BatchWorkflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.workflows[workflowID]
	if !ok {
		return nil, apperrors.NewConflictError(fmt.Sprintf("batch workflow %q not found", workflowID))
	}
	w.StoriesCompleted++
	w.WaveCompleted++
	w.UpdatedAt = time.Now().UTC()
	s.workflows[workflowID] = w
	out := w
	return &out, nil
}

func (s *InMemoryStore) AdvanceBatchWave(_ context.Context, workflowID string, nextBatch, waveSize int) (*models.BatchWorkflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.workflows[workflowID]
	if !ok {
		return nil, apperrors.NewConflictError(fmt.Sprintf("batch workflow %q not found", workflowID))
	}
	if w.CurrentBatch >= nextBatch {
		out := w
		return &out, nil
	}
	w.CurrentBatch = nextBatch
	w.WaveSize = waveSize
	w.WaveCompleted = 0
	w.UpdatedAt = time.Now().UTC()
	s.workflows[workflowID] = w
	out := w
	return &out, nil
}

func (s *InMemoryStore) MarkBatchWorkflowStatus(_ context.Context, workflowID string, status models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.workflows[workflowID]
	if !ok {
		return apperrors.NewConflictError(fmt.Sprintf("batch workflow %q not found", workflowID))
	}
	if w.Status != status && !w.Status.CanTransitionTo(status) {
		return apperrors.NewConflictError(
			fmt.Sprintf("illegal status transition for batch workflow %q: %s -> %s", workflowID, w.Status, status))
	}
	w.Status = status
	w.UpdatedAt = time.Now().UTC()
	s.workflows[workflowID] = w
	return nil
}

var _ MetaStore = (*InMemoryStore)(nil)
