package events

// Convenience constructors wrapping NewEnvelope with the correct Source and
// DetailType for each variant, so producers cannot mismatch a detail
// struct with the wrong tag.

func NewBatchStoryRequestedEnvelope(detail BatchStoryRequested) (Envelope, error) {
	return NewEnvelope(SourceWorkflow, DetailTypeBatchStoryRequested, detail)
}

func NewStoryRequestedEnvelope(detail StoryRequested) (Envelope, error) {
	return NewEnvelope(SourceWorkflow, DetailTypeStoryRequested, detail)
}

func NewEpisodeRequestedEnvelope(detail EpisodeRequested) (Envelope, error) {
	return NewEnvelope(SourceStory, DetailTypeEpisodeRequested, detail)
}

func NewContinueEpisodeRequestedEnvelope(detail ContinueEpisodeRequested) (Envelope, error) {
	return NewEnvelope(SourceWorkflow, DetailTypeContinueEpisodeRequested, detail)
}

func NewImageRequestedEnvelope(detail ImageRequested) (Envelope, error) {
	return NewEnvelope(SourceEpisode, DetailTypeImageRequested, detail)
}

func NewStatusUpdateEnvelope(source Source, detail StatusUpdate) (Envelope, error) {
	return NewEnvelope(source, DetailTypeStatusUpdate, detail)
}
