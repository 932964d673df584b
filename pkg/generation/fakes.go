package generation

import (
	"context"
	"fmt"
	"sync"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/models"
)

// FakeTextGen is a scriptable TextGen test double. StoryErr/EpisodeErr, if
// set, are returned (and consumed) in FIFO order before falling back to a
// deterministic success.
type FakeTextGen struct {
	mu          sync.Mutex
	storyErrs   []error
	episodeErrs []error
	callCount   int
}

// NewFakeTextGen creates a FakeTextGen with no scripted errors.
func NewFakeTextGen() *FakeTextGen { return &FakeTextGen{} }

// FailNextStory schedules err to be returned by the next GenerateStory call.
func (f *FakeTextGen) FailNextStory(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storyErrs = append(f.storyErrs, err)
}

// FailNextEpisode schedules err to be returned by the next GenerateEpisode call.
func (f *FakeTextGen) FailNextEpisode(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.episodeErrs = append(f.episodeErrs, err)
}

func (f *FakeTextGen) GenerateStory(_ context.Context, prefs models.Preferences, _ map[string]any) (StoryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCount++
	if len(f.storyErrs) > 0 {
		err := f.storyErrs[0]
		f.storyErrs = f.storyErrs[1:]
		return StoryResult{}, err
	}
	genre := "Adventure"
	if len(prefs.Genres) > 0 {
		genre = prefs.Genres[0]
	}
	return StoryResult{
		Title:    fmt.Sprintf("A %s Tale", genre),
		Markdown: fmt.Sprintf("# A %s Tale\n\nOnce there was a hero who set out on a grand adventure.\n\n[Scene Break]\n\nThe hero faced a fearsome trial and emerged triumphant.\n", genre),
	}, nil
}

func (f *FakeTextGen) GenerateEpisode(_ context.Context, _ string, episodeNumber int, _ models.Preferences) (EpisodeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCount++
	if len(f.episodeErrs) > 0 {
		err := f.episodeErrs[0]
		f.episodeErrs = f.episodeErrs[1:]
		return EpisodeResult{}, err
	}
	return EpisodeResult{
		Markdown: fmt.Sprintf("# Episode %d\n\nThe story continues as our hero presses deeper into the unknown.\n\n[Scene Break]\n\nA twist reveals the true nature of the journey ahead.\n", episodeNumber),
	}, nil
}

// CallCount returns the total number of GenerateStory + GenerateEpisode calls.
func (f *FakeTextGen) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.callCount
}

var _ TextGen = (*FakeTextGen)(nil)

// FakeImageGen is a scriptable ImageGen test double keyed by call order.
// Errs, if non-empty, are consumed FIFO (one entry per Generate call)
// before falling back to a deterministic tiny-PNG success.
type FakeImageGen struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

// NewFakeImageGen creates a FakeImageGen with no scripted errors.
func NewFakeImageGen() *FakeImageGen { return &FakeImageGen{} }

// FailNext schedules err to be returned by the next Generate call.
func (f *FakeImageGen) FailNext(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, err)
}

func (f *FakeImageGen) Generate(_ context.Context, _ string) (ImageResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return ImageResult{}, err
	}
	return ImageResult{ImageData: tinyPNG()}, nil
}

// Calls returns the total number of Generate calls made.
func (f *FakeImageGen) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var _ ImageGen = (*FakeImageGen)(nil)

// tinyPNG returns a 1x1 PNG padded past the 1KB validity floor C10 checks
// (spec §4.10 step 6: PNG magic, length in [1KB, 10MB]). The trailer
// padding sits after IEND and is never parsed.
func tinyPNG() []byte {
	base := []byte{
		0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
		0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53,
		0xde, 0x00, 0x00, 0x00, 0x0c, 0x49, 0x44, 0x41,
		0x54, 0x08, 0xd7, 0x63, 0xf8, 0xcf, 0xc0, 0x00,
		0x00, 0x00, 0x03, 0x00, 0x01, 0x7e, 0x36, 0x4d,
		0xa9, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4e,
		0x44, 0xae, 0x42, 0x60, 0x82,
	}
	padding := make([]byte, 1200)
	return append(base, padding...)
}
