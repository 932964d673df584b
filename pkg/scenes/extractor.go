// Package scenes implements the scene extractor (C4, spec §4.4): parsing
// episode markdown into an ordered list of scene image prompts. The
// procedure is pure and deterministic — identical markdown always yields
// an identical prompt list (spec §8 "Scene-extraction determinism").
package scenes

import (
	"regexp"
	"strings"
)

// Scene is one extracted unit of image generation.
type Scene struct {
	Index  int
	Prompt string
}

const fallbackPrompt = "A dramatic manga scene with characters in intense action"

// minDescriptionLength is the threshold below which a derived description
// is replaced by fallbackPrompt (spec §4.4 step 5).
const minDescriptionLength = 15

// maxPromptLength is the word-boundary truncation cap (spec §4.4 step 4).
const maxPromptLength = 300

// paragraphsPerGroup is the grouping size used when no scene break markers
// are found (spec §4.4 step 3).
const paragraphsPerGroup = 3

var (
	frontMatterRE = regexp.MustCompile(`(?s)^\s*---\s*\n.*?\n---\s*\n`)

	// sceneBreakRE matches a whole line that is one of the recognized
	// scene break markers, case-insensitively, after whitespace trim.
	sceneBreakRE = regexp.MustCompile(`(?im)^\s*(\[scene break\]|\[new scene\]|---|\*\*\*\*)\s*$`)

	quotedDialogueRE = regexp.MustCompile(`"[^"]*"|“[^”]*”`)
	speakerTagRE     = regexp.MustCompile(`(?m)^\s*[A-Z][A-Za-z0-9 ]{0,30}:\s*`)
	markdownCharsRE  = regexp.MustCompile("[#*_`]")
	imageHintRE      = regexp.MustCompile(`(?i)\[\s*image\s*:?\s*([^\]]+)\]`)
	bracketedRE      = regexp.MustCompile(`\[[^\]]*\]`)
	sentenceSplitRE  = regexp.MustCompile(`[.!?\n]+`)
	whitespaceRunRE  = regexp.MustCompile(`\s+`)
)

// Extract parses markdown into an ordered list of scene prompts, capped at
// maxScenes (spec: MaxScenesPerEpisode, default 8). The returned list
// always has length in [1, maxScenes].
func Extract(markdown string, maxScenes int) []Scene {
	if maxScenes <= 0 {
		maxScenes = 8
	}

	body := stripFrontMatter(markdown)
	segments := splitOnBreakMarkers(body)
	if len(segments) == 0 {
		segments = groupParagraphs(body, paragraphsPerGroup)
	}
	if len(segments) == 0 {
		segments = []string{body}
	}
	if len(segments) > maxScenes {
		segments = segments[:maxScenes]
	}

	scenes := make([]Scene, 0, len(segments))
	for i, seg := range segments {
		scenes = append(scenes, Scene{Index: i, Prompt: derivePrompt(seg)})
	}
	return scenes
}

// stripFrontMatter removes an optional leading `---`-fenced metadata block.
func stripFrontMatter(markdown string) string {
	return frontMatterRE.ReplaceAllString(markdown, "")
}

// splitOnBreakMarkers segments body wherever a whole line matches a
// recognized scene break marker. Returns nil if no marker is found, so
// callers fall through to paragraph grouping.
func splitOnBreakMarkers(body string) []string {
	locs := sceneBreakRE.FindAllStringIndex(body, -1)
	if len(locs) == 0 {
		return nil
	}

	var segments []string
	start := 0
	for _, loc := range locs {
		segments = append(segments, body[start:loc[0]])
		start = loc[1]
	}
	segments = append(segments, body[start:])

	return nonEmptyTrimmed(segments)
}

// groupParagraphs splits body on blank lines into non-empty paragraphs,
// then groups every n of them into one segment (spec §4.4 step 3).
func groupParagraphs(body string, n int) []string {
	var paragraphs []string
	for _, p := range regexp.MustCompile(`\n\s*\n`).Split(body, -1) {
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	if len(paragraphs) == 0 {
		return nil
	}

	var segments []string
	for i := 0; i < len(paragraphs); i += n {
		end := i + n
		if end > len(paragraphs) {
			end = len(paragraphs)
		}
		segments = append(segments, strings.Join(paragraphs[i:end], "\n\n"))
	}
	return segments
}

func nonEmptyTrimmed(segments []string) []string {
	var out []string
	for _, s := range segments {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// derivePrompt turns one markdown segment into a visual scene description
// (spec §4.4 step 4-5).
func derivePrompt(segment string) string {
	var hints []string
	text := imageHintRE.ReplaceAllStringFunc(segment, func(m string) string {
		groups := imageHintRE.FindStringSubmatch(m)
		if len(groups) == 2 {
			hints = append(hints, strings.TrimSpace(groups[1]))
		}
		return ""
	})

	text = quotedDialogueRE.ReplaceAllString(text, "")
	text = speakerTagRE.ReplaceAllString(text, "")
	text = bracketedRE.ReplaceAllString(text, "")
	text = markdownCharsRE.ReplaceAllString(text, "")

	fragments := sentenceFragments(text, 3)
	desc := strings.Join(fragments, ". ")

	if len(hints) > 0 {
		desc = strings.TrimSpace(desc + " " + strings.Join(hints, ", "))
	}
	desc = truncateOnWordBoundary(desc, maxPromptLength)

	if len(strings.TrimSpace(desc)) < minDescriptionLength {
		return fallbackPrompt
	}
	return desc
}

// sentenceFragments splits text into sentence-like pieces and returns the
// first limit fragments of length >= 10 containing a space.
func sentenceFragments(text string, limit int) []string {
	var out []string
	for _, frag := range sentenceSplitRE.Split(text, -1) {
		frag = strings.TrimSpace(whitespaceRunRE.ReplaceAllString(frag, " "))
		if len(frag) >= 10 && strings.Contains(frag, " ") {
			out = append(out, frag)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

// truncateOnWordBoundary shortens s to at most max characters without
// splitting a word.
func truncateOnWordBoundary(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}
