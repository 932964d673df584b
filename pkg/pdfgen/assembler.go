// Package pdfgen implements the PDF assembler (C5, spec §4.5): a
// deterministic composition of a title page plus (image, text) pages from
// an ordered scene list, using github.com/unidoc/unipdf/v3 — grounded on
// the RAG-platform PDF assembly shape in the retrieved pack (see
// DESIGN.md).
package pdfgen

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/creator"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/apperrors"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/config"
)

const mmToPoints = 72.0 / 25.4

func init() {
	// A metered community key unlocks watermark-free output. Its absence
	// is not fatal: unipdf falls back to a trial mode that still produces
	// a valid, readable PDF, which is acceptable for local/dev use.
	if key := os.Getenv("UNIPDF_METERED_API_KEY"); key != "" {
		if err := license.SetMeteredKey(key); err != nil {
			fmt.Fprintf(os.Stderr, "pdfgen: unipdf license key rejected: %v\n", err)
		}
	}
}

// SceneImage is one successfully generated scene, in the order produced by
// the scene extractor (C4).
type SceneImage struct {
	Index     int
	ImageData []byte // nil for a text-only scene (e.g. all generations failed)
	Prompt    string
	Text      string // the narrative text associated with this scene
}

// Metadata carries the identifiers and title-page fields for one episode.
type Metadata struct {
	StoryID       string
	EpisodeID     string
	EpisodeNumber int
	UserID        string
	Title         string // parsed title (first `# ...` line), or "Episode"
	GeneratedAt   time.Time
}

// magicPrefix is the byte-exact PDF signature validated by spec §4.5/§8.
const magicPrefix = "%PDF-"

// minValidSize is the byte-length floor a valid PDF must clear (spec §8).
const minValidSize = 1000

// Assemble composes a single PDF from meta and an ordered list of scenes.
// If zero images were generated the assembler still produces a
// text-only PDF using the same title-page layout (spec §4.5).
func Assemble(meta Metadata, scenes []SceneImage, cfg *config.PDFConfig) ([]byte, error) {
	if cfg == nil {
		cfg = config.DefaultPDFConfig()
	}

	c := creator.New()
	c.SetPageSize(creator.PageSizeA4)
	marginPts := cfg.MarginMM * mmToPoints
	c.SetPageMargins(marginPts, marginPts, marginPts, marginPts)

	title := meta.Title
	if title == "" {
		title = "Episode"
	}
	c.SetTitle(title)
	c.SetSubject(fmt.Sprintf("Episode %d", meta.EpisodeNumber))
	c.SetAuthor(meta.UserID)
	c.SetCreator("manga-orchestrator")

	if err := drawTitlePage(c, title, meta); err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindInternal, "draw title page")
	}

	for _, scene := range scenes {
		c.NewPage()
		if err := drawScenePages(c, scene); err != nil {
			return nil, apperrors.Wrap(err, apperrors.KindInternal, fmt.Sprintf("draw scene %d", scene.Index))
		}
	}

	var buf bytes.Buffer
	if err := c.Write(&buf); err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindInternal, "write pdf")
	}

	data := buf.Bytes()
	if !IsValidPDF(data) {
		return nil, apperrors.New(apperrors.KindInternal, "assembled PDF failed validity check")
	}
	return data, nil
}

func drawTitlePage(c *creator.Creator, title string, meta Metadata) error {
	titlePar := c.NewStyledParagraph()
	titlePar.SetMargins(0, 0, 40, 0)
	chunk := titlePar.Append(title)
	chunk.Style.FontSize = 28
	if err := c.Draw(titlePar); err != nil {
		return err
	}

	episodePar := c.NewStyledParagraph()
	episodePar.SetMargins(0, 0, 10, 0)
	episodeChunk := episodePar.Append(fmt.Sprintf("Episode %d", meta.EpisodeNumber))
	episodeChunk.Style.FontSize = 16
	if err := c.Draw(episodePar); err != nil {
		return err
	}

	datePar := c.NewStyledParagraph()
	dateChunk := datePar.Append(meta.GeneratedAt.Format("January 2, 2006"))
	dateChunk.Style.FontSize = 11
	return c.Draw(datePar)
}

// maxImageHeightFraction bounds a scene image to at most 60% of the
// content height (spec §4.5).
const maxImageHeightFraction = 0.6

func drawScenePages(c *creator.Creator, scene SceneImage) error {
	if len(scene.ImageData) > 0 {
		img, err := c.NewImageFromData(scene.ImageData)
		if err != nil {
			return fmt.Errorf("decode scene %d image: %w", scene.Index, err)
		}
		contentWidth := c.Context().PageWidth - c.Context().Margins.Left - c.Context().Margins.Right
		contentHeight := c.Context().PageHeight - c.Context().Margins.Top - c.Context().Margins.Bottom
		img.ScaleToWidth(contentWidth)
		if img.Height() > contentHeight*maxImageHeightFraction {
			scaleFactor := (contentHeight * maxImageHeightFraction) / img.Height()
			img.Scale(scaleFactor, scaleFactor)
		}
		img.SetMargins(0, 0, 20, 0)
		if err := c.Draw(img); err != nil {
			return fmt.Errorf("draw scene %d image: %w", scene.Index, err)
		}
	}

	text := scene.Text
	if text == "" {
		text = scene.Prompt
	}
	par := c.NewStyledParagraph()
	par.Append(text).Style.FontSize = 12
	par.SetLineHeight(1.35)
	if err := c.Draw(par); err != nil {
		return fmt.Errorf("draw scene %d text: %w", scene.Index, err)
	}
	return nil
}

// IsValidPDF reports whether data satisfies spec §4.5/§8's validity check:
// byte length >= 1000 and leading magic %PDF-.
func IsValidPDF(data []byte) bool {
	return len(data) >= minValidSize && bytes.HasPrefix(data, []byte(magicPrefix))
}
