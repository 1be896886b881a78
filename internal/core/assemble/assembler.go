package assemble

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/keiya/multi-layered-story-generator/internal/core/model"
	"github.com/keiya/multi-layered-story-generator/internal/core/stage"
	"github.com/keiya/multi-layered-story-generator/internal/store"
)

// Block names shared between the assembler, the oracle prompts and the
// filters. Tests key off these.
const (
	BlockPremise                 = "User Premise"
	BlockMasterPlot              = "Master Plot"
	BlockBackstories             = "Backstories"
	BlockCharacters              = "Characters"
	BlockPosition                = "Position"
	BlockFinalChapter            = "Final Chapter"
	BlockPreviousChapterPlot     = "Previous Chapter Plot"
	BlockPreviousChapterIntent   = "Previous Chapter Intent"
	BlockChapterPlot             = "Current Chapter Plot"
	BlockChapterPlots            = "Chapter Plots"
	BlockPreviousTimeline        = "Previous Timeline"
	BlockTimeline                = "Character Timeline"
	BlockPreviousSections        = "Previous Sections"
	BlockPreviousSectionIntent   = "Previous Section Intent"
	BlockSectionPlot             = "Section Plot"
	BlockPreviousParagraphs      = "Previous Paragraphs"
	BlockPreviousParagraphIntent = "Previous Paragraph Intent"
	BlockValidationFeedback      = "Validation Feedback"
)

// KeyPremise holds the user premise; committed by the orchestrator before
// the plot stage so every context input comes out of the store.
const KeyPremise = "premise"

// paragraphWindow is how many preceding paragraphs a paragraph context may
// reference. The window clips at the chapter start and never reaches into a
// previous chapter.
const paragraphWindow = 3

// Assembler builds the exact input bundle for one stage invocation at one
// scope path. It reads the store and never writes it.
type Assembler struct {
	store    store.Store
	chapters int
}

func New(st store.Store, chapters int) *Assembler {
	return &Assembler{store: st, chapters: chapters}
}

// Assemble returns the context bundle for stageName at path p, per the
// stage's windowing rule. Optional "previous" references that do not exist
// yet (first chapter, first section, first paragraph of a chapter) are
// omitted; a required artifact that is absent is a MissingDependencyError.
func (a *Assembler) Assemble(ctx context.Context, stageName string, p model.Path) (*model.Bundle, error) {
	st, err := stage.Get(stageName)
	if err != nil {
		return nil, err
	}

	switch st.Name {
	case stage.Plot:
		return a.plotBundle(ctx)
	case stage.Backstory:
		return a.backstoryBundle(ctx)
	case stage.Characters:
		return a.charactersBundle(ctx)
	case stage.Chapter:
		return a.chapterBundle(ctx, p.Chapter)
	case stage.Timeline:
		return a.timelineBundle(ctx, p.Chapter)
	case stage.Section:
		return a.sectionBundle(ctx, p.Chapter, p.Section)
	case stage.Paragraph:
		return a.paragraphBundle(ctx, p)
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownStage, stageName)
	}
}

func (a *Assembler) plotBundle(ctx context.Context) (*model.Bundle, error) {
	premise, err := a.require(ctx, stage.Plot, KeyPremise)
	if err != nil {
		return nil, err
	}
	b := &model.Bundle{}
	b.Add(BlockPremise, premise)
	return b, nil
}

func (a *Assembler) backstoryBundle(ctx context.Context) (*model.Bundle, error) {
	master, err := a.require(ctx, stage.Backstory, model.KeyMasterPlot)
	if err != nil {
		return nil, err
	}
	b := &model.Bundle{}
	b.Add(BlockMasterPlot, master)
	return b, nil
}

func (a *Assembler) charactersBundle(ctx context.Context) (*model.Bundle, error) {
	b, err := a.baseBundle(ctx, stage.Characters, false)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (a *Assembler) chapterBundle(ctx context.Context, n int) (*model.Bundle, error) {
	b, err := a.baseBundle(ctx, stage.Chapter, true)
	if err != nil {
		return nil, err
	}

	b.Add(BlockPosition, fmt.Sprintf("Chapter %d of %d", n+1, a.chapters))

	if n > 0 {
		plot, err := a.require(ctx, stage.Chapter, model.ChapterPlotKey(n-1))
		if err != nil {
			return nil, err
		}
		intent, err := a.require(ctx, stage.Chapter, model.ChapterIntentKey(n-1))
		if err != nil {
			return nil, err
		}
		b.Add(BlockPreviousChapterPlot, plot)
		b.Add(BlockPreviousChapterIntent, intent)
	}

	if n == a.chapters-1 {
		b.Add(BlockFinalChapter, "This chapter concludes the story.")
	}

	return b, nil
}

func (a *Assembler) timelineBundle(ctx context.Context, n int) (*model.Bundle, error) {
	b, err := a.baseBundle(ctx, stage.Timeline, true)
	if err != nil {
		return nil, err
	}

	var plots strings.Builder
	for k := 0; k <= n; k++ {
		plot, err := a.require(ctx, stage.Timeline, model.ChapterPlotKey(k))
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&plots, "Chapter %d:\n%s\n\n", k+1, plot)
	}
	b.Add(BlockChapterPlots, strings.TrimSpace(plots.String()))
	b.Add(BlockPosition, fmt.Sprintf("Chapter %d of %d", n+1, a.chapters))

	if n > 0 {
		prev, err := a.require(ctx, stage.Timeline, model.TimelineKey(n-1))
		if err != nil {
			return nil, err
		}
		b.Add(BlockPreviousTimeline, prev)
	}

	return b, nil
}

func (a *Assembler) sectionBundle(ctx context.Context, n, m int) (*model.Bundle, error) {
	b, err := a.baseBundle(ctx, stage.Section, true)
	if err != nil {
		return nil, err
	}

	snapshot, err := a.require(ctx, stage.Section, model.TimelineKey(n))
	if err != nil {
		return nil, err
	}
	b.Add(BlockTimeline, snapshot)

	plot, err := a.require(ctx, stage.Section, model.ChapterPlotKey(n))
	if err != nil {
		return nil, err
	}
	b.Add(BlockChapterPlot, plot)

	if m > 0 {
		var prev strings.Builder
		for k := 0; k < m; k++ {
			sec, err := a.require(ctx, stage.Section, model.SectionPlotKey(n, k))
			if err != nil {
				return nil, err
			}
			fmt.Fprintf(&prev, "Section %d:\n%s\n\n", k+1, sec)
		}
		b.Add(BlockPreviousSections, strings.TrimSpace(prev.String()))

		intent, err := a.require(ctx, stage.Section, model.SectionIntentKey(n, m-1))
		if err != nil {
			return nil, err
		}
		b.Add(BlockPreviousSectionIntent, intent)
	}

	return b, nil
}

func (a *Assembler) paragraphBundle(ctx context.Context, p model.Path) (*model.Bundle, error) {
	b, err := a.baseBundle(ctx, stage.Paragraph, true)
	if err != nil {
		return nil, err
	}

	snapshot, err := a.require(ctx, stage.Paragraph, model.TimelineKey(p.Chapter))
	if err != nil {
		return nil, err
	}
	b.Add(BlockTimeline, snapshot)

	plot, err := a.require(ctx, stage.Paragraph, model.SectionPlotKey(p.Chapter, p.Section))
	if err != nil {
		return nil, err
	}
	b.Add(BlockSectionPlot, plot)

	// Sliding window over this chapter's paragraphs only. i is chapter-local,
	// so clipping at 0 is what keeps the window from crossing into a previous
	// chapter.
	start := p.Paragraph - paragraphWindow
	if start < 0 {
		start = 0
	}
	if start < p.Paragraph {
		var prev strings.Builder
		for k := start; k < p.Paragraph; k++ {
			text, err := a.require(ctx, stage.Paragraph, model.ParagraphTextKey(p.Chapter, k))
			if err != nil {
				return nil, err
			}
			fmt.Fprintf(&prev, "Paragraph %d:\n%s\n\n", k+1, text)
		}
		b.Add(BlockPreviousParagraphs, strings.TrimSpace(prev.String()))
	}

	if p.Paragraph > 0 {
		intent, err := a.optional(ctx, model.ParagraphIntentKey(p.Chapter, p.Paragraph-1))
		if err != nil {
			return nil, err
		}
		if intent != "" {
			b.Add(BlockPreviousParagraphIntent, intent)
		}
	}

	return b, nil
}

// baseBundle loads the story-wide artifacts every downstream stage starts
// from. withCharacters is false only for the character stage itself.
func (a *Assembler) baseBundle(ctx context.Context, stageName string, withCharacters bool) (*model.Bundle, error) {
	b := &model.Bundle{}

	master, err := a.require(ctx, stageName, model.KeyMasterPlot)
	if err != nil {
		return nil, err
	}
	b.Add(BlockMasterPlot, master)

	backstory, err := a.require(ctx, stageName, model.KeyBackstory)
	if err != nil {
		return nil, err
	}
	b.Add(BlockBackstories, backstory)

	if withCharacters {
		characters, err := a.require(ctx, stageName, model.KeyCharacters)
		if err != nil {
			return nil, err
		}
		b.Add(BlockCharacters, characters)
	}

	return b, nil
}

func (a *Assembler) require(ctx context.Context, stageName, key string) (string, error) {
	rec, err := a.store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return "", &model.MissingDependencyError{Stage: stageName, Key: key}
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return rec.Content, nil
}

func (a *Assembler) optional(ctx context.Context, key string) (string, error) {
	rec, err := a.store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return rec.Content, nil
}

// Snapshot loads and decodes the committed timeline snapshot for chapter n.
func (a *Assembler) Snapshot(ctx context.Context, n int) (model.Timeline, error) {
	raw, err := a.require(ctx, stage.Timeline, model.TimelineKey(n))
	if err != nil {
		return nil, err
	}
	var t model.Timeline
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, fmt.Errorf("corrupt timeline snapshot for chapter %d: %w", n+1, err)
	}
	return t, nil
}
