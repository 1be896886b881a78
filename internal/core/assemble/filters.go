package assemble

import (
	"context"
	"fmt"
	"strings"

	"github.com/keiya/multi-layered-story-generator/internal/core/model"
)

// Filter contexts. Each returns the bundle the validation filter sees plus,
// for the causal-chain filters, the concatenated subject range.

// BackstoryFilter is the backstory filter context: the story-wide artifacts only. The
// subject plot and intent travel separately.
func (a *Assembler) BackstoryFilter(ctx context.Context) (*model.Bundle, error) {
	return a.baseBundle(ctx, "backstory", true)
}

// ChapterChainFilter is the chapter chain filter context plus its subject: every
// chapter plot generated so far, concatenated in order.
func (a *Assembler) ChapterChainFilter(ctx context.Context) (*model.Bundle, string, error) {
	b, err := a.baseBundle(ctx, "chapter-chain", true)
	if err != nil {
		return nil, "", err
	}

	// The last snapshot is cumulative, so it stands in for the whole ledger.
	snapshot, err := a.require(ctx, "chapter-chain", model.TimelineKey(a.chapters-1))
	if err != nil {
		return nil, "", err
	}
	b.Add(BlockTimeline, snapshot)

	var subject strings.Builder
	for n := 0; n < a.chapters; n++ {
		plot, err := a.require(ctx, "chapter-chain", model.ChapterPlotKey(n))
		if err != nil {
			return nil, "", err
		}
		fmt.Fprintf(&subject, "Chapter %d:\n%s\n\n", n+1, plot)
	}

	return b, strings.TrimSpace(subject.String()), nil
}

// SectionChainFilter is the section chain filter context for chapter n plus its
// subject: the chapter's section plots 0..sections-1 concatenated in order.
func (a *Assembler) SectionChainFilter(ctx context.Context, n, sections int) (*model.Bundle, string, error) {
	b, err := a.baseBundle(ctx, "section-chain", true)
	if err != nil {
		return nil, "", err
	}

	snapshot, err := a.require(ctx, "section-chain", model.TimelineKey(n))
	if err != nil {
		return nil, "", err
	}
	b.Add(BlockTimeline, snapshot)

	plot, err := a.require(ctx, "section-chain", model.ChapterPlotKey(n))
	if err != nil {
		return nil, "", err
	}
	b.Add(BlockChapterPlot, plot)

	var subject strings.Builder
	for m := 0; m < sections; m++ {
		sec, err := a.require(ctx, "section-chain", model.SectionPlotKey(n, m))
		if err != nil {
			return nil, "", err
		}
		fmt.Fprintf(&subject, "Section %d:\n%s\n\n", m+1, sec)
	}

	return b, strings.TrimSpace(subject.String()), nil
}
