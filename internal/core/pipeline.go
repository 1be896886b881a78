package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/keiya/multi-layered-story-generator/internal/config"
	"github.com/keiya/multi-layered-story-generator/internal/core/assemble"
	"github.com/keiya/multi-layered-story-generator/internal/core/model"
	"github.com/keiya/multi-layered-story-generator/internal/core/oracle"
	"github.com/keiya/multi-layered-story-generator/internal/core/stage"
	"github.com/keiya/multi-layered-story-generator/internal/core/timeline"
	"github.com/keiya/multi-layered-story-generator/internal/core/validate"
	"github.com/keiya/multi-layered-story-generator/internal/store"
)

// Pipeline drives one story through the layered generation stages. It is the
// sole mutator of scope counters and the sole caller of the oracle and the
// validation runner; execution is serial within one instance, so independent
// stories run concurrently only as separate Pipeline values over disjoint
// store namespaces.
type Pipeline struct {
	Store      store.Store
	Oracle     oracle.Client
	Validator  validate.Runner
	Assembler  *assemble.Assembler
	Aggregator *timeline.Aggregator
	Config     config.PipelineConfig

	// sleep is swapped out by tests exercising the retry/backoff path.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewPipeline(st store.Store, oc oracle.Client, vr validate.Runner, cfg config.PipelineConfig) *Pipeline {
	return &Pipeline{
		Store:      st,
		Oracle:     oc,
		Validator:  vr,
		Assembler:  assemble.New(st, cfg.Chapters),
		Aggregator: timeline.NewAggregator(),
		Config:     cfg,
		sleep:      sleepCtx,
	}
}

// Run generates the complete story for premise and returns the final text:
// the ordered concatenation of every paragraph, framed with chapter and
// section headings. All committed artifacts survive an error return, so a
// failed run is resumable.
func (p *Pipeline) Run(ctx context.Context, premise string) (string, error) {
	if _, err := p.Store.Put(ctx, assemble.KeyPremise, premise); err != nil {
		return "", err
	}

	log.Printf("=== PLOT LAYER ===")
	if err := p.generateStoryStage(ctx, stage.Plot, model.KeyMasterPlot); err != nil {
		return "", err
	}

	log.Printf("=== BACKSTORY LAYER ===")
	if err := p.generateStoryStage(ctx, stage.Backstory, model.KeyBackstory); err != nil {
		return "", err
	}

	log.Printf("=== CHARACTER LAYER ===")
	if err := p.generateStoryStage(ctx, stage.Characters, model.KeyCharacters); err != nil {
		return "", err
	}

	// The chapter chain checkpoint wraps the whole chapter loop: a failure invalidates every
	// chapter plot and everything derived from them, so the full loop
	// (timelines, sections, paragraphs included) re-runs from n=0.
	var chainFeedback string
	for round := 0; ; round++ {
		text, err := p.chapterPass(ctx, chainFeedback)
		if err != nil {
			return "", err
		}

		log.Printf("=== VALIDATING ALL CHAPTERS ===")
		bundle, subject, err := p.Assembler.ChapterChainFilter(ctx)
		if err != nil {
			return "", err
		}
		res, err := p.Validator.Validate(ctx, validate.KindChapterChain, bundle, subject)
		if err != nil {
			return "", err
		}
		if res.Passed {
			if _, err := p.Store.Put(ctx, model.KeyCompleteStory, text); err != nil {
				return "", err
			}
			log.Printf("Story generation completed")
			return text, nil
		}

		if round >= p.Config.ValidationRetries {
			return "", &model.ValidationExhaustedError{
				Checkpoint: "chapter-chain",
				Attempts:   round + 1,
				Feedback:   res.Feedback,
			}
		}

		log.Printf("Chapter chain validation failed, regenerating all chapters: %s", res.Feedback)
		chainFeedback = res.Feedback
		if err := p.markChaptersPending(ctx); err != nil {
			return "", err
		}
	}
}

// chapterPass runs one full chapter loop: every chapter with its timeline,
// sections and paragraphs. Returns the composed story text for this pass.
func (p *Pipeline) chapterPass(ctx context.Context, chainFeedback string) (string, error) {
	var sb strings.Builder
	prev := model.Timeline{}

	for n := 0; n < p.Config.Chapters; n++ {
		log.Printf("Processing Chapter %d/%d", n+1, p.Config.Chapters)

		if err := p.generateChapter(ctx, n, chainFeedback); err != nil {
			return "", err
		}

		snapshot, err := p.generateTimeline(ctx, n, prev)
		if err != nil {
			return "", err
		}
		prev = snapshot

		if err := p.generateSections(ctx, n); err != nil {
			return "", err
		}

		fmt.Fprintf(&sb, "\n\nChapter %d\n\n", n+1)
		if err := p.generateParagraphs(ctx, n, &sb); err != nil {
			return "", err
		}
	}

	return sb.String(), nil
}

// generateStoryStage produces one story-wide artifact (plot, backstory,
// characters). No validation checkpoint at this level.
func (p *Pipeline) generateStoryStage(ctx context.Context, stageName, key string) error {
	if ok, err := p.reusable(ctx, key); err != nil {
		return err
	} else if ok {
		log.Printf("Resuming with existing %s", key)
		return nil
	}

	bundle, err := p.Assembler.Assemble(ctx, stageName, model.Path{})
	if err != nil {
		return err
	}

	out, err := p.invoke(ctx, stageName, bundle)
	if err != nil {
		return err
	}

	_, err = p.Store.Put(ctx, key, out.Text)
	return err
}

// generateChapter produces chapter n's plot and intent, then holds them to
// the backstory consistency filter. A failure regenerates just this chapter
// with the filter's feedback folded into the context, up to the retry
// budget.
func (p *Pipeline) generateChapter(ctx context.Context, n int, chainFeedback string) error {
	plotKey := model.ChapterPlotKey(n)
	intentKey := model.ChapterIntentKey(n)

	if ok, err := p.reusable(ctx, plotKey, intentKey); err != nil {
		return err
	} else if ok {
		log.Printf("Resuming with existing Chapter %d", n+1)
		return nil
	}

	feedback := chainFeedback
	for attempt := 0; ; attempt++ {
		bundle, err := p.Assembler.Assemble(ctx, stage.Chapter, model.Path{Chapter: n})
		if err != nil {
			return err
		}
		if feedback != "" {
			bundle.Add(assemble.BlockValidationFeedback, feedback)
		}

		out, err := p.invoke(ctx, stage.Chapter, bundle)
		if err != nil {
			return err
		}

		if _, err := p.Store.Put(ctx, plotKey, out.Text); err != nil {
			return err
		}
		if _, err := p.Store.Put(ctx, intentKey, out.Intent); err != nil {
			return err
		}

		res, err := p.checkBackstoryFilter(ctx, out.Text, out.Intent)
		if err != nil {
			return err
		}
		if res.Passed {
			log.Printf("Chapter %d validation passed", n+1)
			return nil
		}
		if attempt >= p.Config.ValidationRetries {
			return &model.ValidationExhaustedError{
				Checkpoint: fmt.Sprintf("chapter-backstory[%d]", n),
				Attempts:   attempt + 1,
				Feedback:   res.Feedback,
			}
		}

		log.Printf("Chapter %d validation failed, regenerating: %s", n+1, res.Feedback)
		feedback = res.Feedback
	}
}

// generateTimeline produces chapter n's timeline delta and merges it into
// the running ledger. The merged snapshot is what gets committed.
func (p *Pipeline) generateTimeline(ctx context.Context, n int, prev model.Timeline) (model.Timeline, error) {
	key := model.TimelineKey(n)

	if ok, err := p.reusable(ctx, key); err != nil {
		return nil, err
	} else if ok {
		log.Printf("Resuming with existing timeline for Chapter %d", n+1)
		return p.Assembler.Snapshot(ctx, n)
	}

	bundle, err := p.Assembler.Assemble(ctx, stage.Timeline, model.Path{Chapter: n})
	if err != nil {
		return nil, err
	}

	out, err := p.invoke(ctx, stage.Timeline, bundle)
	if err != nil {
		return nil, err
	}

	snapshot := p.Aggregator.Merge(prev, out.Timeline)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode timeline snapshot: %w", err)
	}
	if _, err := p.Store.Put(ctx, key, string(data)); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// generateSections produces chapter n's sections, then holds the whole range
// to the section causal-chain filter. A failure wipes the range (pending
// markers) and regenerates every section from m=0 with the feedback.
func (p *Pipeline) generateSections(ctx context.Context, n int) error {
	var chainFeedback string
	for round := 0; ; round++ {
		for m := 0; m < p.Config.SectionsPerChapter; m++ {
			if err := p.generateSection(ctx, n, m, chainFeedback); err != nil {
				return err
			}
		}

		log.Printf("=== VALIDATING SECTIONS (Chapter %d) ===", n+1)
		bundle, subject, err := p.Assembler.SectionChainFilter(ctx, n, p.Config.SectionsPerChapter)
		if err != nil {
			return err
		}
		res, err := p.Validator.Validate(ctx, validate.KindSectionChain, bundle, subject)
		if err != nil {
			return err
		}
		if res.Passed {
			log.Printf("Section validation passed in Chapter %d", n+1)
			return nil
		}

		if round >= p.Config.ValidationRetries {
			return &model.ValidationExhaustedError{
				Checkpoint: fmt.Sprintf("section-chain[%d]", n),
				Attempts:   round + 1,
				Feedback:   res.Feedback,
			}
		}

		log.Printf("Section validation failed in Chapter %d, regenerating all sections: %s", n+1, res.Feedback)
		chainFeedback = res.Feedback
		if err := p.markSectionsPending(ctx, n); err != nil {
			return err
		}
	}
}

func (p *Pipeline) generateSection(ctx context.Context, n, m int, chainFeedback string) error {
	plotKey := model.SectionPlotKey(n, m)
	intentKey := model.SectionIntentKey(n, m)

	if ok, err := p.reusable(ctx, plotKey, intentKey); err != nil {
		return err
	} else if ok {
		log.Printf("Resuming with existing Section %d in Chapter %d", m+1, n+1)
		return nil
	}

	log.Printf("Generating Section %d/%d in Chapter %d", m+1, p.Config.SectionsPerChapter, n+1)

	feedback := chainFeedback
	for attempt := 0; ; attempt++ {
		bundle, err := p.Assembler.Assemble(ctx, stage.Section, model.Path{Chapter: n, Section: m})
		if err != nil {
			return err
		}
		if feedback != "" {
			bundle.Add(assemble.BlockValidationFeedback, feedback)
		}

		out, err := p.invoke(ctx, stage.Section, bundle)
		if err != nil {
			return err
		}

		if _, err := p.Store.Put(ctx, plotKey, out.Text); err != nil {
			return err
		}
		if _, err := p.Store.Put(ctx, intentKey, out.Intent); err != nil {
			return err
		}

		res, err := p.checkBackstoryFilter(ctx, out.Text, out.Intent)
		if err != nil {
			return err
		}
		if res.Passed {
			return nil
		}
		if attempt >= p.Config.ValidationRetries {
			return &model.ValidationExhaustedError{
				Checkpoint: fmt.Sprintf("section-backstory[%d,%d]", n, m),
				Attempts:   attempt + 1,
				Feedback:   res.Feedback,
			}
		}

		log.Printf("Section %d validation failed in Chapter %d, regenerating: %s", m+1, n+1, res.Feedback)
		feedback = res.Feedback
	}
}

// generateParagraphs walks chapter n's sections, generating paragraphs with
// a chapter-local index i that runs across section boundaries.
func (p *Pipeline) generateParagraphs(ctx context.Context, n int, sb *strings.Builder) error {
	i := 0
	for m := 0; m < p.Config.SectionsPerChapter; m++ {
		fmt.Fprintf(sb, "\nSection %d\n", m+1)
		for j := 0; j < p.sectionParagraphs(m); j++ {
			text, err := p.generateParagraph(ctx, n, m, i)
			if err != nil {
				return err
			}
			fmt.Fprintf(sb, "\n%s", text)
			i++
		}
	}
	return nil
}

// generateParagraph produces paragraph i of chapter n (inside section m) and
// runs the style filter over it. A correction is committed in place as a new
// version of the same key; there is no regeneration loop at this level.
func (p *Pipeline) generateParagraph(ctx context.Context, n, m, i int) (string, error) {
	textKey := model.ParagraphTextKey(n, i)
	intentKey := model.ParagraphIntentKey(n, i)

	if ok, err := p.reusable(ctx, textKey, intentKey); err != nil {
		return "", err
	} else if ok {
		rec, err := p.Store.Get(ctx, textKey)
		if err != nil {
			return "", err
		}
		log.Printf("Resuming with existing Paragraph %d in Chapter %d", i+1, n+1)
		return rec.Content, nil
	}

	bundle, err := p.Assembler.Assemble(ctx, stage.Paragraph, model.Path{Chapter: n, Section: m, Paragraph: i})
	if err != nil {
		return "", err
	}

	out, err := p.invoke(ctx, stage.Paragraph, bundle)
	if err != nil {
		return "", err
	}

	if _, err := p.Store.Put(ctx, textKey, out.Text); err != nil {
		return "", err
	}
	if _, err := p.Store.Put(ctx, intentKey, out.Intent); err != nil {
		return "", err
	}

	res, err := p.Validator.Validate(ctx, validate.KindStyle, &model.Bundle{}, out.Text)
	if err != nil {
		return "", err
	}
	if res.Passed || res.Feedback == "" {
		return out.Text, nil
	}

	if _, err := p.Store.Put(ctx, textKey, res.Feedback); err != nil {
		return "", err
	}
	return res.Feedback, nil
}

func (p *Pipeline) checkBackstoryFilter(ctx context.Context, plot, intent string) (*validate.Result, error) {
	bundle, err := p.Assembler.BackstoryFilter(ctx)
	if err != nil {
		return nil, err
	}
	subject := fmt.Sprintf("plot:\n%s\n\nintent:\n%s", plot, intent)
	return p.Validator.Validate(ctx, validate.KindBackstory, bundle, subject)
}

// invoke calls the oracle with a per-call timeout, retrying transient
// failures (including schema errors) with exponential backoff up to the
// configured attempt budget.
func (p *Pipeline) invoke(ctx context.Context, stageName string, bundle *model.Bundle) (*oracle.Output, error) {
	attempts := p.Config.OracleAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		callCtx := ctx
		cancel := func() {}
		if timeout := p.Config.OracleTimeout(); timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, timeout)
		}

		out, err := p.Oracle.Generate(callCtx, stageName, bundle)
		cancel()
		if err == nil {
			return out, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("Oracle attempt %d/%d for stage %s failed: %v", attempt, attempts, stageName, err)

		if attempt < attempts {
			backoff := p.Config.RetryBackoff() * time.Duration(1<<(attempt-1))
			if err := p.sleep(ctx, backoff); err != nil {
				return nil, err
			}
		}
	}

	return nil, &model.OracleError{Stage: stageName, Attempts: attempts, Err: lastErr}
}

// reusable reports whether every key is committed and none is mid-
// regeneration. Only consulted in resume mode.
func (p *Pipeline) reusable(ctx context.Context, keys ...string) (bool, error) {
	if !p.Config.Resume {
		return false, nil
	}
	for _, key := range keys {
		exists, err := p.Store.Exists(ctx, key)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, nil
		}
		pending, err := p.Store.Pending(ctx, key)
		if err != nil {
			return false, err
		}
		if pending {
			return false, nil
		}
	}
	return true, nil
}

// markChaptersPending flags every chapter-derived artifact before a full
// chapter-range regeneration, so an interrupted regeneration is never
// mistaken for committed state.
func (p *Pipeline) markChaptersPending(ctx context.Context) error {
	for n := 0; n < p.Config.Chapters; n++ {
		keys := []string{
			model.ChapterPlotKey(n),
			model.ChapterIntentKey(n),
			model.TimelineKey(n),
		}
		for _, key := range keys {
			if err := p.Store.MarkPending(ctx, key); err != nil {
				return err
			}
		}
		if err := p.markSectionsPending(ctx, n); err != nil {
			return err
		}
		for i := 0; i < p.chapterParagraphs(); i++ {
			if err := p.Store.MarkPending(ctx, model.ParagraphTextKey(n, i)); err != nil {
				return err
			}
			if err := p.Store.MarkPending(ctx, model.ParagraphIntentKey(n, i)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pipeline) markSectionsPending(ctx context.Context, n int) error {
	for m := 0; m < p.Config.SectionsPerChapter; m++ {
		if err := p.Store.MarkPending(ctx, model.SectionPlotKey(n, m)); err != nil {
			return err
		}
		if err := p.Store.MarkPending(ctx, model.SectionIntentKey(n, m)); err != nil {
			return err
		}
	}
	return nil
}

// sectionParagraphs is the paragraph count for section m: the per-section
// override when set, the uniform count otherwise.
func (p *Pipeline) sectionParagraphs(m int) int {
	if m < len(p.Config.ParagraphCounts) {
		return p.Config.ParagraphCounts[m]
	}
	return p.Config.ParagraphsPerSection
}

func (p *Pipeline) chapterParagraphs() int {
	total := 0
	for m := 0; m < p.Config.SectionsPerChapter; m++ {
		total += p.sectionParagraphs(m)
	}
	return total
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
