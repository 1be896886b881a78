package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/keiya/multi-layered-story-generator/internal/config"
	"github.com/keiya/multi-layered-story-generator/internal/core/assemble"
	"github.com/keiya/multi-layered-story-generator/internal/core/common"
	"github.com/keiya/multi-layered-story-generator/internal/core/model"
	"github.com/keiya/multi-layered-story-generator/internal/core/stage"
	"github.com/keiya/multi-layered-story-generator/internal/llm"
)

// Chapter and paragraph stages use marker pairs; sections come back as JSON.
const (
	chapterPlotMarker     = "[CHAPTER_PLOT]"
	chapterIntentMarker   = "[CHAPTER_INTENT]"
	paragraphMarker       = "[PARAGRAPH]"
	paragraphIntentMarker = "[PARAGRAPH_INTENT]"
)

// LLMOracle renders a bundle plus the stage's instruction into one prompt,
// calls the model, and parses the response into the stage's output shape.
// One attempt per call; the orchestrator owns the retry budget.
type LLMOracle struct {
	llm     llm.LLMClient
	prompts config.StagePrompts
}

func NewLLMOracle(client llm.LLMClient, prompts config.StagePrompts) *LLMOracle {
	return &LLMOracle{llm: client, prompts: prompts}
}

func (o *LLMOracle) Generate(ctx context.Context, stageName string, bundle *model.Bundle) (*Output, error) {
	st, err := stage.Get(stageName)
	if err != nil {
		return nil, err
	}

	prompt := bundle.Render() + o.instruction(st, bundle)

	response, err := o.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("oracle call for stage %s failed: %w", stageName, err)
	}

	return o.parse(st, response)
}

func (o *LLMOracle) instruction(st stage.Stage, bundle *model.Bundle) string {
	switch st.Name {
	case stage.Plot:
		return o.prompts.Plot
	case stage.Backstory:
		return o.prompts.Backstory
	case stage.Characters:
		return o.prompts.Characters
	case stage.Chapter:
		if bundle.Has(assemble.BlockFinalChapter) {
			return o.prompts.Chapter + "\n\n" + o.prompts.FinalChapter
		}
		return o.prompts.Chapter
	case stage.Timeline:
		return o.prompts.Timeline
	case stage.Section:
		return o.prompts.Section
	case stage.Paragraph:
		return o.prompts.Paragraph
	}
	return ""
}

func (o *LLMOracle) parse(st stage.Stage, response string) (*Output, error) {
	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return nil, &model.SchemaError{Stage: st.Name, Reason: "empty response"}
	}

	switch st.Output {
	case stage.OutputText:
		return &Output{Text: trimmed}, nil

	case stage.OutputPlotIntent:
		textMarker, intentMarker := chapterPlotMarker, chapterIntentMarker
		if st.Name == stage.Paragraph {
			textMarker, intentMarker = paragraphMarker, paragraphIntentMarker
		}
		text, intent := splitMarked(trimmed, textMarker, intentMarker)
		return &Output{Text: text, Intent: intent}, nil

	case stage.OutputJSONPair:
		payload, err := common.ParseJSON[sectionPayload](trimmed)
		if err != nil {
			return nil, &model.SchemaError{Stage: st.Name, Reason: err.Error()}
		}
		if payload.Plot == "" {
			return nil, &model.SchemaError{Stage: st.Name, Reason: "missing section_plot"}
		}
		if payload.Intent == "" {
			return nil, &model.SchemaError{Stage: st.Name, Reason: "missing section_intent"}
		}
		return &Output{Text: payload.Plot, Intent: payload.Intent}, nil

	case stage.OutputTimeline:
		delta, err := common.ParseJSON[model.Timeline](trimmed)
		if err != nil {
			return nil, &model.SchemaError{Stage: st.Name, Reason: err.Error()}
		}
		return &Output{Timeline: delta}, nil
	}

	return nil, &model.SchemaError{Stage: st.Name, Reason: "unhandled output kind"}
}

type sectionPayload struct {
	Plot   string `json:"section_plot"`
	Intent string `json:"section_intent"`
}

// splitMarked extracts the two marked parts of a response. A response that
// ignored the format is kept wholesale as the text part with a generic
// intent, which beats discarding a usable artifact.
func splitMarked(response, openMarker, intentMarker string) (string, string) {
	if idx := strings.Index(response, openMarker); idx != -1 {
		rest := response[idx+len(openMarker):]
		if j := strings.Index(rest, intentMarker); j != -1 {
			return strings.TrimSpace(rest[:j]), strings.TrimSpace(rest[j+len(intentMarker):])
		}
		return strings.TrimSpace(rest), defaultIntent
	}
	return strings.TrimSpace(response), defaultIntent
}

const defaultIntent = "Continue the story from here."
