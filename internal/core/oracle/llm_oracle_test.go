package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keiya/multi-layered-story-generator/internal/config"
	"github.com/keiya/multi-layered-story-generator/internal/core/assemble"
	"github.com/keiya/multi-layered-story-generator/internal/core/model"
	"github.com/keiya/multi-layered-story-generator/internal/core/stage"
)

// stubLLM returns canned responses and records the prompts it saw.
type stubLLM struct {
	responses []string
	err       error
	prompts   []string
}

func (s *stubLLM) Generate(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	if len(s.responses) == 0 {
		return "", errors.New("stub exhausted")
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func newOracle(llm *stubLLM) *LLMOracle {
	return NewLLMOracle(llm, config.Default().Stages)
}

func TestGenerate_TextStage(t *testing.T) {
	llm := &stubLLM{responses: []string{"  the master plot  "}}
	o := newOracle(llm)

	b := &model.Bundle{}
	b.Add(assemble.BlockPremise, "a premise")

	out, err := o.Generate(context.Background(), stage.Plot, b)
	require.NoError(t, err)
	assert.Equal(t, "the master plot", out.Text)

	// Prompt is the rendered bundle followed by the stage instruction.
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "[User Premise]\na premise")
}

func TestGenerate_ChapterMarkers(t *testing.T) {
	llm := &stubLLM{responses: []string{
		"[CHAPTER_PLOT]\nthe storm hits\n[CHAPTER_INTENT]\nset up the rescue",
	}}
	o := newOracle(llm)

	out, err := o.Generate(context.Background(), stage.Chapter, &model.Bundle{})
	require.NoError(t, err)
	assert.Equal(t, "the storm hits", out.Text)
	assert.Equal(t, "set up the rescue", out.Intent)
}

func TestGenerate_ChapterMarkersMissing(t *testing.T) {
	// A response ignoring the format is kept wholesale rather than dropped.
	llm := &stubLLM{responses: []string{"just prose, no markers"}}
	o := newOracle(llm)

	out, err := o.Generate(context.Background(), stage.Chapter, &model.Bundle{})
	require.NoError(t, err)
	assert.Equal(t, "just prose, no markers", out.Text)
	assert.NotEmpty(t, out.Intent)
}

func TestGenerate_ParagraphMarkers(t *testing.T) {
	llm := &stubLLM{responses: []string{
		"[PARAGRAPH]\nRain hammered the glass.\n[PARAGRAPH_INTENT]\nintroduce the visitor",
	}}
	o := newOracle(llm)

	out, err := o.Generate(context.Background(), stage.Paragraph, &model.Bundle{})
	require.NoError(t, err)
	assert.Equal(t, "Rain hammered the glass.", out.Text)
	assert.Equal(t, "introduce the visitor", out.Intent)
}

func TestGenerate_SectionJSON(t *testing.T) {
	llm := &stubLLM{responses: []string{
		"```json\n{\"section_plot\": \"the chase begins\", \"section_intent\": \"raise the stakes\"}\n```",
	}}
	o := newOracle(llm)

	out, err := o.Generate(context.Background(), stage.Section, &model.Bundle{})
	require.NoError(t, err)
	assert.Equal(t, "the chase begins", out.Text)
	assert.Equal(t, "raise the stakes", out.Intent)
}

func TestGenerate_SectionJSONMissingField(t *testing.T) {
	llm := &stubLLM{responses: []string{`{"section_plot": "the chase begins"}`}}
	o := newOracle(llm)

	_, err := o.Generate(context.Background(), stage.Section, &model.Bundle{})
	var schemaErr *model.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, stage.Section, schemaErr.Stage)
	assert.Contains(t, schemaErr.Reason, "section_intent")
}

func TestGenerate_SectionMalformedJSON(t *testing.T) {
	llm := &stubLLM{responses: []string{"not json at all"}}
	o := newOracle(llm)

	_, err := o.Generate(context.Background(), stage.Section, &model.Bundle{})
	var schemaErr *model.SchemaError
	assert.ErrorAs(t, err, &schemaErr)
}

func TestGenerate_Timeline(t *testing.T) {
	llm := &stubLLM{responses: []string{
		"Here is the timeline:\n```json\n{\"Alice\": {\"2023-05-15 14:30\": \"arrived at the tower\"}}\n```",
	}}
	o := newOracle(llm)

	out, err := o.Generate(context.Background(), stage.Timeline, &model.Bundle{})
	require.NoError(t, err)
	assert.Equal(t, "arrived at the tower", out.Timeline["Alice"]["2023-05-15 14:30"])
}

func TestGenerate_EmptyResponse(t *testing.T) {
	llm := &stubLLM{responses: []string{"   "}}
	o := newOracle(llm)

	_, err := o.Generate(context.Background(), stage.Plot, &model.Bundle{})
	var schemaErr *model.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "empty response", schemaErr.Reason)
}

func TestGenerate_LLMError(t *testing.T) {
	llm := &stubLLM{err: errors.New("rate limited")}
	o := newOracle(llm)

	_, err := o.Generate(context.Background(), stage.Plot, &model.Bundle{})
	assert.ErrorContains(t, err, "rate limited")
}

func TestGenerate_UnknownStage(t *testing.T) {
	o := newOracle(&stubLLM{})
	_, err := o.Generate(context.Background(), "epilogue", &model.Bundle{})
	assert.ErrorIs(t, err, model.ErrUnknownStage)
}

func TestGenerate_FinalChapterInstruction(t *testing.T) {
	llm := &stubLLM{responses: []string{"[CHAPTER_PLOT]\nend\n[CHAPTER_INTENT]\nnone"}}
	prompts := config.Default().Stages
	o := NewLLMOracle(llm, prompts)

	b := &model.Bundle{}
	b.Add(assemble.BlockFinalChapter, "This chapter concludes the story.")

	_, err := o.Generate(context.Background(), stage.Chapter, b)
	require.NoError(t, err)
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], prompts.FinalChapter)
}
