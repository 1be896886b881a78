package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/keiya/multi-layered-story-generator/internal/config"
	"github.com/keiya/multi-layered-story-generator/internal/core/model"
	"github.com/keiya/multi-layered-story-generator/internal/llm"
)

// LLMRunner runs each filter as one model call. Filters reply OK when the
// subject passes; any other reply is the corrective feedback.
type LLMRunner struct {
	llm     llm.LLMClient
	prompts config.FilterPrompts
}

func NewLLMRunner(client llm.LLMClient, prompts config.FilterPrompts) *LLMRunner {
	return &LLMRunner{llm: client, prompts: prompts}
}

func (r *LLMRunner) Validate(ctx context.Context, kind Kind, bundle *model.Bundle, subject string) (*Result, error) {
	instruction, err := r.instruction(kind)
	if err != nil {
		return nil, err
	}

	prompt := bundle.Render() + fmt.Sprintf("[Subject]\n%s\n\n", subject) + instruction

	response, err := r.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("filter %s failed: %w", kind, err)
	}

	trimmed := strings.TrimSpace(response)
	if strings.Contains(trimmed, "OK") {
		return &Result{Passed: true}, nil
	}
	return &Result{Passed: false, Feedback: trimmed}, nil
}

func (r *LLMRunner) instruction(kind Kind) (string, error) {
	switch kind {
	case KindBackstory:
		return r.prompts.BackstoryConsistency, nil
	case KindChapterChain:
		return r.prompts.ChapterCausalChain, nil
	case KindSectionChain:
		return r.prompts.SectionCausalChain, nil
	case KindStyle:
		return r.prompts.Style, nil
	}
	return "", fmt.Errorf("unknown filter kind: %s", kind)
}
