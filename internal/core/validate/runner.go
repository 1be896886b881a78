package validate

import (
	"context"

	"github.com/keiya/multi-layered-story-generator/internal/core/model"
)

// Kind names the four validation filters.
type Kind string

const (
	// KindBackstory checks one plot/intent pair against the story-wide
	// artifacts. Never triggers range regeneration beyond its subject.
	KindBackstory Kind = "backstory"
	// KindChapterChain checks the causal chain over all chapter plots.
	// Failing it regenerates every chapter.
	KindChapterChain Kind = "chapter-chain"
	// KindSectionChain checks the causal chain over one chapter's sections.
	// Failing it regenerates that chapter's sections.
	KindSectionChain Kind = "section-chain"
	// KindStyle polishes one paragraph in place. No regeneration loop.
	KindStyle Kind = "style"
)

// Result is the outcome of one filter run. Feedback is corrective text: for
// most filters the problem description, for the style filter the corrected
// paragraph itself.
type Result struct {
	Passed   bool
	Feedback string
}

// Runner is the external validation filter invoker.
type Runner interface {
	Validate(ctx context.Context, kind Kind, bundle *model.Bundle, subject string) (*Result, error)
}
