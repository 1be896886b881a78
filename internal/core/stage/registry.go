package stage

import (
	"fmt"

	"github.com/keiya/multi-layered-story-generator/internal/core/model"
)

// Stage names. These are the only values the registry, assembler and oracle
// accept.
const (
	Plot       = "plot"
	Backstory  = "backstory"
	Characters = "characters"
	Chapter    = "chapter"
	Timeline   = "timeline"
	Section    = "section"
	Paragraph  = "paragraph"
)

// Kind is the scope a stage's index lives in.
type Kind string

const (
	ScopeStory     Kind = "story"
	ScopeChapter   Kind = "chapter"
	ScopeSection   Kind = "section"
	ScopeParagraph Kind = "paragraph"
)

// Output describes the structural shape the oracle must return for a stage.
type Output string

const (
	OutputText       Output = "text"        // single text blob
	OutputPlotIntent Output = "plot_intent" // [PLOT]/[INTENT] marker pair
	OutputJSONPair   Output = "json_pair"   // {"plot": ..., "intent": ...} JSON
	OutputTimeline   Output = "timeline"    // character -> datetime -> event JSON
)

// Stage is one static stage definition: where its index lives, which scope
// change resets that index, and what shape it produces.
type Stage struct {
	Name string
	// Scope the stage iterates in.
	Scope Kind
	// IndexResetParent is the scope whose change resets this stage's local
	// index. Paragraph resets per chapter, not per section.
	IndexResetParent Kind
	Output           Output
}

var registry = map[string]Stage{
	Plot:       {Name: Plot, Scope: ScopeStory, IndexResetParent: "", Output: OutputText},
	Backstory:  {Name: Backstory, Scope: ScopeStory, IndexResetParent: "", Output: OutputText},
	Characters: {Name: Characters, Scope: ScopeStory, IndexResetParent: "", Output: OutputText},
	Chapter:    {Name: Chapter, Scope: ScopeChapter, IndexResetParent: ScopeStory, Output: OutputPlotIntent},
	Timeline:   {Name: Timeline, Scope: ScopeChapter, IndexResetParent: ScopeStory, Output: OutputTimeline},
	Section:    {Name: Section, Scope: ScopeSection, IndexResetParent: ScopeChapter, Output: OutputJSONPair},
	Paragraph:  {Name: Paragraph, Scope: ScopeParagraph, IndexResetParent: ScopeChapter, Output: OutputPlotIntent},
}

// Get looks up a stage definition by name.
func Get(name string) (Stage, error) {
	st, ok := registry[name]
	if !ok {
		return Stage{}, fmt.Errorf("%w: %q", model.ErrUnknownStage, name)
	}
	return st, nil
}
