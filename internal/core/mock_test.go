package core

import (
	"context"
	"fmt"

	"github.com/keiya/multi-layered-story-generator/internal/core/model"
	"github.com/keiya/multi-layered-story-generator/internal/core/oracle"
	"github.com/keiya/multi-layered-story-generator/internal/core/stage"
	"github.com/keiya/multi-layered-story-generator/internal/core/validate"
)

type oracleCall struct {
	Stage  string
	Bundle *model.Bundle
}

// MockOracle produces deterministic per-stage outputs, numbered by how many
// times the stage has been called, so regeneration shows up as a new number.
// Hook, when set, runs before every generation and can inject failures.
type MockOracle struct {
	counts map[string]int
	Calls  []oracleCall
	Hook   func(stageName string, bundle *model.Bundle, nth int) error
}

func NewMockOracle() *MockOracle {
	return &MockOracle{counts: make(map[string]int)}
}

func (m *MockOracle) Generate(ctx context.Context, stageName string, bundle *model.Bundle) (*oracle.Output, error) {
	m.counts[stageName]++
	k := m.counts[stageName]
	m.Calls = append(m.Calls, oracleCall{Stage: stageName, Bundle: bundle})

	if m.Hook != nil {
		if err := m.Hook(stageName, bundle, k); err != nil {
			return nil, err
		}
	}

	switch stageName {
	case stage.Plot:
		return &oracle.Output{Text: "the master plot"}, nil
	case stage.Backstory:
		return &oracle.Output{Text: "the backstories"}, nil
	case stage.Characters:
		return &oracle.Output{Text: "the characters"}, nil
	case stage.Chapter:
		return &oracle.Output{
			Text:   fmt.Sprintf("chapter plot %d", k),
			Intent: fmt.Sprintf("chapter intent %d", k),
		}, nil
	case stage.Timeline:
		return &oracle.Output{Timeline: model.Timeline{
			fmt.Sprintf("Character %d", k): {
				fmt.Sprintf("2023-05-%02d 10:00", k): fmt.Sprintf("event %d", k),
			},
		}}, nil
	case stage.Section:
		return &oracle.Output{
			Text:   fmt.Sprintf("section plot %d", k),
			Intent: fmt.Sprintf("section intent %d", k),
		}, nil
	case stage.Paragraph:
		return &oracle.Output{
			Text:   fmt.Sprintf("paragraph %d", k),
			Intent: fmt.Sprintf("paragraph intent %d", k),
		}, nil
	}
	return nil, fmt.Errorf("mock oracle: unknown stage %q", stageName)
}

func (m *MockOracle) StageCalls(stageName string) int {
	return m.counts[stageName]
}

func (m *MockOracle) BundlesFor(stageName string) []*model.Bundle {
	var bundles []*model.Bundle
	for _, c := range m.Calls {
		if c.Stage == stageName {
			bundles = append(bundles, c.Bundle)
		}
	}
	return bundles
}

type validateCall struct {
	Kind    validate.Kind
	Bundle  *model.Bundle
	Subject string
}

// MockValidator pops queued results per filter kind, falls back to the
// kind's default, and passes when neither is set.
type MockValidator struct {
	Queue    map[validate.Kind][]*validate.Result
	Defaults map[validate.Kind]*validate.Result
	Calls    []validateCall
	Err      error
}

func NewMockValidator() *MockValidator {
	return &MockValidator{
		Queue:    make(map[validate.Kind][]*validate.Result),
		Defaults: make(map[validate.Kind]*validate.Result),
	}
}

func (m *MockValidator) Validate(ctx context.Context, kind validate.Kind, bundle *model.Bundle, subject string) (*validate.Result, error) {
	m.Calls = append(m.Calls, validateCall{Kind: kind, Bundle: bundle, Subject: subject})
	if m.Err != nil {
		return nil, m.Err
	}
	if q := m.Queue[kind]; len(q) > 0 {
		res := q[0]
		m.Queue[kind] = q[1:]
		return res, nil
	}
	if res, ok := m.Defaults[kind]; ok {
		return res, nil
	}
	return &validate.Result{Passed: true}, nil
}

func (m *MockValidator) KindCalls(kind validate.Kind) int {
	count := 0
	for _, c := range m.Calls {
		if c.Kind == kind {
			count++
		}
	}
	return count
}

func pass() *validate.Result {
	return &validate.Result{Passed: true}
}

func fail(feedback string) *validate.Result {
	return &validate.Result{Passed: false, Feedback: feedback}
}
