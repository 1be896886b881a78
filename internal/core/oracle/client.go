package oracle

import (
	"context"

	"github.com/keiya/multi-layered-story-generator/internal/core/model"
)

// Output is one parsed stage artifact. Text is always set; Intent only for
// the plot/intent stages; Timeline only for the timeline stage.
type Output struct {
	Text     string
	Intent   string
	Timeline model.Timeline
}

// Client is the external text-generation oracle. Implementations must be
// treated as black boxes: no determinism assumed, latency unbounded. The
// orchestrator owns retries.
type Client interface {
	Generate(ctx context.Context, stageName string, bundle *model.Bundle) (*Output, error)
}
