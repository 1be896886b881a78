//go:build integration

package integration

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keiya/multi-layered-story-generator/internal/config"
	"github.com/keiya/multi-layered-story-generator/internal/core"
	"github.com/keiya/multi-layered-story-generator/internal/core/model"
	"github.com/keiya/multi-layered-story-generator/internal/core/oracle"
	"github.com/keiya/multi-layered-story-generator/internal/core/validate"
	"github.com/keiya/multi-layered-story-generator/internal/llm"
	"github.com/keiya/multi-layered-story-generator/internal/store"
)

func newLLMClient(t *testing.T) llm.LLMClient {
	t.Helper()
	_ = godotenv.Load("../../.env")

	provider := os.Getenv("LLM_PROVIDER")
	if provider == "" {
		t.Skip("Skipping integration test: LLM_PROVIDER not set")
	}
	modelName := os.Getenv("LLM_MODEL")
	if modelName == "" {
		modelName = "gpt-oss:latest"
	}
	baseURL := os.Getenv("OLLAMA_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	client, err := llm.NewClient(context.Background(), config.LLMConfig{
		Provider: provider,
		Model:    modelName,
		BaseURL:  baseURL,
		APIKey:   os.Getenv("LLM_API_KEY"),
	})
	require.NoError(t, err)
	return client
}

// TestFullStoryFlow runs the whole pipeline against a live model with a tiny
// shape (one chapter, one section, two paragraphs) and checks the artifacts
// it leaves behind.
func TestFullStoryFlow(t *testing.T) {
	client := newLLMClient(t)
	cfg := config.Default()
	cfg.Pipeline.Chapters = 1
	cfg.Pipeline.SectionsPerChapter = 1
	cfg.Pipeline.ParagraphsPerSection = 2

	ctx := context.Background()
	st := store.WithPrefix(store.NewMemoryStore(), "stories/"+uuid.New().String())
	p := core.NewPipeline(
		st,
		oracle.NewLLMOracle(client, cfg.Stages),
		validate.NewLLMRunner(client, cfg.Filters),
		cfg.Pipeline,
	)

	text, err := p.Run(ctx, "A lighthouse keeper discovers the light attracts something other than ships.")
	require.NoError(t, err)
	assert.NotEmpty(t, text)
	assert.Contains(t, text, "Chapter 1")

	for _, key := range []string{
		model.KeyMasterPlot,
		model.KeyBackstory,
		model.KeyCharacters,
		model.ChapterPlotKey(0),
		model.TimelineKey(0),
		model.SectionPlotKey(0, 0),
		model.ParagraphTextKey(0, 0),
		model.ParagraphTextKey(0, 1),
		model.KeyCompleteStory,
	} {
		ok, err := st.Exists(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok, key)
	}
}
