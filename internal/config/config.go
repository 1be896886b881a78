package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type LLMConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
}

type StoreConfig struct {
	// Backend is one of "memory", "file", "graph".
	Backend  string `toml:"backend"`
	Dir      string `toml:"dir"`
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type PipelineConfig struct {
	Chapters             int `toml:"chapters"`
	SectionsPerChapter   int `toml:"sections_per_chapter"`
	ParagraphsPerSection int `toml:"paragraphs_per_section"`
	// ParagraphCounts overrides ParagraphsPerSection per section index when
	// non-empty; sections past its length fall back to the uniform count.
	ParagraphCounts []int `toml:"paragraph_counts"`
	// ValidationRetries is the regeneration budget applied per checkpoint.
	ValidationRetries int `toml:"validation_retries"`
	// OracleAttempts bounds transient oracle retries per step.
	OracleAttempts       int  `toml:"oracle_attempts"`
	OracleTimeoutSeconds int  `toml:"oracle_timeout_seconds"`
	RetryBackoffMillis   int  `toml:"retry_backoff_millis"`
	Resume               bool `toml:"resume"`
}

func (p PipelineConfig) OracleTimeout() time.Duration {
	return time.Duration(p.OracleTimeoutSeconds) * time.Second
}

func (p PipelineConfig) RetryBackoff() time.Duration {
	return time.Duration(p.RetryBackoffMillis) * time.Millisecond
}

// StagePrompts are the instruction texts appended to each stage's context
// bundle. The bundle itself is rendered uniformly; these only carry the task
// description and output format.
type StagePrompts struct {
	Plot         string `toml:"plot"`
	Backstory    string `toml:"backstory"`
	Characters   string `toml:"characters"`
	Chapter      string `toml:"chapter"`
	FinalChapter string `toml:"final_chapter"`
	Timeline     string `toml:"timeline"`
	Section      string `toml:"section"`
	Paragraph    string `toml:"paragraph"`
}

type FilterPrompts struct {
	BackstoryConsistency string `toml:"backstory_consistency"`
	ChapterCausalChain   string `toml:"chapter_causal_chain"`
	SectionCausalChain   string `toml:"section_causal_chain"`
	Style                string `toml:"style"`
}

type Config struct {
	LLM      LLMConfig      `toml:"llm"`
	Store    StoreConfig    `toml:"store"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Stages   StagePrompts   `toml:"stages"`
	Filters  FilterPrompts  `toml:"filters"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// Default returns a config with every prompt and pipeline knob populated.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills in every unset field so a partial config file (or none
// at all) still yields a runnable pipeline.
func (c *Config) ApplyDefaults() {
	if c.Store.Backend == "" {
		c.Store.Backend = "memory"
	}
	if c.Store.Dir == "" {
		c.Store.Dir = "output"
	}

	p := &c.Pipeline
	if p.Chapters == 0 {
		p.Chapters = 5
	}
	if p.SectionsPerChapter == 0 {
		p.SectionsPerChapter = 3
	}
	if p.ParagraphsPerSection == 0 {
		p.ParagraphsPerSection = 5
	}
	if p.ValidationRetries == 0 {
		p.ValidationRetries = 2
	}
	if p.OracleAttempts == 0 {
		p.OracleAttempts = 3
	}
	if p.OracleTimeoutSeconds == 0 {
		p.OracleTimeoutSeconds = 120
	}
	if p.RetryBackoffMillis == 0 {
		p.RetryBackoffMillis = 500
	}

	s := &c.Stages
	if s.Plot == "" {
		s.Plot = defaultPlotPrompt
	}
	if s.Backstory == "" {
		s.Backstory = defaultBackstoryPrompt
	}
	if s.Characters == "" {
		s.Characters = defaultCharactersPrompt
	}
	if s.Chapter == "" {
		s.Chapter = defaultChapterPrompt
	}
	if s.FinalChapter == "" {
		s.FinalChapter = defaultFinalChapterPrompt
	}
	if s.Timeline == "" {
		s.Timeline = defaultTimelinePrompt
	}
	if s.Section == "" {
		s.Section = defaultSectionPrompt
	}
	if s.Paragraph == "" {
		s.Paragraph = defaultParagraphPrompt
	}

	f := &c.Filters
	if f.BackstoryConsistency == "" {
		f.BackstoryConsistency = defaultBackstoryFilterPrompt
	}
	if f.ChapterCausalChain == "" {
		f.ChapterCausalChain = defaultChapterChainPrompt
	}
	if f.SectionCausalChain == "" {
		f.SectionCausalChain = defaultSectionChainPrompt
	}
	if f.Style == "" {
		f.Style = defaultStylePrompt
	}
}
