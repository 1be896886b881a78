package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/keiya/multi-layered-story-generator/internal/config"
	"github.com/keiya/multi-layered-story-generator/internal/core"
	"github.com/keiya/multi-layered-story-generator/internal/core/oracle"
	"github.com/keiya/multi-layered-story-generator/internal/core/validate"
	"github.com/keiya/multi-layered-story-generator/internal/llm"
	"github.com/keiya/multi-layered-story-generator/internal/store"
)

// Run tracks one story generation in flight or finished.
type Run struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"` // running, done, failed
	Error     string    `json:"error,omitempty"`
	Text      string    `json:"-"`
	StartedAt time.Time `json:"started_at"`
}

type Server struct {
	cfg   *config.Config
	llm   llm.LLMClient
	store store.Store

	mu   sync.RWMutex
	runs map[string]*Run
}

func NewServer() *Server {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Printf("Could not load %s: %v. Using built-in defaults", cfgPath, err)
		cfg = config.Default()
	}

	applyEnvOverrides(cfg)

	llmClient, err := llm.NewClient(context.Background(), cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}

	st, err := openStore(cfg.Store)
	if err != nil {
		log.Fatalf("Failed to open artifact store: %v", err)
	}

	return &Server{
		cfg:   cfg,
		llm:   llmClient,
		store: st,
		runs:  make(map[string]*Run),
	}
}

func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("STORE_URI"); v != "" {
		cfg.Store.URI = v
	}

	// Default to Ollama when nothing is configured.
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "ollama"
		cfg.LLM.Model = "gpt-oss:latest"
		cfg.LLM.BaseURL = "http://localhost:11434"
	}
}

func openStore(cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case "file":
		return store.NewFileStore(cfg.Dir)
	case "graph":
		gs, err := store.NewGraphStore(cfg.URI, cfg.User, cfg.Password)
		if err != nil {
			return nil, err
		}
		if err := gs.BuildIndices(context.Background()); err != nil {
			return nil, err
		}
		return gs, nil
	default:
		return store.NewMemoryStore(), nil
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.POST("/stories", s.StartStory)
	r.GET("/stories/:id", s.StoryStatus)
	r.GET("/stories/:id/text", s.StoryText)

	return r
}

type StartStoryRequest struct {
	Premise              string `json:"premise" binding:"required"`
	Chapters             int    `json:"chapters"`
	SectionsPerChapter   int    `json:"sections_per_chapter"`
	ParagraphsPerSection int    `json:"paragraphs_per_section"`
	Resume               bool   `json:"resume"`
}

func (s *Server) StartStory(c *gin.Context) {
	var req StartStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	pipelineCfg := s.cfg.Pipeline
	if req.Chapters > 0 {
		pipelineCfg.Chapters = req.Chapters
	}
	if req.SectionsPerChapter > 0 {
		pipelineCfg.SectionsPerChapter = req.SectionsPerChapter
	}
	if req.ParagraphsPerSection > 0 {
		pipelineCfg.ParagraphsPerSection = req.ParagraphsPerSection
	}
	pipelineCfg.Resume = req.Resume

	id := uuid.New().String()
	run := &Run{ID: id, Status: "running", StartedAt: time.Now().UTC()}
	s.mu.Lock()
	s.runs[id] = run
	s.mu.Unlock()

	// One pipeline per story over its own namespace; instances share nothing
	// mutable, so they can run concurrently.
	storyStore := store.WithPrefix(s.store, "stories/"+id)
	pipeline := core.NewPipeline(
		storyStore,
		oracle.NewLLMOracle(s.llm, s.cfg.Stages),
		validate.NewLLMRunner(s.llm, s.cfg.Filters),
		pipelineCfg,
	)

	go func() {
		text, err := pipeline.Run(context.Background(), req.Premise)
		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			log.Printf("Story %s failed: %v", id, err)
			run.Status = "failed"
			run.Error = err.Error()
			return
		}
		run.Status = "done"
		run.Text = text
	}()

	c.JSON(http.StatusAccepted, gin.H{"id": id, "status": run.Status})
}

func (s *Server) StoryStatus(c *gin.Context) {
	s.mu.RLock()
	run, ok := s.runs[c.Param("id")]
	var snapshot Run
	if ok {
		snapshot = *run
	}
	s.mu.RUnlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown story"})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) StoryText(c *gin.Context) {
	s.mu.RLock()
	run, ok := s.runs[c.Param("id")]
	var snapshot Run
	if ok {
		snapshot = *run
	}
	s.mu.RUnlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown story"})
		return
	}
	if snapshot.Status != "done" {
		c.JSON(http.StatusConflict, gin.H{"error": "Story not finished", "status": snapshot.Status})
		return
	}
	c.String(http.StatusOK, snapshot.Text)
}
