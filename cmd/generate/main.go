package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/keiya/multi-layered-story-generator/internal/config"
	"github.com/keiya/multi-layered-story-generator/internal/core"
	"github.com/keiya/multi-layered-story-generator/internal/core/oracle"
	"github.com/keiya/multi-layered-story-generator/internal/core/validate"
	"github.com/keiya/multi-layered-story-generator/internal/llm"
	"github.com/keiya/multi-layered-story-generator/internal/store"
)

// One-shot runner: generates a complete story into a file-backed store and
// prints it. Resumable with -resume after an interrupted run.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	var (
		cfgPath = flag.String("config", "config/config.toml", "path to config file")
		premise = flag.String("premise", "", "story premise (required)")
		resume  = flag.Bool("resume", false, "resume from existing artifacts")
		outDir  = flag.String("out", "output", "artifact directory")
	)
	flag.Parse()

	if *premise == "" {
		fmt.Fprintln(os.Stderr, "usage: generate -premise \"...\" [-resume] [-config path] [-out dir]")
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Printf("Could not load %s: %v. Using built-in defaults", *cfgPath, err)
		cfg = config.Default()
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	cfg.Pipeline.Resume = *resume

	llmClient, err := llm.NewClient(context.Background(), cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}

	st, err := store.NewFileStore(*outDir)
	if err != nil {
		log.Fatalf("Failed to open artifact store: %v", err)
	}

	pipeline := core.NewPipeline(
		st,
		oracle.NewLLMOracle(llmClient, cfg.Stages),
		validate.NewLLMRunner(llmClient, cfg.Filters),
		cfg.Pipeline,
	)

	text, err := pipeline.Run(context.Background(), *premise)
	if err != nil {
		log.Fatalf("Story generation failed: %v", err)
	}

	fmt.Println(text)
}
