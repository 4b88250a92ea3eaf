package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/k11techlab/testsmith/generator"
	"github.com/k11techlab/testsmith/internal/fileutil"
	"github.com/k11techlab/testsmith/llm"
)

// =============================================================================
// 🧪 generate 命令
// =============================================================================

func runGenerate(args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	scenario := fs.String("scenario", "", "Scenario to turn into a test")
	pkg := fs.String("package", "", "Java package")
	class := fs.String("class", "", "Public class name")
	baseURL := fs.String("base-url", "", "Base URL mentioned in the prompt")
	promptFile := fs.String("prompt-file", "", "Style prompt file under generation.prompt_dir")
	out := fs.String("out", "", "Output file (default stdout)")
	fs.Parse(args)

	cfg := mustLoadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	client := llm.NewOpenAIClient(llm.ConfigFromSettings(cfg.LLM, logger), logger)
	gen := generator.New(client, generator.ConfigFromSettings(cfg.Generation), nil, logger)

	timeout := cfg.LLM.Timeout + cfg.LLM.Timeout/2
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	artifact, err := gen.Generate(ctx, generator.Request{
		Scenario:    *scenario,
		BaseURL:     *baseURL,
		PackageName: *pkg,
		ClassName:   *class,
		PromptFile:  *promptFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Generation failed: %v\n", err)
		os.Exit(1)
	}
	for _, w := range artifact.Warnings {
		logger.Warn("normalization warning", zap.String("warning", w))
	}

	if *out == "" {
		fmt.Println(artifact.Source)
		return
	}
	if err := fileutil.AtomicWriteString(*out, artifact.Source, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", *out, err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s to %s\n", artifact.QualifiedName(), *out)
}
