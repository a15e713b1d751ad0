package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/v0xg/webnav/internal/ai"
	"github.com/v0xg/webnav/internal/browser"
	"github.com/v0xg/webnav/internal/executor"
	"github.com/v0xg/webnav/internal/intent"
	"github.com/v0xg/webnav/internal/plan"
	"github.com/v0xg/webnav/internal/session"
	"github.com/v0xg/webnav/internal/sitemap"
)

var (
	site        string
	mapsDir     string
	sessionsDir string
	provider    string
	model       string
	maxPages    int
	drill       bool
	headless    bool
	verbose     bool
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "webnav <question>",
		Short: "Answer questions by navigating real websites",
		Long: `webnav interprets a natural-language question, compiles it into a
navigation plan against a known site, drives a real browser through the plan
and formats what it extracted into an answer.

Example:
  webnav "how many 3 bedroom houses are for sale in Takapuna?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: run,
	}

	rootCmd.Flags().StringVarP(&site, "site", "s", "", "Target site domain (default: inferred from the question)")
	rootCmd.Flags().StringVar(&mapsDir, "maps", "maps", "Directory of site navigation map files")
	rootCmd.Flags().StringVar(&sessionsDir, "sessions", "sessions", "Directory of captured session files")
	rootCmd.Flags().StringVar(&provider, "provider", "", "AI provider: claude, openai (default: from env or claude)")
	rootCmd.Flags().StringVar(&model, "model", "", "Specific model override")
	rootCmd.Flags().IntVar(&maxPages, "max-pages", 0, "Override how many result pages to aggregate")
	rootCmd.Flags().BoolVar(&drill, "drill", false, "Visit detail pages to enrich list results")
	rootCmd.Flags().BoolVar(&headless, "headless", true, "Run the browser headless")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show the full step audit trail")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	ctx := context.Background()

	maps, err := sitemap.LoadDir(mapsDir)
	if err != nil {
		return fmt.Errorf("load navigation maps: %w", err)
	}
	if len(maps.All()) == 0 {
		return fmt.Errorf("no navigation maps found in %s", mapsDir)
	}

	vault, err := session.NewFileVault(sessionsDir)
	if err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}

	// Determine AI provider; an unusable provider is not fatal because the
	// parser falls back to its keyword heuristic.
	selectedProvider := provider
	if selectedProvider == "" {
		selectedProvider = os.Getenv("WEBNAV_DEFAULT_PROVIDER")
		if selectedProvider == "" {
			selectedProvider = "claude"
		}
	}
	var aiProvider ai.Provider
	if p, err := ai.NewProvider(selectedProvider, model); err == nil {
		aiProvider = p
	} else {
		logVerbose("AI provider unavailable (%v), using keyword heuristic", err)
	}

	// Step 1: Interpret the question
	fmt.Printf("→ Interpreting question... ")
	it := intent.New(aiProvider, maps).Parse(ctx, question)
	fmt.Printf("done (%s, confidence %.2f)\n", it.Action, it.Confidence)
	logVerbose("  Intent: action=%s site=%s location=%q address=%q",
		it.Action, it.TargetSite, it.Parameters.Location, it.Parameters.Address)

	if maxPages > 0 {
		it.Parameters.MaxPages = maxPages
	}
	if drill {
		it.Parameters.DrillDown = true
	}

	// Step 2: Compile the navigation plan
	fmt.Printf("→ Compiling plan... ")
	p, err := plan.NewCompiler(maps).Compile(it, site)
	if err != nil {
		fmt.Println("failed")
		return fmt.Errorf("plan compilation failed: %w", err)
	}
	fmt.Printf("done (%d steps on %s)\n", len(p.Steps), p.Domain)
	logSteps(p.Steps)

	// Step 3: Execute against a live browser
	pool := browser.NewRodPool(headless)
	defer pool.Close()

	fmt.Println("→ Navigating...")
	result := executor.New(pool, vault, maps).Run(ctx, p)

	if verbose {
		logTrail(result.Steps)
	}

	if !result.Success {
		return fmt.Errorf("run %s failed: %s", result.RunID, result.Err)
	}

	fmt.Println()
	fmt.Println(result.Answer)
	return nil
}

// logSteps prints the compiled plan
func logSteps(steps []plan.Step) {
	if !verbose {
		return
	}
	for i, step := range steps {
		fmt.Printf("  [%d] %s\n", i+1, step.Describe())
	}
}

// logTrail prints the per-step audit trail after a run
func logTrail(trail []executor.StepResult) {
	for _, sr := range trail {
		status := "ok"
		if !sr.Success {
			status = "FAILED: " + sr.Error
		}
		detail := sr.Detail
		if sr.Result != "" {
			detail += " (" + sr.Result + ")"
		}
		fmt.Printf("  [%d] %s: %s\n", sr.Index+1, detail, status)
	}
}

func logVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(format+"\n", args...)
	}
}
