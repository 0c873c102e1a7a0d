// Command textevo runs a text-evolution optimization from the command line.
// It scores genomes against the scenarios with a selectable metric (keyword
// coverage by default, token F1 or exact match against the expected maps)
// and uses an Anthropic-backed reflector to propose mutations; -dry-run
// swaps the reflector for a deterministic stub so the pipeline can be
// exercised without an API key.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/XiaoConstantine/textevo-go/pkg/config"
	"github.com/XiaoConstantine/textevo-go/pkg/core"
	"github.com/XiaoConstantine/textevo-go/pkg/llms"
	"github.com/XiaoConstantine/textevo-go/pkg/metrics"
	"github.com/XiaoConstantine/textevo-go/pkg/optimize"
	"github.com/XiaoConstantine/textevo-go/pkg/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "textevo.yaml", "Path to the configuration file")
	genomePath := flag.String("genome", "", "Path to the genome YAML (list of components)")
	scenarioPath := flag.String("scenarios", "", "Path to the scenario YAML (list of scenarios)")
	agent := flag.String("agent", "", "Agent name to store results under (empty: skip persistence)")
	metric := flag.String("metric", "keyword", "Scoring metric: keyword, f1 or exact")
	dryRun := flag.Bool("dry-run", false, "Use a deterministic stub reflector instead of the Anthropic API")
	flag.Parse()

	if *genomePath == "" || *scenarioPath == "" {
		return fmt.Errorf("both -genome and -scenarios are required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyLogging(); err != nil {
		return err
	}

	genome, err := loadGenome(*genomePath)
	if err != nil {
		return err
	}
	scenarios, err := loadScenarios(*scenarioPath)
	if err != nil {
		return err
	}

	evaluate, err := buildEvaluate(*metric)
	if err != nil {
		return err
	}
	reflect, err := buildReflect(cfg, *dryRun)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := optimize.Optimize(ctx, genome, scenarios, evaluate, reflect, cfg.Options()...)
	if err != nil {
		return err
	}

	printSummary(result)

	if *agent != "" {
		db, err := store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.SaveRun(ctx, *agent, result); err != nil {
			return err
		}
		fmt.Printf("saved results for agent %q to %s\n", *agent, cfg.Store.Path)
	}
	return nil
}

func loadGenome(path string) (*core.Genome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read genome file: %w", err)
	}
	var components []core.Component
	if err := yaml.Unmarshal(data, &components); err != nil {
		return nil, fmt.Errorf("failed to parse genome file: %w", err)
	}
	return core.NewGenome(components...)
}

func loadScenarios(path string) (core.ScenarioSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	var scenarios core.ScenarioSet
	if err := yaml.Unmarshal(data, &scenarios); err != nil {
		return nil, fmt.Errorf("failed to parse scenario file: %w", err)
	}
	return scenarios, scenarios.Validate()
}

// buildEvaluate selects the scoring callback. The f1 and exact metrics run
// the genome text itself against each scenario's expected map, which suits
// direct text optimization where no agent runtime is in the loop.
func buildEvaluate(metric string) (core.EvaluateFunc, error) {
	switch metric {
	case "keyword":
		return metrics.KeywordEvaluate(), nil
	case "f1":
		return metrics.F1Evaluate(metrics.GenomeTextRunner()), nil
	case "exact":
		return metrics.ExactMatchEvaluate(metrics.GenomeTextRunner()), nil
	default:
		return nil, fmt.Errorf("unknown metric %q (want keyword, f1 or exact)", metric)
	}
}

func buildReflect(cfg *config.Config, dryRun bool) (core.ReflectFunc, error) {
	if dryRun {
		// Appends the missing keywords named in the failure feedback, which
		// is exactly what the keyword metric needs to pass.
		return func(_ context.Context, _, text string, failures []core.EvaluationResult) (string, error) {
			additions := text
			for _, f := range failures {
				if rest, ok := strings.CutPrefix(f.Feedback, "missing keywords: "); ok {
					additions += " " + strings.ReplaceAll(rest, ",", "")
				}
			}
			return additions, nil
		}, nil
	}

	reflector, err := llms.NewReflector(llms.ReflectorConfig{
		APIKey:    cfg.Reflection.APIKey,
		Model:     cfg.Reflection.Model,
		MaxTokens: cfg.Reflection.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	return reflector.ReflectFunc(), nil
}

func printSummary(result *core.OptimizationResult) {
	fmt.Printf("run %s: %d metric calls, %.2fs\n",
		result.RunID, result.TotalCallsConsumed, result.ElapsedSeconds)

	names := make([]string, 0, len(result.PerPhase))
	for name := range result.PerPhase {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		pr := result.PerPhase[name]
		status := ""
		if pr.Degraded {
			status = " (degraded)"
		}
		fmt.Printf("  phase %-20s score=%.4f generations=%d calls=%d%s\n",
			name, pr.Score, pr.Generations, pr.CallsConsumed, status)
		if pr.BestGenome != nil {
			for _, c := range pr.BestGenome.Components() {
				fmt.Printf("    %s: %s\n", c.Name, c.Text)
			}
		}
	}
	if len(result.DegradedPhases) > 0 {
		fmt.Printf("degraded phases: %s\n", strings.Join(result.DegradedPhases, ", "))
	}
}
