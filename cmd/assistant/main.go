// Command assistant runs personal-productivity workflows: a named routine
// from the library, or a JSON workflow request read from a file or stdin.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"assistant/pkg/agent"
	"assistant/pkg/bus"
	"assistant/pkg/config"
	"assistant/pkg/llm"
	"assistant/pkg/logx"
	"assistant/pkg/metrics"
	"assistant/pkg/persistence"
	"assistant/pkg/routine"
	"assistant/pkg/workflow"
)

// Version information - set via ldflags.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	var (
		configDir    = flag.String("config", ".", "Directory holding the config and secrets files")
		actorID      = flag.String("actor", "default", "Actor (user) ID to run workflows for")
		routineName  = flag.String("routine", "", "Named routine to execute")
		requestFile  = flag.String("request", "", "JSON workflow request file ('-' for stdin)")
		paramsJSON   = flag.String("params", "", "JSON overrides for routine steps, keyed by agent.action")
		listRoutines = flag.Bool("list-routines", false, "List available routines and exit")
		showMetrics  = flag.Bool("metrics", false, "Query Prometheus for per-agent step metrics and exit")
		initSecrets  = flag.Bool("init-secrets", false, "Create or update the encrypted secrets file and exit")
		showVersion  = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("assistant %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		os.Exit(0)
	}

	os.Exit(run(*configDir, *actorID, *routineName, *requestFile, *paramsJSON, *listRoutines, *initSecrets, *showMetrics))
}

// run holds the main logic so defers execute before exit.
func run(configDir, actorID, routineName, requestFile, paramsJSON string, listRoutines, initSecrets, showMetrics bool) int {
	logger := logx.NewLogger("assistant")

	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	if initSecrets {
		if err := runInitSecrets(configDir); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize secrets: %v\n", err)
			return 1
		}
		fmt.Println("Secrets file written.")
		return 0
	}

	if showMetrics {
		if err := printAgentMetrics(cfg.PrometheusURL); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to query metrics: %v\n", err)
			return 1
		}
		return 0
	}

	db, err := persistence.InitializeDatabase(cfg.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		return 1
	}
	defer func() { _ = db.Close() }()
	store := persistence.NewDatabaseOperations(db)

	apiKey, err := resolveAPIKey(configDir, cfg.Provider)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	client, err := llm.NewClient(cfg, apiKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create LLM client: %v\n", err)
		return 1
	}
	logger.Info("provider %s, model %s", cfg.Provider, client.ModelName())

	recorder := metrics.NewRecorder()

	events := bus.New(recorder)
	defer events.Close()

	registry := agent.NewRegistry(
		agent.NewTaskAgent(store, client, events),
		agent.NewCalendarAgent(store, client, events, cfg.WorkdayStartHour, cfg.WorkdayEndHour),
		agent.NewEmailAgent(store, client, events),
		agent.NewNoteAgent(store, events),
		agent.NewAnalyticsAgent(store, client, events),
		agent.NewPriorityAgent(store, client),
	)

	orchestrator := workflow.NewOrchestrator(
		registry,
		agent.NewRunner(store),
		recorder,
		time.Duration(cfg.StepTimeoutSecs)*time.Second,
	)

	library := routine.NewLibrary(orchestrator)
	if cfg.RoutinesPath != "" {
		if err := library.LoadYAML(cfg.RoutinesPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load custom routines: %v\n", err)
			return 1
		}
	}

	if listRoutines {
		for _, name := range library.Names() {
			r, _ := library.Get(name)
			fmt.Printf("%-20s %s\n", name, r.Description)
		}
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var result any
	switch {
	case routineName != "":
		overrides, err := parseOverrides(paramsJSON)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -params: %v\n", err)
			return 1
		}
		result, err = library.Execute(ctx, actorID, routineName, overrides)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Routine failed: %v\n", err)
			return 1
		}
	case requestFile != "":
		req, err := readRequest(requestFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
		result, err = orchestrator.Execute(ctx, actorID, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Workflow failed: %v\n", err)
			return 1
		}
	default:
		fmt.Fprintln(os.Stderr, "Nothing to do: pass -routine, -request or -list-routines")
		return 2
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render result: %v\n", err)
		return 1
	}
	fmt.Println(string(out))
	return 0
}

func printAgentMetrics(prometheusURL string) error {
	if prometheusURL == "" {
		return fmt.Errorf("prometheus_url is not configured")
	}
	svc, err := metrics.NewQueryService(prometheusURL)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	all, err := svc.GetAllAgentMetrics(ctx)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func readRequest(path string) (*workflow.Request, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read request: %w", err)
	}
	return workflow.DecodeRequest(data)
}

func parseOverrides(paramsJSON string) (map[string]map[string]any, error) {
	if strings.TrimSpace(paramsJSON) == "" {
		return nil, nil
	}
	var overrides map[string]map[string]any
	if err := json.Unmarshal([]byte(paramsJSON), &overrides); err != nil {
		return nil, err
	}
	return overrides, nil
}
