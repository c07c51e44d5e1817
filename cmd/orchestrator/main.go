// Command orchestrator runs the scai migration orchestrator: the HTTP/WS API
// (§6), the chat/agent loop, and the migration workflow graph, wired over a
// PTY session layer. Ported from new-backend/main.py's FastAPI app wiring.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/scaiflow/orchestrator/pkg/api"
	"github.com/scaiflow/orchestrator/pkg/config"
	"github.com/scaiflow/orchestrator/pkg/llmclient"
	"github.com/scaiflow/orchestrator/pkg/migration"
	"github.com/scaiflow/orchestrator/pkg/ptyio"
	"github.com/scaiflow/orchestrator/pkg/scaicli"
	"github.com/scaiflow/orchestrator/pkg/streamreg"
	"github.com/scaiflow/orchestrator/pkg/supervisor"
	"github.com/scaiflow/orchestrator/pkg/upstream"
	"github.com/scaiflow/orchestrator/pkg/version"
	"github.com/scaiflow/orchestrator/pkg/workflow"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./config"), "path to configuration directory")
	addr := flag.String("addr", getEnv("HTTP_ADDR", ":8080"), "HTTP listen address")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("no .env file at %s, continuing with process environment", envPath)
	}

	ctx := context.Background()
	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	slog.Info("starting "+version.AppName, "commit", version.GitCommit, "addr", *addr)

	upstreamMgr := upstream.NewManager(cfg.SessionCookie.TTL)
	ptys := ptyio.NewRegistry()
	streams := streamreg.New()

	// The concrete upstream driver (Snowflake/Cortex) is deliberately out of
	// scope (§1 Non-goals). connFactory and the supervisor/healer LLM below
	// are backed by newDriverConn, the composition root's placeholder — swap
	// it for a real driver without touching any other package.
	connFactory := func(ctx context.Context, req api.ConnectRequest) (upstream.Conn, error) {
		return newDriverConn(req.Account, req.User), nil
	}

	workflowLLMConn := newDriverConn(cfg.Upstream.Account, cfg.Upstream.User)
	workflowModel := llmclient.ModelConfig{
		Model:          cfg.CortexModel,
		CortexFunction: cfg.CortexFunction,
	}
	workflowLLM := llmclient.New(workflowLLMConn, workflowModel)

	ignoredCodesPath := filepath.Join(*configDir, "ignored_report_codes.json")
	buildReportContext := func(c *migration.Context) migration.ReportContext {
		return migration.BuildReportContextMemory(c, ignoredCodesPath)
	}

	workflows := workflow.NewRunner(workflow.Dependencies{
		CLIRunner:          scaicli.NewExecRunner(""),
		SQLExecutor:        workflowLLMConn,
		Validator:          migration.NewLineCountValidator(),
		Healer:             migration.NewLLMHealer(workflowLLM),
		BuildReportContext: buildReportContext,
		Supervisor:         supervisor.New(workflowLLM),
		PTYRegistry:        ptys,
		ProjectsRoot:       getEnv("PROJECTS_ROOT", "./projects"),
		OutputsRoot:        getEnv("OUTPUTS_ROOT", "./outputs"),
	})

	server := api.NewServer(cfg, upstreamMgr, workflows, ptys, streams, connFactory)

	if err := server.Start(*addr); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
