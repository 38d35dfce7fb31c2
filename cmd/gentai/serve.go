package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/udaysagarm/GentAI/internal/agent"
	"github.com/udaysagarm/GentAI/internal/config"
	"github.com/udaysagarm/GentAI/internal/gapi"
	"github.com/udaysagarm/GentAI/internal/llm"
	"github.com/udaysagarm/GentAI/internal/logger"
	"github.com/udaysagarm/GentAI/internal/memory"
	"github.com/udaysagarm/GentAI/internal/metrics"
	"github.com/udaysagarm/GentAI/internal/retry"
	"github.com/udaysagarm/GentAI/internal/router"
	"github.com/udaysagarm/GentAI/internal/scheduler"
	"github.com/udaysagarm/GentAI/internal/tools"
)

var (
	serveConfigPath string
	serveLogLevel   string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the GentAI assistant (main command)",
	Long: `Start the GentAI assistant with the specified configuration.
This initializes the model provider, tool registry, conversation memory and
task scheduler, then reads user requests from stdin until EOF or a shutdown
signal. The serve command is the main entry point for running GentAI.`,
	Run: serveHandler,
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "path to config file (default ./config.toml)")
	serveCmd.Flags().StringVarP(&serveLogLevel, "log-level", "l", "", "override logging level")
}

func serveHandler(cmd *cobra.Command, args []string) {
	if err := config.LoadEnvOptional("./.env"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load .env file: %v\n", err)
		os.Exit(1)
	}

	configPath := serveConfigPath
	if configPath == "" {
		configPath = defaultConfigPath
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if serveLogLevel != "" {
		cfg.Logging.Level = serveLogLevel
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		fmt.Fprintln(os.Stderr, "Configuration validation failed:")
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "  - %v\n", e)
		}
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	log.Info("Starting GentAI",
		logger.Field{Key: "version", Value: Version},
		logger.Field{Key: "git_commit", Value: GitCommit},
		logger.Field{Key: "config", Value: configPath},
		logger.Field{Key: "workspace", Value: cfg.Workspace.Path},
		logger.Field{Key: "llm_provider", Value: cfg.LLM.Provider})

	if err := os.MkdirAll(cfg.Workspace.Path, 0o755); err != nil {
		log.Error("Failed to create workspace directory", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Conversation memory.
	memStore, err := memory.Open(filepath.Join(cfg.Workspace.Path, "memory.db"))
	if err != nil {
		log.Error("Failed to open conversation memory", err)
		os.Exit(1)
	}
	defer memStore.Close()

	// Task store.
	taskStore, err := scheduler.OpenStore(filepath.Join(cfg.Workspace.Path, "tasks.db"))
	if err != nil {
		log.Error("Failed to open task store", err)
		os.Exit(1)
	}
	defer taskStore.Close()

	// Model provider.
	provider := buildProvider(cfg, log)

	// Metrics.
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		srv := &http.Server{Addr: cfg.Metrics.Listen, Handler: m.Handler()}
		go func() {
			log.Info("Metrics endpoint listening", logger.Field{Key: "addr", Value: cfg.Metrics.Listen})
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("Metrics endpoint failed", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// Scheduler engine; the dispatcher is wired after the agent exists.
	engine := scheduler.New(taskStore, nil, log, m, scheduler.Config{
		Tick:        time.Duration(cfg.Scheduler.TickSeconds) * time.Second,
		FireTimeout: time.Duration(cfg.Scheduler.FireTimeout) * time.Second,
		MaxTasks:    cfg.Scheduler.MaxTaskCount,
	})

	// Tool registry.
	registry := tools.NewRegistry()
	models := router.Models{
		Fast:          cfg.Router.FastModel,
		Capable:       cfg.Router.CapableModel,
		CapableSearch: cfg.Router.CapableSearchModel,
	}
	registerTools(cfg, registry, engine, provider, models, log)
	log.Info("Tool registry loaded", logger.Field{Key: "tools", Value: registry.Len()})

	// Agent.
	a := agent.New(provider, registry, memStore, models, log, m, agent.Config{
		MaxToolIterations: cfg.Agent.MaxToolIterations,
		ContextTurns:      cfg.Agent.ContextTurns,
		MaxTokens:         cfg.Agent.MaxTokens,
		Temperature:       cfg.Agent.Temperature,
		Retry:             retry.Policy{MaxAttempts: cfg.Agent.RetryMaxAttempts},
	})

	engine.SetDispatcher(a)
	if err := engine.Load(ctx); err != nil {
		log.Error("Failed to load task store", err)
		os.Exit(1)
	}
	if cfg.Scheduler.Enabled {
		engine.Start(ctx)
	} else {
		log.Warn("Scheduler is disabled; persisted tasks will not fire")
	}

	log.Info("GentAI is running")

	// Read user requests from stdin until EOF.
	done := make(chan struct{})
	go func() {
		defer close(done)
		runREPL(ctx, a)
	}()

	select {
	case sig := <-sigChan:
		log.Info("Received shutdown signal", logger.Field{Key: "signal", Value: sig.String()})
	case <-done:
		log.Info("Input closed")
	}

	log.Info("Shutting down GentAI...")
	// Drain the engine before cancelling the serve context: fire contexts
	// derive from it, and an in-flight dispatch must complete, not abort.
	engine.Stop()
	cancel()
	log.Info("Shutdown complete")
}

// runREPL reads one request per line and prints the assistant's reply.
func runREPL(ctx context.Context, a *agent.Agent) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Print("> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Print("> ")
			continue
		}
		if line == "exit" || line == "quit" {
			return
		}

		reply, err := a.Handle(ctx, line)
		if err != nil {
			fmt.Printf("error: %v\n", err)
		} else {
			fmt.Println(reply)
		}
		fmt.Print("> ")
	}
}

// buildProvider creates the configured model provider.
func buildProvider(cfg *config.Config, log *logger.Logger) llm.Provider {
	switch cfg.LLM.Provider {
	case "openai":
		return llm.NewOpenAIProvider(llm.OpenAIConfig{
			APIKey:  cfg.LLM.OpenAI.APIKey,
			BaseURL: cfg.LLM.OpenAI.BaseURL,
			Model:   cfg.LLM.OpenAI.Model,
		}, log)
	default:
		return llm.NewGeminiProvider(llm.GeminiConfig{
			APIKey:         cfg.LLM.Gemini.APIKey,
			Model:          cfg.Router.CapableModel,
			TimeoutSeconds: cfg.LLM.Gemini.TimeoutSeconds,
		}, log)
	}
}

// registerTools binds the enabled capability adapters into the registry.
// The callable surface is configuration, not code.
func registerTools(cfg *config.Config, registry *tools.Registry, engine *scheduler.Engine, provider llm.Provider, models router.Models, log *logger.Logger) {
	google := gapi.New(cfg.Google.AccessToken, log)

	available := map[string]tools.Tool{
		"schedule_task":         tools.NewScheduleTaskTool(engine),
		"list_scheduled_tasks":  tools.NewListTasksTool(engine),
		"cancel_scheduled_task": tools.NewCancelTaskTool(engine),
		"send_gmail_message":    tools.NewSendGmailTool(google, log),
		"create_gmail_draft":    tools.NewDraftGmailTool(google, log),
		"read_recent_emails":    tools.NewReadRecentEmailsTool(google),
		"read_email_content":    tools.NewReadEmailContentTool(google),
		"list_upcoming_events":  tools.NewListEventsTool(google),
		"create_calendar_event": tools.NewCreateEventTool(google, log),
		"search_drive_files":    tools.NewSearchDriveTool(google),
		"read_google_doc":       tools.NewReadDocTool(google),
		"append_to_google_doc":  tools.NewAppendDocTool(google, log),
		"search_youtube_videos": tools.NewSearchYouTubeTool(google),
		"google_search":         tools.NewGoogleSearchTool(provider, models.CapableSearch),
		"fetch_webpage":         tools.NewFetchWebpageTool(),
		"current_datetime":      tools.NewClockTool(),
	}

	for _, name := range cfg.Tools.Enabled {
		tool, ok := available[name]
		if !ok {
			log.Warn("Unknown tool in configuration", logger.Field{Key: "tool", Value: name})
			continue
		}
		if err := registry.Register(tool); err != nil {
			log.Error("Failed to register tool", err, logger.Field{Key: "tool", Value: name})
		}
	}
}
