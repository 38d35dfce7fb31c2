package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/udaysagarm/GentAI/internal/config"
	"github.com/udaysagarm/GentAI/internal/logger"
	"github.com/udaysagarm/GentAI/internal/scheduler"
)

var taskConfigPath string

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage scheduled tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add <trigger-type> <time-value> <description>",
	Short: "Add a scheduled task",
	Long: `Add a scheduled task directly to the task store.

Examples:
  gentai task add date "2026-01-02 15:00:00" "Wish Sam a happy birthday by email"
  gentai task add interval "hours=2" "Check the inbox for urgent emails"
  gentai task add cron "hour=8,minute=30" "Summarize today's calendar"`,
	Args: cobra.ExactArgs(3),
	Run:  runTaskAdd,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all scheduled tasks",
	Run:   runTaskList,
}

var taskCancelCmd = &cobra.Command{
	Use:   "cancel <task-id>",
	Short: "Cancel a scheduled task",
	Args:  cobra.ExactArgs(1),
	Run:   runTaskCancel,
}

func init() {
	taskCmd.PersistentFlags().StringVarP(&taskConfigPath, "config", "c", "", "path to config file (default ./config.toml)")
	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskCancelCmd)
}

// openEngine loads the task store referenced by the configuration. The
// returned engine is never started; these commands only mutate the store.
func openEngine() (*scheduler.Engine, func(), error) {
	configPath := taskConfigPath
	if configPath == "" {
		configPath = defaultConfigPath
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(logger.Config{Level: "warn", Format: "text", Output: "stderr"})
	if err != nil {
		return nil, nil, err
	}

	store, err := scheduler.OpenStore(filepath.Join(cfg.Workspace.Path, "tasks.db"))
	if err != nil {
		return nil, nil, err
	}

	engine := scheduler.New(store, nil, log, nil, scheduler.Config{
		MaxTasks: cfg.Scheduler.MaxTaskCount,
	})
	if err := engine.Load(context.Background()); err != nil {
		store.Close()
		return nil, nil, err
	}

	return engine, func() { store.Close() }, nil
}

func runTaskAdd(cmd *cobra.Command, args []string) {
	triggerType, timeValue, description := args[0], args[1], args[2]

	engine, closeStore, err := openEngine()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()

	id, err := engine.Schedule(context.Background(), description, triggerType, timeValue)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Task added.")
	fmt.Printf("  ID:          %s\n", id)
	fmt.Printf("  Trigger:     %s(%s)\n", triggerType, timeValue)
	fmt.Printf("  Description: %s\n", description)
}

func runTaskList(cmd *cobra.Command, args []string) {
	engine, closeStore, err := openEngine()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()

	tasks := engine.List()
	if len(tasks) == 0 {
		fmt.Println("No scheduled tasks.")
		return
	}

	fmt.Printf("%d scheduled task(s):\n", len(tasks))
	for _, t := range tasks {
		fmt.Printf("  %s\n", t.ID)
		fmt.Printf("    Description: %s\n", t.Description)
		fmt.Printf("    Trigger:     %s\n", t.Trigger)
		fmt.Printf("    Next run:    %s\n", t.NextRun.Format(time.RFC3339))
	}
}

func runTaskCancel(cmd *cobra.Command, args []string) {
	engine, closeStore, err := openEngine()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()

	if err := engine.Cancel(context.Background(), args[0]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Task %s cancelled.\n", args[0])
}
