package main

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gentai",
	Short: "GentAI - Personal AI Assistant for Google Workspace",
	Long: `GentAI is a self-hosted personal assistant that answers questions and acts
on the user's Gmail, Calendar, Drive, Docs, and YouTube through model tool
calling, with durable conversation memory and a persistent task scheduler.`,
	Version: Version,
}

func init() {
	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(taskCmd)
}
