package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/infofinder/internal/cli"
	"github.com/cloo-solutions/infofinder/internal/cli/client"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "infofinder",
		Short: "Infofinder client",
		Long:  "Command line client for the infofinder hybrid retrieval API",
	}

	rootCmd.PersistentFlags().BoolP("output", "o", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API server URL (defaults to INFOFINDER_API_URL or http://localhost:8080)")

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.AddCmd())
	rootCmd.AddCommand(client.DeleteCmd())
	rootCmd.AddCommand(client.HealthCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
