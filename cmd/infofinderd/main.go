package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/infofinder/internal/cli"
	"github.com/cloo-solutions/infofinder/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "infofinderd",
		Short: "Infofinder daemon",
		Long:  "Infofinder daemon for running the hybrid retrieval API server",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
