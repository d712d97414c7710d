package main

import (
	"fmt"
	"os"

	"github.com/paperbase-ai/paperbase/internal/cli"
	"github.com/paperbase-ai/paperbase/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "paperbase",
		Short: "Paperbase CLI - PDF ingestion and grounded generation",
		Long: `Paperbase CLI provides commands to upload PDFs, ask questions about them,
and generate grounded content.

Environment variables:
  PAPERBASE_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.UploadCmd())
	rootCmd.AddCommand(client.ListCmd())
	rootCmd.AddCommand(client.GetCmd())
	rootCmd.AddCommand(client.DeleteCmd())
	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.GenerateCmd())
	rootCmd.AddCommand(client.UsageCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
