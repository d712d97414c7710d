package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// GenerateResult represents the response of a single generation.
type GenerateResult struct {
	DocumentID string  `json:"document_id"`
	Result     *Answer `json:"result"`
}

// BulkRowResult represents one row's outcome in a bulk run.
type BulkRowResult struct {
	Row    int     `json:"row"`
	Result *Answer `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// BulkResult represents the response of a bulk generation.
type BulkResult struct {
	DocumentID string          `json:"document_id"`
	Results    []BulkRowResult `json:"results"`
	Failed     int             `json:"failed"`
}

type bulkRowInput struct {
	Activity   string `json:"activity"`
	Definition string `json:"definition,omitempty"`
}

// GenerateCmd creates the generate command with its bulk subcommand.
func GenerateCmd() *cobra.Command {
	var documentID string
	var filePath string
	var activity string
	var definition string
	var modelID string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate content grounded in a document",
		Long:  "Generates content for an activity using context retrieved from a document. The document comes from --document-id or a PDF passed with --file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runGenerate(cmd, documentID, filePath, activity, definition, modelID, outputJSON)
		},
	}

	cmd.Flags().StringVar(&documentID, "document-id", "", "Use an already uploaded document")
	cmd.Flags().StringVar(&filePath, "file", "", "Upload this PDF and generate from it")
	cmd.Flags().StringVar(&activity, "activity", "", "Activity name (required)")
	cmd.Flags().StringVar(&definition, "definition", "", "Activity definition")
	cmd.Flags().StringVar(&modelID, "model", "", "Generation model to use")
	_ = cmd.MarkFlagRequired("activity")

	cmd.AddCommand(bulkGenerateCmd())

	return cmd
}

func runGenerate(cmd *cobra.Command, documentID, filePath, activity, definition, modelID string, outputJSON bool) error {
	if documentID == "" && filePath == "" {
		return fmt.Errorf("either --document-id or --file is required")
	}

	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	fields := map[string]string{
		"activity":   activity,
		"definition": definition,
		"model":      modelID,
	}

	var fileBytes []byte
	filename := ""
	if documentID != "" {
		fields["document_id"] = documentID
	} else {
		fileBytes, err = os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		filename = filepath.Base(filePath)
	}

	resp, err := api.PostMultipart("/generate", fields, "file", filename, fileBytes)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	var result GenerateResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Document: %s\n\n", result.DocumentID)
	fmt.Println(result.Result.Answer)
	fmt.Printf("\nModel: %s  Tokens: %d in / %d out  Cost: $%.6f\n",
		result.Result.Model, result.Result.InputTokens, result.Result.OutputTokens, result.Result.CostUSD)
	return nil
}

func bulkGenerateCmd() *cobra.Command {
	var rowsFile string
	var modelID string
	var queryLimit int

	cmd := &cobra.Command{
		Use:   "bulk <document_id>",
		Short: "Generate content for many rows against one document",
		Long:  "Reads a JSON array of {activity, definition} rows and generates content for each against the given document. Row failures are reported per row.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runBulkGenerate(cmd, args[0], rowsFile, modelID, queryLimit, outputJSON)
		},
	}

	cmd.Flags().StringVar(&rowsFile, "rows", "", "Path to a JSON file with the input rows (required)")
	cmd.Flags().StringVar(&modelID, "model", "", "Generation model to use")
	cmd.Flags().IntVar(&queryLimit, "query-limit", 0, "Process at most this many rows (0 = all)")
	_ = cmd.MarkFlagRequired("rows")

	return cmd
}

func runBulkGenerate(cmd *cobra.Command, documentID, rowsFile, modelID string, queryLimit int, outputJSON bool) error {
	rowsData, err := os.ReadFile(rowsFile)
	if err != nil {
		return fmt.Errorf("failed to read rows file: %w", err)
	}

	var rows []bulkRowInput
	if err := json.Unmarshal(rowsData, &rows); err != nil {
		return fmt.Errorf("failed to parse rows file: %w", err)
	}

	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post(fmt.Sprintf("/documents/%s/generate/bulk", documentID), map[string]interface{}{
		"rows":        rows,
		"model":       modelID,
		"query_limit": queryLimit,
	})
	if err != nil {
		return fmt.Errorf("bulk generation failed: %w", err)
	}

	var result BulkResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	for _, row := range result.Results {
		if row.Error != "" {
			fmt.Printf("row %d: FAILED: %s\n", row.Row, row.Error)
			continue
		}
		fmt.Printf("row %d:\n%s\n\n", row.Row, row.Result.Answer)
	}
	fmt.Printf("%d rows processed, %d failed\n", len(result.Results), result.Failed)
	return nil
}
