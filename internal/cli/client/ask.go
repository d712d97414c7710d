package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// Source represents one retrieved chunk backing an answer.
type Source struct {
	ChunkID      string  `json:"chunk_id"`
	Page         int     `json:"page"`
	Score        float32 `json:"score"`
	Snippet      string  `json:"snippet"`
	PageMarkdown string  `json:"page_markdown,omitempty"`
}

// Answer represents a grounded answer from the API.
type Answer struct {
	Answer       string   `json:"answer"`
	Sources      []Source `json:"sources"`
	Model        string   `json:"model"`
	InputTokens  int      `json:"input_tokens"`
	OutputTokens int      `json:"output_tokens"`
	CostUSD      float64  `json:"cost_usd"`
	LatencyMS    int64    `json:"latency_ms"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var modelID string

	cmd := &cobra.Command{
		Use:   "ask <document_id> <question...>",
		Short: "Ask a question about a document",
		Long:  "Answers a question using content retrieved from the document's embedding index.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			question := strings.Join(args[1:], " ")
			return runAsk(cmd, args[0], question, modelID, outputJSON)
		},
	}

	cmd.Flags().StringVar(&modelID, "model", "", "Generation model to use")

	return cmd
}

func runAsk(cmd *cobra.Command, documentID, question, modelID string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post(fmt.Sprintf("/documents/%s/ask", documentID), map[string]string{
		"question": question,
		"model":    modelID,
	})
	if err != nil {
		return fmt.Errorf("failed to ask: %w", err)
	}

	var answer Answer
	if err := json.Unmarshal(resp.Data, &answer); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(answer, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(answer.Answer)
	if len(answer.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, src := range answer.Sources {
			fmt.Printf("  page %d (score %.3f): %s\n", src.Page, src.Score, src.Snippet)
		}
	}
	fmt.Printf("\nModel: %s  Tokens: %d in / %d out  Cost: $%.6f\n",
		answer.Model, answer.InputTokens, answer.OutputTokens, answer.CostUSD)
	return nil
}
