package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"

	"github.com/spf13/cobra"
)

// UsageSlice represents aggregate stats for one model or feature.
type UsageSlice struct {
	TotalTokens  int64   `json:"total_tokens"`
	TotalCostUSD float64 `json:"total_cost_usd"`
	CallCount    int64   `json:"call_count"`
}

// Usage represents the ledger aggregate from the API.
type Usage struct {
	TotalTokens  int64                 `json:"total_tokens"`
	TotalCostUSD float64               `json:"total_cost_usd"`
	CallCount    int64                 `json:"call_count"`
	ByModel      map[string]UsageSlice `json:"by_model"`
	ByFeature    map[string]UsageSlice `json:"by_feature"`
}

// UsageCmd creates the usage command.
func UsageCmd() *cobra.Command {
	var from, to, feature, modelID string

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show aggregated model usage and cost",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runUsage(cmd, from, to, feature, modelID, outputJSON)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Start of the window (RFC3339)")
	cmd.Flags().StringVar(&to, "to", "", "End of the window (RFC3339)")
	cmd.Flags().StringVar(&feature, "feature", "", "Filter by feature (chat, generate, bulk-generate, extraction)")
	cmd.Flags().StringVar(&modelID, "model", "", "Filter by model identifier")

	return cmd
}

func runUsage(cmd *cobra.Command, from, to, feature, modelID string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	query := url.Values{}
	if from != "" {
		query.Set("from", from)
	}
	if to != "" {
		query.Set("to", to)
	}
	if feature != "" {
		query.Set("feature", feature)
	}
	if modelID != "" {
		query.Set("model", modelID)
	}

	path := "/usage"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("failed to fetch usage: %w", err)
	}

	var usage Usage
	if err := json.Unmarshal(resp.Data, &usage); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(usage, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Calls: %d  Tokens: %d  Cost: $%.4f\n", usage.CallCount, usage.TotalTokens, usage.TotalCostUSD)
	printUsageSlices("By model", usage.ByModel)
	printUsageSlices("By feature", usage.ByFeature)
	return nil
}

func printUsageSlices(title string, slices map[string]UsageSlice) {
	if len(slices) == 0 {
		return
	}

	keys := make([]string, 0, len(slices))
	for key := range slices {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fmt.Printf("\n%s:\n", title)
	for _, key := range keys {
		s := slices[key]
		fmt.Printf("  %-28s calls %-6d tokens %-10d $%.4f\n", key, s.CallCount, s.TotalTokens, s.TotalCostUSD)
	}
}
