package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

// Document represents a document from the API.
type Document struct {
	ID             string  `json:"id"`
	Filename       string  `json:"filename"`
	Pages          int     `json:"pages"`
	SizeKB         float64 `json:"size_kb"`
	EmbeddingModel string  `json:"embedding_model"`
	ExtractedAt    string  `json:"extracted_at"`
	ExpiresAt      string  `json:"expires_at,omitempty"`
}

// DocumentList represents one page of the document listing.
type DocumentList struct {
	Documents  []Document `json:"documents"`
	NextCursor string     `json:"next_cursor,omitempty"`
	HasMore    bool       `json:"has_more"`
}

// ListCmd creates the list command.
func ListCmd() *cobra.Command {
	var cursor string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List uploaded documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runList(cmd, cursor, limit, outputJSON)
		},
	}

	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from a previous page")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum documents per page")

	return cmd
}

func runList(cmd *cobra.Command, cursor string, limit int, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	query := url.Values{}
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	path := "/documents"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	var list DocumentList
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(list, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(list.Documents) == 0 {
		fmt.Println("No documents found.")
		return nil
	}

	for _, doc := range list.Documents {
		fmt.Printf("%s  %s  (%d pages, %.1f KB)\n", doc.ID, doc.Filename, doc.Pages, doc.SizeKB)
	}
	if list.HasMore {
		fmt.Printf("\nMore available. Next cursor: %s\n", list.NextCursor)
	}
	return nil
}

// GetCmd creates the get command.
func GetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <document_id>",
		Short: "Get a document by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runGetDocument(cmd, args[0], outputJSON)
		},
	}

	return cmd
}

func runGetDocument(cmd *cobra.Command, documentID string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/documents/" + documentID)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(doc, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("ID: %s\n", doc.ID)
	fmt.Printf("Filename: %s\n", doc.Filename)
	fmt.Printf("Pages: %d\n", doc.Pages)
	fmt.Printf("Size: %.1f KB\n", doc.SizeKB)
	fmt.Printf("Embedding model: %s\n", doc.EmbeddingModel)
	fmt.Printf("Extracted: %s\n", doc.ExtractedAt)
	if doc.ExpiresAt != "" {
		fmt.Printf("Expires: %s\n", doc.ExpiresAt)
	}
	return nil
}

// DeleteCmd creates the delete command.
func DeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <document_id>",
		Short: "Delete a document and its index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeleteDocument(cmd, args[0])
		},
	}

	return cmd
}

func runDeleteDocument(cmd *cobra.Command, documentID string) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	if _, err := api.Delete("/documents/" + documentID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	fmt.Printf("Deleted document %s\n", documentID)
	return nil
}
