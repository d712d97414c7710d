package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// UploadResult represents the response of a document upload.
type UploadResult struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Pages      int     `json:"pages"`
	Chunks     int     `json:"chunks"`
	SizeKB     float64 `json:"size_kb"`
}

// UploadCmd creates the upload command.
func UploadCmd() *cobra.Command {
	var fromURL string
	var filename string

	cmd := &cobra.Command{
		Use:   "upload [file.pdf]",
		Short: "Upload a PDF and build its index",
		Long:  "Uploads a PDF (from a local path or --url), extracts its text, and builds the embedding index.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			return runUpload(cmd, path, fromURL, filename, outputJSON)
		},
	}

	cmd.Flags().StringVar(&fromURL, "url", "", "Fetch the PDF from a remote URL instead of a local file")
	cmd.Flags().StringVar(&filename, "filename", "", "Override the stored filename")

	return cmd
}

func runUpload(cmd *cobra.Command, path, fromURL, filename string, outputJSON bool) error {
	if path == "" && fromURL == "" {
		return fmt.Errorf("either a file path or --url is required")
	}
	if path != "" && fromURL != "" {
		return fmt.Errorf("pass a file path or --url, not both")
	}

	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	var resp *APIResponse
	if fromURL != "" {
		resp, err = api.Post("/documents/url", map[string]string{
			"url":      fromURL,
			"filename": filename,
		})
	} else {
		fileBytes, readErr := os.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("failed to read file: %w", readErr)
		}
		if filename == "" {
			filename = filepath.Base(path)
		}
		resp, err = api.PostMultipart("/documents", map[string]string{
			"filename": filename,
		}, "file", filename, fileBytes)
	}
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	var result UploadResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Uploaded: %s\n", result.Filename)
	fmt.Printf("Document ID: %s\n", result.DocumentID)
	fmt.Printf("Pages: %d\n", result.Pages)
	fmt.Printf("Chunks: %d\n", result.Chunks)
	return nil
}
