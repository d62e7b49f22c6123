package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// IngestDocumentRequest represents the document ingestion API request.
type IngestDocumentRequest struct {
	DocumentID string            `json:"document_id"`
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// IngestDocumentResponse represents the document ingestion API response.
type IngestDocumentResponse struct {
	DocumentID string   `json:"document_id"`
	ChunkIDs   []string `json:"chunk_ids"`
}

// AddCmd creates the add command.
func AddCmd() *cobra.Command {
	var documentID string

	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Ingest a document",
		Long:  "Reads a text file, chunks and embeds it server-side, and adds it to the index.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAdd(args[0], documentID, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&documentID, "id", "i", "", "Document ID (defaults to the file name)")

	return cmd
}

func runAdd(path, documentID string, outputJSON bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("%s is empty", path)
	}

	if documentID == "" {
		documentID = filepath.Base(path)
	}

	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	req := IngestDocumentRequest{
		DocumentID: documentID,
		Text:       string(data),
		Metadata:   map[string]string{"source": path},
	}

	resp, err := api.Post("/documents", req)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	var result IngestDocumentResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Ingested %s as %d chunks.\n", result.DocumentID, len(result.ChunkIDs))
	return nil
}
