package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

// DeleteCmd creates the delete command.
func DeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Remove a document",
		Long:  "Removes a document and all of its chunks from the index.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(args[0])
		},
	}

	return cmd
}

func runDelete(documentID string) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	if _, err := api.Delete("/documents/" + documentID); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	fmt.Printf("Deleted document %s.\n", documentID)
	return nil
}
