package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// SearchRequest represents the search API request.
type SearchRequest struct {
	Query         string `json:"query"`
	TopKRetrieval int    `json:"top_k_retrieval,omitempty"`
	TopKRerank    int    `json:"top_k_rerank,omitempty"`
}

// SearchResult represents one retrieved chunk.
type SearchResult struct {
	ID          string   `json:"id"`
	DocumentID  string   `json:"document_id"`
	Text        string   `json:"text"`
	FusionScore float64  `json:"fusion_score"`
	RerankScore *float64 `json:"rerank_score,omitempty"`
	VectorRank  int      `json:"vector_rank,omitempty"`
	LexicalRank int      `json:"lexical_rank,omitempty"`
}

// SearchResponse represents the search API response.
type SearchResponse struct {
	Results  []SearchResult `json:"results"`
	State    string         `json:"state"`
	Degraded []string       `json:"degraded,omitempty"`
	Reason   string         `json:"reason,omitempty"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var (
		topKRetrieval int
		topKRerank    int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed documents",
		Long:  "Runs a hybrid dense and lexical search over the indexed corpus.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSearch(args[0], topKRetrieval, topKRerank, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&topKRetrieval, "retrieve", "n", 0, "Candidates to retrieve before reranking (server default when 0)")
	cmd.Flags().IntVarP(&topKRerank, "results", "k", 0, "Final results to return (server default when 0)")

	return cmd
}

func runSearch(query string, topKRetrieval, topKRerank int, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	req := SearchRequest{
		Query:         query,
		TopKRetrieval: topKRetrieval,
		TopKRerank:    topKRerank,
	}

	resp, err := api.Post("/search", req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	var result SearchResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse search results: %w", err)
	}

	if outputJSON {
		output, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if len(result.Degraded) > 0 {
		fmt.Printf("warning: degraded sources: %s\n", strings.Join(result.Degraded, ", "))
	}

	if len(result.Results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	for i, r := range result.Results {
		score := r.FusionScore
		label := "fusion"
		if r.RerankScore != nil {
			score = *r.RerankScore
			label = "rerank"
		}
		fmt.Printf("%d. [%s %.4f] %s (document %s)\n", i+1, label, score, r.ID, r.DocumentID)
		fmt.Printf("   %s\n", excerpt(r.Text, 160))
	}

	return nil
}

func excerpt(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
