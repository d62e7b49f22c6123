package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/infofinder/internal/resilience"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from text-embedding-3-small
	DefaultEmbeddingDimensions = 1536
	// DefaultScoringModel is the chat model used for pairwise relevance scoring
	DefaultScoringModel = openai.GPT4oMini
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoAPIKey is returned when OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
)

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, error)
}

// ScoringAPI defines the interface for pairwise relevance scoring
type ScoringAPI interface {
	ScorePair(ctx context.Context, query, passage string) (float64, error)
}

// Client wraps the OpenAI API for both provider roles the retrieval core
// needs: Embedder and RelevanceScorer. Each role is guarded by its own
// circuit breaker so a provider outage surfaces as source unavailability.
type Client struct {
	embeddings       EmbeddingAPI
	scoring          ScoringAPI
	dimensions       int
	embeddingBreaker *resilience.Breaker
	scoringBreaker   *resilience.Breaker
}

type apiAdapter struct {
	client         *openai.Client
	embeddingModel openai.EmbeddingModel
	scoringModel   string
}

func newAPIAdapter(apiKey string, embeddingModel openai.EmbeddingModel, scoringModel string) *apiAdapter {
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	if scoringModel == "" {
		scoringModel = DefaultScoringModel
	}
	return &apiAdapter{
		client:         openai.NewClient(apiKey),
		embeddingModel: embeddingModel,
		scoringModel:   scoringModel,
	}
}

// CreateEmbeddings calls the OpenAI API to create embeddings
func (a *apiAdapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: a.embeddingModel,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}

const scoringSystemPrompt = `You grade how relevant a passage is to a query.
Reply with a single number from 0 to 10, where 0 means unrelated and 10
means the passage directly answers the query. Reply with the number only.`

// ScorePair asks the chat model to grade query/passage relevance.
func (a *apiAdapter) ScorePair(ctx context.Context, query, passage string) (float64, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.scoringModel,
		Temperature: 0,
		MaxTokens:   4,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: scoringSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Query: %s\n\nPassage: %s", query, passage)},
		},
	})
	if err != nil {
		return 0, err
	}
	if len(resp.Choices) == 0 {
		return 0, errors.New("no completion returned")
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	score, err := strconv.ParseFloat(strings.TrimSuffix(raw, "."), 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable relevance score %q: %w", raw, err)
	}
	return score, nil
}

// Config holds OpenAI client configuration.
type Config struct {
	APIKey              string
	EmbeddingModel      openai.EmbeddingModel
	ScoringModel        string
	EmbeddingDimensions int
	Breaker             resilience.Config
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	adapter := newAPIAdapter(cfg.APIKey, cfg.EmbeddingModel, cfg.ScoringModel)
	return &Client{
		embeddings:       adapter,
		scoring:          adapter,
		dimensions:       dimensions,
		embeddingBreaker: resilience.NewBreaker("openai-embeddings", cfg.Breaker),
		scoringBreaker:   resilience.NewBreaker("openai-scoring", cfg.Breaker),
	}
}

// NewClientFromEnv creates a new OpenAI client using OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// GenerateEmbedding generates an embedding for the given text
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	var embedding []float32
	err := c.embeddingBreaker.Execute(func() error {
		var err error
		embedding, err = c.embeddings.CreateEmbeddings(ctx, text)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	if len(embedding) != c.dimensions {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, c.dimensions, len(embedding))
	}

	return embedding, nil
}

// ScoreRelevance computes a pairwise relevance score between query and text.
// Higher means more relevant.
func (c *Client) ScoreRelevance(ctx context.Context, query, text string) (float64, error) {
	if query == "" || text == "" {
		return 0, ErrEmptyText
	}

	var score float64
	err := c.scoringBreaker.Execute(func() error {
		var err error
		score, err = c.scoring.ScorePair(ctx, query, text)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to score relevance: %w", err)
	}
	return score, nil
}
