package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"kbchat/models"
)

// historyTurns bounds how much stored conversation is replayed per request.
const historyTurns = 10

// OpenAIAnswerer is the generation-only fallback backend. It has no retrieval
// index, so it returns no citations. Multi-turn context is rebuilt from the
// transcript store when one is configured; without a store each request
// stands alone.
type OpenAIAnswerer struct {
	client *openai.Client
	model  string
	store  *TranscriptStore
	logger *slog.Logger
}

// NewOpenAIAnswerer creates the fallback answerer. store may be nil.
func NewOpenAIAnswerer(apiKey, model string, store *TranscriptStore, logger *slog.Logger) *OpenAIAnswerer {
	return &OpenAIAnswerer{
		client: openai.NewClient(apiKey),
		model:  model,
		store:  store,
		logger: logger,
	}
}

// NewOpenAIAnswererWithClient is like NewOpenAIAnswerer with a caller-built
// client, used by tests to point at a stub server.
func NewOpenAIAnswererWithClient(client *openai.Client, model string, store *TranscriptStore, logger *slog.Logger) *OpenAIAnswerer {
	return &OpenAIAnswerer{client: client, model: model, store: store, logger: logger}
}

// Answer generates a reply and echoes (or mints) the session identifier.
func (o *OpenAIAnswerer) Answer(ctx context.Context, prompt, sessionID string) (*models.KBResponse, error) {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
	}

	if o.store != nil {
		turns, err := o.store.RecentTurns(ctx, sessionID, historyTurns)
		if err != nil {
			o.logger.Warn("failed to load transcript history", "error", err, "session_id", sessionID)
		}
		// RecentTurns returns newest first; replay oldest first.
		for i := len(turns) - 1; i >= 0; i-- {
			role := openai.ChatMessageRoleUser
			if turns[i].Role == models.RoleBot {
				role = openai.ChatMessageRoleAssistant
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:    role,
				Content: turns[i].Content,
			})
		}
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	return &models.KBResponse{
		Response:  resp.Choices[0].Message.Content,
		Citations: []models.Citation{},
		SessionID: sessionID,
	}, nil
}
