package services

import (
	"context"

	"kbchat/models"
)

// SystemPrompt steers the generation backend. The knowledge base holds the
// encyclopedia corpus; the model is told to stay inside it.
const SystemPrompt = `You are an encyclopedia assistant with access to a knowledge base.
Use the knowledge base to answer questions accurately about history, science, and biology.
Provide detailed, educational responses based on the information in the knowledge base.
If the knowledge base doesn't have the information, clearly state that you don't know.
`

// Answerer is the retrieval-and-generation capability behind POST /kb. The
// session identifier is opaque: implementations issue one on the first turn
// and must pass a caller-supplied one through unchanged.
type Answerer interface {
	Answer(ctx context.Context, prompt, sessionID string) (*models.KBResponse, error)
}
