package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"

	"kbchat/config"
	"kbchat/models"
)

// excerptLimit caps how much of a retrieved chunk is carried into a citation.
const excerptLimit = 500

// chunkIDKey is the metadata key Bedrock stamps on each retrieved chunk.
const chunkIDKey = "x-amz-bedrock-kb-chunk-id"

type retrieveAndGenerateAPI interface {
	RetrieveAndGenerate(ctx context.Context, params *bedrockagentruntime.RetrieveAndGenerateInput,
		optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveAndGenerateOutput, error)
}

// BedrockAnswerer answers prompts through Bedrock's managed
// retrieve-and-generate flow: knowledge-base retrieval, generation, and the
// optional guardrail all happen on the service side.
type BedrockAnswerer struct {
	api    retrieveAndGenerateAPI
	cfg    *config.Config
	logger *slog.Logger
}

// NewBedrockAnswerer creates a Bedrock-backed answerer from the shared AWS
// client configuration.
func NewBedrockAnswerer(awsCfg aws.Config, cfg *config.Config, logger *slog.Logger) *BedrockAnswerer {
	client := bedrockagentruntime.NewFromConfig(awsCfg, func(o *bedrockagentruntime.Options) {
		if cfg.AWSEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWSEndpoint)
		}
	})
	return &BedrockAnswerer{api: client, cfg: cfg, logger: logger}
}

// Answer sends the prompt to RetrieveAndGenerate, passing sessionID through
// unchanged when the caller has one, and maps the response into the wire
// model. One attempt per request; Bedrock handles its own retries.
func (b *BedrockAnswerer) Answer(ctx context.Context, prompt, sessionID string) (*models.KBResponse, error) {
	input := b.buildInput(prompt, sessionID)

	out, err := b.api.RetrieveAndGenerate(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("retrieve and generate: %w", err)
	}

	resp := &models.KBResponse{
		Response:  "No relevant information found.",
		Citations: mapCitations(out.Citations),
		SessionID: aws.ToString(out.SessionId),
	}
	if out.Output != nil && aws.ToString(out.Output.Text) != "" {
		resp.Response = aws.ToString(out.Output.Text)
	}

	b.logger.Info("bedrock answer",
		"session_id", resp.SessionID,
		"citations", len(resp.Citations),
	)

	return resp, nil
}

func (b *BedrockAnswerer) buildInput(prompt, sessionID string) *bedrockagentruntime.RetrieveAndGenerateInput {
	generation := &brtypes.GenerationConfiguration{
		InferenceConfig: &brtypes.InferenceConfig{
			TextInferenceConfig: &brtypes.TextInferenceConfig{
				MaxTokens:   aws.Int32(4096),
				Temperature: aws.Float32(0.0),
				TopP:        aws.Float32(0.5),
			},
		},
	}
	if b.cfg.GuardrailID != "" {
		generation.GuardrailConfiguration = &brtypes.GuardrailConfiguration{
			GuardrailId:      aws.String(b.cfg.GuardrailID),
			GuardrailVersion: aws.String(b.cfg.GuardrailVersion),
		}
	}

	input := &bedrockagentruntime.RetrieveAndGenerateInput{
		Input: &brtypes.RetrieveAndGenerateInput{
			Text: aws.String(prompt),
		},
		RetrieveAndGenerateConfiguration: &brtypes.RetrieveAndGenerateConfiguration{
			Type: brtypes.RetrieveAndGenerateTypeKnowledgeBase,
			KnowledgeBaseConfiguration: &brtypes.KnowledgeBaseRetrieveAndGenerateConfiguration{
				KnowledgeBaseId: aws.String(b.cfg.KnowledgeBaseID),
				ModelArn:        aws.String(b.cfg.ModelARN),
				RetrievalConfiguration: &brtypes.KnowledgeBaseRetrievalConfiguration{
					VectorSearchConfiguration: &brtypes.KnowledgeBaseVectorSearchConfiguration{
						NumberOfResults: aws.Int32(int32(b.cfg.ResultCount)),
					},
				},
				GenerationConfiguration: generation,
			},
		},
	}
	if sessionID != "" {
		input.SessionId = aws.String(sessionID)
	}

	return input
}

// mapCitations flattens Bedrock citation groups into one Citation per
// retrieved reference, keeping the group's answer span on each. Duplicate
// references (same chunk, source and span) are dropped; order is preserved.
func mapCitations(groups []brtypes.Citation) []models.Citation {
	citations := make([]models.Citation, 0, len(groups))
	seen := make(map[string]bool)

	for _, group := range groups {
		span := spanOf(group)
		for _, ref := range group.RetrievedReferences {
			c := models.Citation{
				ID:       fmt.Sprintf("doc-%d", len(citations)+1),
				Source:   sourceOf(ref),
				Content:  excerptOf(ref),
				Metadata: metadataOf(ref),
			}
			if span != nil {
				s := *span
				c.Span = &s
			}

			key := dedupKey(c)
			if seen[key] {
				continue
			}
			seen[key] = true
			citations = append(citations, c)
		}
	}

	return citations
}

func spanOf(group brtypes.Citation) *models.Span {
	if group.GeneratedResponsePart == nil || group.GeneratedResponsePart.TextResponsePart == nil {
		return nil
	}
	s := group.GeneratedResponsePart.TextResponsePart.Span
	if s == nil || s.Start == nil || s.End == nil {
		return nil
	}
	return &models.Span{
		Start: int(aws.ToInt32(s.Start)),
		End:   int(aws.ToInt32(s.End)),
	}
}

// sourceOf picks the document identifier for a reference: the S3 URI for
// S3-backed data sources, the document id for custom data sources.
func sourceOf(ref brtypes.RetrievedReference) string {
	if ref.Location == nil {
		return "Unknown"
	}
	if loc := ref.Location.S3Location; loc != nil {
		if uri := aws.ToString(loc.Uri); uri != "" {
			return uri
		}
	}
	if loc := ref.Location.CustomDocumentLocation; loc != nil {
		if id := aws.ToString(loc.Id); id != "" {
			return id
		}
	}
	return "Unknown"
}

func excerptOf(ref brtypes.RetrievedReference) string {
	if ref.Content == nil {
		return ""
	}
	text := aws.ToString(ref.Content.Text)
	if runes := []rune(text); len(runes) > excerptLimit {
		return string(runes[:excerptLimit]) + "..."
	}
	return text
}

// metadataOf decodes the smithy document values into plain Go values so the
// metadata survives JSON encoding at the handler boundary.
func metadataOf(ref brtypes.RetrievedReference) map[string]any {
	if len(ref.Metadata) == 0 {
		return nil
	}
	md := make(map[string]any, len(ref.Metadata))
	for k, v := range ref.Metadata {
		md[k] = documentValue(v)
	}
	return md
}

func documentValue(d document.Interface) any {
	if d == nil {
		return nil
	}
	raw, err := d.MarshalSmithyDocument()
	if err != nil {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

func dedupKey(c models.Citation) string {
	chunkID := ""
	if v, ok := c.Metadata[chunkIDKey]; ok {
		chunkID = fmt.Sprint(v)
	}
	spanKey := "none"
	if c.Span != nil {
		spanKey = fmt.Sprintf("%d:%d", c.Span.Start, c.Span.End)
	}
	return chunkID + ":" + c.Source + ":" + spanKey
}
