package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

// OpenAIGenerator calls the Responses API with a strict json_schema text format.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

func NewOpenAI(opts Options) *OpenAIGenerator {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		// Retries are the caller's decision; a failed call is reported as-is.
		option.WithMaxRetries(0),
	}
	if strings.TrimSpace(opts.BaseURL) != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := openai.NewClient(reqOpts...)
	return &OpenAIGenerator{client: &client, model: opts.Model}
}

func (g *OpenAIGenerator) Model() string { return g.model }

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if g.client == nil {
		return "", errors.New("OpenAIGenerator: client is nil")
	}
	if err := validateRequest(req); err != nil {
		return "", err
	}

	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:   req.Schema.Name,
			Schema: req.Schema.Map(),
			Strict: openai.Bool(true),
			Type:   "json_schema",
		},
	}
	if req.Schema.Description != "" {
		format.OfJSONSchema.Description = openai.String(req.Schema.Description)
	}

	params := responses.ResponseNewParams{
		Model: g.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(req.Prompt, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: format,
		},
	}
	if req.Instructions != "" {
		params.Instructions = openai.String(req.Instructions)
	}
	if req.MaxOutputTokens > 0 {
		params.MaxOutputTokens = openai.Int(req.MaxOutputTokens)
	}

	resp, err := g.client.Responses.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai responses (model=%s): %w", g.model, err)
	}
	out := resp.OutputText()
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("openai responses (model=%s): empty output (status=%s)", g.model, resp.Status)
	}
	return out, nil
}
