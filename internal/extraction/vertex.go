package extraction

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

const defaultVertexModel = "gemini-1.5-pro"

// VertexExtractor sends the document bytes inline to a Gemini model that is
// forced to answer in JSON.
type VertexExtractor struct {
	model      *genai.GenerativeModel
	baseClient *genai.Client
}

func NewVertexExtractor(ctx context.Context, projectID, region, modelName string) (*VertexExtractor, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexExtractor: projectID and region cannot be empty")
	}
	if modelName == "" {
		modelName = defaultVertexModel
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	model := baseClient.GenerativeModel(modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}

	return &VertexExtractor{model: model, baseClient: baseClient}, nil
}

func (v *VertexExtractor) Identify(ctx context.Context, src Source) (string, error) {
	raw, err := v.generate(ctx, src, identifyPrompt)
	if err != nil {
		return "", err
	}
	var out struct {
		DocumentType string `json:"documentType"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: failed to parse identify result: %v", ErrBackend, err)
	}
	return normalizeType(out.DocumentType), nil
}

func (v *VertexExtractor) Extract(ctx context.Context, src Source, documentType string) (json.RawMessage, error) {
	return v.generate(ctx, src, Prompt(documentType))
}

func (v *VertexExtractor) generate(ctx context.Context, src Source, prompt string) (json.RawMessage, error) {
	if src.Load == nil {
		return nil, fmt.Errorf("%w: no content loader for %s", ErrBackend, src.FileHash)
	}
	data, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	filePart := genai.Blob{MIMEType: src.MIMEType, Data: data}
	resp, err := v.model.GenerateContent(ctx, filePart, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("%w: GenerateContent: %v", ErrBackend, err)
	}
	return decodeObject([]byte(responseText(resp)))
}

func (v *VertexExtractor) Close() error {
	if v.baseClient != nil {
		return v.baseClient.Close()
	}
	return nil
}

// responseText returns the first text part of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			return string(txt)
		}
	}
	return ""
}
