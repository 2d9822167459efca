package service

import (
	"context"
	"fmt"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/structpb"
)

// Ensure VertexEmbedder implements the interface.
var _ Embedder = (*VertexEmbedder)(nil)

// DefaultVertexEmbeddingModel is used when VertexConfig.Model is empty.
const DefaultVertexEmbeddingModel = "text-embedding-005"

// VertexConfig locates a Vertex AI publisher model.
type VertexConfig struct {
	ProjectID       string
	Location        string
	Model           string
	CredentialsFile string // optional; ADC is used when empty
	Dimensions      int    // optional outputDimensionality
	Temperature     float32
}

func (c VertexConfig) clientOptions() []option.ClientOption {
	var opts []option.ClientOption
	if c.Location != "" {
		opts = append(opts, option.WithEndpoint(c.Location+"-aiplatform.googleapis.com:443"))
	}
	if c.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(c.CredentialsFile))
	}
	return opts
}

// VertexEmbedder calls a Vertex AI text embedding model through the
// prediction API.
type VertexEmbedder struct {
	client     *aiplatform.PredictionClient
	endpoint   string
	dimensions int
}

// NewVertexEmbedder dials the regional prediction endpoint.
func NewVertexEmbedder(ctx context.Context, cfg VertexConfig) (*VertexEmbedder, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("vertex embedder: project id is required")
	}
	if cfg.Location == "" {
		cfg.Location = "us-central1"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultVertexEmbeddingModel
	}

	client, err := aiplatform.NewPredictionClient(ctx, cfg.clientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}

	return &VertexEmbedder{
		client:     client,
		endpoint:   fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s", cfg.ProjectID, cfg.Location, cfg.Model),
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed generates a vector for text. Chunks and queries use the same task
// type so they land in one vector space.
func (v *VertexEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	instance, err := structpb.NewStruct(map[string]interface{}{
		"content":   text,
		"task_type": "SEMANTIC_SIMILARITY",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create instance: %w", err)
	}

	req := &aiplatformpb.PredictRequest{
		Endpoint:  v.endpoint,
		Instances: []*structpb.Value{structpb.NewStructValue(instance)},
	}
	if v.dimensions > 0 {
		params, err := structpb.NewStruct(map[string]interface{}{
			"outputDimensionality": v.dimensions,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create parameters: %w", err)
		}
		req.Parameters = structpb.NewStructValue(params)
	}

	resp, err := v.client.Predict(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}
	if len(resp.Predictions) == 0 {
		return nil, fmt.Errorf("no predictions returned")
	}

	prediction := resp.Predictions[0].GetStructValue()
	embeddings := prediction.GetFields()["embeddings"].GetStructValue()
	values := embeddings.GetFields()["values"].GetListValue().GetValues()

	result := make([]float32, len(values))
	for i, val := range values {
		result[i] = float32(val.GetNumberValue())
	}
	return result, nil
}

// Close releases the Vertex AI client resources.
func (v *VertexEmbedder) Close() error {
	return v.client.Close()
}
