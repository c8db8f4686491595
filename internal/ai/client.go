// Package ai wraps the outbound calls to the generative-image model that
// performs the actual furniture removal.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/esyasil/clearroom/internal/config"
	"github.com/esyasil/clearroom/internal/imaging"
)

// RemovalPrompt is the fixed instruction sent with every image. English
// phrasing yields better results with the model; the output is visual anyway.
const RemovalPrompt = "Identify all furniture in this image. Remove the furniture and " +
	"reconstruct the background (floor and walls) to show an empty room. " +
	"Maintain lighting and architectural structure."

// ErrNoImage indicates the model responded without an image part
var ErrNoImage = errors.New("model returned no image")

// Client dispatches single-image furniture-removal calls to the Gemini API
type Client struct {
	client      *genai.Client
	model       string
	callTimeout time.Duration
}

// NewClient creates a new dispatch client
func NewClient(ctx context.Context, cfg config.AIConfig) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Client{
		client:      client,
		model:       cfg.Model,
		callTimeout: cfg.CallTimeout,
	}, nil
}

// RemoveFurniture sends one encoded image to the model and returns the
// encoded result. One best-effort call per image, no internal retry; the
// per-call timeout keeps a slow image from stalling its batch. The caller
// converts any error into a per-item outcome.
func (c *Client) RemoveFurniture(ctx context.Context, encodedImage string) (string, error) {
	raw, err := imaging.Decode(encodedImage)
	if err != nil {
		return "", fmt.Errorf("invalid image payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	contents := []*genai.Content{{
		Parts: []*genai.Part{
			genai.NewPartFromText(RemovalPrompt),
			genai.NewPartFromBytes(raw, imaging.DefaultMIMEType),
		},
	}}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("model call failed: %w", err)
	}

	image := firstImagePart(resp)
	if image == nil {
		return "", ErrNoImage
	}

	return imaging.Encode(image.Data), nil
}

// firstImagePart extracts the first inline image from a model response
func firstImagePart(resp *genai.GenerateContentResponse) *genai.Blob {
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData
			}
		}
	}

	return nil
}
