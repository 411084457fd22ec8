package groq

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"path/filepath"

	"github.com/studypath/studypath-backend/internal/core/domain"
)

type analysisPayload struct {
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	Topics      []string `json:"topics"`
	KeyPoints   []string `json:"key_points"`
}

// AnalyzeText summarizes one text chunk into a fragment.
func (c *Client) AnalyzeText(ctx context.Context, chunk string) (*domain.Fragment, error) {
	raw, err := c.complete(ctx, c.extractModel, []chatMessage{
		{Role: "system", Content: analyzeChunkSystem},
		{Role: "user", Content: chunk},
	}, true, "analyze_text")
	if err != nil {
		return nil, err
	}

	var payload analysisPayload
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &payload); err != nil {
		return nil, fmt.Errorf("parse analysis response: %w", err)
	}
	text := payload.Summary
	if text == "" {
		return nil, fmt.Errorf("analysis response missing summary")
	}
	return &domain.Fragment{
		Kind:      domain.FragmentText,
		Text:      text,
		Topics:    payload.Topics,
		KeyPoints: payload.KeyPoints,
	}, nil
}

// DescribeImage sends the image inline as a data URL to the vision-capable
// extraction model.
func (c *Client) DescribeImage(ctx context.Context, filename string, data []byte) (*domain.Fragment, error) {
	mimeType := mime.TypeByExtension(filepath.Ext(filename))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))

	raw, err := c.complete(ctx, c.extractModel, []chatMessage{
		{Role: "system", Content: describeImageSystem},
		{Role: "user", Content: []contentPart{
			{Type: "text", Text: "Describe this study-material image."},
			{Type: "image_url", ImageURL: &imageURLValue{URL: dataURL}},
		}},
	}, true, "describe_image")
	if err != nil {
		return nil, err
	}

	var payload analysisPayload
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &payload); err != nil {
		return nil, fmt.Errorf("parse image description: %w", err)
	}
	if payload.Description == "" {
		return nil, fmt.Errorf("image description missing")
	}
	return &domain.Fragment{
		Kind:      domain.FragmentImageNote,
		Text:      payload.Description,
		Topics:    payload.Topics,
		KeyPoints: payload.KeyPoints,
	}, nil
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe sends the audio payload to the transcription endpoint and
// returns the plain transcript.
func (c *Client) Transcribe(ctx context.Context, filename string, data []byte) (string, error) {
	fields := map[string]string{
		"model":           c.transcribeModel,
		"response_format": "json",
	}
	var resp transcriptionResponse
	if err := c.postMultipart(ctx, "/audio/transcriptions", fields, "file", filename, data, &resp, "transcribe"); err != nil {
		return "", err
	}
	if resp.Text == "" {
		return "", fmt.Errorf("transcription response empty")
	}
	return resp.Text, nil
}
