package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	log "log/slog"
	"os"

	openai "github.com/openai/openai-go/v3"
)

const systemPrompt = `You are the vision analysis AI that provides semantic meaning from images to provide context to send to another AI that will create a response to the user. Do not respond as the AI assistant to the user. Instead take the user prompt input and try to extract all meaning from the photo relevant to the user prompt. Then generate as much objective data about the image for the AI assistant who will respond to the user.`

// Describer turns an image plus the user's prompt into objective context
// text. Stateless: every call is independent.
type Describer struct {
	client openai.Client
	model  openai.ChatModel
}

func NewDescriber(client openai.Client, model string) *Describer {
	return &Describer{client: client, model: openai.ChatModel(model)}
}

func (d *Describer) Describe(ctx context.Context, prompt, imagePath string) (string, error) {
	raw, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(raw)

	resp, err := d.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart("USER PROMPT: "+prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL,
				}),
			}),
		},
		Model: d.model,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("empty message content")
	}

	log.Debug("Described image", "path", imagePath, "context_len", len(content))
	return content, nil
}
