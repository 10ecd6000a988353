package intent

import (
	"context"
	"fmt"
	log "log/slog"
	"strings"

	openai "github.com/openai/openai-go/v3"
)

// Label is one of the closed set of actions the router may select.
type Label string

const (
	LabelTakeScreenshot Label = "take screenshot"
	LabelNone           Label = "None"
)

const systemPrompt = `You are an AI function calling model named AVA. You will determine whether taking a screenshot or calling no functions is best for a voice assistant to respond to the users prompt. You will respond with only one selection from this list: ["take screenshot", "None"]. Do not respond with anything but the most logical selection from that list with no explanations. Format the function call name exactly as listed.`

// Router classifies an utterance into a Label with a single chat completion.
// The model output is untrusted: anything that does not match the canonical
// label set resolves to LabelNone, and so does a provider failure. Routing
// never fails an exchange.
type Router struct {
	client openai.Client
	model  openai.ChatModel
}

func NewRouter(client openai.Client, model string) *Router {
	return &Router{client: client, model: openai.ChatModel(model)}
}

func (r *Router) Route(ctx context.Context, userText string) Label {
	raw, err := r.classify(ctx, userText)
	if err != nil {
		log.Warn("Intent routing failed, defaulting to none", "err", err)
		return LabelNone
	}

	label := ParseLabel(raw)
	log.Debug("Routed intent", "raw", raw, "label", string(label))
	return label
}

func (r *Router) classify(ctx context.Context, userText string) (string, error) {
	resp, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userText),
		},
		Model: r.model,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

// ParseLabel matches raw model output against the canonical label set.
// Substring match, case-insensitive; unrecognized output is LabelNone.
func ParseLabel(raw string) Label {
	s := strings.ToLower(strings.TrimSpace(raw))
	if strings.Contains(s, string(LabelTakeScreenshot)) {
		return LabelTakeScreenshot
	}
	return LabelNone
}
