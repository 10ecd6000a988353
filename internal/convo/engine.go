package convo

import (
	"context"
	"fmt"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
)

// SystemPrompt is the fixed first turn of every conversation.
const SystemPrompt = "You are a multi-modal AI voice assistant named Prometheus. " +
	"Your user may or may not have attached a photo for context (a screenshot). " +
	"Any photo has already been processed into a highly detailed text prompt that " +
	"will be attached to their transcribed voice prompt. Generate the most useful " +
	"and factual response possible, carefully considering all previous generated " +
	"text in your response before adding new tokens. Do not expect or request " +
	"images, just use the context if added. Use all of the context of this " +
	"conversation so your response is relevant. Keep responses clear and concise, " +
	"avoiding any verbosity."

// Completer is the narrow seam to the chat-completion provider.
type Completer interface {
	Complete(ctx context.Context, turns []Turn) (string, error)
}

// Engine owns the conversation history and drives chat completions over it.
type Engine struct {
	history   *History
	completer Completer
}

func NewEngine(completer Completer, maxTurns int) *Engine {
	return &Engine{
		history:   NewHistory(SystemPrompt, maxTurns),
		completer: completer,
	}
}

// History exposes the engine's record for inspection. Callers must not rely
// on mutating the returned copies.
func (e *Engine) History() []Turn { return e.history.Turns() }

// Reply runs one exchange: composes the effective user message, appends it,
// replays the (windowed) history to the provider, and appends the reply.
// On provider failure the pending user turn is rolled back.
func (e *Engine) Reply(ctx context.Context, userText, visualContext string) (string, error) {
	effective := userText
	if visualContext != "" {
		effective = fmt.Sprintf("USER PROMPT: %s\n\nIMAGE CONTEXT: %s", userText, visualContext)
	}

	e.history.appendUser(effective)

	reply, err := e.completer.Complete(ctx, e.history.Window())
	if err != nil {
		e.history.dropLast()
		return "", fmt.Errorf("chat completion: %w", err)
	}

	e.history.appendAssistant(reply)
	return reply, nil
}

// OpenAICompleter drives chat completions through the OpenAI API.
type OpenAICompleter struct {
	client openai.Client
	model  openai.ChatModel
}

func NewOpenAICompleter(client openai.Client, model string) *OpenAICompleter {
	return &OpenAICompleter{client: client, model: openai.ChatModel(model)}
}

func (c *OpenAICompleter) Complete(ctx context.Context, turns []Turn) (string, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case RoleSystem:
			msgs = append(msgs, openai.SystemMessage(t.Content))
		case RoleUser:
			msgs = append(msgs, openai.UserMessage(t.Content))
		case RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(t.Content))
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: msgs,
		Model:    c.model,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("empty message content")
	}

	log.Debug("Chat completion done", "turns", len(turns), "reply_len", len(content))
	return content, nil
}
