package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"beifahrer/internal/ai"
	"beifahrer/internal/model"
)

const systemPromptTemplate = `Du bist ein hilfreicher Fahrassistent für ein teilautomatisiertes Fahrzeug.
Deine Aufgabe ist es, Fragen zu den Fahrerassistenzsystemen zu beantworten.

Verwende die folgenden Informationen aus dem Fahrzeughandbuch, um die Frage des Benutzers zu beantworten:

%s

Richtlinien:
- Antworte präzise und verständlich auf Deutsch
- Beziehe dich auf die bereitgestellten Informationen aus dem Handbuch
- Wenn die Informationen nicht ausreichen, sage ehrlich, dass du keine vollständige Antwort geben kannst
- Sei hilfsbereit und sicherheitsbewusst
- Halte deine Antworten kurz und auf den Punkt gebracht
- Beachte die vorherige Konversation, um im Kontext zu antworten
`

const apologyPrefix = "Entschuldigung, es ist ein Fehler aufgetreten: "

const defaultGenerationTimeout = 60 * time.Second

// ContextRetriever produces the grounding context block for a query.
type ContextRetriever interface {
	RetrieveContext(ctx context.Context, query string) (string, error)
}

// CompletionClient is the pluggable generation backend.
type CompletionClient interface {
	Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error)
}

// ResponseGenerator assembles a grounded prompt and invokes the completion
// backend once. It is fail-soft: every internal failure degrades into a
// user-facing apology, so a turn always yields a transcript entry.
type ResponseGenerator struct {
	retriever ContextRetriever
	llm       CompletionClient
	chatCfg   ai.ChatConfig
	timeout   time.Duration
}

func NewResponseGenerator(retriever ContextRetriever, llm CompletionClient, chatCfg ai.ChatConfig, timeout time.Duration) *ResponseGenerator {
	if timeout <= 0 {
		timeout = defaultGenerationTimeout
	}
	return &ResponseGenerator{
		retriever: retriever,
		llm:       llm,
		chatCfg:   chatCfg,
		timeout:   timeout,
	}
}

// Generate returns the assistant reply for userMessage given the prior
// transcript. It never returns an empty string and never propagates backend
// failures; a hung backend call is cut off by the generation timeout and
// resolves into the same apology path.
func (g *ResponseGenerator) Generate(ctx context.Context, userMessage string, history model.History) string {
	reply, err := g.generate(ctx, userMessage, history)
	if err != nil {
		log.Printf("generate reply failed: %v", err)
		return apologyPrefix + err.Error()
	}
	return reply
}

func (g *ResponseGenerator) generate(ctx context.Context, userMessage string, history model.History) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	contextBlock, err := g.retriever.RetrieveContext(ctx, userMessage)
	if err != nil {
		return "", err
	}

	// The whole transcript is passed through; there is no token-budget
	// trimming, which caps how long a single chat can usefully grow.
	messages := make([]ai.ChatMessage, 0, len(history)+2)
	messages = append(messages, ai.ChatMessage{
		Role:    "system",
		Content: fmt.Sprintf(systemPromptTemplate, contextBlock),
	})
	for _, m := range history {
		if m.Role != model.RoleUser && m.Role != model.RoleAssistant {
			continue
		}
		messages = append(messages, ai.ChatMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, ai.ChatMessage{Role: model.RoleUser, Content: userMessage})

	reply, err := g.llm.Complete(ctx, g.chatCfg, messages)
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", errors.New("backend returned an empty completion")
	}
	return reply, nil
}
