// Package agent runs the conversational planning loop: it hands the user
// utterance and the tool catalog to the model, executes requested tool calls
// strictly in order, forwards their state effects, and returns the final
// natural-language reply.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"taskdeck.app/agent/common/id"
	"taskdeck.app/agent/common/llm"
	"taskdeck.app/agent/common/logger"
	"taskdeck.app/agent/internal/session"
	"taskdeck.app/agent/internal/state"
	"taskdeck.app/agent/internal/tools"
)

const (
	defaultMaxIterations = 8
	defaultTurnTimeout   = 2 * time.Minute
)

// ErrTurnBudgetExceeded is returned when the model keeps requesting tool
// calls past the iteration cap for a single turn.
var ErrTurnBudgetExceeded = errors.New("agent: turn exceeded tool iteration budget")

// Catalog is the tool surface the loop drives.
type Catalog interface {
	Definitions() []llm.Tool
	Execute(ctx context.Context, name, arguments string) (*tools.Result, error)
}

// Config tunes one agent instance.
type Config struct {
	MaxIterations int           // Planner round-trips per turn; 0 means the default.
	TurnTimeout   time.Duration // Deadline for a whole turn; 0 means the default.
	MaxTokens     int           // Per-completion token cap passed to the model.
}

// Agent ties the planner, the tool catalog, the state dispatcher and the
// session store together. One instance serves all sessions.
type Agent struct {
	client     llm.AgentClient
	catalog    Catalog
	dispatcher *state.Dispatcher
	sessions   session.Store
	cfg        Config
}

func New(client llm.AgentClient, catalog Catalog, dispatcher *state.Dispatcher, sessions session.Store, cfg Config) *Agent {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = defaultTurnTimeout
	}
	return &Agent{
		client:     client,
		catalog:    catalog,
		dispatcher: dispatcher,
		sessions:   sessions,
		cfg:        cfg,
	}
}

// Turn runs one conversational turn. Tool calls execute sequentially in the
// order the model requested them; the first failure aborts the turn without
// issuing the remaining calls, and exactly that error is returned. State
// effects of calls that already succeeded are kept. The transcript is saved
// only when the turn completes.
func (a *Agent) Turn(ctx context.Context, sessionID, utterance string) (string, error) {
	turnID := id.New()
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SessionID: logger.Ptr(sessionID),
		TurnID:    logger.Ptr(turnID),
		Component: "agent",
	})

	ctx, cancel := context.WithTimeout(ctx, a.cfg.TurnTimeout)
	defer cancel()

	sc := logger.StartSpan(ctx, "agent.turn")
	defer sc.End()
	ctx = sc.Context()

	history, err := a.sessions.History(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("agent: load session: %w", err)
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt(time.Now())})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: utterance})

	definitions := a.catalog.Definitions()
	start := time.Now()

	for iteration := 0; iteration < a.cfg.MaxIterations; iteration++ {
		resp, err := a.client.ChatWithTools(ctx, llm.AgentRequest{
			Messages:  messages,
			Tools:     definitions,
			MaxTokens: a.cfg.MaxTokens,
		})
		if err != nil {
			return "", fmt.Errorf("agent: planner call: %w", err)
		}

		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		if len(resp.ToolCalls) == 0 {
			if err := a.sessions.Save(ctx, sessionID, messages[1:]); err != nil {
				slog.WarnContext(ctx, "failed to persist session transcript", "error", err)
			}
			slog.InfoContext(ctx, "turn completed",
				"iterations", iteration+1,
				"duration_ms", time.Since(start).Milliseconds())
			return resp.Content, nil
		}

		for _, call := range resp.ToolCalls {
			result, err := a.catalog.Execute(ctx, call.Name, call.Arguments)
			if err != nil {
				// Later calls in this batch are never issued.
				sc.RecordError(err)
				return "", err
			}

			if result.Event != nil {
				a.dispatcher.Emit(ctx, *result.Event)
			}
			if result.Removal != nil {
				a.dispatcher.Drop(ctx, result.Removal.Kind, result.Removal.ID)
			}

			messages = append(messages, llm.Message{
				Role:       "tool",
				Content:    result.Text,
				ToolCallID: call.ID,
			})
		}
	}

	return "", ErrTurnBudgetExceeded
}

func systemPrompt(now time.Time) string {
	return fmt.Sprintf(`You are TaskDeck, an assistant that manages a ClickUp workspace through tools.

The workspace hierarchy is spaces > lists > tasks. Resolve names to IDs by
fetching: never invent a space, list or task ID. When a request is ambiguous,
ask the user instead of guessing.

Dates and time estimates are epoch milliseconds. Today is %s.
Priorities are ordinals: 1=urgent, 2=high, 3=normal, 4=low.

After making changes, confirm to the user what was done in plain language.
Keep replies short.`, now.Format("Monday, January 2, 2006"))
}
