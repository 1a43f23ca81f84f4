// Package dispatch drives the LLM request/response/tool-call loop for one
// conversation turn.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/contract"
	sessionx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/session"
	toolx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/tool"
)

// Executor runs one validated tool invocation and returns the result string
// that goes back into the conversation.
type Executor func(ctx context.Context, inv toolx.Invocation) (string, error)

// creditExhaustedText is the distinct reply for metered features with an
// empty balance; it reaches the sender verbatim via the tool result.
const creditExhaustedText = "Seus créditos de vídeo acabaram. Recarregue no Studio para continuar."

type Engine struct {
	chat contractx.ChatClient
}

func NewEngine(chat contractx.ChatClient) (*Engine, error) {
	if chat == nil {
		return nil, errors.New("chat client is required")
	}
	return &Engine{chat: chat}, nil
}

// Run appends the user turn, asks the model for a completion with the mode's
// toolset, executes at most one tool call, and produces the final reply.
// Multi-call batches from the model are not supported: only the first call is
// read, the rest are dropped.
func (e *Engine) Run(ctx context.Context, sess *sessionx.Session, system, body string, specs []contractx.ToolSpec, exec Executor) (string, error) {
	if sess == nil {
		return "", fmt.Errorf("%w: session is nil", contractx.ErrValidation)
	}
	if strings.TrimSpace(body) == "" {
		return "", fmt.Errorf("%w: message body is empty", contractx.ErrValidation)
	}

	sess.AppendUser(body)

	resp, err := e.chat.Complete(ctx, contractx.ChatRequest{
		System:  system,
		History: sess.History,
		Tools:   specs,
	})
	if err != nil {
		return "", err
	}

	if len(resp.ToolCalls) == 0 {
		reply := strings.TrimSpace(resp.Text)
		if reply == "" {
			return "", fmt.Errorf("%w: completion returned neither text nor tool call", contractx.ErrModelInvoke)
		}
		sess.AppendAssistant(reply)
		return reply, nil
	}

	call := resp.ToolCalls[0]
	if len(resp.ToolCalls) > 1 {
		log.Debug().Str("tool", call.Name).Int("dropped", len(resp.ToolCalls)-1).
			Msg("model returned a tool batch, executing only the first call")
	}

	result := e.execute(ctx, call, exec)

	// The tool call and its stringified result become the durable record of
	// what happened, whether it succeeded or not.
	sess.AppendToolExchange(call, result)

	summary, err := e.chat.Complete(ctx, contractx.ChatRequest{
		System:  system,
		History: sess.History,
	})
	if err != nil {
		// The side effect already happened and is not rolled back; the
		// transport layer sees this as a send failure.
		return "", err
	}

	reply := strings.TrimSpace(summary.Text)
	if reply == "" {
		reply = "✅ Concluído:\n" + result
	}
	sess.AppendAssistant(reply)
	return reply, nil
}

// execute validates and runs the call, converting every recoverable failure
// into a tool-result string so the model can retry or apologize within the
// same turn. Nothing here crashes the turn.
func (e *Engine) execute(ctx context.Context, call contractx.ToolCall, exec Executor) string {
	inv, err := toolx.Parse(call)
	if err != nil {
		log.Warn().Err(err).Str("tool", call.Name).Msg("tool call rejected by schema")
		return "Erro de validação: " + err.Error()
	}

	if exec == nil {
		return fmt.Sprintf("Ferramenta %s indisponível neste modo.", inv.Name)
	}

	result, err := exec(ctx, inv)
	if err != nil {
		switch {
		case errors.Is(err, contractx.ErrInsufficientCredits):
			return creditExhaustedText
		case errors.Is(err, contractx.ErrValidation):
			return "Erro de validação: " + err.Error()
		case errors.Is(err, contractx.ErrCalendarNotFound), errors.Is(err, contractx.ErrCalendarUnauthorized):
			return "Falha na agenda externa: " + err.Error()
		default:
			log.Error().Err(err).Str("tool", inv.Name).Msg("tool execution failed")
			return "Erro técnico: " + err.Error()
		}
	}
	return result
}
