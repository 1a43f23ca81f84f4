package session

import (
	"time"

	contractx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/contract"
)

// maxHistoryMessages bounds a session to the most recent exchanges, matching
// the context window the bot was tuned for. The system instruction is not
// part of history; it is rebuilt and sent separately every turn.
const maxHistoryMessages = 12

// Session is the per-sender conversation state. It is only ever mutated while
// the sender's lock is held (see Store.Acquire), so it carries no mutex of
// its own.
type Session struct {
	Sender       string
	Mode         contractx.Mode
	History      []contractx.ChatMessage
	LastActivity time.Time
}

func New(sender string, now time.Time) *Session {
	return &Session{
		Sender:       sender,
		Mode:         contractx.ModeAssistant,
		LastActivity: now,
	}
}

func (s *Session) Touch(now time.Time) {
	s.LastActivity = now
}

func (s *Session) AppendUser(content string) {
	s.History = append(s.History, contractx.ChatMessage{Role: "user", Content: content})
	s.trim()
}

func (s *Session) AppendAssistant(content string) {
	s.History = append(s.History, contractx.ChatMessage{Role: "assistant", Content: content})
	s.trim()
}

// AppendToolExchange records the assistant's tool invocation and its result
// as adjacent turns, keyed by the invocation id.
func (s *Session) AppendToolExchange(call contractx.ToolCall, result string) {
	c := call
	s.History = append(s.History,
		contractx.ChatMessage{Role: "assistant", ToolCall: &c},
		contractx.ChatMessage{Role: "tool", ToolCallID: call.ID, ToolName: call.Name, Content: result},
	)
	s.trim()
}

func (s *Session) trim() {
	if len(s.History) <= maxHistoryMessages {
		return
	}
	start := len(s.History) - maxHistoryMessages
	// A tool result is only meaningful directly after its assistant tool
	// call; when the cut separates the pair, drop the orphaned result too
	// so history never starts with a tool message.
	for start < len(s.History) && s.History[start].Role == "tool" {
		start++
	}
	s.History = append([]contractx.ChatMessage(nil), s.History[start:]...)
}
