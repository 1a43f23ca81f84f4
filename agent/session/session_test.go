package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	contractx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/contract"
)

func TestAppendKeepsMostRecentMessages(t *testing.T) {
	t.Parallel()

	sess := New("whatsapp:+5511999999999", time.Now())
	for i := 0; i < 20; i++ {
		sess.AppendUser(fmt.Sprintf("mensagem %d", i))
	}

	if len(sess.History) != maxHistoryMessages {
		t.Fatalf("expected history capped at %d, got %d", maxHistoryMessages, len(sess.History))
	}
	if got := sess.History[len(sess.History)-1].Content; got != "mensagem 19" {
		t.Fatalf("expected newest message kept, got %q", got)
	}
	if got := sess.History[0].Content; got != "mensagem 8" {
		t.Fatalf("expected oldest surviving message to be %q, got %q", "mensagem 8", got)
	}
}

func TestAppendToolExchangeRecordsPair(t *testing.T) {
	t.Parallel()

	sess := New("sender", time.Now())
	sess.AppendUser("quero agendar")
	sess.AppendToolExchange(contractx.ToolCall{
		ID:        "call_1",
		Name:      "agendar_servico",
		Arguments: `{"data_hora":"2025-10-25T14:30:00","nome_cliente":"João"}`,
	}, "Agendado com sucesso")

	if len(sess.History) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(sess.History))
	}
	assistant := sess.History[1]
	if assistant.Role != "assistant" || assistant.ToolCall == nil || assistant.ToolCall.ID != "call_1" {
		t.Fatalf("unexpected assistant tool turn: %+v", assistant)
	}
	result := sess.History[2]
	if result.Role != "tool" || result.ToolCallID != "call_1" || result.Content != "Agendado com sucesso" {
		t.Fatalf("unexpected tool result turn: %+v", result)
	}
}

func TestTrimNeverOrphansToolResult(t *testing.T) {
	t.Parallel()

	sess := New("sender", time.Now())
	sess.AppendToolExchange(contractx.ToolCall{
		ID:        "call_1",
		Name:      "verificar_agenda",
		Arguments: `{}`,
	}, "Agenda livre")
	for i := 0; i < 10; i++ {
		sess.AppendUser(fmt.Sprintf("mensagem %d", i))
	}
	if len(sess.History) != maxHistoryMessages {
		t.Fatalf("setup: expected exactly %d entries, got %d", maxHistoryMessages, len(sess.History))
	}

	// The next append pushes the assistant tool call out of the window; the
	// paired result must leave with it instead of surviving at the head.
	sess.AppendUser("mais uma")

	if got := sess.History[0].Role; got == "tool" {
		t.Fatalf("history starts with an orphaned tool result: %+v", sess.History[0])
	}
	if len(sess.History) != maxHistoryMessages-1 {
		t.Fatalf("expected %d entries after dropping the pair, got %d", maxHistoryMessages-1, len(sess.History))
	}
	for i, m := range sess.History {
		if m.Role != "tool" {
			continue
		}
		if i == 0 || sess.History[i-1].ToolCall == nil {
			t.Fatalf("tool result at index %d has no preceding tool call", i)
		}
	}
}

func TestNewSessionStartsInAssistantMode(t *testing.T) {
	t.Parallel()

	sess := New("sender", time.Now())
	if sess.Mode != contractx.ModeAssistant {
		t.Fatalf("expected assistant mode, got %q", sess.Mode)
	}
}

func TestAcquireSerializesSameSender(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()

	var mu sync.Mutex
	active := 0
	maxActive := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := store.Acquire("same-sender")
			defer release()

			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Fatalf("expected at most one in-flight turn per sender, saw %d", maxActive)
	}
}

func TestAcquireAllowsDistinctSendersInParallel(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()

	releaseA := store.Acquire("sender-a")
	defer releaseA()

	done := make(chan struct{})
	go func() {
		releaseB := store.Acquire("sender-b")
		releaseB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("acquiring a different sender's lock should not block")
	}
}

func TestGetCreatesAndReusesSession(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	first := store.Get("sender")
	first.AppendUser("oi")
	store.Put(first)

	second := store.Get("sender")
	if second != first {
		t.Fatal("expected the same session on repeat contact")
	}
	if len(second.History) != 1 {
		t.Fatalf("expected history preserved, got %d entries", len(second.History))
	}
}

func TestExpiredSessionsAreEvicted(t *testing.T) {
	t.Parallel()

	current := time.Date(2025, 10, 25, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(
		WithTTL(time.Hour),
		WithClock(func() time.Time { return current }),
	)

	sess := store.Get("sender")
	sess.Mode = contractx.ModeCreative
	store.Put(sess)

	current = current.Add(2 * time.Hour)

	fresh := store.Get("sender")
	if fresh == sess {
		t.Fatal("expected a new session after TTL expiry")
	}
	if fresh.Mode != contractx.ModeAssistant {
		t.Fatalf("expected fresh session in assistant mode, got %q", fresh.Mode)
	}
}

func TestSessionCapEvictsOldest(t *testing.T) {
	t.Parallel()

	current := time.Date(2025, 10, 25, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(
		WithMaxSessions(3),
		WithClock(func() time.Time { return current }),
	)

	for i := 0; i < 3; i++ {
		store.Get(fmt.Sprintf("sender-%d", i))
		current = current.Add(time.Minute)
	}

	store.Get("sender-new")

	if store.Len() != 3 {
		t.Fatalf("expected cap of 3 sessions, got %d", store.Len())
	}

	store.mu.Lock()
	_, oldestAlive := store.sessions["sender-0"]
	_, newestAlive := store.sessions["sender-new"]
	store.mu.Unlock()

	if oldestAlive {
		t.Fatal("expected the oldest session to be evicted")
	}
	if !newestAlive {
		t.Fatal("expected the newest session to survive")
	}
}
