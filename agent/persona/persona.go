// Package persona decides which behavioral profile handles a turn: the
// booking assistant or the creative video director.
package persona

import (
	"strings"

	contractx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/contract"
)

// DenialText replaces the trigger when a sender may not enter creative mode.
// It is routed through the unchanged persona as a normal user turn.
const DenialText = "Seu plano atual não inclui a criação de vídeos."

// defaultCreativeGreeting seeds the creative session when the switch command
// carries no further text.
const defaultCreativeGreeting = "Modo Diretor."

// Decision is the outcome of resolving one inbound message against the
// session's current mode.
type Decision struct {
	Mode contractx.Mode
	// Body is the message text with any mode trigger stripped, or the fixed
	// denial text when the switch was rejected.
	Body   string
	Denied bool
}

// Resolve applies the mode-switch triggers. Switching into creative requires
// the tenant feature flag and an authorized sender; a rejected switch leaves
// the mode untouched. Absent a trigger the current mode is preserved.
func Resolve(current contractx.Mode, body string, tenant *contractx.Tenant, authorized bool) Decision {
	if current == "" {
		current = contractx.ModeAssistant
	}

	lower := strings.ToLower(strings.TrimSpace(body))

	switch {
	case strings.HasPrefix(lower, "/video"):
		allowed := authorized
		if tenant != nil && !tenant.VideoEnabled {
			allowed = false
		}
		if !allowed {
			return Decision{Mode: current, Body: DenialText, Denied: true}
		}
		rest := strings.TrimSpace(strings.TrimSpace(body)[len("/video"):])
		if rest == "" {
			rest = defaultCreativeGreeting
		}
		return Decision{Mode: contractx.ModeCreative, Body: rest}

	case strings.HasPrefix(lower, "/assistant"):
		rest := strings.TrimSpace(strings.TrimSpace(body)[len("/assistant"):])
		return Decision{Mode: contractx.ModeAssistant, Body: rest}

	// Legacy alias kept for senders used to the barbershop deployment.
	case strings.HasPrefix(lower, "/barbeiro"):
		rest := strings.TrimSpace(strings.TrimSpace(body)[len("/barbeiro"):])
		return Decision{Mode: contractx.ModeAssistant, Body: rest}
	}

	// Creative mode only persists for authorized senders; everyone else is
	// pulled back to the assistant.
	if current == contractx.ModeCreative && !authorized {
		return Decision{Mode: contractx.ModeAssistant, Body: strings.TrimSpace(body)}
	}

	return Decision{Mode: current, Body: strings.TrimSpace(body)}
}
