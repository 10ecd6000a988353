package convo

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-tagged message. Immutable once appended.
type Turn struct {
	Role    Role
	Content string
}

// History is the append-only conversation record: the system instruction
// first, then strictly alternating user/assistant turns. Only the Engine
// mutates it, one user turn and one assistant turn per completed exchange.
type History struct {
	turns    []Turn
	maxTurns int
}

// NewHistory seeds the history with the system instruction. maxTurns limits
// how many user/assistant pairs are replayed to the provider; 0 means the
// full history is replayed every call.
func NewHistory(systemPrompt string, maxTurns int) *History {
	if maxTurns < 0 {
		maxTurns = 0
	}
	return &History{
		turns:    []Turn{{Role: RoleSystem, Content: systemPrompt}},
		maxTurns: maxTurns,
	}
}

func (h *History) appendUser(content string) {
	h.turns = append(h.turns, Turn{Role: RoleUser, Content: content})
}

func (h *History) appendAssistant(content string) {
	h.turns = append(h.turns, Turn{Role: RoleAssistant, Content: content})
}

// dropLast removes the most recent turn. Used only to roll back a pending
// user turn when the provider call fails, so a failed exchange leaves no
// trace in history.
func (h *History) dropLast() {
	if len(h.turns) > 1 {
		h.turns = h.turns[:len(h.turns)-1]
	}
}

func (h *History) Len() int { return len(h.turns) }

// Turns returns a copy of the full history in append order.
func (h *History) Turns() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Window returns the turns to send to the provider: the system turn plus,
// when a window is configured, only the most recent maxTurns user/assistant
// pairs. Whole pairs are trimmed so alternation is never broken.
func (h *History) Window() []Turn {
	if h.maxTurns == 0 {
		return h.Turns()
	}
	rest := h.turns[1:]
	keep := h.maxTurns * 2
	// A pending user turn (odd tail) counts against the window too.
	if len(rest) > keep {
		cut := len(rest) - keep
		// Never cut into the middle of a pair: the window must start on a
		// user turn.
		if rest[cut].Role != RoleUser {
			cut++
		}
		rest = rest[cut:]
	}
	out := make([]Turn, 0, 1+len(rest))
	out = append(out, h.turns[0])
	out = append(out, rest...)
	return out
}
