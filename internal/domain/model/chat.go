package model

// MaxTurns bounds the retained conversation log per (clinic, patient).
// Older turns are dropped first; this caps both the prompt sent to the
// generative backend and the persisted file size.
const MaxTurns = 10

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one exchanged message, tagged with its speaker role. Order is
// insertion order and is replayed verbatim to the generative backend.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat is the conversation state between one clinic and one patient.
type Chat struct {
	Context     []Turn `json:"contexto"`
	LastMessage string `json:"ultima_mensagem"`
	Timestamp   string `json:"timestamp"`
}

func NewChat() *Chat {
	return &Chat{Context: make([]Turn, 0, MaxTurns)}
}

// Append adds one turn and evicts the oldest entries beyond MaxTurns.
func (c *Chat) Append(t Turn) {
	c.Context = append(c.Context, t)
	if n := len(c.Context); n > MaxTurns {
		c.Context = append(c.Context[:0], c.Context[n-MaxTurns:]...)
	}
}

// Touch records the raw text and timestamp of the latest inbound message.
func (c *Chat) Touch(message, timestamp string) {
	c.LastMessage = message
	c.Timestamp = timestamp
}

// History returns a copy of the retained log in insertion order.
func (c *Chat) History() []Turn {
	out := make([]Turn, len(c.Context))
	copy(out, c.Context)
	return out
}
