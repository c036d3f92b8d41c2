package chat

import "time"

// Message types carried on the realtime channel
const (
	MessageTypeChat        = "chat"
	MessageTypeSystem      = "system"
	MessageTypeTurnUpdate  = "turn_update"
	MessageTypeHumanInput  = "human_input"
	MessageTypeError       = "error"
	MessageTypeStateUpdate = "state_update"
)

// Message is the JSON envelope exchanged on a case chat room; messages are
// delivered in whatever order the connection yields frames, with no
// client-side resequencing
type Message struct {
	Type        string     `json:"type"`
	Content     string     `json:"content"`
	UserAddress string     `json:"user_address"`
	CaseID      string     `json:"case_id"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
}
