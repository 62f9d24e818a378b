package realtime

// Wire frames for the /v1/realtime websocket. The client opens one socket
// and multiplexes any number of logical subscriptions over it, each keyed
// by a client-chosen ID.

const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// ClientFrame is what a subscriber sends.
type ClientFrame struct {
	Action string `json:"action"`
	ID     string `json:"id"`
	Table  Table  `json:"table,omitempty"`
	Type   Kind   `json:"type,omitempty"`
}

// ServerFrame is what the server sends back: either a status change for a
// subscription or a change event, never both.
type ServerFrame struct {
	ID     string    `json:"id"`
	Status Status    `json:"status,omitempty"`
	Event  *Envelope `json:"event,omitempty"`
}
