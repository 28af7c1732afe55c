// Package messaging defines interfaces for real-time communication.
package messaging

// Update is one displayed reaction count pushed to live clients.
type Update struct {
	Kind     string `json:"kind"`
	ID       string `json:"id"`
	Reaction string `json:"reaction"`
	Count    int64  `json:"count"`
	State    string `json:"state"`
}

// Broadcaster fans reaction updates out to connected clients.
type Broadcaster interface {
	Broadcast(update Update)
	ClientCount() int
}
