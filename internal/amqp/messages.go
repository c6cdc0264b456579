package amqp

import (
	"encoding/json"
	"time"
)

// RecomputeRequest asks the worker to recompute one dashboard view. Token is
// issued by the producer and increases with every request.
type RecomputeRequest struct {
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	Month     string    `json:"month,omitempty"` // YYYY-MM, budgets only
	From      string    `json:"from,omitempty"`  // YYYY-MM-DD, balance only
	To        string    `json:"to,omitempty"`
	Currency  string    `json:"currency,omitempty"`
	Token     uint64    `json:"token"`
	Timestamp time.Time `json:"timestamp"`
}

// Key groups requests whose results supersede each other.
func (m *RecomputeRequest) Key() string {
	return m.UserID + "|" + m.Kind
}

// DashboardComputed carries a computed view back to consumers.
type DashboardComputed struct {
	Kind       string          `json:"kind"`
	UserID     string          `json:"user_id"`
	Token      uint64          `json:"token"`
	ComputedAt time.Time       `json:"computed_at"`
	Payload    json.RawMessage `json:"payload"`
}

func NewDashboardComputed(req *RecomputeRequest, payload any) (*DashboardComputed, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &DashboardComputed{
		Kind:       req.Kind,
		UserID:     req.UserID,
		Token:      req.Token,
		ComputedAt: time.Now(),
		Payload:    body,
	}, nil
}

func (m *RecomputeRequest) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecomputeRequestFromJSON(data []byte) (*RecomputeRequest, error) {
	var msg RecomputeRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (m *DashboardComputed) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func DashboardComputedFromJSON(data []byte) (*DashboardComputed, error) {
	var msg DashboardComputed
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
