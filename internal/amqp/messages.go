package amqp

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"jaffle/internal/core"
)

var snapshotFormats = map[string]bool{"xlsx": true, "json": true}

// SnapshotRequest asks the worker to render the dashboard for one store
// selection and write it to the snapshot directory.
type SnapshotRequest struct {
	ID          uuid.UUID `json:"id"`
	Store       string    `json:"store"`
	Format      string    `json:"format"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewSnapshotRequest creates a request with a fresh ID.
func NewSnapshotRequest(f core.Filter, format string) (*SnapshotRequest, error) {
	msg := &SnapshotRequest{
		ID:          uuid.New(),
		Store:       f.String(),
		Format:      strings.ToLower(strings.TrimSpace(format)),
		RequestedAt: time.Now().UTC(),
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}

// Filter returns the store selection carried by the request.
func (m *SnapshotRequest) Filter() core.Filter {
	return core.ParseFilter(m.Store)
}

func (m *SnapshotRequest) Validate() error {
	if m.ID == uuid.Nil {
		return fmt.Errorf("snapshot request: missing id")
	}
	if !snapshotFormats[m.Format] {
		return fmt.Errorf("snapshot request %s: unsupported format %q", m.ID, m.Format)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *SnapshotRequest) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SnapshotRequestFromJSON decodes and validates a message body.
func SnapshotRequestFromJSON(data []byte) (*SnapshotRequest, error) {
	var msg SnapshotRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	msg.Format = strings.ToLower(msg.Format)
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
