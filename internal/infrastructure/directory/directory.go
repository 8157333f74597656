package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Contact holds a recipient's delivery addresses. The authoritative source
// is the external user/profile system; this package only provides the
// file-backed resolver used in development and self-hosted deployments.
type Contact struct {
	Email         string `json:"email"`
	PushTargetARN string `json:"push_target_arn"`
}

// Static is a ContactDirectory backed by an in-memory map.
type Static struct {
	contacts map[string]Contact
}

// LoadStatic reads a JSON file mapping user id -> contact. An empty path
// yields an empty directory, which disables email and push fan-out.
func LoadStatic(path string) (*Static, error) {
	if path == "" {
		return &Static{contacts: map[string]Contact{}}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read contact directory: %w", err)
	}
	var contacts map[string]Contact
	if err := json.Unmarshal(raw, &contacts); err != nil {
		return nil, fmt.Errorf("parse contact directory: %w", err)
	}
	return &Static{contacts: contacts}, nil
}

func (s *Static) EmailAddress(_ context.Context, userID string) (string, error) {
	return s.contacts[userID].Email, nil
}

func (s *Static) PushTarget(_ context.Context, userID string) (string, error) {
	return s.contacts[userID].PushTargetARN, nil
}
