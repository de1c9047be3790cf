package relay

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message types accepted by the relay.
const (
	TypeSaveMemory      = "SAVE_MEMORY"
	TypeGetMemories     = "GET_MEMORIES"
	TypeOAuthSuccess    = "OAUTH_SUCCESS"
	TypeOAuthError      = "OAUTH_ERROR"
	TypeGetPendingOAuth = "GET_PENDING_OAUTH"
	TypeGetAuthSession  = "GET_AUTH_SESSION"
	TypeCompleteOAuth   = "COMPLETE_OAUTH"

	// ActionOpenPopup travels in the action field rather than type.
	ActionOpenPopup = "openPopup"
)

// ErrInvalidMessage marks a message that failed validation.
var ErrInvalidMessage = errors.New("invalid message")

// ErrUnknownMessage marks a message whose type is not handled.
var ErrUnknownMessage = errors.New("unknown message type")

// ErrSignInUnavailable is returned for COMPLETE_OAUTH when no provider is
// configured on this relay.
var ErrSignInUnavailable = errors.New("sign-in completion is not configured")

// Sender identifies the context a message came from.
type Sender struct {
	TabID int    `json:"tab_id,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Message is the envelope exchanged between contexts. Fields not used by a
// given type are ignored.
type Message struct {
	Type   string `json:"type,omitempty"`
	Action string `json:"action,omitempty"`

	// SAVE_MEMORY
	Content  string `json:"content,omitempty"`
	Category string `json:"category,omitempty"`
	Source   string `json:"source,omitempty"`

	// OAUTH_SUCCESS / OAUTH_ERROR / COMPLETE_OAUTH (state only)
	Code     string `json:"code,omitempty"`
	State    string `json:"state,omitempty"`
	Provider string `json:"provider,omitempty"`
	Error    string `json:"error,omitempty"`

	Sender *Sender `json:"sender,omitempty"`
}

// Kind returns the type, or the action when no type is set.
func (m Message) Kind() string {
	if m.Type != "" {
		return m.Type
	}
	return m.Action
}

// Response is the reply to a message. Its shape depends on the message type.
type Response map[string]any

// OK is the bare acknowledgement.
func OK() Response {
	return Response{"success": true}
}

// Fail builds a negative acknowledgement carrying err's message.
func Fail(err error) Response {
	return Response{"success": false, "error": err.Error()}
}

// Succeeded reports whether the response carries success=true.
func (r Response) Succeeded() bool {
	ok, _ := r["success"].(bool)
	return ok
}

// ErrorMessage returns the error field, if any.
func (r Response) ErrorMessage() string {
	msg, _ := r["error"].(string)
	return msg
}

// Decode copies the value at key into out. A missing or null key leaves out
// untouched and reports false.
func (r Response) Decode(key string, out any) (bool, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return false, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if string(data) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}
