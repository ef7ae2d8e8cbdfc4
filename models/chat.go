package models

// KBRequest is the body of POST /kb. SessionID is the opaque token issued by
// the previous response; empty on the first turn of a conversation.
type KBRequest struct {
	Prompt    string `json:"prompt" binding:"required"`
	SessionID string `json:"sessionId,omitempty"`
}

// KBResponse is the body returned by POST /kb.
type KBResponse struct {
	Response  string     `json:"response"`
	Citations []Citation `json:"citations"`
	SessionID string     `json:"sessionId"`
}

// ClientConfig is served at GET /config.json and consumed once at client
// startup.
type ClientConfig struct {
	APIURL string `json:"apiUrl"`
}

const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// ChatMessage is one entry in a client-side transcript. It lives only for the
// duration of the client process.
type ChatMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Citations []Citation `json:"citations,omitempty"`
}
