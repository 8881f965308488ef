package accesskey

// GenerateRequest is the admin payload for creating a new access key.
// KeyCode is optional; when empty the server generates one. MaxUses
// defaults to 1 (single-use), which is the only value the event team
// actually issues.
type GenerateRequest struct {
	KeyCode   string `json:"keyCode,omitempty"`
	MaxUses   int    `json:"maxUses,omitempty"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}

// Redemption is the outcome of a successful key consumption. Key is the
// pre-update snapshot, RemainingUses reflects the state after this use.
type Redemption struct {
	Key           AccessKey `json:"key"`
	RemainingUses int       `json:"remainingUses"`
}
