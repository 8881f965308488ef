package accesskey

import (
	"time"
)

// AccessKey is a one-time (or limited-use) code that grants the right to
// claim an event ticket. Keys are stored under accessKeys/{keyID} in the
// realtime database. They are never deleted, only deactivated.
type AccessKey struct {
	KeyCode     string   `json:"keyCode"`
	KeyName     string   `json:"keyName,omitempty"`
	Description string   `json:"description,omitempty"`
	MaxUses     int      `json:"maxUses"`
	UsedCount   int      `json:"usedCount"`
	UsedBy      []string `json:"usedBy,omitempty"`
	IsActive    bool     `json:"isActive"`
	ExpiresAt   string   `json:"expiresAt,omitempty"`
	CreatedBy   string   `json:"createdBy"`
	CreatedAt   string   `json:"createdAt"`
	LastUsedAt  string   `json:"lastUsedAt,omitempty"`
	LastUsedBy  string   `json:"lastUsedBy,omitempty"`
}

// Stored is an AccessKey together with its database key.
type Stored struct {
	AccessKey
	FirebaseKey string `json:"firebaseKey"`
}

// IsExpired reports whether the key's expiry (if any) is in the past.
// ExpiresAt is stored as RFC3339; a value that fails to parse is treated
// as no expiry, matching how the original data was written by hand.
func (k *AccessKey) IsExpired(now time.Time) bool {
	if k.ExpiresAt == "" {
		return false
	}
	expires, err := time.Parse(time.RFC3339, k.ExpiresAt)
	if err != nil {
		return false
	}
	return expires.Before(now)
}

// HasUsed reports whether the given user already redeemed this key.
func (k *AccessKey) HasUsed(userID string) bool {
	for _, id := range k.UsedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// Remaining returns how many redemptions the key has left.
func (k *AccessKey) Remaining() int {
	return k.MaxUses - k.UsedCount
}
