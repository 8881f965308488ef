package user

// Profile is identity metadata stored under userProfiles/{userID}.
// Created on first login, updated on subsequent logins.
type Profile struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Provider    string `json:"provider,omitempty"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// SessionRequest is the payload the client sends after authenticating,
// used to upsert the profile.
type SessionRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Provider    string `json:"provider,omitempty"`
}
