package services

import (
	"context"
	"fmt"
	"time"

	"freshersTicketAPI/internal/rtdb"
	"freshersTicketAPI/internal/types/user"
)

const userProfilesPath = "userProfiles"

// UserService keeps the userProfiles tree in sync with logins. Profiles
// only matter to ticketing as the source of the holder's display name.
type UserService struct {
	store rtdb.Gateway
}

func NewUserService(store rtdb.Gateway) *UserService {
	return &UserService{store: store}
}

// EnsureProfile upserts the profile for an authenticated user: created on
// first login, refreshed on subsequent ones. CreatedAt survives updates.
func (s *UserService) EnsureProfile(ctx context.Context, uid string, req *user.SessionRequest) (*user.Profile, error) {
	var existing user.Profile
	if err := s.store.Get(ctx, userProfilesPath+"/"+uid, &existing); err != nil {
		return nil, fmt.Errorf("failed to load user profile: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	profile := user.Profile{
		UID:         uid,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Provider:    req.Provider,
		CreatedAt:   existing.CreatedAt,
		UpdatedAt:   now,
	}
	if profile.CreatedAt == "" {
		profile.CreatedAt = now
	}

	if err := s.store.Set(ctx, userProfilesPath+"/"+uid, profile); err != nil {
		return nil, fmt.Errorf("failed to save user profile: %w", err)
	}
	return &profile, nil
}

// GetProfile returns the stored profile for uid.
func (s *UserService) GetProfile(ctx context.Context, uid string) (*user.Profile, error) {
	var profile user.Profile
	if err := s.store.Get(ctx, userProfilesPath+"/"+uid, &profile); err != nil {
		return nil, fmt.Errorf("failed to load user profile: %w", err)
	}
	if profile.UID == "" {
		return nil, ErrProfileNotFound
	}
	return &profile, nil
}
