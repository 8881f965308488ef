package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"freshersTicketAPI/internal/rtdb"
	"freshersTicketAPI/internal/types/accesskey"
	"freshersTicketAPI/utils"
)

const accessKeysPath = "accessKeys"

// AccessKeyService handles the admin side of the key ledger: issuing,
// listing and deactivating codes. Consumption lives in TicketService.
type AccessKeyService struct {
	store  rtdb.Gateway
	events *EventService
}

func NewAccessKeyService(store rtdb.Gateway, events *EventService) *AccessKeyService {
	return &AccessKeyService{store: store, events: events}
}

// normalizeKeyCode applies the canonical form used everywhere a code is
// compared: trimmed and uppercased.
func normalizeKeyCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Generate creates a new access key. When req.KeyCode is empty a 32-char
// code is generated server-side; manually supplied codes must be at least
// 8 characters. Codes are unique across the ledger.
func (s *AccessKeyService) Generate(ctx context.Context, req *accesskey.GenerateRequest, createdBy string) (*accesskey.Stored, error) {
	code := normalizeKeyCode(req.KeyCode)
	if code == "" {
		generated, err := utils.GenerateAccessKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate access key code: %w", err)
		}
		code = generated
	} else if len(code) < 8 {
		return nil, ErrInvalidKeyCode
	}

	existing, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, k := range existing {
		if k.KeyCode == code {
			return nil, ErrKeyCodeTaken
		}
	}

	maxUses := req.MaxUses
	if maxUses < 1 {
		maxUses = 1
	}

	details, err := s.events.GetDetails(ctx)
	if err != nil {
		return nil, err
	}

	key := accesskey.AccessKey{
		KeyCode:     code,
		KeyName:     details.EventName,
		Description: "Single-use access key for " + details.EventName,
		MaxUses:     maxUses,
		UsedCount:   0,
		UsedBy:      []string{},
		IsActive:    true,
		ExpiresAt:   req.ExpiresAt,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}

	fbKey, err := s.store.Push(ctx, accessKeysPath, key)
	if err != nil {
		return nil, fmt.Errorf("failed to save access key: %w", err)
	}

	log.Printf("AccessKeyService: key %s... created by %s", code[:4], createdBy)
	return &accesskey.Stored{AccessKey: key, FirebaseKey: fbKey}, nil
}

// List returns every key in the ledger, used and unused.
func (s *AccessKeyService) List(ctx context.Context) ([]accesskey.Stored, error) {
	keys, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]accesskey.Stored, 0, len(keys))
	for id, k := range keys {
		out = append(out, accesskey.Stored{AccessKey: k, FirebaseKey: id})
	}
	return out, nil
}

// Deactivate turns a key off without deleting it, preserving its usage
// history. A deactivated key fails redemption as not-found.
func (s *AccessKeyService) Deactivate(ctx context.Context, keyID string) error {
	var key accesskey.AccessKey
	if err := s.store.Get(ctx, accessKeysPath+"/"+keyID, &key); err != nil {
		return fmt.Errorf("failed to load access key: %w", err)
	}
	if key.KeyCode == "" {
		return ErrKeyNotFound
	}

	if err := s.store.Update(ctx, accessKeysPath+"/"+keyID, map[string]interface{}{"isActive": false}); err != nil {
		return fmt.Errorf("failed to deactivate access key: %w", err)
	}
	return nil
}

func (s *AccessKeyService) loadAll(ctx context.Context) (map[string]accesskey.AccessKey, error) {
	var keys map[string]accesskey.AccessKey
	if err := s.store.Get(ctx, accessKeysPath, &keys); err != nil {
		return nil, fmt.Errorf("failed to load access keys: %w", err)
	}
	return keys, nil
}
