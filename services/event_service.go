package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"freshersTicketAPI/internal/rtdb"
	"freshersTicketAPI/internal/types/event"
)

const eventDetailsPath = "eventDetails"

// EventService owns the single eventDetails record. Ticket issuance reads
// it to snapshot event fields into new tickets.
type EventService struct {
	store rtdb.Gateway
}

func NewEventService(store rtdb.Gateway) *EventService {
	return &EventService{store: store}
}

// GetDetails returns the current event record, seeding the defaults on
// first read so the purchase page always has something to show.
func (s *EventService) GetDetails(ctx context.Context) (*event.Details, error) {
	var details event.Details
	if err := s.store.Get(ctx, eventDetailsPath, &details); err != nil {
		return nil, fmt.Errorf("failed to load event details: %w", err)
	}

	if details.EventName == "" {
		details = event.Defaults()
		details.CreatedAt = time.Now().UTC().Format(time.RFC3339)
		if err := s.store.Set(ctx, eventDetailsPath, details); err != nil {
			return nil, fmt.Errorf("failed to seed default event details: %w", err)
		}
		log.Println("EventService: seeded default event details")
	}

	return &details, nil
}

// UpdateDetails overwrites the event record, preserving CreatedAt and
// stamping UpdatedAt. Already-issued tickets are unaffected: they carry
// their own snapshot.
func (s *EventService) UpdateDetails(ctx context.Context, details event.Details) (*event.Details, error) {
	current, err := s.GetDetails(ctx)
	if err != nil {
		return nil, err
	}

	details.CreatedAt = current.CreatedAt
	details.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	if err := s.store.Set(ctx, eventDetailsPath, details); err != nil {
		return nil, fmt.Errorf("failed to update event details: %w", err)
	}
	return &details, nil
}
