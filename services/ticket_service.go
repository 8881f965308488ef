package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"freshersTicketAPI/internal/rtdb"
	"freshersTicketAPI/internal/types/accesskey"
	"freshersTicketAPI/internal/types/ticket"
)

const ticketsPath = "tickets"

// defaultScanLocation is recorded when door staff don't supply one.
const defaultScanLocation = "Event Entrance"

// TicketService implements the redemption and scan workflows. It holds no
// state between calls; every invocation re-reads what it needs, so callers
// can safely retry anything that fails before a write.
type TicketService struct {
	store  rtdb.Gateway
	events *EventService
}

func NewTicketService(store rtdb.Gateway, events *EventService) *TicketService {
	return &TicketService{store: store, events: events}
}

// ValidateAndConsumeKey validates the code and, if valid, records the use
// atomically. The returned Redemption carries the pre-update key snapshot.
//
// The lookup is a full scan of the ledger, which is fine at this event's
// scale. All checks are re-run inside a database transaction on the key's
// node so a single-use key cannot be consumed twice by concurrent
// requests.
func (s *TicketService) ValidateAndConsumeKey(ctx context.Context, code, userID string) (*accesskey.Redemption, error) {
	code = normalizeKeyCode(code)

	var keys map[string]accesskey.AccessKey
	if err := s.store.Get(ctx, accessKeysPath, &keys); err != nil {
		return nil, fmt.Errorf("failed to load access keys: %w", err)
	}

	keyID := ""
	for id, k := range keys {
		if k.KeyCode == code && k.IsActive {
			keyID = id
			break
		}
	}
	if keyID == "" {
		return nil, ErrKeyNotFound
	}

	var snapshot accesskey.AccessKey
	var remaining int
	err := s.store.Transaction(ctx, accessKeysPath+"/"+keyID, func(node rtdb.TransactionNode) (interface{}, error) {
		var cur accesskey.AccessKey
		if err := node.Unmarshal(&cur); err != nil {
			return nil, err
		}
		if cur.KeyCode == "" || !cur.IsActive {
			return nil, ErrKeyNotFound
		}
		if cur.IsExpired(time.Now()) {
			return nil, ErrKeyExpired
		}
		// A repeat user gets AlreadyUsed even on an exhausted key.
		if cur.HasUsed(userID) {
			return nil, ErrKeyAlreadyUsed
		}
		if cur.UsedCount >= cur.MaxUses {
			return nil, ErrKeyExhausted
		}

		snapshot = cur
		cur.UsedBy = append(cur.UsedBy, userID)
		cur.UsedCount++
		cur.LastUsedAt = time.Now().UTC().Format(time.RFC3339)
		cur.LastUsedBy = userID
		remaining = cur.Remaining()
		return cur, nil
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to consume access key: %w", err)
	}

	return &accesskey.Redemption{Key: snapshot, RemainingUses: remaining}, nil
}

// IssueTicket creates a ticket for the user, snapshotting the current
// event details. Enforces one ticket per user.
func (s *TicketService) IssueTicket(ctx context.Context, userID, userName string) (*ticket.Stored, error) {
	var existing map[string]ticket.Ticket
	if err := s.store.Get(ctx, ticketsPath+"/"+userID, &existing); err != nil {
		return nil, fmt.Errorf("failed to load user tickets: %w", err)
	}
	if len(existing) > 0 {
		return nil, ErrDuplicateTicket
	}

	details, err := s.events.GetDetails(ctx)
	if err != nil {
		return nil, err
	}

	t := ticket.Ticket{
		ID:           uuid.New().String(),
		UserID:       userID,
		UserName:     userName,
		EventName:    details.EventName,
		EventDate:    details.EventDate,
		EventTime:    details.EventTime,
		Venue:        details.Venue,
		Price:        details.Price,
		PurchaseDate: time.Now().UTC().Format(time.RFC3339),
		IsScanned:    false,
	}

	fbKey, err := s.store.Push(ctx, ticketsPath+"/"+userID, t)
	if err != nil {
		return nil, fmt.Errorf("failed to save ticket: %w", err)
	}

	return &ticket.Stored{Ticket: t, FirebaseKey: fbKey}, nil
}

// Redeem is the full flow: consume the key, then issue the ticket. If
// issuance fails after the key was consumed, the key stays spent and the
// failure is surfaced; support resolves those cases by hand.
func (s *TicketService) Redeem(ctx context.Context, code, userID, userName string) (*ticket.Stored, *accesskey.Redemption, error) {
	redemption, err := s.ValidateAndConsumeKey(ctx, code, userID)
	if err != nil {
		return nil, nil, err
	}

	issued, err := s.IssueTicket(ctx, userID, userName)
	if err != nil {
		log.Printf("TicketService: key %s consumed by %s but ticket not issued: %v", redemption.Key.KeyCode, userID, err)
		return nil, redemption, err
	}

	return issued, redemption, nil
}

// Scan marks a ticket as used at the door. The false-to-true transition
// happens inside a transaction on the ticket's node, so two staff scanning
// the same ticket at once cannot both succeed.
func (s *TicketService) Scan(ctx context.Context, ticketID, scannedBy, location string) (*ticket.Ticket, error) {
	if location == "" {
		location = defaultScanLocation
	}

	ownerID, fbKey, err := s.locateTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	var scanned ticket.Ticket
	err = s.store.Transaction(ctx, ticketsPath+"/"+ownerID+"/"+fbKey, func(node rtdb.TransactionNode) (interface{}, error) {
		var cur ticket.Ticket
		if err := node.Unmarshal(&cur); err != nil {
			return nil, err
		}
		if cur.ID == "" {
			return nil, ErrTicketNotFound
		}
		if cur.IsScanned {
			return nil, ErrTicketAlreadyScanned
		}

		cur.IsScanned = true
		cur.ScannedAt = time.Now().UTC().Format(time.RFC3339)
		cur.ScannedBy = scannedBy
		cur.ScanLocation = location
		scanned = cur
		return cur, nil
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan ticket: %w", err)
	}

	return &scanned, nil
}

// FindTicket is the read-only verification lookup. It never mutates state.
func (s *TicketService) FindTicket(ctx context.Context, ticketID string) (*ticket.Stored, error) {
	all, err := s.loadAllTickets(ctx)
	if err != nil {
		return nil, err
	}

	for ownerID, userTickets := range all {
		for fbKey, t := range userTickets {
			if t.ID == ticketID {
				t.UserID = ownerID
				return &ticket.Stored{Ticket: t, FirebaseKey: fbKey}, nil
			}
		}
	}
	return nil, ErrTicketNotFound
}

// ListUserTickets returns the user's tickets, newest first.
func (s *TicketService) ListUserTickets(ctx context.Context, userID string) ([]ticket.Stored, error) {
	var userTickets map[string]ticket.Ticket
	if err := s.store.Get(ctx, ticketsPath+"/"+userID, &userTickets); err != nil {
		return nil, fmt.Errorf("failed to load user tickets: %w", err)
	}

	out := make([]ticket.Stored, 0, len(userTickets))
	for fbKey, t := range userTickets {
		out = append(out, ticket.Stored{Ticket: t, FirebaseKey: fbKey})
	}
	sortByPurchaseDate(out)
	return out, nil
}

// AllTickets returns every issued ticket across all users (admin view).
func (s *TicketService) AllTickets(ctx context.Context) ([]ticket.Stored, error) {
	all, err := s.loadAllTickets(ctx)
	if err != nil {
		return nil, err
	}

	var out []ticket.Stored
	for ownerID, userTickets := range all {
		for fbKey, t := range userTickets {
			t.UserID = ownerID
			out = append(out, ticket.Stored{Ticket: t, FirebaseKey: fbKey})
		}
	}
	sortByPurchaseDate(out)
	return out, nil
}

// Analytics summarizes issuance and scanning for the admin dashboard.
func (s *TicketService) Analytics(ctx context.Context) (*ticket.Analytics, error) {
	all, err := s.AllTickets(ctx)
	if err != nil {
		return nil, err
	}

	stats := &ticket.Analytics{TotalTickets: len(all)}
	daily := make(map[string]*ticket.DayStat)
	var days []string

	for _, t := range all {
		day := t.PurchaseDate
		if parsed, err := time.Parse(time.RFC3339, t.PurchaseDate); err == nil {
			day = parsed.UTC().Format("2006-01-02")
		}
		d, ok := daily[day]
		if !ok {
			d = &ticket.DayStat{Date: day}
			daily[day] = d
			days = append(days, day)
		}
		d.Total++
		if t.IsScanned {
			d.Scanned++
			stats.ScannedTickets++
		}
	}

	stats.PendingTickets = stats.TotalTickets - stats.ScannedTickets
	if stats.TotalTickets > 0 {
		stats.ScanRate = stats.ScannedTickets * 100 / stats.TotalTickets
	}

	sort.Strings(days)
	for _, day := range days {
		stats.DailyStats = append(stats.DailyStats, *daily[day])
	}

	recent := all
	if len(recent) > 10 {
		recent = recent[:10]
	}
	stats.RecentTickets = recent

	return stats, nil
}

func (s *TicketService) locateTicket(ctx context.Context, ticketID string) (ownerID, fbKey string, err error) {
	all, err := s.loadAllTickets(ctx)
	if err != nil {
		return "", "", err
	}

	for owner, userTickets := range all {
		for key, t := range userTickets {
			if t.ID == ticketID {
				return owner, key, nil
			}
		}
	}
	return "", "", ErrTicketNotFound
}

func (s *TicketService) loadAllTickets(ctx context.Context) (map[string]map[string]ticket.Ticket, error) {
	var all map[string]map[string]ticket.Ticket
	if err := s.store.Get(ctx, ticketsPath, &all); err != nil {
		return nil, fmt.Errorf("failed to load tickets: %w", err)
	}
	return all, nil
}

func sortByPurchaseDate(tickets []ticket.Stored) {
	sort.Slice(tickets, func(i, j int) bool {
		return tickets[i].PurchaseDate > tickets[j].PurchaseDate
	})
}

func isDomainError(err error) bool {
	for _, domain := range []error{
		ErrKeyNotFound, ErrKeyExpired, ErrKeyExhausted, ErrKeyAlreadyUsed,
		ErrDuplicateTicket, ErrTicketNotFound, ErrTicketAlreadyScanned, ErrConflict,
	} {
		if errors.Is(err, domain) {
			return true
		}
	}
	return false
}
