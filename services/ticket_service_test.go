package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freshersTicketAPI/internal/rtdb"
	"freshersTicketAPI/internal/types/accesskey"
	"freshersTicketAPI/internal/types/event"
)

func newTestEnv(t *testing.T) (*TicketService, *AccessKeyService, *EventService, *rtdb.MemoryGateway) {
	t.Helper()
	store := rtdb.NewMemoryGateway()
	events := NewEventService(store)
	tickets := NewTicketService(store, events)
	keys := NewAccessKeyService(store, events)
	return tickets, keys, events, store
}

func seedKey(t *testing.T, store *rtdb.MemoryGateway, id string, key accesskey.AccessKey) {
	t.Helper()
	require.NoError(t, store.Set(context.Background(), "accessKeys/"+id, key))
}

func singleUseKey(code string) accesskey.AccessKey {
	return accesskey.AccessKey{
		KeyCode:   code,
		MaxUses:   1,
		IsActive:  true,
		CreatedBy: "admin@university.edu",
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

func TestValidateAndConsumeKey_NormalizesCode(t *testing.T) {
	tickets, _, _, store := newTestEnv(t)
	seedKey(t, store, "k1", singleUseKey("ABC12345"))

	redemption, err := tickets.ValidateAndConsumeKey(context.Background(), "  abc12345 ", "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, redemption.RemainingUses)
	assert.Equal(t, "ABC12345", redemption.Key.KeyCode)
	// The returned key is the pre-update snapshot.
	assert.Equal(t, 0, redemption.Key.UsedCount)

	// The key itself is now exhausted for the next user.
	_, err = tickets.ValidateAndConsumeKey(context.Background(), "ABC12345", "u2")
	assert.ErrorIs(t, err, ErrKeyExhausted)
}

func TestValidateAndConsumeKey_UnknownOrInactive(t *testing.T) {
	tickets, _, _, store := newTestEnv(t)

	_, err := tickets.ValidateAndConsumeKey(context.Background(), "NOPE1234", "u1")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	inactive := singleUseKey("DEAD1234")
	inactive.IsActive = false
	seedKey(t, store, "k1", inactive)

	_, err = tickets.ValidateAndConsumeKey(context.Background(), "DEAD1234", "u1")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestValidateAndConsumeKey_Expired(t *testing.T) {
	tickets, _, _, store := newTestEnv(t)

	key := singleUseKey("OLD12345")
	key.ExpiresAt = time.Now().Add(-24 * time.Hour).UTC().Format(time.RFC3339)
	seedKey(t, store, "k1", key)

	// Expired wins even though the key has uses left.
	_, err := tickets.ValidateAndConsumeKey(context.Background(), "old12345", "u1")
	assert.ErrorIs(t, err, ErrKeyExpired)
}

func TestValidateAndConsumeKey_SameUserTwice(t *testing.T) {
	tickets, _, _, store := newTestEnv(t)

	key := singleUseKey("MULTI123")
	key.MaxUses = 5
	seedKey(t, store, "k1", key)

	_, err := tickets.ValidateAndConsumeKey(context.Background(), "MULTI123", "u1")
	require.NoError(t, err)

	_, err = tickets.ValidateAndConsumeKey(context.Background(), "MULTI123", "u1")
	assert.ErrorIs(t, err, ErrKeyAlreadyUsed)
}

func TestValidateAndConsumeKey_AlreadyUsedBeatsExhausted(t *testing.T) {
	tickets, _, _, store := newTestEnv(t)
	seedKey(t, store, "k1", singleUseKey("ONCE1234"))

	_, err := tickets.ValidateAndConsumeKey(context.Background(), "ONCE1234", "u1")
	require.NoError(t, err)

	// The user who spent the key is told "already used", not "exhausted",
	// even though both are true.
	_, err = tickets.ValidateAndConsumeKey(context.Background(), "ONCE1234", "u1")
	assert.ErrorIs(t, err, ErrKeyAlreadyUsed)
}

func TestValidateAndConsumeKey_CounterMatchesUsedBy(t *testing.T) {
	tickets, _, _, store := newTestEnv(t)

	key := singleUseKey("TEAM1234")
	key.MaxUses = 3
	seedKey(t, store, "k1", key)

	for _, uid := range []string{"u1", "u2", "u3"} {
		_, err := tickets.ValidateAndConsumeKey(context.Background(), "TEAM1234", uid)
		require.NoError(t, err)
	}

	var stored accesskey.AccessKey
	require.NoError(t, store.Get(context.Background(), "accessKeys/k1", &stored))
	assert.Equal(t, 3, stored.UsedCount)
	assert.Len(t, stored.UsedBy, 3)
	assert.Equal(t, "u3", stored.LastUsedBy)

	_, err := tickets.ValidateAndConsumeKey(context.Background(), "TEAM1234", "u4")
	assert.ErrorIs(t, err, ErrKeyExhausted)
}

func TestValidateAndConsumeKey_ConcurrentSingleUse(t *testing.T) {
	tickets, _, _, store := newTestEnv(t)
	seedKey(t, store, "k1", singleUseKey("RACE1234"))

	const n = 16
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = tickets.ValidateAndConsumeKey(context.Background(), "RACE1234", string(rune('a'+i)))
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.True(t, isDomainError(err), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, successes, "exactly one concurrent redemption must win")

	var stored accesskey.AccessKey
	require.NoError(t, store.Get(context.Background(), "accessKeys/k1", &stored))
	assert.Equal(t, 1, stored.UsedCount)
	assert.Len(t, stored.UsedBy, 1)
}

func TestIssueTicket_SnapshotsEventDetails(t *testing.T) {
	tickets, _, events, _ := newTestEnv(t)
	ctx := context.Background()

	_, err := events.UpdateDetails(ctx, event.Details{
		EventName: "Freshers Welcome 2025",
		EventDate: "2025-10-02",
		EventTime: "12:00 PM - 6:00 PM",
		Venue:     "Venue A",
		Price:     "300",
		Currency:  "INR",
	})
	require.NoError(t, err)

	issued, err := tickets.IssueTicket(ctx, "u1", "Priya Sharma")
	require.NoError(t, err)
	assert.Equal(t, "Venue A", issued.Venue)
	assert.Equal(t, "Priya Sharma", issued.UserName)
	assert.False(t, issued.IsScanned)
	assert.NotEmpty(t, issued.ID)
	assert.NotEmpty(t, issued.FirebaseKey)

	// Editing the event later must not touch the issued ticket.
	_, err = events.UpdateDetails(ctx, event.Details{
		EventName: "Freshers Welcome 2025",
		EventDate: "2025-10-02",
		EventTime: "12:00 PM - 6:00 PM",
		Venue:     "Venue B",
		Price:     "300",
		Currency:  "INR",
	})
	require.NoError(t, err)

	mine, err := tickets.ListUserTickets(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Venue A", mine[0].Venue)
}

func TestIssueTicket_OnePerUser(t *testing.T) {
	tickets, _, _, _ := newTestEnv(t)
	ctx := context.Background()

	_, err := tickets.IssueTicket(ctx, "u1", "Priya")
	require.NoError(t, err)

	_, err = tickets.IssueTicket(ctx, "u1", "Priya")
	assert.ErrorIs(t, err, ErrDuplicateTicket)
}

func TestRedeem_SecondKeyStillDuplicate(t *testing.T) {
	tickets, _, _, store := newTestEnv(t)
	ctx := context.Background()

	seedKey(t, store, "k1", singleUseKey("FIRST123"))
	seedKey(t, store, "k2", singleUseKey("SECOND12"))

	issued, redemption, err := tickets.Redeem(ctx, "FIRST123", "u1", "Priya")
	require.NoError(t, err)
	assert.Equal(t, 0, redemption.RemainingUses)
	assert.NotNil(t, issued)

	// A different, perfectly valid key does not grant a second ticket.
	_, _, err = tickets.Redeem(ctx, "SECOND12", "u1", "Priya")
	assert.ErrorIs(t, err, ErrDuplicateTicket)
}

func TestScan_MarksExactlyOnce(t *testing.T) {
	tickets, _, _, _ := newTestEnv(t)
	ctx := context.Background()

	issued, err := tickets.IssueTicket(ctx, "u1", "Priya")
	require.NoError(t, err)

	scanned, err := tickets.Scan(ctx, issued.ID, "admin@x", "Gate A")
	require.NoError(t, err)
	assert.True(t, scanned.IsScanned)
	assert.Equal(t, "admin@x", scanned.ScannedBy)
	assert.Equal(t, "Gate A", scanned.ScanLocation)
	assert.NotEmpty(t, scanned.ScannedAt)

	_, err = tickets.Scan(ctx, issued.ID, "admin@x", "Gate A")
	assert.ErrorIs(t, err, ErrTicketAlreadyScanned)
}

func TestScan_DefaultLocation(t *testing.T) {
	tickets, _, _, _ := newTestEnv(t)
	ctx := context.Background()

	issued, err := tickets.IssueTicket(ctx, "u1", "Priya")
	require.NoError(t, err)

	scanned, err := tickets.Scan(ctx, issued.ID, "admin@x", "")
	require.NoError(t, err)
	assert.Equal(t, "Event Entrance", scanned.ScanLocation)
}

func TestScan_NotFound(t *testing.T) {
	tickets, _, _, _ := newTestEnv(t)

	_, err := tickets.Scan(context.Background(), "no-such-ticket", "admin@x", "Gate A")
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestScan_Concurrent(t *testing.T) {
	tickets, _, _, _ := newTestEnv(t)
	ctx := context.Background()

	issued, err := tickets.IssueTicket(ctx, "u1", "Priya")
	require.NoError(t, err)

	const n = 16
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = tickets.Scan(ctx, issued.ID, "admin@x", "Gate A")
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, ErrTicketAlreadyScanned)
		}
	}
	assert.Equal(t, 1, successes, "exactly one concurrent scan must win")

	// ScannedAt was set once; re-reading gives a stable value.
	found, err := tickets.FindTicket(ctx, issued.ID)
	require.NoError(t, err)
	first := found.ScannedAt
	assert.NotEmpty(t, first)

	found, err = tickets.FindTicket(ctx, issued.ID)
	require.NoError(t, err)
	assert.Equal(t, first, found.ScannedAt)
}

func TestFindTicket_ReadOnly(t *testing.T) {
	tickets, _, _, _ := newTestEnv(t)
	ctx := context.Background()

	issued, err := tickets.IssueTicket(ctx, "u1", "Priya")
	require.NoError(t, err)

	found, err := tickets.FindTicket(ctx, issued.ID)
	require.NoError(t, err)
	assert.Equal(t, issued.ID, found.ID)
	assert.Equal(t, "u1", found.UserID)
	assert.False(t, found.IsScanned)

	_, err = tickets.FindTicket(ctx, "missing")
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestAnalytics(t *testing.T) {
	tickets, _, _, _ := newTestEnv(t)
	ctx := context.Background()

	t1, err := tickets.IssueTicket(ctx, "u1", "Priya")
	require.NoError(t, err)
	_, err = tickets.IssueTicket(ctx, "u2", "Arjun")
	require.NoError(t, err)

	_, err = tickets.Scan(ctx, t1.ID, "admin@x", "Gate A")
	require.NoError(t, err)

	stats, err := tickets.Analytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalTickets)
	assert.Equal(t, 1, stats.ScannedTickets)
	assert.Equal(t, 1, stats.PendingTickets)
	assert.Equal(t, 50, stats.ScanRate)
	require.Len(t, stats.DailyStats, 1)
	assert.Equal(t, 2, stats.DailyStats[0].Total)
	assert.Equal(t, 1, stats.DailyStats[0].Scanned)
	assert.Len(t, stats.RecentTickets, 2)
}
