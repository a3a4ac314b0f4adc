// Copyright 2026 The TrustLink Authors
// Licensed under the EUPL-1.2

package lifecycle_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"codeberg.org/trustlink/trustlink/internal/errs"
	"codeberg.org/trustlink/trustlink/internal/i18n"
	"codeberg.org/trustlink/trustlink/internal/models"
	"codeberg.org/trustlink/trustlink/internal/services/lifecycle"
	"codeberg.org/trustlink/trustlink/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

var errDown = errors.New("store unavailable")

// failingStore fails every call.
type failingStore struct{}

func (failingStore) CreateSession(context.Context, *models.Session) error { return errDown }
func (failingStore) GetSessionByToken(context.Context, string) (*models.Session, error) {
	return nil, errDown
}
func (failingStore) GetSessionByID(context.Context, string) (*models.Session, error) {
	return nil, errDown
}
func (failingStore) UpdateSessionStatus(context.Context, string, models.SessionStatus, models.SessionStatus, time.Time) error {
	return errDown
}

func newManager(t *testing.T, clock *testutil.Clock) *lifecycle.Manager {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	return lifecycle.NewManager(repo, lifecycle.WithClock(clock.Now))
}

func TestGenerateToken_Format(t *testing.T) {
	token, err := lifecycle.GenerateToken()

	require.NoError(t, err)
	assert.Len(t, token, lifecycle.TokenLength)
	assert.True(t, lifecycle.ValidTokenFormat(token))
}

func TestGenerateToken_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 10000)

	for range 10000 {
		token, err := lifecycle.GenerateToken()
		require.NoError(t, err)
		require.Len(t, token, 32)

		_, dup := seen[token]
		require.False(t, dup, "duplicate token generated")
		seen[token] = struct{}{}
	}
}

func TestValidTokenFormat(t *testing.T) {
	assert.True(t, lifecycle.ValidTokenFormat(strings.Repeat("aZ9", 10)+"ab"))
	assert.False(t, lifecycle.ValidTokenFormat(""))
	assert.False(t, lifecycle.ValidTokenFormat(strings.Repeat("a", 31)))
	assert.False(t, lifecycle.ValidTokenFormat(strings.Repeat("a", 31)+"-"))
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "27821234567", lifecycle.NormalizePhone("+27 (82) 123-4567"))
	assert.Equal(t, "", lifecycle.NormalizePhone("n/a"))
}

func TestCreateSession(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	m := newManager(t, testutil.NewClock(now))

	s, err := m.CreateSession(context.Background(),
		lifecycle.BuyerContact{Phone: "082 123 4567", Email: " buyer@example.com "},
		"083-765-4321", models.TypeBoth)

	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Len(t, s.Token, 32)
	assert.Equal(t, models.StatusPending, s.Status)
	assert.Equal(t, "0821234567", s.BuyerPhone)
	assert.Equal(t, "buyer@example.com", s.BuyerEmail)
	assert.Equal(t, "0837654321", s.SellerPhone)
	assert.Equal(t, now.Add(30*time.Minute), s.ExpiresAt)
	assert.Equal(t, "en", s.BuyerLocale)
}

func TestCreateSession_KeepsBuyerLocale(t *testing.T) {
	m := newManager(t, testutil.NewClock(time.Now()))
	ctx := i18n.WithLocale(context.Background(), language.Afrikaans)

	created, err := m.CreateSession(ctx, lifecycle.BuyerContact{Phone: "0821234567"}, "0831234567", models.TypeProperty)
	require.NoError(t, err)

	got, found, err := m.FetchByToken(context.Background(), created.Token)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "af", got.BuyerLocale)
}

func TestCreateSession_CustomTTL(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	_, repo := testutil.NewTestDB(t)
	m := lifecycle.NewManager(repo, lifecycle.WithClock(testutil.NewClock(now).Now), lifecycle.WithTTL(time.Hour))

	s, err := m.CreateSession(context.Background(), lifecycle.BuyerContact{Phone: "1"}, "2", models.TypeVehicle)

	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), s.ExpiresAt)
}

func TestCreateSession_Validation(t *testing.T) {
	m := newManager(t, testutil.NewClock(time.Now()))

	_, err := m.CreateSession(context.Background(), lifecycle.BuyerContact{}, " ", models.VerificationType("boat"))

	require.ErrorIs(t, err, errs.ErrValidation)
	var verr *errs.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"buyer_phone", "seller_phone", "verification_type"}, verr.Fields)
}

func TestCreateSession_PersistenceError(t *testing.T) {
	m := lifecycle.NewManager(failingStore{})

	_, err := m.CreateSession(context.Background(), lifecycle.BuyerContact{Phone: "1"}, "2", models.TypeProperty)

	assert.ErrorIs(t, err, errs.ErrPersistence)
	assert.ErrorIs(t, err, errDown)
}

func TestFetchByToken_RoundTrip(t *testing.T) {
	m := newManager(t, testutil.NewClock(time.Now()))
	ctx := context.Background()
	created, err := m.CreateSession(ctx, lifecycle.BuyerContact{Phone: "0821234567"}, "0831234567", models.TypeProperty)
	require.NoError(t, err)

	got, found, err := m.FetchByToken(ctx, created.Token)

	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, created.VerificationType, got.VerificationType)
	assert.Equal(t, created.BuyerPhone, got.BuyerPhone)
	assert.Equal(t, created.SellerPhone, got.SellerPhone)
}

func TestFetchByToken_NotFound(t *testing.T) {
	m := newManager(t, testutil.NewClock(time.Now()))

	for _, token := range []string{"", "short", strings.Repeat("x", 32)} {
		s, found, err := m.FetchByToken(context.Background(), token)

		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, s)
	}
}

func TestFetchByToken_StoreFailure(t *testing.T) {
	m := lifecycle.NewManager(failingStore{})

	_, found, err := m.FetchByToken(context.Background(), strings.Repeat("x", 32))

	assert.False(t, found)
	assert.ErrorIs(t, err, errs.ErrPersistence)
}

func TestFetchByID(t *testing.T) {
	m := newManager(t, testutil.NewClock(time.Now()))
	ctx := context.Background()
	created, err := m.CreateSession(ctx, lifecycle.BuyerContact{Phone: "1"}, "2", models.TypeIDNumber)
	require.NoError(t, err)

	got, found, err := m.FetchByID(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, created.Token, got.Token)

	_, found, err = m.FetchByID(ctx, "")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestEvaluateExpiry(t *testing.T) {
	expires := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)
	s := &models.Session{ExpiresAt: expires, Status: models.StatusCompleted}

	assert.False(t, lifecycle.EvaluateExpiry(s, expires.Add(-time.Second)).Expired)
	assert.False(t, lifecycle.EvaluateExpiry(s, expires).Expired)
	assert.True(t, lifecycle.EvaluateExpiry(s, expires.Add(time.Nanosecond)).Expired)
}

func TestExpiry_UsesClock(t *testing.T) {
	clock := testutil.NewClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	m := newManager(t, clock)
	s, err := m.CreateSession(context.Background(), lifecycle.BuyerContact{Phone: "1"}, "2", models.TypeBoth)
	require.NoError(t, err)

	clock.Advance(30 * time.Minute)
	assert.False(t, m.Expiry(s).Expired)

	clock.Advance(time.Second)
	assert.True(t, m.Expiry(s).Expired)
}

func TestAdvanceStatus_Forward(t *testing.T) {
	clock := testutil.NewClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	m := newManager(t, clock)
	ctx := context.Background()
	s, err := m.CreateSession(ctx, lifecycle.BuyerContact{Phone: "1"}, "2", models.TypeBoth)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	require.NoError(t, m.AdvanceStatus(ctx, s, models.StatusInProgress))
	assert.Equal(t, models.StatusInProgress, s.Status)
	assert.Equal(t, clock.Now(), s.UpdatedAt)

	require.NoError(t, m.AdvanceStatus(ctx, s, models.StatusCompleted))

	stored, _, err := m.FetchByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)
}

func TestAdvanceStatus_RejectsIllegalMoves(t *testing.T) {
	m := newManager(t, testutil.NewClock(time.Now()))
	ctx := context.Background()
	s, err := m.CreateSession(ctx, lifecycle.BuyerContact{Phone: "1"}, "2", models.TypeBoth)
	require.NoError(t, err)

	err = m.AdvanceStatus(ctx, s, models.StatusCompleted)
	require.ErrorIs(t, err, errs.ErrIllegalTransition)

	err = m.AdvanceStatus(ctx, s, models.StatusExpired)
	require.ErrorIs(t, err, errs.ErrIllegalTransition)

	require.NoError(t, m.AdvanceStatus(ctx, s, models.StatusInProgress))
	err = m.AdvanceStatus(ctx, s, models.StatusPending)
	require.ErrorIs(t, err, errs.ErrIllegalTransition)

	stored, _, err := m.FetchByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, stored.Status)
}

func TestAdvanceStatus_StaleSession(t *testing.T) {
	m := newManager(t, testutil.NewClock(time.Now()))
	ctx := context.Background()
	s, err := m.CreateSession(ctx, lifecycle.BuyerContact{Phone: "1"}, "2", models.TypeBoth)
	require.NoError(t, err)
	stale := *s

	require.NoError(t, m.AdvanceStatus(ctx, s, models.StatusInProgress))
	require.NoError(t, m.AdvanceStatus(ctx, s, models.StatusCompleted))

	err = m.AdvanceStatus(ctx, &stale, models.StatusInProgress)
	require.ErrorIs(t, err, errs.ErrIllegalTransition)
	assert.Equal(t, models.StatusPending, stale.Status)

	stored, _, err := m.FetchByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)
}

func TestLinks(t *testing.T) {
	assert.Equal(t, "https://trustlink.example/verify/abc", lifecycle.VerifyURL("https://trustlink.example/", "abc"))
	assert.Equal(t, "https://trustlink.example/results/abc", lifecycle.ResultsURL("https://trustlink.example", "abc"))
}
