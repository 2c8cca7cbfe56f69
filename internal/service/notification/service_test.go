package notification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caremesh/credentialing-api/internal/model"
)

type fakeCredentialSource struct {
	creds []*model.ExpiringCredential
}

func (f *fakeCredentialSource) ListExpiring(_ context.Context, cutoff time.Time) ([]*model.ExpiringCredential, error) {
	var out []*model.ExpiringCredential
	for _, c := range f.creds {
		if !c.ExpirationDate.After(cutoff) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeCredentialSource) CreateLicense(_ context.Context, _ *model.License) error { return nil }
func (f *fakeCredentialSource) GetLicense(_ context.Context, _ uuid.UUID) (*model.License, error) {
	return nil, nil
}
func (f *fakeCredentialSource) ListLicenses(_ context.Context, _ uuid.UUID) ([]*model.License, error) {
	return nil, nil
}
func (f *fakeCredentialSource) UpdateLicense(_ context.Context, _ *model.License) error { return nil }
func (f *fakeCredentialSource) CreateDEA(_ context.Context, _ *model.DEARegistration) error {
	return nil
}
func (f *fakeCredentialSource) GetDEA(_ context.Context, _ uuid.UUID) (*model.DEARegistration, error) {
	return nil, nil
}
func (f *fakeCredentialSource) ListDEAs(_ context.Context, _ uuid.UUID) ([]*model.DEARegistration, error) {
	return nil, nil
}
func (f *fakeCredentialSource) UpdateDEA(_ context.Context, _ *model.DEARegistration) error {
	return nil
}
func (f *fakeCredentialSource) CreateCSR(_ context.Context, _ *model.CSRLicense) error { return nil }
func (f *fakeCredentialSource) GetCSR(_ context.Context, _ uuid.UUID) (*model.CSRLicense, error) {
	return nil, nil
}
func (f *fakeCredentialSource) ListCSRs(_ context.Context, _ uuid.UUID) ([]*model.CSRLicense, error) {
	return nil, nil
}
func (f *fakeCredentialSource) UpdateCSR(_ context.Context, _ *model.CSRLicense) error { return nil }
func (f *fakeCredentialSource) CreateCertification(_ context.Context, _ *model.Certification) error {
	return nil
}
func (f *fakeCredentialSource) GetCertification(_ context.Context, _ uuid.UUID) (*model.Certification, error) {
	return nil, nil
}
func (f *fakeCredentialSource) ListCertifications(_ context.Context, _ uuid.UUID) ([]*model.Certification, error) {
	return nil, nil
}
func (f *fakeCredentialSource) UpdateCertification(_ context.Context, _ *model.Certification) error {
	return nil
}
func (f *fakeCredentialSource) MarkExpired(_ context.Context, _ time.Time) ([]*model.ExpiringCredential, error) {
	return nil, nil
}

type fakeReadRepo struct {
	read map[uuid.UUID]map[uuid.UUID]bool
}

func newFakeReadRepo() *fakeReadRepo {
	return &fakeReadRepo{read: make(map[uuid.UUID]map[uuid.UUID]bool)}
}

func (f *fakeReadRepo) MarkRead(_ context.Context, userID, notificationID uuid.UUID) error {
	if f.read[userID] == nil {
		f.read[userID] = make(map[uuid.UUID]bool)
	}
	f.read[userID][notificationID] = true
	return nil
}

func (f *fakeReadRepo) MarkAllRead(_ context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	for _, id := range ids {
		if err := f.MarkRead(context.Background(), userID, id); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeReadRepo) ListRead(_ context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool, len(f.read[userID]))
	for id, v := range f.read[userID] {
		out[id] = v
	}
	return out, nil
}

func expiringCredential(name string, days int) *model.ExpiringCredential {
	return &model.ExpiringCredential{
		EntityType:     model.EntityTypeLicense,
		EntityID:       uuid.New(),
		PhysicianID:    uuid.New(),
		PhysicianName:  name,
		Identifier:     "MD-100",
		State:          "MA",
		ExpirationDate: time.Now().AddDate(0, 0, days),
		Status:         string(model.CredentialStatusExpiringSoon),
	}
}

func TestFeedOrderingAndSeverity(t *testing.T) {
	source := &fakeCredentialSource{creds: []*model.ExpiringCredential{
		expiringCredential("Dr. Late", 45),
		expiringCredential("Dr. Soon", 5),
		expiringCredential("Dr. Gone", -3),
		expiringCredential("Dr. Mid", 20),
	}}
	svc := NewService(source, newFakeReadRepo())

	feed, err := svc.Feed(context.Background(), uuid.New(), nil)
	require.NoError(t, err)
	require.Len(t, feed, 4)

	// Most urgent first.
	assert.Equal(t, "Dr. Gone", feed[0].PhysicianName)
	assert.Equal(t, "Dr. Soon", feed[1].PhysicianName)
	assert.Equal(t, "Dr. Mid", feed[2].PhysicianName)
	assert.Equal(t, "Dr. Late", feed[3].PhysicianName)

	assert.Equal(t, model.SeverityCritical, feed[0].Severity)
	assert.Equal(t, model.SeverityCritical, feed[1].Severity)
	assert.Equal(t, model.SeverityWarning, feed[2].Severity)
	assert.Equal(t, model.SeverityInfo, feed[3].Severity)

	assert.Contains(t, feed[0].Message, "expired on")
	assert.Contains(t, feed[3].Message, "expires in 45 days")
}

func TestFeedWindowFiltersCredentials(t *testing.T) {
	source := &fakeCredentialSource{creds: []*model.ExpiringCredential{
		expiringCredential("Dr. Near", 10),
		expiringCredential("Dr. Far", 120),
	}}
	svc := NewService(source, newFakeReadRepo())

	feed, err := svc.Feed(context.Background(), uuid.New(), &model.NotificationFilters{WindowDays: 30})
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, "Dr. Near", feed[0].PhysicianName)

	// Default window is 90 days.
	feed, err = svc.Feed(context.Background(), uuid.New(), nil)
	require.NoError(t, err)
	assert.Len(t, feed, 1)

	// Window capped at 365.
	feed, err = svc.Feed(context.Background(), uuid.New(), &model.NotificationFilters{WindowDays: 10000})
	require.NoError(t, err)
	assert.Len(t, feed, 2)
}

func TestNotificationIDsDeterministic(t *testing.T) {
	cred := expiringCredential("Dr. Stable", 15)
	source := &fakeCredentialSource{creds: []*model.ExpiringCredential{cred}}
	svc := NewService(source, newFakeReadRepo())

	first, err := svc.Feed(context.Background(), uuid.New(), nil)
	require.NoError(t, err)
	second, err := svc.Feed(context.Background(), uuid.New(), nil)
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)

	// A different expiration date yields a different notification.
	renewed := *cred
	renewed.ExpirationDate = cred.ExpirationDate.AddDate(1, 0, 0)
	assert.NotEqual(t,
		model.NotificationID(cred.EntityType, cred.EntityID, cred.ExpirationDate),
		model.NotificationID(renewed.EntityType, renewed.EntityID, renewed.ExpirationDate),
	)

	// IDs live in an application namespace, not the RFC 4122 DNS one.
	name := string(cred.EntityType) + ":" + cred.EntityID.String() + ":" + cred.ExpirationDate.Format("2006-01-02")
	assert.NotEqual(t,
		uuid.NewSHA1(uuid.NameSpaceDNS, []byte(name)),
		model.NotificationID(cred.EntityType, cred.EntityID, cred.ExpirationDate),
	)
}

func TestMarkReadIdempotent(t *testing.T) {
	cred := expiringCredential("Dr. Read", 15)
	source := &fakeCredentialSource{creds: []*model.ExpiringCredential{cred}}
	reads := newFakeReadRepo()
	svc := NewService(source, reads)
	userID := uuid.New()

	feed, err := svc.Feed(context.Background(), userID, nil)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.False(t, feed[0].Read)

	require.NoError(t, svc.MarkRead(context.Background(), userID, feed[0].ID))
	require.NoError(t, svc.MarkRead(context.Background(), userID, feed[0].ID))

	feed, err = svc.Feed(context.Background(), userID, nil)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.True(t, feed[0].Read)
	assert.Equal(t, model.SentStatusRead, feed[0].SentStatus)

	// Read markers are per user.
	other, err := svc.Feed(context.Background(), uuid.New(), nil)
	require.NoError(t, err)
	assert.False(t, other[0].Read)
}

func TestUnreadOnlyAndMarkAllRead(t *testing.T) {
	source := &fakeCredentialSource{creds: []*model.ExpiringCredential{
		expiringCredential("Dr. One", 10),
		expiringCredential("Dr. Two", 20),
		expiringCredential("Dr. Three", 30),
	}}
	svc := NewService(source, newFakeReadRepo())
	userID := uuid.New()

	feed, err := svc.Feed(context.Background(), userID, nil)
	require.NoError(t, err)
	require.NoError(t, svc.MarkRead(context.Background(), userID, feed[0].ID))

	unread, err := svc.Feed(context.Background(), userID, &model.NotificationFilters{UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	marked, err := svc.MarkAllRead(context.Background(), userID, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, marked)

	unread, err = svc.Feed(context.Background(), userID, &model.NotificationFilters{UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unread)

	// Nothing left to mark.
	marked, err = svc.MarkAllRead(context.Background(), userID, nil)
	require.NoError(t, err)
	assert.Zero(t, marked)
}
