package notification

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/caremesh/credentialing-api/internal/expiry"
	"github.com/caremesh/credentialing-api/internal/model"
	"github.com/caremesh/credentialing-api/internal/repository"
)

const (
	defaultWindowDays = 90
	maxWindowDays     = 365
)

// Service derives the notification feed from upcoming credential
// expirations. Notifications are never stored; only per-user read markers
// are. Because IDs are deterministic per (entity, expiration date), a marker
// stays valid across feed regenerations and a renewal produces a fresh,
// unread notification.
type Service struct {
	credentialRepo repository.CredentialRepository
	readRepo       repository.NotificationReadRepository
}

func NewService(credentialRepo repository.CredentialRepository, readRepo repository.NotificationReadRepository) *Service {
	return &Service{credentialRepo: credentialRepo, readRepo: readRepo}
}

func entityLabel(t model.EntityType) string {
	switch t {
	case model.EntityTypeLicense:
		return "medical license"
	case model.EntityTypeDEA:
		return "DEA registration"
	case model.EntityTypeCSR:
		return "CSR license"
	case model.EntityTypeCertification:
		return "board certification"
	default:
		return string(t)
	}
}

func buildMessage(cred *model.ExpiringCredential, days int) string {
	label := entityLabel(cred.EntityType)
	switch {
	case days < 0:
		return fmt.Sprintf("%s's %s %s expired on %s", cred.PhysicianName, label, cred.Identifier, cred.ExpirationDate.Format("Jan 2, 2006"))
	case days == 0:
		return fmt.Sprintf("%s's %s %s expires today", cred.PhysicianName, label, cred.Identifier)
	case days == 1:
		return fmt.Sprintf("%s's %s %s expires tomorrow", cred.PhysicianName, label, cred.Identifier)
	default:
		return fmt.Sprintf("%s's %s %s expires in %d days", cred.PhysicianName, label, cred.Identifier, days)
	}
}

// Feed generates the notification list for a user, merged with their read
// markers, ordered most urgent first.
func (s *Service) Feed(ctx context.Context, userID uuid.UUID, filters *model.NotificationFilters) ([]*model.Notification, error) {
	window := defaultWindowDays
	if filters != nil && filters.WindowDays > 0 {
		window = filters.WindowDays
	}
	if window > maxWindowDays {
		window = maxWindowDays
	}

	now := time.Now()
	creds, err := s.credentialRepo.ListExpiring(ctx, now.AddDate(0, 0, window))
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring credentials: %w", err)
	}

	read, err := s.readRepo.ListRead(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list read markers: %w", err)
	}

	notifications := make([]*model.Notification, 0, len(creds))
	for _, cred := range creds {
		days := expiry.DaysUntil(cred.ExpirationDate, now)
		id := model.NotificationID(cred.EntityType, cred.EntityID, cred.ExpirationDate)
		isRead := read[id]

		if filters != nil && filters.UnreadOnly && isRead {
			continue
		}

		sentStatus := model.SentStatusPending
		if isRead {
			sentStatus = model.SentStatusRead
		}

		notifications = append(notifications, &model.Notification{
			ID:             id,
			PhysicianID:    cred.PhysicianID,
			PhysicianName:  cred.PhysicianName,
			EntityType:     cred.EntityType,
			EntityID:       cred.EntityID,
			Message:        buildMessage(cred, days),
			ExpirationDate: cred.ExpirationDate,
			DaysUntil:      days,
			Severity:       expiry.Severity(cred.ExpirationDate, now),
			Read:           isRead,
			SentStatus:     sentStatus,
		})
	}

	sort.SliceStable(notifications, func(i, j int) bool {
		if notifications[i].DaysUntil != notifications[j].DaysUntil {
			return notifications[i].DaysUntil < notifications[j].DaysUntil
		}
		return notifications[i].PhysicianName < notifications[j].PhysicianName
	})

	return notifications, nil
}

// MarkRead records a read marker. Marking an already-read notification is a
// no-op.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if err := s.readRepo.MarkRead(ctx, userID, notificationID); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead marks every notification currently in the user's feed as read.
func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID, filters *model.NotificationFilters) (int, error) {
	feed, err := s.Feed(ctx, userID, filters)
	if err != nil {
		return 0, err
	}

	ids := make([]uuid.UUID, 0, len(feed))
	for _, n := range feed {
		if !n.Read {
			ids = append(ids, n.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if err := s.readRepo.MarkAllRead(ctx, userID, ids); err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return len(ids), nil
}
