package service

import (
	"context"
	"encoding/json"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/websocket"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// TransitionEvent describes a committed workflow transition for fan-out.
type TransitionEvent struct {
	Kind           string      `json:"kind"`
	EntityID       string      `json:"entity_id"`
	EntityName     string      `json:"entity_name"`
	Status         string      `json:"status"`
	Previous       string      `json:"previous_status"`
	ChangedBy      string      `json:"changed_by"`
	TemplateKind   string      `json:"-"`
	RecipientIDs   []uuid.UUID `json:"-"`
	RecipientRoles []string    `json:"-"` // role names whose members should also be notified
}

type NotificationResponse struct {
	ID           string `json:"id"`
	TemplateKind string `json:"template_kind"`
	Payload      string `json:"payload"`
	Read         bool   `json:"read"`
	CreatedAt    string `json:"created_at"`
}

// NotificationService persists in-app notifications and pushes them over the
// WebSocket hub. Dispatch is strictly best-effort: it runs after the entity
// write has committed and its failures are logged, never propagated.
type NotificationService interface {
	Dispatch(ctx context.Context, event TransitionEvent)
	ListForUser(ctx context.Context, userID string, unreadOnly bool, page, limit int) ([]NotificationResponse, int64, error)
	MarkRead(ctx context.Context, id string, userID string) error
}

type notificationService struct {
	db   *gorm.DB
	repo repository.NotificationRepository
	hub  *websocket.Hub
	log  zerolog.Logger
}

func NewNotificationService(db *gorm.DB, repo repository.NotificationRepository, hub *websocket.Hub, log zerolog.Logger) NotificationService {
	return &notificationService{db: db, repo: repo, hub: hub, log: log}
}

func (s *notificationService) Dispatch(ctx context.Context, event TransitionEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.log.Error().Err(err).Str("entity_id", event.EntityID).Msg("notification payload marshal failed")
		return
	}

	recipients := s.resolveRecipients(ctx, event)
	for _, recipientID := range recipients {
		n := model.Notification{
			RecipientID:  recipientID,
			TemplateKind: event.TemplateKind,
			Payload:      string(payload),
		}
		if err := s.repo.Create(ctx, &n); err != nil {
			s.log.Warn().Err(err).
				Str("recipient_id", recipientID.String()).
				Str("entity_id", event.EntityID).
				Msg("notification write failed, transition unaffected")
			continue
		}
		if s.hub != nil {
			s.hub.SendToUser(recipientID.String(), payload)
		}
	}
}

// resolveRecipients unions the explicit recipient ids with the members of the
// named roles (both the legacy single-role column and the join table).
func (s *notificationService) resolveRecipients(ctx context.Context, event TransitionEvent) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(event.RecipientIDs))
	out := make([]uuid.UUID, 0, len(event.RecipientIDs))
	for _, id := range event.RecipientIDs {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}

	if len(event.RecipientRoles) == 0 {
		return out
	}

	var ids []uuid.UUID
	err := s.db.WithContext(ctx).Model(&model.User{}).
		Distinct("users.id").
		Joins("LEFT JOIN user_roles ON user_roles.user_id = users.id").
		Joins("LEFT JOIN roles ON roles.id = user_roles.role_id").
		Where("roles.name IN ? OR users.role IN ?", event.RecipientRoles, event.RecipientRoles).
		Pluck("users.id", &ids).Error
	if err != nil {
		s.log.Warn().Err(err).Msg("role recipient lookup failed, notifying explicit recipients only")
		return out
	}

	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

func (s *notificationService) ListForUser(ctx context.Context, userID string, unreadOnly bool, page, limit int) ([]NotificationResponse, int64, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, 0, err
	}

	notifications, total, err := s.repo.ListForRecipient(ctx, uid, unreadOnly, page, limit)
	if err != nil {
		return nil, 0, err
	}

	out := make([]NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, NotificationResponse{
			ID:           n.ID.String(),
			TemplateKind: n.TemplateKind,
			Payload:      n.Payload,
			Read:         n.Read,
			CreatedAt:    n.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return out, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id string, userID string) error {
	nid, err := uuid.Parse(id)
	if err != nil {
		return err
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return err
	}
	return s.repo.MarkRead(ctx, nid, uid)
}
