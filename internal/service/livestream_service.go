package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "campusconnect/internal/errors"
	"campusconnect/internal/livekit"
	"campusconnect/internal/model"
	"campusconnect/internal/repository"
)

// RoomSession is a stream together with the credentials to enter its room.
type RoomSession struct {
	model.LivestreamView
	Token      string `json:"token"`
	LivekitURL string `json:"livekitUrl"`
	RoomName   string `json:"roomName"`
}

// LivestreamService handles live rooms and their lifecycle.
type LivestreamService interface {
	Start(ctx context.Context, userID uuid.UUID, title string) (*RoomSession, error)
	Join(ctx context.Context, userID, id uuid.UUID) (*RoomSession, error)
	End(ctx context.Context, userID, id uuid.UUID) error
	ListActive(ctx context.Context) ([]model.LivestreamView, error)
	Get(ctx context.Context, id uuid.UUID) (model.LivestreamView, error)
	ApplyWebhook(ctx context.Context, event *livekit.WebhookEvent) error
}

type livestreamService struct {
	streams repository.LivestreamRepository
	users   repository.UserRepository
	rooms   livekit.RoomProvider
	logger  *zap.Logger
	now     func() time.Time
}

// NewLivestreamService creates a new livestream service. rooms may be nil when
// the provider is not configured; every room operation then fails.
func NewLivestreamService(
	streams repository.LivestreamRepository,
	users repository.UserRepository,
	rooms livekit.RoomProvider,
	logger *zap.Logger,
) LivestreamService {
	return &livestreamService{
		streams: streams,
		users:   users,
		rooms:   rooms,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *livestreamService) displayName(ctx context.Context, userID uuid.UUID, fallback string) string {
	user, err := s.users.FindPublicByID(ctx, userID)
	if err != nil {
		return fallback
	}
	return strings.TrimSpace(user.FirstName + " " + user.LastName)
}

func (s *livestreamService) find(ctx context.Context, id uuid.UUID) (*model.Livestream, error) {
	stream, err := s.streams.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find livestream: %w", err)
	}
	return stream, nil
}

// Start opens a room hosted by userID. A host has at most one live stream.
func (s *livestreamService) Start(ctx context.Context, userID uuid.UUID, title string) (*RoomSession, error) {
	if s.rooms == nil {
		return nil, livekit.ErrNotConfigured
	}

	if _, err := s.streams.FindActiveByUser(ctx, userID); err == nil {
		return nil, apperrors.ErrLivestreamActive
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find active livestream: %w", err)
	}

	stream := &model.Livestream{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     strings.TrimSpace(title),
		Status:    model.LivestreamLive,
		StartedAt: s.now(),
	}
	room := stream.RoomName()

	if err := s.rooms.CreateRoom(ctx, room); err != nil {
		s.logger.Error("livestream.start.room_failed", zap.String("room", room), zap.Error(err))
		return nil, err
	}

	token, err := s.rooms.IssueToken(room, userID.String(), s.displayName(ctx, userID, "Host"), true)
	if err != nil {
		s.dropRoom(ctx, room)
		return nil, err
	}

	if err := s.streams.Create(ctx, stream); err != nil {
		s.dropRoom(ctx, room)
		return nil, fmt.Errorf("create livestream: %w", err)
	}

	created, err := s.find(ctx, stream.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("livestream.start.success", zap.String("livestreamId", stream.ID.String()), zap.String("userId", userID.String()))
	return &RoomSession{
		LivestreamView: model.NewLivestreamView(created),
		Token:          token,
		LivekitURL:     s.rooms.URL(),
		RoomName:       room,
	}, nil
}

func (s *livestreamService) dropRoom(ctx context.Context, room string) {
	if err := s.rooms.DeleteRoom(ctx, room); err != nil {
		s.logger.Warn("livestream.room.delete_failed", zap.String("room", room), zap.Error(err))
	}
}

// Join grants userID access to a live room. Only the host may publish.
func (s *livestreamService) Join(ctx context.Context, userID, id uuid.UUID) (*RoomSession, error) {
	if s.rooms == nil {
		return nil, livekit.ErrNotConfigured
	}

	stream, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if stream.Status != model.LivestreamLive {
		return nil, apperrors.ErrLivestreamEnded
	}

	isHost := stream.UserID == userID
	token, err := s.rooms.IssueToken(stream.RoomName(), userID.String(), s.displayName(ctx, userID, "Viewer"), isHost)
	if err != nil {
		return nil, err
	}

	if !isHost {
		if err := s.streams.AdjustViewers(ctx, id, 1); err != nil {
			return nil, fmt.Errorf("count viewer: %w", err)
		}
		stream.ViewerCount++
	}

	return &RoomSession{
		LivestreamView: model.NewLivestreamView(stream),
		Token:          token,
		LivekitURL:     s.rooms.URL(),
		RoomName:       stream.RoomName(),
	}, nil
}

// End closes a stream hosted by userID. Failing to delete the provider room
// does not fail the call.
func (s *livestreamService) End(ctx context.Context, userID, id uuid.UUID) error {
	err := s.streams.WithTransaction(ctx, func(ctx context.Context, tx repository.LivestreamRepository) error {
		stream, err := tx.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("lock livestream: %w", err)
		}
		if stream.UserID != userID {
			return apperrors.ErrForbidden
		}
		if stream.Status == model.LivestreamEnded {
			return apperrors.ErrLivestreamEnded
		}
		if err := tx.End(ctx, id, s.now()); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrLivestreamEnded
			}
			return fmt.Errorf("end livestream: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.rooms != nil {
		s.dropRoom(ctx, model.RoomPrefix+id.String())
	}
	s.logger.Info("livestream.end.success", zap.String("livestreamId", id.String()))
	return nil
}

// ListActive lists live streams, newest first.
func (s *livestreamService) ListActive(ctx context.Context) ([]model.LivestreamView, error) {
	streams, err := s.streams.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list livestreams: %w", err)
	}
	out := make([]model.LivestreamView, 0, len(streams))
	for i := range streams {
		out = append(out, model.NewLivestreamView(&streams[i]))
	}
	return out, nil
}

// Get returns one stream.
func (s *livestreamService) Get(ctx context.Context, id uuid.UUID) (model.LivestreamView, error) {
	stream, err := s.find(ctx, id)
	if err != nil {
		return model.LivestreamView{}, err
	}
	return model.NewLivestreamView(stream), nil
}

// ApplyWebhook updates stream state from a provider event. Events for rooms
// that do not belong to a stream are ignored. Joins are counted by Join, so
// participant_joined only logs.
func (s *livestreamService) ApplyWebhook(ctx context.Context, event *livekit.WebhookEvent) error {
	if event == nil || !strings.HasPrefix(event.Room, model.RoomPrefix) {
		return nil
	}
	id, err := uuid.Parse(strings.TrimPrefix(event.Room, model.RoomPrefix))
	if err != nil {
		return nil
	}

	switch event.Kind {
	case livekit.EventParticipantJoined:
		s.logger.Debug("livestream.webhook.participant_joined", zap.String("livestreamId", id.String()), zap.String("identity", event.Identity))
	case livekit.EventParticipantLeft:
		stream, err := s.streams.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("find livestream: %w", err)
		}
		if stream.Status != model.LivestreamLive || stream.UserID.String() == event.Identity {
			return nil
		}
		if err := s.streams.AdjustViewers(ctx, id, -1); err != nil {
			return fmt.Errorf("uncount viewer: %w", err)
		}
	case livekit.EventRoomFinished:
		if err := s.streams.End(ctx, id, s.now()); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("end livestream: %w", err)
		}
		s.logger.Info("livestream.webhook.room_finished", zap.String("livestreamId", id.String()))
	}
	return nil
}
