package livekit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/livekit/protocol/auth"
	lkproto "github.com/livekit/protocol/livekit"
	"github.com/livekit/protocol/webhook"
	lksdk "github.com/livekit/server-sdk-go/v2"
)

// Webhook event kinds applied by the livestream service.
const (
	EventParticipantJoined = "participant_joined"
	EventParticipantLeft   = "participant_left"
	EventRoomFinished      = "room_finished"
)

// ErrNotConfigured is returned when API credentials are missing.
var ErrNotConfigured = errors.New("livekit is not configured")

// RoomProvider creates media rooms and grants access to them.
type RoomProvider interface {
	CreateRoom(ctx context.Context, name string) error
	DeleteRoom(ctx context.Context, name string) error
	IssueToken(room, identity, displayName string, canPublish bool) (string, error)
	URL() string
}

// WebhookEvent is the part of a provider callback the service acts on.
type WebhookEvent struct {
	Kind     string
	Room     string
	Identity string
}

// Config holds server URL and API credentials.
type Config struct {
	URL       string
	APIKey    string
	APISecret string
	TokenTTL  time.Duration
}

// Provider talks to a LiveKit server.
type Provider struct {
	cfg   Config
	rooms *lksdk.RoomServiceClient
	keys  auth.KeyProvider
}

var _ RoomProvider = (*Provider)(nil)

// NewProvider creates a provider. It does not dial until the first call.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, ErrNotConfigured
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 6 * time.Hour
	}
	return &Provider{
		cfg:   cfg,
		rooms: lksdk.NewRoomServiceClient(cfg.URL, cfg.APIKey, cfg.APISecret),
		keys:  auth.NewSimpleKeyProvider(cfg.APIKey, cfg.APISecret),
	}, nil
}

// URL returns the client-facing server URL.
func (p *Provider) URL() string {
	return p.cfg.URL
}

// CreateRoom creates a room that closes shortly after the last participant leaves.
func (p *Provider) CreateRoom(ctx context.Context, name string) error {
	_, err := p.rooms.CreateRoom(ctx, &lkproto.CreateRoomRequest{
		Name:            name,
		EmptyTimeout:    300,
		MaxParticipants: 500,
	})
	if err != nil {
		return fmt.Errorf("create room %s: %w", name, err)
	}
	return nil
}

// DeleteRoom closes a room and disconnects everyone in it.
func (p *Provider) DeleteRoom(ctx context.Context, name string) error {
	if _, err := p.rooms.DeleteRoom(ctx, &lkproto.DeleteRoomRequest{Room: name}); err != nil {
		return fmt.Errorf("delete room %s: %w", name, err)
	}
	return nil
}

// IssueToken signs a join token for room. Viewers get subscribe-only access.
func (p *Provider) IssueToken(room, identity, displayName string, canPublish bool) (string, error) {
	grant := &auth.VideoGrant{
		RoomJoin: true,
		Room:     room,
	}
	grant.SetCanPublish(canPublish)
	grant.SetCanPublishData(canPublish)
	grant.SetCanSubscribe(true)

	token, err := auth.NewAccessToken(p.cfg.APIKey, p.cfg.APISecret).
		SetVideoGrant(grant).
		SetIdentity(identity).
		SetName(displayName).
		SetValidFor(p.cfg.TokenTTL).
		ToJWT()
	if err != nil {
		return "", fmt.Errorf("sign room token: %w", err)
	}
	return token, nil
}

// ParseWebhook verifies the request signature and decodes the event.
func (p *Provider) ParseWebhook(r *http.Request) (*WebhookEvent, error) {
	event, err := webhook.ReceiveWebhookEvent(r, p.keys)
	if err != nil {
		return nil, fmt.Errorf("verify webhook: %w", err)
	}
	out := &WebhookEvent{Kind: event.GetEvent()}
	if room := event.GetRoom(); room != nil {
		out.Room = room.GetName()
	}
	if participant := event.GetParticipant(); participant != nil {
		out.Identity = participant.GetIdentity()
	}
	return out, nil
}
