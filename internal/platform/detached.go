package platform

import (
	"context"
	"errors"
	"time"

	"github.com/pomobot/pomobot/internal/log"
)

// ErrDetached indicates an operation that needs a live chat connection was
// invoked on the detached client.
var ErrDetached = errors.New("no chat client attached")

// Detached is the Client the daemon runs with when no chat transport is
// attached. Messaging and voice operations are logged no-ops. Voice-state
// queries return ErrDetached so the idle sweep treats sessions as
// unobservable rather than abandoned, and liveness probes acknowledge
// immediately for the same reason.
type Detached struct{}

// NewDetached returns the detached client.
func NewDetached() *Detached {
	return &Detached{}
}

func (d *Detached) SendStatus(_ context.Context, guildID, channelID, content string) (string, error) {
	log.Debug(log.CatPlatform, "detached send", "guild", guildID, "channel", channelID, "content", content)
	return "", nil
}

func (d *Detached) EditStatus(_ context.Context, guildID, _, messageID, content string) error {
	log.Debug(log.CatPlatform, "detached edit", "guild", guildID, "message", messageID, "content", content)
	return nil
}

func (d *Detached) DeleteStatus(_ context.Context, guildID, _, messageID string) error {
	log.Debug(log.CatPlatform, "detached delete", "guild", guildID, "message", messageID)
	return nil
}

func (d *Detached) Pin(_ context.Context, guildID, _, messageID string) error {
	log.Debug(log.CatPlatform, "detached pin", "guild", guildID, "message", messageID)
	return nil
}

func (d *Detached) Unpin(_ context.Context, guildID, _, messageID string) error {
	log.Debug(log.CatPlatform, "detached unpin", "guild", guildID, "message", messageID)
	return nil
}

func (d *Detached) ConnectVoice(_ context.Context, guildID, userID string) error {
	log.Debug(log.CatPlatform, "detached voice connect", "guild", guildID, "user", userID)
	return nil
}

func (d *Detached) DisconnectVoice(_ context.Context, guildID string) error {
	log.Debug(log.CatPlatform, "detached voice disconnect", "guild", guildID)
	return nil
}

func (d *Detached) SetMuted(_ context.Context, guildID string, muted bool) error {
	log.Debug(log.CatPlatform, "detached mute", "guild", guildID, "muted", muted)
	return nil
}

func (d *Detached) VoiceMembers(_ context.Context, _ string) ([]string, error) {
	return nil, ErrDetached
}

func (d *Detached) PlayAlert(_ context.Context, guildID, sound string) error {
	log.Debug(log.CatPlatform, "detached alert", "guild", guildID, "sound", sound)
	return nil
}

func (d *Detached) PromptAndAwaitAck(_ context.Context, guildID, _ string, _ time.Duration) (bool, error) {
	log.Debug(log.CatPlatform, "detached liveness probe, acking", "guild", guildID)
	return true, nil
}

func (d *Detached) InGuild(_ context.Context, _ string) (bool, error) {
	return true, nil
}

var _ Client = (*Detached)(nil)
