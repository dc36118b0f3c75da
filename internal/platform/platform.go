// Package platform defines the boundary between the session engine and the
// chat platform. The engine talks to a Client; tests use the mock package
// and headless daemon runs use the Detached client.
package platform

import (
	"context"
	"fmt"
	"time"
)

// Client is the chat-platform surface the engine needs. Every method takes a
// context so callers can bound platform round trips.
type Client interface {
	// SendStatus posts a status message in the guild's session channel and
	// returns the message ID.
	SendStatus(ctx context.Context, guildID, channelID, content string) (string, error)

	// EditStatus rewrites a previously sent status message in place.
	EditStatus(ctx context.Context, guildID, channelID, messageID, content string) error

	// DeleteStatus removes a status message. Deleting an already-gone
	// message is not an error.
	DeleteStatus(ctx context.Context, guildID, channelID, messageID string) error

	// Pin pins a message in its channel.
	Pin(ctx context.Context, guildID, channelID, messageID string) error

	// Unpin unpins a message. Unpinning an unpinned message is not an error.
	Unpin(ctx context.Context, guildID, channelID, messageID string) error

	// ConnectVoice joins the voice channel the invoking user occupies.
	ConnectVoice(ctx context.Context, guildID, userID string) error

	// DisconnectVoice leaves the guild's voice channel, if connected.
	DisconnectVoice(ctx context.Context, guildID string) error

	// SetMuted server-mutes or unmutes every member of the guild's
	// connected voice channel.
	SetMuted(ctx context.Context, guildID string, muted bool) error

	// VoiceMembers returns the user IDs of members occupying the guild's
	// connected voice channel, excluding the bot itself.
	VoiceMembers(ctx context.Context, guildID string) ([]string, error)

	// PlayAlert plays a named alert sound in the guild's voice channel.
	PlayAlert(ctx context.Context, guildID, sound string) error

	// PromptAndAwaitAck posts a liveness prompt and waits up to timeout for
	// any member reaction. Returns true if someone acknowledged.
	PromptAndAwaitAck(ctx context.Context, guildID, channelID string, timeout time.Duration) (bool, error)

	// InGuild reports whether the bot is still a member of the guild.
	InGuild(ctx context.Context, guildID string) (bool, error)
}

// PermissionError indicates the platform rejected an operation for lack of
// permission. Voice operations degrade gracefully on it: the session keeps
// running without muting.
type PermissionError struct {
	Op      string
	GuildID string
	Err     error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("%s in guild %s: insufficient permission: %v", e.Op, e.GuildID, e.Err)
}

func (e *PermissionError) Unwrap() error {
	return e.Err
}
