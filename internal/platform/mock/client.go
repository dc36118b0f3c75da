// Package mock provides a configurable in-memory platform.Client for tests.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pomobot/pomobot/internal/platform"
)

// Client is a mock implementation of platform.Client.
// Behavior is configured via function fields; unset fields use a benign
// default. All calls are recorded for assertions.
type Client struct {
	SendStatusFunc        func(ctx context.Context, guildID, channelID, content string) (string, error)
	EditStatusFunc        func(ctx context.Context, guildID, channelID, messageID, content string) error
	DeleteStatusFunc      func(ctx context.Context, guildID, channelID, messageID string) error
	PinFunc               func(ctx context.Context, guildID, channelID, messageID string) error
	UnpinFunc             func(ctx context.Context, guildID, channelID, messageID string) error
	ConnectVoiceFunc      func(ctx context.Context, guildID, userID string) error
	DisconnectVoiceFunc   func(ctx context.Context, guildID string) error
	SetMutedFunc          func(ctx context.Context, guildID string, muted bool) error
	VoiceMembersFunc      func(ctx context.Context, guildID string) ([]string, error)
	PlayAlertFunc         func(ctx context.Context, guildID, sound string) error
	PromptAndAwaitAckFunc func(ctx context.Context, guildID, channelID string, timeout time.Duration) (bool, error)
	InGuildFunc           func(ctx context.Context, guildID string) (bool, error)

	mu       sync.Mutex
	calls    []Call
	nextMsg  int
	messages map[string]string // message ID → latest content
	muted    map[string]bool   // guild → mute state
}

// Call records one invocation of a mock method.
type Call struct {
	Method string
	Args   []string
}

var _ platform.Client = (*Client)(nil)

// NewClient creates a mock client with default behavior: messages succeed
// and are tracked in memory, voice channels report one member, the bot is a
// member of every guild, and acks always arrive.
func NewClient() *Client {
	return &Client{
		messages: make(map[string]string),
		muted:    make(map[string]bool),
	}
}

func (c *Client) record(method string, args ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{Method: method, Args: args})
}

// Calls returns a copy of every recorded call.
func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// CallCount returns how many times the named method was invoked.
func (c *Client) CallCount(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		if call.Method == method {
			n++
		}
	}
	return n
}

// Message returns the latest content of a tracked message.
func (c *Client) Message(messageID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	content, ok := c.messages[messageID]
	return content, ok
}

// Muted returns the last mute state set for a guild.
func (c *Client) Muted(guildID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted[guildID]
}

// Reset clears all recorded calls and tracked state.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = nil
	c.messages = make(map[string]string)
	c.muted = make(map[string]bool)
	c.nextMsg = 0
}

func (c *Client) SendStatus(ctx context.Context, guildID, channelID, content string) (string, error) {
	c.record("SendStatus", guildID, channelID, content)
	if c.SendStatusFunc != nil {
		return c.SendStatusFunc(ctx, guildID, channelID, content)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextMsg++
	id := fmt.Sprintf("msg-%d", c.nextMsg)
	c.messages[id] = content
	return id, nil
}

func (c *Client) EditStatus(ctx context.Context, guildID, channelID, messageID, content string) error {
	c.record("EditStatus", guildID, channelID, messageID, content)
	if c.EditStatusFunc != nil {
		return c.EditStatusFunc(ctx, guildID, channelID, messageID, content)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages[messageID] = content
	return nil
}

func (c *Client) DeleteStatus(ctx context.Context, guildID, channelID, messageID string) error {
	c.record("DeleteStatus", guildID, channelID, messageID)
	if c.DeleteStatusFunc != nil {
		return c.DeleteStatusFunc(ctx, guildID, channelID, messageID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.messages, messageID)
	return nil
}

func (c *Client) Pin(ctx context.Context, guildID, channelID, messageID string) error {
	c.record("Pin", guildID, channelID, messageID)
	if c.PinFunc != nil {
		return c.PinFunc(ctx, guildID, channelID, messageID)
	}
	return nil
}

func (c *Client) Unpin(ctx context.Context, guildID, channelID, messageID string) error {
	c.record("Unpin", guildID, channelID, messageID)
	if c.UnpinFunc != nil {
		return c.UnpinFunc(ctx, guildID, channelID, messageID)
	}
	return nil
}

func (c *Client) ConnectVoice(ctx context.Context, guildID, userID string) error {
	c.record("ConnectVoice", guildID, userID)
	if c.ConnectVoiceFunc != nil {
		return c.ConnectVoiceFunc(ctx, guildID, userID)
	}
	return nil
}

func (c *Client) DisconnectVoice(ctx context.Context, guildID string) error {
	c.record("DisconnectVoice", guildID)
	if c.DisconnectVoiceFunc != nil {
		return c.DisconnectVoiceFunc(ctx, guildID)
	}
	return nil
}

func (c *Client) SetMuted(ctx context.Context, guildID string, muted bool) error {
	c.record("SetMuted", guildID, fmt.Sprintf("%t", muted))
	if c.SetMutedFunc != nil {
		return c.SetMutedFunc(ctx, guildID, muted)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.muted[guildID] = muted
	return nil
}

func (c *Client) VoiceMembers(ctx context.Context, guildID string) ([]string, error) {
	c.record("VoiceMembers", guildID)
	if c.VoiceMembersFunc != nil {
		return c.VoiceMembersFunc(ctx, guildID)
	}
	return []string{"member-1"}, nil
}

func (c *Client) PlayAlert(ctx context.Context, guildID, sound string) error {
	c.record("PlayAlert", guildID, sound)
	if c.PlayAlertFunc != nil {
		return c.PlayAlertFunc(ctx, guildID, sound)
	}
	return nil
}

func (c *Client) PromptAndAwaitAck(ctx context.Context, guildID, channelID string, timeout time.Duration) (bool, error) {
	c.record("PromptAndAwaitAck", guildID, channelID)
	if c.PromptAndAwaitAckFunc != nil {
		return c.PromptAndAwaitAckFunc(ctx, guildID, channelID, timeout)
	}
	return true, nil
}

func (c *Client) InGuild(ctx context.Context, guildID string) (bool, error) {
	c.record("InGuild", guildID)
	if c.InGuildFunc != nil {
		return c.InGuildFunc(ctx, guildID)
	}
	return true, nil
}
