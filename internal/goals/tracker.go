// Package goals tracks per-user session goals and decides when the bot
// should check in on progress. Goals live in an expiring cache so an
// abandoned guild cannot pin memory forever; work-cycle counters are kept
// per guild and reset when the guild's session ends.
package goals

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/pomobot/pomobot/internal/log"
)

const (
	// DefaultExpiration bounds how long a goal outlives its last touch.
	DefaultExpiration = 12 * time.Hour
	// DefaultCleanupInterval is how often expired entries are purged.
	DefaultCleanupInterval = 30 * time.Minute
)

// oneHour is the target spacing between progress checks, in seconds.
const oneHour = 3600

// entry is the cached state for one user's goal.
type entry struct {
	mu         sync.Mutex
	goal       string
	checkCount int
	reacted    map[string]struct{} // message IDs already reacted to
}

// Tracker holds session goals and guild work-cycle counters.
type Tracker struct {
	goals      *gocache.Cache // "guild:user" → *entry
	bystanders *gocache.Cache // "guild:user" → map[string]struct{} of message IDs

	mu         sync.Mutex
	workCounts map[string]int // guild → completed work units
}

// NewTracker creates a tracker with the given goal TTL.
func NewTracker(expiration, cleanupInterval time.Duration) *Tracker {
	return &Tracker{
		goals:      gocache.New(expiration, cleanupInterval),
		bystanders: gocache.New(expiration, cleanupInterval),
		workCounts: make(map[string]int),
	}
}

func key(guildID, userID string) string {
	return fmt.Sprintf("%s:%s", guildID, userID)
}

func (t *Tracker) lookup(guildID, userID string) (*entry, bool) {
	v, found := t.goals.Get(key(guildID, userID))
	if !found {
		return nil, false
	}
	e, ok := v.(*entry)
	if !ok {
		log.Error(log.CatGoals, "wrong type assertion when getting goal", "guild", guildID, "user", userID)
		return nil, false
	}
	return e, true
}

// SetGoal records a goal for the user, replacing any previous one.
func (t *Tracker) SetGoal(guildID, userID, goal string) {
	t.goals.SetDefault(key(guildID, userID), &entry{
		goal:    goal,
		reacted: make(map[string]struct{}),
	})
	log.Info(log.CatGoals, "goal set", "guild", guildID, "user", userID)
}

// Goal returns the user's goal text, if one is set.
func (t *Tracker) Goal(guildID, userID string) (string, bool) {
	e, found := t.lookup(guildID, userID)
	if !found {
		return "", false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.goal, true
}

// RemoveGoal deletes the user's goal. Returns true if one existed.
func (t *Tracker) RemoveGoal(guildID, userID string) bool {
	k := key(guildID, userID)
	if _, found := t.goals.Get(k); !found {
		return false
	}
	t.goals.Delete(k)
	log.Info(log.CatGoals, "goal removed", "guild", guildID, "user", userID)
	return true
}

// GuildGoals returns every goal set in the guild, keyed by user ID.
func (t *Tracker) GuildGoals(guildID string) map[string]string {
	prefix := guildID + ":"
	result := make(map[string]string)
	for k, item := range t.goals.Items() {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		e, ok := item.Object.(*entry)
		if !ok {
			continue
		}
		e.mu.Lock()
		result[strings.TrimPrefix(k, prefix)] = e.goal
		e.mu.Unlock()
	}
	return result
}

// IncrementCheckCount bumps the user's progress-check counter and returns
// the new value. Returns 0 when the user holds no goal.
func (t *Tracker) IncrementCheckCount(guildID, userID string) int {
	e, found := t.lookup(guildID, userID)
	if !found {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.checkCount++
	return e.checkCount
}

// CalculateFrequency returns after how many completed work units a progress
// check is due, targeting roughly one check per hour of focus time.
func CalculateFrequency(workMinutes int) int {
	if workMinutes <= 0 {
		return 1
	}
	perHour := float64(oneHour) / float64(workMinutes*60)
	freq := int(math.Round(perHour))
	if freq < 1 {
		freq = 1
	}
	return freq
}

// ShouldCheckProgress reports whether the user is due a progress check:
// they hold a goal and the guild's work count has hit a check boundary.
func (t *Tracker) ShouldCheckProgress(guildID, userID string, workMinutes int) bool {
	if _, found := t.lookup(guildID, userID); !found {
		return false
	}
	count := t.WorkCount(guildID)
	return count%CalculateFrequency(workMinutes) == 0
}

// IncrementWorkCount bumps the guild's completed work-unit counter and
// returns the new value.
func (t *Tracker) IncrementWorkCount(guildID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.workCounts[guildID]++
	return t.workCounts[guildID]
}

// WorkCount returns the guild's completed work-unit counter.
func (t *Tracker) WorkCount(guildID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.workCounts[guildID]
}

// MarkReacted records that the user reacted to a progress-check message,
// so repeated reactions on the same message get no second reply.
func (t *Tracker) MarkReacted(guildID, userID, messageID string) {
	if e, found := t.lookup(guildID, userID); found {
		e.mu.Lock()
		e.reacted[messageID] = struct{}{}
		e.mu.Unlock()
		return
	}
	t.markBystander(guildID, userID, messageID)
}

// HasReacted reports whether the user already reacted to the message.
func (t *Tracker) HasReacted(guildID, userID, messageID string) bool {
	if e, found := t.lookup(guildID, userID); found {
		e.mu.Lock()
		defer e.mu.Unlock()
		_, ok := e.reacted[messageID]
		return ok
	}
	return t.hasBystanderReacted(guildID, userID, messageID)
}

// markBystander tracks reactions from users without goals.
func (t *Tracker) markBystander(guildID, userID, messageID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := key(guildID, userID)
	var seen map[string]struct{}
	if v, found := t.bystanders.Get(k); found {
		seen, _ = v.(map[string]struct{})
	}
	if seen == nil {
		seen = make(map[string]struct{})
	}
	seen[messageID] = struct{}{}
	t.bystanders.SetDefault(k, seen)
}

func (t *Tracker) hasBystanderReacted(guildID, userID, messageID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, found := t.bystanders.Get(key(guildID, userID))
	if !found {
		return false
	}
	seen, ok := v.(map[string]struct{})
	if !ok {
		return false
	}
	_, ok = seen[messageID]
	return ok
}

// PurgeGuild drops every goal, reaction record, and the work counter for a
// guild. Called when its session ends. Returns the number of goals removed.
func (t *Tracker) PurgeGuild(guildID string) int {
	prefix := guildID + ":"
	removed := 0
	for k := range t.goals.Items() {
		if strings.HasPrefix(k, prefix) {
			t.goals.Delete(k)
			removed++
		}
	}
	for k := range t.bystanders.Items() {
		if strings.HasPrefix(k, prefix) {
			t.bystanders.Delete(k)
		}
	}

	t.mu.Lock()
	delete(t.workCounts, guildID)
	t.mu.Unlock()

	if removed > 0 {
		log.Info(log.CatGoals, "purged guild goals", "guild", guildID, "count", removed)
	}
	return removed
}

// encouragements maps a progress-check reaction to candidate replies.
var encouragements = map[string][]string{
	"🏆": {
		"Congratulations! 🎉",
		"Goal accomplished, great work! 👏",
		"Perfect! Keep it up next round! 🌟",
	},
	"😎": {
		"Nice! 👍",
		"You're making steady progress! 😊",
		"That's the spirit! 💪",
		"Great pace! ⚡",
	},
	"👌": {
		"Keep it going! 📈",
		"Step by step, you're moving forward! 🚶",
		"Consistency is what counts! 🔄",
		"No rush, go at your own pace! 🐎",
	},
	"😇": {
		"Maybe time for a breather. Coffee? ☕",
		"Breaks matter too. Recharge a little! 🌿",
		"How about a quick change of scenery? 🍃",
	},
}

// EncouragementMessage picks a reply matching the user's reaction.
func EncouragementMessage(reaction string) string {
	messages, ok := encouragements[reaction]
	if !ok {
		return "Keep at it!"
	}
	return messages[rand.IntN(len(messages))]
}
