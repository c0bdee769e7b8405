package entities

import "time"

// RatUser is a Discord user whose online time is tracked as rat minutes
type RatUser struct {
	DiscordID        string
	Name             string
	TotalMinutes     int64
	IsOnline         bool
	SessionStartedAt *time.Time // Non-nil iff IsOnline
	FirstSeenAt      time.Time
}

// NewRatUser creates a user that is online from now
func NewRatUser(discordID, name string, now time.Time) *RatUser {
	started := now
	return &RatUser{
		DiscordID:        discordID,
		Name:             name,
		IsOnline:         true,
		SessionStartedAt: &started,
		FirstSeenAt:      now,
	}
}

// StartSession marks the user online from now
func (u *RatUser) StartSession(now time.Time) {
	started := now
	u.IsOnline = true
	u.SessionStartedAt = &started
}

// Flush credits whole minutes elapsed since the session start and moves the
// session start to now. Any partial minute is dropped, so every flush can
// undercount by up to one minute.
func (u *RatUser) Flush(now time.Time) int64 {
	if !u.IsOnline || u.SessionStartedAt == nil {
		return 0
	}

	elapsed := int64(now.Sub(*u.SessionStartedAt) / time.Minute)
	if elapsed < 0 {
		// Clock went backwards; credit nothing and restart from now
		elapsed = 0
	}
	u.TotalMinutes += elapsed

	started := now
	u.SessionStartedAt = &started
	return elapsed
}

// EndSession flushes the session and marks the user offline
func (u *RatUser) EndSession(now time.Time) int64 {
	credited := u.Flush(now)
	u.IsOnline = false
	u.SessionStartedAt = nil
	return credited
}

// GoOffline marks the user offline without crediting any time
func (u *RatUser) GoOffline() {
	u.IsOnline = false
	u.SessionStartedAt = nil
}

// HasMinutes checks if the user has any credited time
func (u *RatUser) HasMinutes() bool {
	return u.TotalMinutes > 0
}

// Clone returns a copy that shares no pointers with the original
func (u *RatUser) Clone() *RatUser {
	c := *u
	if u.SessionStartedAt != nil {
		started := *u.SessionStartedAt
		c.SessionStartedAt = &started
	}
	return &c
}
