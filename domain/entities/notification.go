package entities

import "fmt"

// NotificationKind distinguishes login announcements
type NotificationKind string

const (
	NotificationFirstLogin     NotificationKind = "first_login"
	NotificationReturningLogin NotificationKind = "returning_login"
)

// LoginNotification is an outbound announcement about a user logging in
type LoginNotification struct {
	Kind        NotificationKind
	DisplayName string
}

// NewLoginNotification picks the notification kind for a session that just began
func NewLoginNotification(displayName string, firstLogin bool) LoginNotification {
	kind := NotificationReturningLogin
	if firstLogin {
		kind = NotificationFirstLogin
	}
	return LoginNotification{Kind: kind, DisplayName: displayName}
}

// Content renders the announcement text
func (n LoginNotification) Content() string {
	switch n.Kind {
	case NotificationFirstLogin:
		return fmt.Sprintf("🧀 **%s** joined the rat zone.", n.DisplayName)
	default:
		return fmt.Sprintf("🐀 **%s** is back in the rat zone.", n.DisplayName)
	}
}
