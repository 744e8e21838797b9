// Package auth gates every inbound event on the single allow-listed user.
package auth

// Guard checks sender identities against the one configured allowed user.
type Guard struct {
	allowedUserID int64
}

// NewGuard creates a guard for the given Telegram user ID.
func NewGuard(allowedUserID int64) *Guard {
	return &Guard{allowedUserID: allowedUserID}
}

// Allow reports whether the sender may use the bot.
func (g *Guard) Allow(userID int64) bool {
	return userID != 0 && userID == g.allowedUserID
}
