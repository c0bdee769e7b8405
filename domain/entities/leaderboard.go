package entities

// LeaderboardEntry is one ranked row derived from a RatUser
type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	DiscordID string `json:"id"`
	Name      string `json:"displayName"`
	Minutes   int64  `json:"minutes"`
}

// Snapshot is everything a presentation layer needs to render the page or embed
type Snapshot struct {
	Leaderboard    []LeaderboardEntry `json:"leaderboard"`
	DailyHighscore int64              `json:"dailyHighscore"`
	ActiveViewers  int64              `json:"activeViewers"`
	CurrentUser    *CurrentUser       `json:"currentUser"`
}

// CurrentUser is the logged-in user's view of their own record
type CurrentUser struct {
	DiscordID    string `json:"id"`
	Name         string `json:"displayName"`
	TotalMinutes int64  `json:"totalMinutes"`
	IsOnline     bool   `json:"isOnline"`
}
