package common

// Discord color constants
const (
	ColorPrimary = 0x5865F2 // Discord blurple
	ColorSuccess = 0x57F287 // Green
	ColorError   = 0xED4245 // Red
	ColorCheese  = 0xF1C40F // Yellow
)

// Attachment names referenced from embeds
const (
	LeaderboardImageName = "leaderboard.png"
)
