package leaderboard

import (
	"fmt"
	"strings"
	"time"

	"spinningrats/bot/common"
	"spinningrats/domain/entities"

	"github.com/bwmarrin/discordgo"
)

// BuildLeaderboardEmbed creates the leaderboard embed from a snapshot.
// withImage points the embed at the attached ranking PNG.
func BuildLeaderboardEmbed(snapshot *entities.Snapshot, updatedAt time.Time, withImage bool) *discordgo.MessageEmbed {
	var description strings.Builder
	if len(snapshot.Leaderboard) == 0 {
		description.WriteString("No rats have spun yet. Log in on the site to start earning rat minutes.")
	}
	for _, entry := range snapshot.Leaderboard {
		fmt.Fprintf(&description, "%s **%s** · %s min\n",
			common.RankMedal(entry.Rank), entry.Name, common.FormatCount(entry.Minutes))
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🐀 Spinning Rats Leaderboard",
		Description: strings.TrimRight(description.String(), "\n"),
		Color:       common.ColorCheese,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "🏆 Daily Highscore",
				Value:  common.FormatCount(snapshot.DailyHighscore),
				Inline: true,
			},
			{
				Name:   "👀 Watching Now",
				Value:  fmt.Sprintf("%d", snapshot.ActiveViewers),
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "All-time rat minutes",
		},
		Timestamp: updatedAt.UTC().Format(time.RFC3339),
	}

	if withImage {
		embed.Image = &discordgo.MessageEmbedImage{
			URL: "attachment://" + common.LeaderboardImageName,
		}
	}

	return embed
}

// BuildRatMinutesEmbed creates the embed for a single user's total.
// rank is 0 when the user is outside the leaderboard.
func BuildRatMinutesEmbed(user *entities.RatUser, rank int) *discordgo.MessageEmbed {
	status := "Offline"
	if user.IsOnline {
		status = "🟢 Spinning now"
	}

	fields := []*discordgo.MessageEmbedField{
		{
			Name:   "Rat Minutes",
			Value:  fmt.Sprintf("%s (%s)", common.FormatCount(user.TotalMinutes), common.FormatRatTime(user.TotalMinutes)),
			Inline: true,
		},
		{
			Name:   "Status",
			Value:  status,
			Inline: true,
		},
	}
	if rank > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Rank",
			Value:  common.RankMedal(rank),
			Inline: true,
		})
	}
	if !user.FirstSeenAt.IsZero() {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  "First Spin",
			Value: common.FormatDiscordTimestamp(user.FirstSeenAt, "D"),
		})
	}

	return &discordgo.MessageEmbed{
		Title:  fmt.Sprintf("🧀 %s", user.Name),
		Color:  common.ColorPrimary,
		Fields: fields,
	}
}
