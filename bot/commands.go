package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

const (
	commandLeaderboard = "leaderboard"
	commandRatMinutes  = "ratminutes"
)

// slashCommands lists the commands registered with Discord
func slashCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        commandLeaderboard,
			Description: "Post the Spinning Rats leaderboard in this channel",
		},
		{
			Name:        commandRatMinutes,
			Description: "Show how many rat minutes someone has spun",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Rat to look up (defaults to you)",
					Required:    false,
				},
			},
		},
	}
}

// registerCommands registers all slash commands with Discord
func (b *Bot) registerCommands() error {
	for _, cmd := range slashCommands() {
		_, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, b.config.GuildID, cmd)
		if err != nil {
			return fmt.Errorf("cannot create '%s' command: %w", cmd.Name, err)
		}
	}

	return nil
}
