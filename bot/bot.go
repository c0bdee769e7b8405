package bot

import (
	"context"
	"fmt"

	"spinningrats/bot/features/leaderboard"
	"spinningrats/domain/events"
	"spinningrats/infrastructure"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// Config holds bot configuration
type Config struct {
	Token   string
	GuildID string // commands register globally when empty
}

// Bot manages the Discord session and the leaderboard feature
type Bot struct {
	config  Config
	session *discordgo.Session

	leaderboard *leaderboard.Feature

	stopRefresher func()
}

// New connects to Discord, registers slash commands and starts the
// leaderboard refresher
func New(config Config, game leaderboard.Game) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds

	bot := &Bot{
		config:      config,
		session:     dg,
		leaderboard: leaderboard.NewFeature(dg, game),
	}

	dg.AddHandler(bot.handleCommands)
	dg.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.WithFields(log.Fields{
			"user":   r.User.Username,
			"guilds": len(r.Guilds),
		}).Info("Discord bot connected")
	})

	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	if err := bot.registerCommands(); err != nil {
		dg.Close()
		return nil, fmt.Errorf("error registering commands: %w", err)
	}

	bot.stopRefresher = bot.leaderboard.Start(context.Background())
	bot.leaderboard.RequestRefresh()

	return bot, nil
}

// Subscribe wires the leaderboard refresher to the event bus
func (b *Bot) Subscribe(bus *infrastructure.EventBus) {
	bus.Subscribe(events.EventTypeLeaderboardUpdated, b.leaderboard.OnLeaderboardUpdated)
}

// Close stops the refresher and closes the Discord session
func (b *Bot) Close() error {
	if b.stopRefresher != nil {
		b.stopRefresher()
	}
	return b.session.Close()
}

// handleCommands routes slash commands to appropriate handlers
func (b *Bot) handleCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case commandLeaderboard:
		b.leaderboard.HandleLeaderboardCommand(s, i)
	case commandRatMinutes:
		b.leaderboard.HandleRatMinutesCommand(s, i)
	}
}
