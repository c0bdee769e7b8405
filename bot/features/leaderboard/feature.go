package leaderboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"spinningrats/bot/common"
	"spinningrats/domain/entities"
	"spinningrats/domain/events"
	"spinningrats/domain/interfaces"
	"spinningrats/domain/services"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// DefaultRefreshHoldoff is the minimum time between two edits of the cached message
const DefaultRefreshHoldoff = 5 * time.Second

// Game is the part of the game service the leaderboard feature reads and writes
type Game interface {
	interfaces.BotSettingsService
	Snapshot(ctx context.Context, discordID string) *entities.Snapshot
	Leaderboard(ctx context.Context, limit int) []entities.LeaderboardEntry
	GetUser(ctx context.Context, discordID string) (*entities.RatUser, error)
}

// Session is the part of *discordgo.Session the feature talks to
type Session interface {
	common.InteractionResponder
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

// Feature posts the leaderboard message and keeps it current
type Feature struct {
	session Session
	game    Game
	images  *ImageGenerator
	now     func() time.Time

	holdoff   time.Duration
	refreshCh chan struct{}
}

// NewFeature creates a new leaderboard feature instance
func NewFeature(session Session, game Game) *Feature {
	return &Feature{
		session:   session,
		game:      game,
		images:    NewImageGenerator(),
		now:       time.Now,
		holdoff:   DefaultRefreshHoldoff,
		refreshCh: make(chan struct{}, 1),
	}
}

// SetRefreshHoldoff overrides the minimum time between refreshes
func (f *Feature) SetRefreshHoldoff(d time.Duration) {
	f.holdoff = d
}

// HandleLeaderboardCommand handles /leaderboard: post a fresh message in the
// invoking channel and remember it for later refreshes
func (f *Feature) HandleLeaderboardCommand(s common.InteractionResponder, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	if err := common.DeferResponse(s, i, true); err != nil {
		log.WithError(err).Error("Failed to defer leaderboard response")
		return
	}

	msg, err := f.Post(ctx, i.ChannelID)
	if err != nil {
		common.HandleError(s, i, common.NewSystemError(err, "failed to post leaderboard"), true)
		return
	}

	log.WithFields(log.Fields{
		"channel_id": msg.ChannelID,
		"message_id": msg.ID,
		"user_id":    common.InteractionUserID(i),
	}).Info("Leaderboard posted")

	if err := common.FollowUpWithContent(s, i, "🐀 Leaderboard posted. It refreshes as the rats spin.", true); err != nil {
		log.WithError(err).Warn("Failed to confirm leaderboard post")
	}
}

// HandleRatMinutesCommand handles /ratminutes [user]
func (f *Feature) HandleRatMinutesCommand(s common.InteractionResponder, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	target := common.InteractionUser(i)
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "user" && opt.Type == discordgo.ApplicationCommandOptionUser {
			target = opt.UserValue(nil)
		}
	}
	if target == nil || target.ID == "" {
		common.HandleError(s, i, common.NewUserError("Couldn't tell which rat you meant.", "ratminutes without a target user"), false)
		return
	}

	user, err := f.game.GetUser(ctx, target.ID)
	if errors.Is(err, services.ErrUserNotFound) {
		common.HandleError(s, i, common.NewUserError(
			fmt.Sprintf("<@%s> hasn't spun with the rats yet.", target.ID),
			"ratminutes for unknown user"), false)
		return
	}
	if err != nil {
		common.HandleError(s, i, common.NewSystemError(err, "failed to look up rat minutes"), false)
		return
	}

	rank := 0
	for _, entry := range f.game.Leaderboard(ctx, 0) {
		if entry.DiscordID == user.DiscordID {
			rank = entry.Rank
			break
		}
	}

	if err := common.RespondWithEmbed(s, i, BuildRatMinutesEmbed(user, rank), false); err != nil {
		log.WithError(err).Error("Failed to respond to ratminutes command")
	}
}

// Post sends a new leaderboard message to channelID, caches its handle and
// removes the previously cached message
func (f *Feature) Post(ctx context.Context, channelID string) (*discordgo.Message, error) {
	previous := f.game.GetBotSettings(ctx)

	embed, files := f.render(ctx)
	msg, err := f.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Files:  files,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send leaderboard message: %w", err)
	}

	if msg.ChannelID == "" {
		msg.ChannelID = channelID
	}
	f.game.SetLeaderboardMessage(ctx, msg.ChannelID, msg.ID)

	if previous.HasLeaderboardMessage() && *previous.LeaderboardMessageID != msg.ID {
		err := f.session.ChannelMessageDelete(*previous.LeaderboardChannelID, *previous.LeaderboardMessageID)
		if err != nil && !common.IsStaleReference(err) {
			log.WithError(err).WithFields(log.Fields{
				"channel_id": *previous.LeaderboardChannelID,
				"message_id": *previous.LeaderboardMessageID,
			}).Warn("Failed to delete previous leaderboard message")
		}
	}

	return msg, nil
}

// Refresh edits the cached leaderboard message. A message or channel that no
// longer exists clears the cached handle; the next /leaderboard recreates it.
func (f *Feature) Refresh(ctx context.Context) error {
	settings := f.game.GetBotSettings(ctx)
	if !settings.HasLeaderboardMessage() {
		return nil
	}

	channelID := *settings.LeaderboardChannelID
	messageID := *settings.LeaderboardMessageID

	embed, files := f.render(ctx)
	_, err := f.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:     channelID,
		ID:          messageID,
		Embeds:      &[]*discordgo.MessageEmbed{embed},
		Files:       files,
		Attachments: &[]*discordgo.MessageAttachment{},
	})
	if err == nil {
		return nil
	}

	if common.IsStaleReference(err) {
		log.WithFields(log.Fields{
			"channel_id": channelID,
			"message_id": messageID,
		}).Warn("Cached leaderboard message is gone, clearing handle")
		f.game.ClearLeaderboardMessage(ctx)
		return nil
	}

	return fmt.Errorf("failed to update leaderboard message: %w", err)
}

// RequestRefresh schedules a refresh without blocking. Requests made while
// one is pending are coalesced.
func (f *Feature) RequestRefresh() {
	select {
	case f.refreshCh <- struct{}{}:
	default:
	}
}

// OnLeaderboardUpdated is an event bus handler that schedules a refresh
func (f *Feature) OnLeaderboardUpdated(ctx context.Context, event events.Event) {
	f.RequestRefresh()
}

// Start runs the refresh loop and returns a cleanup function that stops it
func (f *Feature) Start(ctx context.Context) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-f.refreshCh:
			}

			if err := f.Refresh(ctx); err != nil {
				log.WithError(err).Error("Leaderboard refresh failed")
			}

			if f.holdoff > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(f.holdoff):
				}
			}
		}
	}()

	log.WithField("holdoff", f.holdoff).Info("Leaderboard refresher started")

	return func() {
		cancel()
		<-done
		log.Info("Leaderboard refresher stopped")
	}
}

// render builds the embed and, when the image renders, the PNG attachment
func (f *Feature) render(ctx context.Context) (*discordgo.MessageEmbed, []*discordgo.File) {
	snapshot := f.game.Snapshot(ctx, "")

	png, err := f.images.Generate(snapshot.Leaderboard)
	if err != nil {
		log.WithError(err).Warn("Failed to render leaderboard image, posting text only")
		return BuildLeaderboardEmbed(snapshot, f.now(), false), nil
	}

	return BuildLeaderboardEmbed(snapshot, f.now(), true), []*discordgo.File{{
		Name:        common.LeaderboardImageName,
		ContentType: "image/png",
		Reader:      bytes.NewReader(png),
	}}
}
