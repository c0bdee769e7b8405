package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"spinningrats/application"
	"spinningrats/bot"
	"spinningrats/config"
	"spinningrats/domain/interfaces"
	"spinningrats/domain/services"
	"spinningrats/infrastructure"
	"spinningrats/infrastructure/observability"
	"spinningrats/web"

	"github.com/bwmarrin/discordgo"
)

const (
	eventBusCapacity = 1024
	shutdownTimeout  = 10 * time.Second
)

// Run initializes and starts the site, the bot and the accounting worker,
// then blocks until ctx is cancelled and shuts everything down in order
func Run(ctx context.Context) error {
	log.Println("Starting spinning rats...")

	cfg := config.Get()
	configureLogging(cfg)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		log.Printf("Failed to initialize metrics, continuing without them: %v", err)
	}
	metrics := observability.GetMetrics()

	store, closeStore, err := openStore(ctx, cfg, loc, metrics)
	if err != nil {
		return err
	}
	defer closeStore()

	// The bus outlives ctx so the final flush at shutdown is still delivered
	log.Println("Initializing event bus...")
	bus := infrastructure.NewEventBus(eventBusCapacity)
	bus.Start(context.Background())

	var natsClient *infrastructure.NATSClient
	if cfg.NATSEnabled() {
		natsClient, err = connectNATS(ctx, cfg, bus, metrics)
		if err != nil {
			log.Printf("NATS event mirror disabled: %v", err)
			natsClient = nil
		}
	}

	game, err := services.LoadGame(ctx, store, bus, services.GameConfig{
		Location:        loc,
		LeaderboardSize: cfg.LeaderboardSize,
		MaxScore:        cfg.MaxScore,
	})
	if err != nil {
		bus.Close()
		return err
	}

	notifier, closeNotifier := newNotifier(cfg, metrics)

	hub := web.NewHub(game, metrics)
	hub.Subscribe(bus)

	server := web.NewServer(web.Config{
		Addr:      cfg.HTTPAddr,
		StaticDir: cfg.StaticDir,
		Game:      game,
		Notifier:  notifier,
		Identity:  web.NewDiscordIdentityProvider(cfg.DiscordClientID, cfg.DiscordClientSecret, cfg.DiscordCallbackURL),
		Sessions:  web.NewSessionStore(cfg.SessionSecret, cfg.IsProduction()),
		Hub:       hub,
		Metrics:   metrics,
	})
	if err := server.Start(); err != nil {
		closeNotifier()
		bus.Close()
		return err
	}

	var discordBot *bot.Bot
	if cfg.BotEnabled() {
		log.Println("Initializing Discord bot...")
		discordBot, err = bot.New(bot.Config{Token: cfg.DiscordToken, GuildID: cfg.GuildID}, game)
		if err != nil {
			log.Printf("Discord bot disabled: %v", err)
			discordBot = nil
		} else {
			discordBot.Subscribe(bus)
			log.Println("Discord bot initialized successfully")
		}
	}

	worker := application.NewAccountingWorker(game, cfg.AccountingInterval)
	stopWorker := worker.Start(context.Background())

	log.Printf("Spinning rats running in %s mode on %s", cfg.Environment, cfg.HTTPAddr)
	<-ctx.Done()

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	stopWorker()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down web server: %v", err)
	}

	if discordBot != nil {
		if err := discordBot.Close(); err != nil {
			log.Printf("Error closing Discord bot: %v", err)
		}
	}

	game.Shutdown(shutdownCtx)
	bus.Close()
	closeNotifier()

	if natsClient != nil {
		if err := natsClient.Close(); err != nil {
			log.Printf("Error closing NATS connection: %v", err)
		}
	}

	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.Printf("Error shutting down metrics: %v", err)
	}

	log.Println("Shutdown completed")
	return nil
}

// connectNATS connects to NATS and mirrors every bus event to it
func connectNATS(ctx context.Context, cfg *config.Config, bus *infrastructure.EventBus, metrics *observability.MetricsProvider) (*infrastructure.NATSClient, error) {
	log.Printf("Connecting to NATS at %s...", cfg.NATSServers)
	client := infrastructure.NewNATSClient(cfg.NATSServers)
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}

	publisher := infrastructure.NewNATSEventPublisher(client, infrastructure.NewEventSubjectMapper()).WithMetrics(metrics)
	if err := publisher.EnsureStream(client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ensure event stream: %w", err)
	}

	bus.SubscribeAll(publisher.Handler())
	log.Println("NATS event mirror enabled")
	return client, nil
}

// newNotifier returns the webhook notifier when WEBHOOK_URL is set, else a no-op
func newNotifier(cfg *config.Config, metrics *observability.MetricsProvider) (interfaces.Notifier, func()) {
	if cfg.WebhookURL == "" {
		return infrastructure.NoopNotifier{}, func() {}
	}

	// Webhook execution is authorized by the token in the URL
	session, err := discordgo.New("")
	if err != nil {
		log.Printf("Login announcements disabled: %v", err)
		return infrastructure.NoopNotifier{}, func() {}
	}

	notifier, err := infrastructure.NewWebhookNotifier(session, cfg.WebhookURL, infrastructure.DefaultNotificationQueueSize, metrics)
	if err != nil {
		log.Printf("Login announcements disabled: %v", err)
		return infrastructure.NoopNotifier{}, func() {}
	}

	notifier.Start(context.Background())
	return notifier, notifier.Close
}
