package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"spinningrats/bot/common"
	"spinningrats/config"
	"spinningrats/domain/services"
	"spinningrats/infrastructure"
	"spinningrats/repository"
)

// ImportJSON copies a JSON state document, legacy shapes included, into
// the PostgreSQL backend. Imported users are stored offline.
func ImportJSON(ctx context.Context, path string) error {
	cfg := config.Get()
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required to import into postgres")
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	state, err := repository.NewJSONStateStore(path, loc).LoadStrict(ctx)
	if err != nil {
		return err
	}
	for _, u := range state.Users {
		u.GoOffline()
	}
	state.ActiveViewers = 0

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repository.NewPostgresStateStore(db, loc).Save(ctx, state); err != nil {
		return fmt.Errorf("failed to write imported state: %w", err)
	}

	fmt.Printf("Imported %d users from %s (daily highscore %d, last reset %s)\n",
		len(state.Users), path, state.DailyHighscore, state.LastReset)
	return nil
}

// PrintLeaderboard writes the top n entries of the configured store to w
func PrintLeaderboard(ctx context.Context, w io.Writer, n int) error {
	cfg := config.Get()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg, loc, nil)
	if err != nil {
		return err
	}
	defer closeStore()

	game, err := services.LoadGame(ctx, readOnlyStore{store}, infrastructure.NewNoopEventPublisher(), services.GameConfig{
		Location:        loc,
		LeaderboardSize: cfg.LeaderboardSize,
		MaxScore:        cfg.MaxScore,
	})
	if err != nil {
		return err
	}

	entries := game.Leaderboard(ctx, n)
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No rats have spun yet.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tMINUTES\tTIME\tID")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.Rank, e.Name, common.FormatCount(e.Minutes), common.FormatRatTime(e.Minutes), e.DiscordID)
	}
	fmt.Fprintf(tw, "\nDaily highscore: %d\n", game.CurrentHighscore(ctx))
	return tw.Flush()
}
