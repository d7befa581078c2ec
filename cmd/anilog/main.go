// Package main provides the anilog CLI entry point.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkobayashi/anilog/internal/activity"
	"github.com/mkobayashi/anilog/internal/api"
	"github.com/mkobayashi/anilog/internal/comments"
	"github.com/mkobayashi/anilog/internal/config"
	"github.com/mkobayashi/anilog/internal/feed"
	"github.com/mkobayashi/anilog/internal/prefetch"
	"github.com/mkobayashi/anilog/internal/store"
	"github.com/mkobayashi/anilog/internal/stream"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("ANILOG_DEBUG") != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

func newClient(cfg *config.Config) *api.Client {
	opts := []api.ClientOption{}
	if cfg.Token != "" {
		opts = append(opts, api.WithToken(cfg.Token))
	}
	return api.NewClient(cfg.APIBaseURL, opts...)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "anilog",
		Short:   "Browse the anilog activity feed",
		Long:    "Anilog shows ratings and reviews from the anilog catalogue as an aggregated activity feed.",
		Version: version,
	}

	rootCmd.SetVersionTemplate("anilog version {{.Version}}\n")

	rootCmd.AddCommand(newFeedCmd())
	rootCmd.AddCommand(newCommentsCmd())
	rootCmd.AddCommand(newLikeCmd())
	rootCmd.AddCommand(newPeekCmd())
	rootCmd.AddCommand(newWatchCmd())

	return rootCmd
}

func newFeedCmd() *cobra.Command {
	var (
		activityType string
		userID       int64
		itemID       int64
		following    bool
		morePages    int
	)

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Display the activity feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			paginator := feed.New(newClient(cfg), cfg.PageSize, logger)
			filter := feed.Filter{
				Type:          activity.Type(activityType),
				UserID:        userID,
				ItemID:        itemID,
				FollowingOnly: following,
			}

			if err := paginator.Apply(ctx, filter); err != nil {
				return err
			}
			for i := 0; i < morePages && paginator.HasMore(); i++ {
				if err := paginator.LoadMore(ctx); err != nil {
					return err
				}
			}

			for _, act := range paginator.Items() {
				printActivity(cmd, act)
			}
			if paginator.HasMore() {
				fmt.Fprintln(cmd.OutOrStdout(), "... more available (use --more)")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&activityType, "type", "t", "", "Filter by activity type (media_rating, media_review, character_rating, character_review)")
	cmd.Flags().Int64VarP(&userID, "user", "u", 0, "Filter by user id")
	cmd.Flags().Int64VarP(&itemID, "item", "i", 0, "Filter by item id")
	cmd.Flags().BoolVarP(&following, "following", "f", false, "Only activities from followed users")
	cmd.Flags().IntVarP(&morePages, "more", "m", 0, "Number of additional pages to load")

	return cmd
}

func printActivity(cmd *cobra.Command, act activity.Activity) {
	line := fmt.Sprintf("[%s] user=%d item=%d", act.Type, act.UserID, act.ItemID)
	if act.Score > 0 {
		line += fmt.Sprintf(" score=%d", act.Score)
	}
	if act.Type.HasReview() && act.Content != "" {
		preview := act.Content
		if len(preview) > 80 {
			preview = preview[:80] + "..."
		}
		line += fmt.Sprintf(" %q", preview)
	}
	line += fmt.Sprintf(" (%d likes, %d comments)", act.LikesCount, act.CommentsCount)
	fmt.Fprintln(cmd.OutOrStdout(), line)
}

func newCommentsCmd() *cobra.Command {
	var (
		activityType string
		userID       int64
		itemID       int64
		reviewID     int64
	)

	cmd := &cobra.Command{
		Use:   "comments",
		Short: "Show an activity's comment thread",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			typ := activity.Type(activityType)
			if !typ.Valid() {
				return fmt.Errorf("invalid activity type %q", activityType)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			resolver := comments.NewResolver(newClient(cfg), logger)
			act := activity.Activity{
				Type:     typ,
				UserID:   userID,
				ItemID:   itemID,
				ReviewID: reviewID,
			}

			thread := resolver.Load(ctx, act)
			if len(thread) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no comments")
				return nil
			}
			for _, c := range thread {
				fmt.Fprintf(cmd.OutOrStdout(), "#%d %s: %s\n", c.ID, c.Username, c.Content)
				for _, reply := range c.Replies {
					fmt.Fprintf(cmd.OutOrStdout(), "  #%d %s: %s\n", reply.ID, reply.Username, reply.Content)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&activityType, "type", "t", string(activity.TypeMediaReview), "Activity type")
	cmd.Flags().Int64VarP(&userID, "user", "u", 0, "Activity's user id")
	cmd.Flags().Int64VarP(&itemID, "item", "i", 0, "Activity's item id")
	cmd.Flags().Int64VarP(&reviewID, "review", "r", 0, "Review id, if known")

	return cmd
}

func newLikeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "like <activity-id>",
		Short: "Toggle your like on an activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			var id int64
			if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
				return fmt.Errorf("invalid activity id %q", args[0])
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			result, err := newClient(cfg).ToggleLike(ctx, id)
			if err != nil {
				return err
			}

			verb := "unliked"
			if result.Liked {
				verb = "liked"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d likes)\n", verb, result.LikesCount)
			return nil
		},
	}

	return cmd
}

func newPeekCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peek <media|character> <id>",
		Short: "Prefetch and display an item's detail payload",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			kind := activity.KindMedia
			switch args[0] {
			case "media":
			case "character":
				kind = activity.KindCharacter
			default:
				return fmt.Errorf("invalid kind %q: must be 'media' or 'character'", args[0])
			}

			var id int64
			if _, err := fmt.Sscanf(args[1], "%d", &id); err != nil {
				return fmt.Errorf("invalid id %q", args[1])
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			cache := prefetch.NewCache(cfg.PrefetchTTL, cfg.PrefetchMaxEntries)
			scheduler := prefetch.NewScheduler(cache, newClient(cfg), cfg.HoverDelay, logger)
			scheduler.Prefetch(ctx, kind, id, cfg.UserID)

			detail := cache.Get(kind, id, cfg.UserID)
			if detail == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing cached")
				return nil
			}

			out := cmd.OutOrStdout()
			if detail.Media != nil {
				fmt.Fprintf(out, "%s (%d episodes, score %.1f)\n", detail.Media.Title, detail.Media.Episodes, detail.Media.Score)
			}
			if detail.Character != nil {
				fmt.Fprintf(out, "%s (%d favorites)\n", detail.Character.Name, detail.Character.Favorites)
			}
			if detail.MyRating != nil {
				fmt.Fprintf(out, "your rating: %d\n", detail.MyRating.Score)
			}
			if detail.MyReview != nil {
				fmt.Fprintf(out, "your review: %s\n", detail.MyReview.Content)
			}
			if len(detail.Reviews) > 0 {
				fmt.Fprintf(out, "%d reviews\n", len(detail.Reviews))
			}
			return nil
		},
	}

	return cmd
}

// feedHandler feeds live stream events into the paginator.
type feedHandler struct {
	paginator *feed.Paginator
	out       func(format string, args ...any)
}

func (h *feedHandler) ActivityCreated(act activity.Activity) {
	h.paginator.Prepend(act)
	h.out("+ %s user=%d item=%d\n", act.Type, act.UserID, act.ItemID)
}

func (h *feedHandler) ActivityDeleted(key string) {
	if h.paginator.Remove(key) {
		h.out("- %s\n", key)
	}
}

func newWatchCmd() *cobra.Command {
	var following bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the live activity stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.StreamURL == "" {
				return fmt.Errorf("ANILOG_STREAM_URL is required for watch")
			}

			st, err := store.Open(cfg.StatePath)
			if err != nil {
				return fmt.Errorf("open state store: %w", err)
			}
			defer st.Close()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			paginator := feed.New(newClient(cfg), cfg.PageSize, logger)
			if err := paginator.Apply(ctx, feed.Filter{FollowingOnly: following}); err != nil {
				logger.Warn("initial feed load failed, streaming from empty", "error", err)
			}

			handler := &feedHandler{
				paginator: paginator,
				out: func(format string, args ...any) {
					fmt.Fprintf(cmd.OutOrStdout(), format, args...)
				},
			}
			subscriber := stream.NewSubscriber(cfg.StreamURL, handler, st, logger)
			go func() {
				if err := subscriber.Start(ctx); err != nil && ctx.Err() == nil {
					logger.Error("stream subscriber exited with error", "error", err)
				}
			}()

			logger.Info("watching activity stream", "url", cfg.StreamURL)

			sig := <-sigCh
			logger.Info("received signal, shutting down", "signal", sig.String())
			cancel()
			return nil
		},
	}

	cmd.Flags().BoolVarP(&following, "following", "f", false, "Only activities from followed users")

	return cmd
}
