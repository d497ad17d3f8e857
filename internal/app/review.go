package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"soundcheck.se/encore/internal/cli"
	"soundcheck.se/encore/internal/config"
	"soundcheck.se/encore/internal/db"
	"soundcheck.se/encore/internal/logging"
	"soundcheck.se/encore/internal/review"
)

func runReview(args []string) int {
	if len(args) == 0 {
		printReviewUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printReviewUsage()
		return 0
	case "list":
		return runReviewList(args[1:])
	case "mark":
		return runReviewMark(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown review subcommand: %s\n\n", args[0])
		printReviewUsage()
		return 2
	}
}

func printReviewUsage() {
	fmt.Fprintln(os.Stderr, "encore review")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Subcommands:")
	fmt.Fprintln(os.Stderr, "  list   Show pending review pairs, oldest first")
	fmt.Fprintln(os.Stderr, "  mark   Record a decision for one review pair")
}

func runReviewList(args []string) int {
	fs := flag.NewFlagSet("review list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Second, "Command timeout")
	limit := fs.Int("limit", 50, "Maximum pairs to list")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *limit < 1 {
		fmt.Fprintln(os.Stderr, "--limit must be at least 1")
		return 2
	}

	svc, cleanup, code := reviewService(envLoader, *timeout)
	if code != 0 {
		return code
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	items, err := svc.ListPending(ctx, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list review queue: %v\n", err)
		return 1
	}

	if len(items) == 0 {
		fmt.Println("review queue is empty")
		return 0
	}
	for _, item := range items {
		fmt.Printf("%s  events=%s,%s  artist_sim=%d name_sim=%d  created_at=%s\n",
			item.ID, item.EventID1, item.EventID2,
			item.ArtistSimilarity, item.NameSimilarity,
			item.CreatedAt.Format(time.RFC3339))
	}
	return 0
}

func runReviewMark(args []string) int {
	fs := flag.NewFlagSet("review mark", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Second, "Command timeout")
	id := fs.String("id", "", "Review pair id")
	decision := fs.String("decision", "", fmt.Sprintf("Decision: %s or %s", review.StatusMerged, review.StatusNotDuplicate))
	reviewer := fs.String("reviewer", "", "Reviewer name recorded with the decision")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if strings.TrimSpace(*id) == "" || strings.TrimSpace(*reviewer) == "" {
		fmt.Fprintln(os.Stderr, "--id and --reviewer are required")
		return 2
	}

	svc, cleanup, code := reviewService(envLoader, *timeout)
	if code != 0 {
		return code
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	item, err := svc.MarkReviewed(ctx, strings.TrimSpace(*id), strings.TrimSpace(strings.ToLower(*decision)), strings.TrimSpace(*reviewer))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to mark review pair: %v\n", err)
		if errors.Is(err, review.ErrInvalidDecision) || errors.Is(err, review.ErrNotFound) {
			return 2
		}
		return 1
	}

	fmt.Printf("review_id=%s status=%s reviewed_by=%s\n", item.ID, item.Status, *item.ReviewedBy)
	return 0
}

func reviewService(envLoader *cli.EnvLoader, timeout time.Duration) (*review.Service, func(), int) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, nil, 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return nil, nil, 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return nil, nil, 1
	}

	return review.NewService(pool, logger), func() { _ = pool.Close() }, 0
}
