package main

import (
	"context"
	"flag"
	"fmt"

	"go.uber.org/zap"

	"askgraph/backend/internal/app"
	"askgraph/backend/internal/auth"
	"askgraph/backend/internal/graph"
	"askgraph/backend/pkg/config"
	"askgraph/backend/pkg/logger"
)

type seedUser struct {
	name      string
	bio       string
	interests string
	follows   []string
}

type seedQuestion struct {
	author  string
	title   string
	tags    string
	text    string
	answers []seedAnswer
}

type seedAnswer struct {
	author  string
	text    string
	upvoted []string
}

var community = []seedUser{
	{name: "alice", bio: "Backend engineer", interests: "go databases", follows: []string{"bob", "carol"}},
	{name: "bob", bio: "Graph nerd", interests: "graphs databases", follows: []string{"carol", "dave"}},
	{name: "carol", bio: "Gardener and coder", interests: "gardening go", follows: []string{"erin"}},
	{name: "dave", interests: "music art", follows: []string{"alice"}},
	{name: "erin", interests: "art gardening"},
}

var questions = []seedQuestion{
	{
		author: "bob", title: "When is a graph database the right call?", tags: "graphs databases",
		text: "Our data is mostly relationships. Is that enough of a reason?",
		answers: []seedAnswer{
			{author: "alice", text: "When most queries walk relationships more than two hops deep.", upvoted: []string{"bob", "carol"}},
			{author: "carol", text: "When the schema keeps changing.", upvoted: []string{"dave"}},
		},
	},
	{
		author: "carol", title: "How do you keep tomatoes from splitting?", tags: "gardening",
		text: "Every summer half of them crack.",
		answers: []seedAnswer{
			{author: "erin", text: "Water deeply and consistently, not in bursts.", upvoted: []string{"carol"}},
		},
	},
	{
		author: "alice", title: "errgroup or plain WaitGroup?", tags: "go concurrency",
		text: "I need the first error and cancellation.",
		answers: []seedAnswer{
			{author: "bob", text: "errgroup.WithContext gives you both.", upvoted: []string{"alice", "carol", "dave"}},
		},
	},
	{
		author: "dave", title: "Best way to learn music theory as an adult?", tags: "music",
		text: "Self-taught guitarist here.",
	},
	{
		author: "erin", title: "Watercolor or gouache for beginners?", tags: "art",
		text: "Trying to pick one to start with.",
	},
}

func main() {
	password := flag.String("password", "password123", "Password for every seeded user")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize logger
	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting database seeding...")

	ctx := context.Background()
	core, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize core components", zap.Error(err))
	}
	defer core.Close(context.Background())

	if err := seed(ctx, core, *password, log); err != nil {
		log.Fatal("Seeding failed", zap.Error(err))
	}
	log.Info("Seeding completed successfully")
}

func seed(ctx context.Context, core *app.App, password string, log *zap.Logger) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	fresh := 0
	for _, u := range community {
		created, err := core.Social.Register(ctx, u.name, hash)
		if err != nil {
			return fmt.Errorf("failed to register %s: %w", u.name, err)
		}
		if !created {
			log.Info("User already exists, skipping", zap.String("username", u.name))
			continue
		}
		fresh++
		if u.bio != "" {
			if err := core.Social.ChangeBio(ctx, u.name, u.bio); err != nil {
				return err
			}
		}
		if err := core.Social.ReplaceInterests(ctx, u.name, graph.ParseTags(u.interests)); err != nil {
			return err
		}
	}
	if fresh == 0 {
		log.Info("Community already seeded")
		return nil
	}

	for _, u := range community {
		for _, them := range u.follows {
			if _, err := core.Social.Follow(ctx, u.name, them); err != nil {
				return fmt.Errorf("failed to follow %s -> %s: %w", u.name, them, err)
			}
		}
	}

	for _, sq := range questions {
		q, err := core.Social.AddQuestion(ctx, sq.author, sq.title, graph.ParseTags(sq.tags), sq.text)
		if err != nil {
			return fmt.Errorf("failed to add question %q: %w", sq.title, err)
		}
		for _, sa := range sq.answers {
			a, err := core.Social.AddAnswer(ctx, sa.author, q.ID, sa.text)
			if err != nil {
				return fmt.Errorf("failed to add answer: %w", err)
			}
			for _, voter := range sa.upvoted {
				if _, err := core.Social.UpvoteAnswer(ctx, voter, a.ID); err != nil {
					return fmt.Errorf("failed to upvote: %w", err)
				}
			}
		}
		// everyone following the author bookmarks the question
		for _, u := range community {
			for _, them := range u.follows {
				if them != sq.author {
					continue
				}
				if _, err := core.Social.Bookmark(ctx, u.name, q.ID); err != nil {
					return err
				}
			}
		}
		log.Info("Seeded question",
			zap.String("question_id", q.ID),
			zap.String("author", sq.author),
			zap.Int("answers", len(sq.answers)),
		)
	}
	return nil
}
