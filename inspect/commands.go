package inspect

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/bitterfly/go-chaos/onetomany/schema"
	"github.com/bitterfly/go-chaos/onetomany/utils"
	"golang.org/x/exp/slices"
)

const (
	timeLayout    = "2006-01-02 15:04:05"
	contentLength = 48
)

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, rest string) error
}

func (s *Shell) commands() map[string]command {
	commands := map[string]command{
		"games": {
			usage: "games",
			help:  "list every game",
			run:   s.games,
		},
		"game": {
			usage: "game <id>",
			help:  "show one game with its reviews",
			run:   s.game,
		},
		"reviews": {
			usage: "reviews <game-id>",
			help:  "list the reviews of a game",
			run:   s.reviews,
		},
		"review": {
			usage: "review <id>",
			help:  "show one review and the game it belongs to",
			run:   s.review,
		},
		"count": {
			usage: "count",
			help:  "count games and reviews",
			run:   s.count,
		},
		"stats": {
			usage: "stats <game-id>",
			help:  "summarize the ratings of a game",
			run:   s.stats,
		},
		"tables": {
			usage: "tables",
			help:  "list the tables in the store",
			run:   s.tables,
		},
		"sql": {
			usage: "sql <query>",
			help:  "run a read-only query",
			run:   s.sql,
		},
	}
	commands["help"] = command{
		usage: "help",
		help:  "show this message",
		run: func(ctx context.Context, rest string) error {
			return s.help(commands)
		},
	}
	return commands
}

func (s *Shell) table() *tabwriter.Writer {
	return tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
}

func (s *Shell) help(commands map[string]command) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)

	w := s.table()
	for _, name := range names {
		fmt.Fprintf(w, "  %s\t%s\n", commands[name].usage, commands[name].help)
	}
	fmt.Fprintf(w, "  %s\t%s\n", strings.Join(quitCommands, " | "), "leave the session")
	return w.Flush()
}

func (s *Shell) writeGames(games []schema.Game) error {
	w := s.table()
	fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION\tCREATED")
	for _, g := range games {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			g.ID, g.Name, utils.Truncate(g.Description, contentLength), g.CreatedAt.Format(timeLayout))
	}
	return w.Flush()
}

func (s *Shell) writeReviews(reviews []schema.Review) error {
	w := s.table()
	fmt.Fprintln(w, "ID\tGAME\tAUTHOR\tRATING\tCONTENT")
	for _, r := range reviews {
		fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%s\n",
			r.ID, r.GameID, r.Author, r.Rating, utils.Truncate(r.Content, contentLength))
	}
	return w.Flush()
}

func (s *Shell) games(ctx context.Context, rest string) error {
	games, derr := s.Session.Games(ctx)
	if derr != nil {
		return derr
	}
	if len(games) == 0 {
		fmt.Fprintln(s.out, "no games")
		return nil
	}
	return s.writeGames(games)
}

func (s *Shell) game(ctx context.Context, rest string) error {
	id, err := utils.ParseUint(strings.Fields(rest), 0, "game id")
	if err != nil {
		return err
	}
	game, derr := s.Session.Game(ctx, id)
	if derr != nil {
		return derr
	}

	fmt.Fprintf(s.out, "Game %d: %s\n", game.ID, game.Name)
	if game.Description != "" {
		fmt.Fprintf(s.out, "  %s\n", game.Description)
	}
	fmt.Fprintf(s.out, "  created %s, updated %s\n",
		game.CreatedAt.Format(timeLayout), game.UpdatedAt.Format(timeLayout))
	if len(game.Reviews) == 0 {
		fmt.Fprintln(s.out, "no reviews")
		return nil
	}
	return s.writeReviews(game.Reviews)
}

func (s *Shell) reviews(ctx context.Context, rest string) error {
	id, err := utils.ParseUint(strings.Fields(rest), 0, "game id")
	if err != nil {
		return err
	}
	reviews, derr := s.Session.Reviews(ctx, id)
	if derr != nil {
		return derr
	}
	if len(reviews) == 0 {
		fmt.Fprintln(s.out, "no reviews")
		return nil
	}
	return s.writeReviews(reviews)
}

func (s *Shell) review(ctx context.Context, rest string) error {
	id, err := utils.ParseUint(strings.Fields(rest), 0, "review id")
	if err != nil {
		return err
	}
	review, derr := s.Session.Review(ctx, id)
	if derr != nil {
		return derr
	}

	fmt.Fprintf(s.out, "Review %d by %s, rating %d\n", review.ID, review.Author, review.Rating)
	if review.Game != nil {
		fmt.Fprintf(s.out, "  game %d: %s\n", review.Game.ID, review.Game.Name)
	} else {
		fmt.Fprintf(s.out, "  game %d: missing\n", review.GameID)
	}
	fmt.Fprintf(s.out, "  created %s\n", review.CreatedAt.Format(timeLayout))
	fmt.Fprintln(s.out, review.Content)
	return nil
}

func (s *Shell) count(ctx context.Context, rest string) error {
	counts, derr := s.Session.Count(ctx)
	if derr != nil {
		return derr
	}
	fmt.Fprintf(s.out, "games: %d\nreviews: %d\n", counts.Games, counts.Reviews)
	return nil
}

func (s *Shell) stats(ctx context.Context, rest string) error {
	id, err := utils.ParseUint(strings.Fields(rest), 0, "game id")
	if err != nil {
		return err
	}
	summary, derr := s.Session.RatingSummary(ctx, id)
	if derr != nil {
		return derr
	}
	if summary.Count == 0 {
		fmt.Fprintf(s.out, "game %d has no reviews\n", id)
		return nil
	}
	fmt.Fprintf(s.out, "game %d: %d reviews, mean %.2f, stddev %.2f, min %d, max %d\n",
		id, summary.Count, summary.Mean, summary.StdDev, summary.Min, summary.Max)
	return nil
}

func (s *Shell) tables(ctx context.Context, rest string) error {
	tables, derr := s.Session.Tables(ctx)
	if derr != nil {
		return derr
	}
	for _, t := range tables {
		fmt.Fprintln(s.out, t)
	}
	return nil
}

func (s *Shell) sql(ctx context.Context, rest string) error {
	if rest == "" {
		return fmt.Errorf("missing query")
	}
	columns, rows, derr := s.Session.Raw(ctx, rest)
	if derr != nil {
		return derr
	}

	w := s.table()
	fmt.Fprintln(w, strings.Join(columns, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "(%d rows)\n", len(rows))
	return nil
}
