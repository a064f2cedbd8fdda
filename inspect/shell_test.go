package inspect

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bitterfly/go-chaos/onetomany/database"
	"github.com/bitterfly/go-chaos/onetomany/schema"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// newTestSession seeds a store the way the application would have left it
// and opens it through the same path main uses.
func newTestSession(t *testing.T) *database.Session {
	t.Helper()
	path := filepath.Join(t.TempDir(), "one_to_many.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		t.Fatalf("could not create store: %s", err)
	}
	if derr := database.Automigrate(db); derr != nil {
		t.Fatalf("could not migrate store: %s", derr)
	}
	games := []schema.Game{
		{
			Name:        "Chess",
			Description: "Two players,\nsixty-four squares.",
			Reviews: []schema.Review{
				{Author: "ana", Content: "Timeless.", Rating: 5},
				{Author: "bob", Content: "Too slow for me.", Rating: 3},
			},
		},
		{Name: "Hat"},
	}
	if err := db.Create(&games).Error; err != nil {
		t.Fatalf("could not seed store: %s", err)
	}
	database.Close(db)

	db, derr := database.Open(database.Config{Driver: database.DriverSqlite, Path: path})
	if derr != nil {
		t.Fatalf("could not open store: %s", derr)
	}
	t.Cleanup(func() { database.Close(db) })
	return database.NewSession(db)
}

func run(t *testing.T, input string) string {
	t.Helper()
	var out bytes.Buffer
	shell := New(newTestSession(t), strings.NewReader(input), &out)
	if err := shell.Run(context.Background()); err != nil {
		t.Fatalf("shell ended with an error: %s", err)
	}
	return out.String()
}

func expectContains(t *testing.T, output string, expected ...string) {
	t.Helper()
	for _, e := range expected {
		if !strings.Contains(output, e) {
			t.Errorf("expected output to contain %q, got:\n%s", e, output)
		}
	}
}

func TestShell_Commands(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "games",
			input:    "games\n",
			expected: []string{"NAME", "Chess", "Hat", "Two players, sixty-four squares."},
		},
		{
			name:     "game",
			input:    "game 1\n",
			expected: []string{"Game 1: Chess", "ana", "bob", "Too slow for me."},
		},
		{
			name:     "game without reviews",
			input:    "game 2\n",
			expected: []string{"Game 2: Hat", "no reviews"},
		},
		{
			name:     "reviews",
			input:    "reviews 1\n",
			expected: []string{"AUTHOR", "RATING", "Timeless."},
		},
		{
			name:     "review",
			input:    "review 2\n",
			expected: []string{"Review 2 by bob, rating 3", "game 1: Chess"},
		},
		{
			name:     "count",
			input:    "count\n",
			expected: []string{"games: 2", "reviews: 2"},
		},
		{
			name:     "stats",
			input:    "stats 1\n",
			expected: []string{"game 1: 2 reviews, mean 4.00", "min 3, max 5"},
		},
		{
			name:     "stats without reviews",
			input:    "stats 2\n",
			expected: []string{"game 2 has no reviews"},
		},
		{
			name:     "tables",
			input:    "tables\n",
			expected: []string{"games", "reviews"},
		},
		{
			name:     "sql",
			input:    "sql SELECT author FROM reviews ORDER BY id\n",
			expected: []string{"author", "ana", "bob", "(2 rows)"},
		},
		{
			name:     "help",
			input:    "help\n",
			expected: []string{"game <id>", "sql <query>", "leave the session"},
		},
		{
			name:     "case insensitive",
			input:    "COUNT\n",
			expected: []string{"games: 2"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			expectContains(t, run(t, test.input), test.expected...)
		})
	}
}

func TestShell_ErrorsDoNotEndSession(t *testing.T) {
	output := run(t, "game\ngame x\ngame 42\nsql delete from games\nfrobnicate\ncount\n")
	expectContains(t, output,
		"error: missing parameter for game id",
		"error: could not parse x as uint",
		"error: database query error: game 42: record not found",
		"only read queries are allowed",
		`unknown command "frobnicate"`,
		"games: 2",
	)
}

func TestShell_Quit(t *testing.T) {
	for _, q := range quitCommands {
		output := run(t, q+"\ncount\n")
		if strings.Contains(output, "games: 2") {
			t.Errorf("%s should end the session before the next command", q)
		}
	}
}

func TestShell_EOF(t *testing.T) {
	output := run(t, "")
	if !strings.HasPrefix(output, "Session open.") {
		t.Errorf("expected a banner, got %q", output)
	}
	if strings.Count(output, Prompt) != 1 {
		t.Errorf("expected a single prompt, got %q", output)
	}
}

func TestShell_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	shell := New(newTestSession(t), strings.NewReader("count\n"), &out)
	if err := shell.Run(ctx); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		line, name, rest string
	}{
		{"  games  ", "games", ""},
		{"Game 1", "game", "1"},
		{"sql select  name from games ", "sql", "select  name from games"},
		{"", "", ""},
	}
	for _, test := range tests {
		name, rest := splitCommand(test.line)
		if name != test.name || rest != test.rest {
			t.Errorf("splitCommand(%q) = (%q, %q), expected (%q, %q)",
				test.line, name, rest, test.name, test.rest)
		}
	}
}
