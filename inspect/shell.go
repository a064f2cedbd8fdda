// Package inspect is the interactive prompt opened on top of a database
// session, a stand-in for dropping into a debugger with the session in scope.
package inspect

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bitterfly/go-chaos/onetomany/database"
	"golang.org/x/exp/slices"
	"golang.org/x/term"
)

const Prompt = "one_to_many> "

var quitCommands = []string{"quit", "exit", "q", "continue", "c"}

type LineReader interface {
	ReadLine() (string, error)
}

type Shell struct {
	Session *database.Session
	lines   LineReader
	out     io.Writer
}

type scanner struct {
	sc     *bufio.Scanner
	out    io.Writer
	prompt string
}

func (s *scanner) ReadLine() (string, error) {
	fmt.Fprint(s.out, s.prompt)
	if !s.sc.Scan() {
		if err := s.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.sc.Text(), nil
}

// New reads commands from in line by line, without echo or line editing.
func New(session *database.Session, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		Session: session,
		lines:   &scanner{sc: bufio.NewScanner(in), out: out, prompt: Prompt},
		out:     out,
	}
}

// Attach opens a shell on in. When in is a terminal it is switched to raw
// mode for line editing and history; the returned func restores it.
func Attach(session *database.Session, in *os.File, out io.Writer) (*Shell, func(), error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return New(session, in, out), func() {}, nil
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, nil, fmt.Errorf("raw terminal: %w", err)
	}
	restore := func() {
		_ = term.Restore(fd, state)
	}

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{in, out}, Prompt)
	return &Shell{Session: session, lines: t, out: t}, restore, nil
}

// Run executes commands until input ends or a quit command is read. Failing
// commands are reported and the shell keeps going.
func (s *Shell) Run(ctx context.Context) error {
	commands := s.commands()
	fmt.Fprintln(s.out, "Session open. Type help for a list of commands, quit to leave.")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := s.lines.ReadLine()
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out)
			return nil
		}
		if err != nil {
			return err
		}

		name, rest := splitCommand(line)
		if name == "" {
			continue
		}
		if slices.Contains(quitCommands, name) {
			return nil
		}

		cmd, ok := commands[name]
		if !ok {
			fmt.Fprintf(s.out, "unknown command %q, type help for a list of commands\n", name)
			continue
		}
		if err := cmd.run(ctx, rest); err != nil {
			fmt.Fprintf(s.out, "error: %s\n", err)
		}
	}
}

func splitCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	name, rest, _ := strings.Cut(line, " ")
	return strings.ToLower(name), strings.TrimSpace(rest)
}
