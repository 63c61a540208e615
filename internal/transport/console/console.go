// Package console drives a quiz session from a line-oriented terminal.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"compquiz/internal/app"
	"compquiz/internal/domain"
)

// Intent is one user action parsed from a command line.
type Intent struct {
	Kind   string
	Option string
}

var ErrUnknownCommand = errors.New("unknown command")

// ParseCommand maps a typed line to an intent. Digits pick an option of the
// question currently shown.
func ParseCommand(line string, snap domain.Snapshot) (Intent, error) {
	cmd := strings.ToLower(strings.TrimSpace(line))
	switch cmd {
	case "s", "start":
		return Intent{Kind: "start"}, nil
	case "c", "continue":
		return Intent{Kind: "continue"}, nil
	case "e", "exit":
		return Intent{Kind: "exit"}, nil
	case "n", "next":
		return Intent{Kind: "next"}, nil
	case "r", "restart":
		return Intent{Kind: "restart"}, nil
	case "q", "quit":
		return Intent{Kind: "quit"}, nil
	}

	n, err := strconv.Atoi(cmd)
	if err != nil {
		return Intent{}, fmt.Errorf("%w: %q", ErrUnknownCommand, line)
	}
	if snap.Question == nil || n < 1 || n > len(snap.Question.Options) {
		return Intent{}, fmt.Errorf("no option %d", n)
	}
	return Intent{Kind: "select", Option: snap.Question.Options[n-1]}, nil
}

// Apply forwards intent to session.
func Apply(ctx context.Context, session *app.Session, intent Intent) {
	switch intent.Kind {
	case "start":
		_, _ = session.Start(ctx)
	case "continue":
		session.Continue()
	case "exit":
		session.Exit()
	case "select":
		session.Select(intent.Option)
	case "next":
		session.Next()
	case "restart":
		_, _ = session.Restart(ctx)
	case "quit":
		session.Quit()
	}
}

// Run plays session until input ends, ctx is done, or the player quits from idle.
func Run(ctx context.Context, session *app.Session, in io.Reader, out io.Writer) error {
	updates, cancel := session.Subscribe()
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	r := &renderer{out: out}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-updates:
			if !ok {
				return nil
			}
			r.render(snap)
		case line := <-lines:
			snap := session.Snapshot()
			intent, err := ParseCommand(line, snap)
			if err != nil {
				fmt.Fprintf(out, "? %v\n", err)
				continue
			}
			if intent.Kind == "quit" && snap.Phase == domain.PhaseIdle {
				return nil
			}
			Apply(ctx, session, intent)
			r.drain(updates)
		case err := <-readErr:
			r.drain(updates)
			return err
		}
	}
}

type renderer struct {
	out  io.Writer
	last domain.Snapshot
	seen bool
}

// drain renders the snapshots already queued, so none are dropped between intents.
func (r *renderer) drain(updates <-chan domain.Snapshot) {
	for len(updates) > 0 {
		snap, ok := <-updates
		if !ok {
			return
		}
		r.render(snap)
	}
}

func (r *renderer) render(snap domain.Snapshot) {
	sameQuestion := r.seen && r.last.Phase == domain.PhaseQuestion &&
		snap.Phase == domain.PhaseQuestion && r.last.Index == snap.Index
	r.last, r.seen = snap, true

	if sameQuestion {
		fmt.Fprintf(r.out, "  time left: %d\n", snap.TimeLeft)
		return
	}
	Render(r.out, snap)
}

// Render prints a full view of snap.
func Render(w io.Writer, snap domain.Snapshot) {
	switch snap.Phase {
	case domain.PhaseIdle:
		fmt.Fprintln(w, "CompQuiz  [s]tart  [q]uit")
	case domain.PhaseLoading:
		fmt.Fprintln(w, "Loading...")
	case domain.PhaseInfo:
		fmt.Fprintf(w, "%d questions, one attempt each, the timer keeps running.\n", snap.Total)
		fmt.Fprintln(w, "[c]ontinue  [e]xit")
	case domain.PhaseQuestion:
		fmt.Fprintf(w, "\nQuestion %d of %d  (time left: %d)\n", snap.Index+1, snap.Total, snap.TimeLeft)
		if snap.Question != nil {
			fmt.Fprintln(w, snap.Question.Prompt)
			for i, opt := range snap.Question.Options {
				fmt.Fprintf(w, "  %d) %s\n", i+1, opt)
			}
		}
	case domain.PhaseAnswered:
		switch {
		case snap.TimedOut:
			fmt.Fprintf(w, "Time's up! The answer was %s.\n", snap.Answer)
		case snap.Correct:
			fmt.Fprintln(w, "Correct!")
		default:
			fmt.Fprintf(w, "Wrong, the answer was %s.\n", snap.Answer)
		}
		if snap.IsLast {
			fmt.Fprintln(w, "[n] end quiz")
		} else {
			fmt.Fprintln(w, "[n]ext question")
		}
	case domain.PhaseResult:
		fmt.Fprintf(w, "\nFinal score: %d/%d\n", snap.Score, snap.Total)
		fmt.Fprintln(w, "[r]estart  [q]uit")
	case domain.PhaseError:
		fmt.Fprintf(w, "Error: %s\n", snap.Error)
		fmt.Fprintln(w, "[s]tart to retry  [q]uit")
	}
}
