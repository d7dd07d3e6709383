package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ajujo/teaching-system/internal/logger"
	"github.com/ajujo/teaching-system/internal/teaching"
)

// Loop drives one session from line input.
type Loop struct {
	Tutor    teaching.Tutor
	In       io.Reader
	Out      io.Writer
	Renderer *Renderer
	Log      *logger.Logger
}

// endTimeout bounds the final save when input ends or ctx is canceled.
const endTimeout = 10 * time.Second

// Run starts the session and blocks until the learner stops, the session
// closes, input ends or ctx is canceled. Input end and cancelation save
// progress before returning.
func (l *Loop) Run(ctx context.Context, req teaching.StartRequest) error {
	if l.Renderer == nil {
		l.Renderer = NewRenderer(false)
	}
	if l.Log == nil {
		l.Log = logger.Nop()
	}

	started, err := l.Tutor.StartSession(ctx, req)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	id := started.SessionID
	l.Log.Debug("terminal session started", "session_id", id)
	if l.print(started.Events) {
		return nil
	}

	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		sc := bufio.NewScanner(l.In)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
		readErr <- sc.Err()
	}()

	for {
		fmt.Fprint(l.Out, l.Renderer.Prompt())
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(l.Out)
			return l.end(id)
		case err := <-readErr:
			if err != nil {
				l.Log.Warn("read input failed", "error", err)
			}
			fmt.Fprintln(l.Out)
			return l.end(id)
		case line = <-lines:
		}

		events, err := l.Tutor.SubmitInput(ctx, id, strings.TrimSpace(line))
		if err != nil {
			if teaching.IsSessionNotFound(err) {
				l.print([]teaching.Event{teaching.ErrorEvent(err)})
				return nil
			}
			return fmt.Errorf("submit input: %w", err)
		}
		if l.print(events) {
			return nil
		}
	}
}

// print renders events and reports whether the session closed.
func (l *Loop) print(events []teaching.Event) bool {
	fmt.Fprint(l.Out, l.Renderer.RenderAll(events))
	for _, e := range events {
		if e.Type == teaching.EventSessionClosed {
			return true
		}
	}
	return false
}

func (l *Loop) end(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), endTimeout)
	defer cancel()
	events, err := l.Tutor.EndSession(ctx, id)
	if err != nil {
		if teaching.IsSessionNotFound(err) {
			return nil
		}
		return fmt.Errorf("end session: %w", err)
	}
	l.print(events)
	for _, e := range events {
		if e.Type == teaching.EventError {
			return errors.New(e.Body)
		}
	}
	return nil
}
