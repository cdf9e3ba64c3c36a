package command

import (
	"errors"
	"fmt"
	"strings"

	"calagent/internal/model"
	"calagent/internal/store"
)

// Kind says which calendar action a parsed command maps to.
type Kind int

const (
	// KindNone means the input matched no known pattern. Unrecognized
	// input is deliberately not an error; the agent ignores it.
	KindNone Kind = iota
	KindAdd
	KindRemove
)

// Command is the structured result of parsing one free-text input.
type Command struct {
	Kind  Kind
	Event model.Event // set for KindAdd
	Title string      // set for KindRemove
}

const (
	addMarker    = "add event"
	removeMarker = "remove event"
	defaultTime  = "09:00"
)

// Parse maps free text onto one of two keyword patterns, tried in order:
//
//	"add event <title> on <date> [<time>]"
//	"remove event <title>"
//
// Matching is case-insensitive; the whole input is lowercased first, so
// titles extracted here come out lowercase. This is keyword matching, not
// a grammar: titles containing the word "on" will confuse the add form.
// Malformed add commands (no "on" clause, no date token) return an error
// rather than panicking.
func Parse(input string) (Command, error) {
	text := strings.ToLower(input)

	switch {
	case strings.Contains(text, addMarker):
		return parseAdd(text)
	case strings.Contains(text, removeMarker):
		return parseRemove(text)
	default:
		return Command{Kind: KindNone}, nil
	}
}

func parseAdd(text string) (Command, error) {
	head, tail, found := strings.Cut(text, " on ")
	if !found {
		return Command{}, errors.New(`add command needs an "on" clause, e.g. "add event lunch on 2024-04-20 12:30"`)
	}

	title := strings.TrimSpace(strings.Replace(head, addMarker, "", 1))

	fields := strings.Fields(tail)
	if len(fields) == 0 {
		return Command{}, errors.New(`add command needs a date after "on"`)
	}

	ev := model.Event{
		Title: title,
		Date:  fields[0],
		Time:  defaultTime,
	}
	if len(fields) > 1 {
		ev.Time = fields[1]
	}

	return Command{Kind: KindAdd, Event: ev}, nil
}

func parseRemove(text string) (Command, error) {
	title := strings.TrimSpace(strings.Replace(text, removeMarker, "", 1))
	if title == "" {
		return Command{}, errors.New("remove command needs an event title")
	}
	return Command{Kind: KindRemove, Title: title}, nil
}

// Apply executes a parsed command against the store. KindNone is a no-op.
// The returned string is a short human-readable outcome for CLI/API use.
func Apply(cmd Command, st *store.Store) (string, error) {
	switch cmd.Kind {
	case KindAdd:
		if err := st.Add(cmd.Event); err != nil {
			return "", err
		}
		return fmt.Sprintf("event %q added", cmd.Event.Title), nil
	case KindRemove:
		n, err := st.Remove(cmd.Title)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("removed %d event(s) titled %q", n, cmd.Title), nil
	default:
		return "ignored", nil
	}
}
