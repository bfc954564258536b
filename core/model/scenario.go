package model

import (
	"fmt"
	"sort"
)

// EventSchedule maps a simulated minute to the ordered commands applied at
// the start of that minute. The zero value is an empty schedule.
type EventSchedule struct {
	events map[int][]Command
}

// NewEventSchedule copies events into a schedule. Minutes must be
// non-negative; order within a minute is preserved.
func NewEventSchedule(events map[int][]Command) (EventSchedule, error) {
	s := EventSchedule{events: make(map[int][]Command, len(events))}
	for minute, cmds := range events {
		if minute < 0 {
			return EventSchedule{}, fmt.Errorf("event minute %d is negative", minute)
		}
		for i, c := range cmds {
			if c == nil || c.Text() == "" {
				return EventSchedule{}, fmt.Errorf("minute %d: command %d is empty", minute, i)
			}
		}
		s.events[minute] = append([]Command(nil), cmds...)
	}
	return s, nil
}

// ScheduleFromStrings parses every command with ParseCommand.
func ScheduleFromStrings(events map[int][]string) (EventSchedule, error) {
	parsed := make(map[int][]Command, len(events))
	for minute, texts := range events {
		cmds := make([]Command, len(texts))
		for i, t := range texts {
			cmds[i] = ParseCommand(t)
		}
		parsed[minute] = cmds
	}
	return NewEventSchedule(parsed)
}

// EventsFor returns the commands scheduled at minute, in declaration order.
func (s EventSchedule) EventsFor(minute int) []Command {
	cmds, ok := s.events[minute]
	if !ok {
		return nil
	}
	return append([]Command(nil), cmds...)
}

// Minutes returns the scheduled minutes in ascending order.
func (s EventSchedule) Minutes() []int {
	out := make([]int, 0, len(s.events))
	for m := range s.events {
		out = append(out, m)
	}
	sort.Ints(out)
	return out
}

// Len reports the total number of scheduled commands.
func (s EventSchedule) Len() int {
	n := 0
	for _, cmds := range s.events {
		n += len(cmds)
	}
	return n
}

// Strings renders the schedule back to command text, keyed by minute.
func (s EventSchedule) Strings() map[int][]string {
	out := make(map[int][]string, len(s.events))
	for m, cmds := range s.events {
		texts := make([]string, len(cmds))
		for i, c := range cmds {
			texts[i] = c.Text()
		}
		out[m] = texts
	}
	return out
}

// ScenarioConfig describes one experiment. It is built once before the run
// and treated as read-only afterwards.
type ScenarioConfig struct {
	Name        string
	Description string
	PVShape     string
	PVEnabled   bool
	BESSEnabled bool
	Events      EventSchedule
}

// Validate checks the fields the simulation loop relies on.
func (c ScenarioConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	if c.PVShape == "" {
		return fmt.Errorf("scenario %s: pv_shape is required", c.Name)
	}
	return nil
}
