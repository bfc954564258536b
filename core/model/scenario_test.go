package model

import (
	"reflect"
	"testing"
)

func TestEventSchedule_OrderAndLookup(t *testing.T) {
	s, err := ScheduleFromStrings(map[int][]string{
		400: {"edit vsource.dummy_1 enabled=yes", "edit line.mbs_s1 enabled=yes"},
		120: {"edit line.sw2 enabled=no"},
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if got := s.Minutes(); !reflect.DeepEqual(got, []int{120, 400}) {
		t.Fatalf("minutes %v", got)
	}
	cmds := s.EventsFor(400)
	if len(cmds) != 2 || cmds[0].Text() != "edit vsource.dummy_1 enabled=yes" || cmds[1].Text() != "edit line.mbs_s1 enabled=yes" {
		t.Fatalf("order not preserved: %#v", cmds)
	}
	if s.EventsFor(121) != nil {
		t.Fatal("expected no events at 121")
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 commands, got %d", s.Len())
	}
}

func TestEventSchedule_Immutable(t *testing.T) {
	src := map[int][]Command{10: {Raw("a")}}
	s, err := NewEventSchedule(src)
	if err != nil {
		t.Fatal(err)
	}
	src[10][0] = Raw("mutated")
	src[11] = []Command{Raw("b")}
	got := s.EventsFor(10)
	got[0] = Raw("mutated again")
	if s.EventsFor(10)[0].Text() != "a" || s.Len() != 1 {
		t.Fatal("schedule shares storage with caller")
	}
}

func TestEventSchedule_Invalid(t *testing.T) {
	if _, err := NewEventSchedule(map[int][]Command{-1: {Raw("x")}}); err == nil {
		t.Fatal("expected negative minute error")
	}
	if _, err := NewEventSchedule(map[int][]Command{1: {Raw("")}}); err == nil {
		t.Fatal("expected empty command error")
	}
	var zero EventSchedule
	if zero.EventsFor(0) != nil || zero.Len() != 0 {
		t.Fatal("zero schedule must be empty")
	}
}

func TestScenarioConfig_Validate(t *testing.T) {
	if err := (ScenarioConfig{PVShape: "s"}).Validate(); err == nil {
		t.Fatal("expected missing name error")
	}
	if err := (ScenarioConfig{Name: "n"}).Validate(); err == nil {
		t.Fatal("expected missing shape error")
	}
	if err := (ScenarioConfig{Name: "n", PVShape: "s"}).Validate(); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
}
