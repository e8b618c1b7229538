package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestOccurrencesNonRecurring(t *testing.T) {
	service, _ := newTestService(t)
	event := mustCreate(t, service, aliceID, standupFields())

	window := func(from, to time.Time) []time.Time {
		t.Helper()
		occurrences, err := service.Occurrences(context.Background(), aliceID, event.ID, from, to)
		if err != nil {
			t.Fatalf("occurrences failed: %v", err)
		}
		return occurrences
	}

	inside := window(
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	)
	if len(inside) != 1 || !inside[0].Equal(event.StartTime) {
		t.Fatalf("expected single occurrence at start time, got %v", inside)
	}

	outside := window(
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC),
	)
	if len(outside) != 0 {
		t.Fatalf("expected no occurrences outside window, got %v", outside)
	}
}

func TestOccurrencesExpandsDailyRule(t *testing.T) {
	service, _ := newTestService(t)

	fields := standupFields()
	fields.IsRecurring = true
	fields.RecurrencePattern = "FREQ=DAILY;COUNT=5"
	event := mustCreate(t, service, aliceID, fields)

	occurrences, err := service.Occurrences(context.Background(), aliceID, event.ID,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 23, 0, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("occurrences failed: %v", err)
	}
	if len(occurrences) != 3 {
		t.Fatalf("expected three daily occurrences in window, got %v", occurrences)
	}
	if !occurrences[0].Equal(event.StartTime) {
		t.Fatalf("first occurrence must anchor at the event start, got %v", occurrences[0])
	}
	if !occurrences[1].Equal(event.StartTime.AddDate(0, 0, 1)) {
		t.Fatalf("expected daily step, got %v", occurrences[1])
	}
}

func TestOccurrencesAcceptsRRulePrefix(t *testing.T) {
	service, _ := newTestService(t)

	fields := standupFields()
	fields.IsRecurring = true
	fields.RecurrencePattern = "RRULE:FREQ=DAILY;COUNT=2"
	event := mustCreate(t, service, aliceID, fields)

	occurrences, err := service.Occurrences(context.Background(), aliceID, event.ID,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("occurrences failed: %v", err)
	}
	if len(occurrences) != 2 {
		t.Fatalf("expected two occurrences, got %v", occurrences)
	}
}

func TestOccurrencesRejectsBadPattern(t *testing.T) {
	service, _ := newTestService(t)

	fields := standupFields()
	fields.IsRecurring = true
	fields.RecurrencePattern = "every other tuesday"
	event := mustCreate(t, service, aliceID, fields)

	_, err := service.Occurrences(context.Background(), aliceID, event.ID,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestOccurrencesRequiresReadAccess(t *testing.T) {
	service, _ := newTestService(t)
	event := mustCreate(t, service, aliceID, standupFields())

	_, err := service.Occurrences(context.Background(), bobID, event.ID,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	)
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected access denied, got %v", err)
	}
}
