package events

import (
	"context"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

const opOccurrences = "events.occurrences"

// maxOccurrences caps recurrence expansion to keep unbounded rules
// from exploding a single request.
const maxOccurrences = 1000

// Occurrences expands the event into concrete start times within the
// inclusive [from, to] window. Non-recurring events contribute their
// single start time when it falls inside the window. Recurring events
// have their recurrence pattern parsed as an RRULE anchored at the
// event's start time; an unparsable pattern is reported as invalid
// input rather than silently ignored.
func (s *Service) Occurrences(ctx context.Context, actorID, eventID uint, from, to time.Time) ([]time.Time, error) {
	if err := s.authorize(ctx, opOccurrences, actorID, eventID, OperationRead); err != nil {
		return nil, err
	}

	event, err := s.loadEvent(ctx, s.db, opOccurrences, eventID)
	if err != nil {
		return nil, err
	}

	if !event.IsRecurring {
		start := event.StartTime.UTC()
		if !start.Before(from) && !start.After(to) {
			return []time.Time{start}, nil
		}
		return []time.Time{}, nil
	}

	pattern := strings.TrimSpace(strings.TrimPrefix(event.RecurrencePattern, "RRULE:"))
	if pattern == "" {
		return nil, newServiceError(opOccurrences, "empty_recurrence_pattern", ErrInvalidInput)
	}

	option, err := rrule.StrToROption(pattern)
	if err != nil {
		return nil, newServiceError(opOccurrences, "invalid_recurrence_pattern", ErrInvalidInput)
	}
	option.Dtstart = event.StartTime.UTC()

	rule, err := rrule.NewRRule(*option)
	if err != nil {
		return nil, newServiceError(opOccurrences, "invalid_recurrence_pattern", ErrInvalidInput)
	}

	expanded := rule.Between(from.UTC(), to.UTC(), true)
	if len(expanded) > maxOccurrences {
		expanded = expanded[:maxOccurrences]
	}

	return expanded, nil
}
