// Package calendar wraps the Google Calendar API for lesson events. The
// client is constructed once at startup and injected; there is no lazy
// process-wide state.
package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/tunewell/studio-server/internal/recurrence"
)

// EventInput describes a lesson event to be created.
type EventInput struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Timezone    string
	Attendees   []string
	Recurrence  []string // RRULE lines, empty for one-off lessons
}

// Instance is one concrete occurrence of a recurring event. Start is the
// ISO-8601 start as returned by the service (or a bare date for all-day
// events).
type Instance struct {
	ID    string
	Start string
}

type Client struct {
	svc        *gcal.Service
	calendarID string
	timezone   string
	logger     *zap.Logger
}

// NewClient authenticates with the given service-account JSON and returns
// a ready-to-use client. When calendarID is empty the service account's
// own calendar (its email) is used.
func NewClient(ctx context.Context, credsJSON []byte, calendarID, timezone string, logger *zap.Logger) (*Client, error) {
	jwtConfig, err := google.JWTConfigFromJSON(credsJSON, gcal.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}

	svc, err := gcal.NewService(ctx, option.WithTokenSource(jwtConfig.TokenSource(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	if calendarID == "" {
		calendarID = jwtConfig.Email
	}
	if timezone == "" {
		timezone = "Europe/London"
	}

	return &Client{
		svc:        svc,
		calendarID: calendarID,
		timezone:   timezone,
		logger:     logger,
	}, nil
}

// CreateEvent inserts an event and returns its external id.
func (c *Client) CreateEvent(ctx context.Context, input EventInput) (string, error) {
	tz := input.Timezone
	if tz == "" {
		tz = c.timezone
	}

	event := &gcal.Event{
		Summary:     input.Summary,
		Description: input.Description,
		Start: &gcal.EventDateTime{
			DateTime: input.Start.Format(time.RFC3339),
			TimeZone: tz,
		},
		End: &gcal.EventDateTime{
			DateTime: input.End.Format(time.RFC3339),
			TimeZone: tz,
		},
		Recurrence: input.Recurrence,
	}
	for _, email := range input.Attendees {
		event.Attendees = append(event.Attendees, &gcal.EventAttendee{Email: email})
	}

	created, err := c.svc.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		c.logger.Error("Failed to create calendar event",
			zap.String("summary", input.Summary),
			zap.Error(err),
		)
		return "", fmt.Errorf("create calendar event: %w", err)
	}

	return created.Id, nil
}

// UpdateRecurringEventUntil rewrites the event's recurrence rules to end
// at the given time, stripping any existing UNTIL or COUNT clause first.
// Fails when the event has no recurrence rules.
func (c *Client) UpdateRecurringEventUntil(ctx context.Context, eventID string, until time.Time) error {
	event, err := c.svc.Events.Get(c.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		c.logger.Error("Failed to fetch calendar event", zap.String("event_id", eventID), zap.Error(err))
		return fmt.Errorf("get calendar event: %w", err)
	}

	if len(event.Recurrence) == 0 {
		c.logger.Error("Event has no recurrence rules", zap.String("event_id", eventID))
		return fmt.Errorf("event %s has no recurrence rules", eventID)
	}

	rules := make([]string, 0, len(event.Recurrence))
	for _, rule := range event.Recurrence {
		if strings.HasPrefix(rule, "RRULE") {
			rule = recurrence.WithUntil(rule, until)
		}
		rules = append(rules, rule)
	}

	_, err = c.svc.Events.Patch(c.calendarID, eventID, &gcal.Event{Recurrence: rules}).Context(ctx).Do()
	if err != nil {
		c.logger.Error("Failed to patch calendar event", zap.String("event_id", eventID), zap.Error(err))
		return fmt.Errorf("patch calendar event: %w", err)
	}

	return nil
}

// DeleteRecurringInstance removes the single occurrence starting at the
// given time. Returns false, without error, when no matching instance is
// found.
func (c *Client) DeleteRecurringInstance(ctx context.Context, eventID string, instanceStart time.Time) (bool, error) {
	instances, err := c.ListInstances(ctx, eventID, instanceStart.Add(-time.Second), instanceStart.Add(time.Second))
	if err != nil {
		return false, err
	}

	match := MatchInstance(instances, instanceStart)
	if match == nil {
		return false, nil
	}

	if err := c.svc.Events.Delete(c.calendarID, match.ID).Context(ctx).Do(); err != nil {
		c.logger.Error("Failed to delete calendar instance",
			zap.String("event_id", eventID),
			zap.String("instance_id", match.ID),
			zap.Error(err),
		)
		return false, fmt.Errorf("delete calendar instance: %w", err)
	}

	return true, nil
}

// DeleteEvent removes the whole event, all instances included.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	if err := c.svc.Events.Delete(c.calendarID, eventID).Context(ctx).Do(); err != nil {
		c.logger.Error("Failed to delete calendar event", zap.String("event_id", eventID), zap.Error(err))
		return fmt.Errorf("delete calendar event: %w", err)
	}
	return nil
}

// ListInstances returns the event's concrete occurrences in [from, to].
func (c *Client) ListInstances(ctx context.Context, eventID string, from, to time.Time) ([]Instance, error) {
	result, err := c.svc.Events.Instances(c.calendarID, eventID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		Context(ctx).
		Do()
	if err != nil {
		c.logger.Error("Failed to list calendar instances", zap.String("event_id", eventID), zap.Error(err))
		return nil, fmt.Errorf("list calendar instances: %w", err)
	}

	instances := make([]Instance, 0, len(result.Items))
	for _, item := range result.Items {
		start := ""
		if item.Start != nil {
			start = item.Start.DateTime
			if start == "" {
				start = item.Start.Date
			}
		}
		instances = append(instances, Instance{ID: item.Id, Start: start})
	}

	return instances, nil
}

// MatchInstance finds the instance starting at target: exact ISO match
// first, then prefix match on the local timestamp, then a date-only
// fallback. Nil when nothing matches.
func MatchInstance(instances []Instance, target time.Time) *Instance {
	exact := target.Format(time.RFC3339)
	prefix := target.Format("2006-01-02T15:04")
	dateOnly := target.Format("2006-01-02")

	for i := range instances {
		if instances[i].Start == exact {
			return &instances[i]
		}
	}
	for i := range instances {
		if strings.HasPrefix(instances[i].Start, prefix) {
			return &instances[i]
		}
	}
	for i := range instances {
		if strings.HasPrefix(instances[i].Start, dateOnly) {
			return &instances[i]
		}
	}
	return nil
}
