// Package mailer turns booking events into emails with calendar invites.
package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/qclickin/platform/libs/db"
	"github.com/qclickin/platform/libs/outbox"
	"github.com/qclickin/platform/services/notification-service/internal/email"
	"github.com/qclickin/platform/services/notification-service/internal/ics"
	"github.com/qclickin/platform/services/notification-service/internal/storage"
)

type BookingEvent struct {
	UID                string    `json:"uid"`
	EventTypeID        string    `json:"event_type_id"`
	OrganizerUserID    string    `json:"organizer_user_id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	StartTime          time.Time `json:"start_time"`
	EndTime            time.Time `json:"end_time"`
	Location           string    `json:"location"`
	Status             string    `json:"status"`
	CancellationReason string    `json:"cancellation_reason"`
	RescheduledFromUID string    `json:"rescheduled_from_uid"`
	Attendees          []struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		TimeZone string `json:"time_zone"`
	} `json:"attendees"`
}

type Mailer struct {
	pool   *db.Pool
	repo   *storage.Repository
	outbox *outbox.Repository
	sender email.Sender
	logger *slog.Logger
}

func New(pool *db.Pool, repo *storage.Repository, outboxRepo *outbox.Repository, sender email.Sender, logger *slog.Logger) *Mailer {
	return &Mailer{pool: pool, repo: repo, outbox: outboxRepo, sender: sender, logger: logger}
}

// HandleBookingEvent mails everyone involved in the booking. Send failures
// are recorded per recipient and do not fail the event, so one bad mailbox
// does not wedge the topic.
func (m *Mailer) HandleBookingEvent(ctx context.Context, eventType string, evt BookingEvent) error {
	organizerEmail := ""
	organizerName := ""
	if contact, err := m.repo.GetContact(ctx, evt.OrganizerUserID); err == nil {
		organizerEmail = contact.Email
		organizerName = contact.Name
	} else if !storage.IsNotFound(err) {
		return err
	}

	subject, body := composeMessage(eventType, evt, organizerName)
	if subject == "" {
		return nil
	}

	attachments, err := m.buildAttachments(eventType, evt, organizerEmail)
	if err != nil {
		return err
	}

	for _, a := range evt.Attendees {
		m.send(ctx, evt.UID, a.Email, subject, localizedBody(body, evt, a.TimeZone), attachments)
	}
	if organizerEmail != "" {
		m.send(ctx, evt.UID, organizerEmail, subject, body, attachments)
	}
	return nil
}

func (m *Mailer) send(ctx context.Context, bookingUID, recipient, subject, body string, attachments []email.Attachment) {
	status := "sent"
	reason := ""
	if err := m.sender.Send(recipient, subject, body, attachments); err != nil {
		status = "failed"
		reason = err.Error()
		m.logger.Error("email send failed", "err", err, "recipient", recipient)
	}

	if err := m.repo.Insert(ctx, storage.Notification{
		BookingUID: bookingUID,
		Channel:    "email",
		Recipient:  recipient,
		Payload:    map[string]any{"subject": subject},
		Status:     status,
	}); err != nil {
		m.logger.Error("failed to persist notification", "err", err)
	}
	if err := m.recordOutcome(ctx, bookingUID, recipient, status, reason); err != nil {
		m.logger.Error("failed to enqueue notification event", "err", err)
	}
}

func (m *Mailer) recordOutcome(ctx context.Context, bookingUID, recipient, status, reason string) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	eventType := "notification.sent.v1"
	fields := map[string]any{
		"booking_uid": bookingUID,
		"channel":     "email",
		"recipient":   recipient,
		"sent_at":     time.Now().UTC().Format(time.RFC3339),
	}
	if status == "failed" {
		eventType = "notification.failed.v1"
		fields["error_reason"] = reason
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	if err := m.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "notification",
		AggregateID:   bookingUID,
		EventType:     eventType,
		Payload:       payload,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (m *Mailer) buildAttachments(eventType string, evt BookingEvent, organizerEmail string) ([]email.Attachment, error) {
	var method string
	switch eventType {
	case "booking.created.v1":
		if evt.Status != "ACCEPTED" {
			return nil, nil
		}
		method = ics.MethodRequest
	case "booking.confirmed.v1", "booking.rescheduled.v1":
		method = ics.MethodRequest
	case "booking.cancelled.v1":
		method = ics.MethodCancel
	default:
		return nil, nil
	}

	invite := ics.Invite{
		UID:         evt.UID,
		Title:       evt.Title,
		Description: evt.Description,
		Location:    evt.Location,
		Organizer:   organizerEmail,
		Start:       evt.StartTime,
		End:         evt.EndTime,
		Method:      method,
		Cancelled:   method == ics.MethodCancel,
	}
	for _, a := range evt.Attendees {
		invite.Attendees = append(invite.Attendees, a.Email)
	}

	data, err := ics.Encode(invite)
	if err != nil {
		return nil, err
	}
	return []email.Attachment{{
		Filename:    "invite.ics",
		ContentType: fmt.Sprintf("text/calendar; method=%s; charset=utf-8", method),
		Data:        data,
	}}, nil
}

func composeMessage(eventType string, evt BookingEvent, organizerName string) (string, string) {
	host := organizerName
	if host == "" {
		host = "the organizer"
	}
	when := evt.StartTime.UTC().Format("Mon, 02 Jan 2006 15:04 MST")

	switch eventType {
	case "booking.created.v1":
		if evt.Status == "PENDING" {
			return fmt.Sprintf("Booking request: %s", evt.Title),
				fmt.Sprintf("A booking request for %q with %s on %s is awaiting confirmation.", evt.Title, host, when)
		}
		return fmt.Sprintf("Booking confirmed: %s", evt.Title),
			fmt.Sprintf("Your booking %q with %s on %s is confirmed.", evt.Title, host, when)
	case "booking.confirmed.v1":
		return fmt.Sprintf("Booking confirmed: %s", evt.Title),
			fmt.Sprintf("Your booking %q with %s on %s has been confirmed.", evt.Title, host, when)
	case "booking.rejected.v1":
		body := fmt.Sprintf("Your booking request %q on %s was declined.", evt.Title, when)
		if evt.CancellationReason != "" {
			body += " Reason: " + evt.CancellationReason
		}
		return fmt.Sprintf("Booking declined: %s", evt.Title), body
	case "booking.cancelled.v1":
		body := fmt.Sprintf("The booking %q on %s was cancelled.", evt.Title, when)
		if evt.CancellationReason != "" {
			body += " Reason: " + evt.CancellationReason
		}
		return fmt.Sprintf("Booking cancelled: %s", evt.Title), body
	case "booking.rescheduled.v1":
		return fmt.Sprintf("Booking rescheduled: %s", evt.Title),
			fmt.Sprintf("Your booking %q with %s was moved to %s.", evt.Title, host, when)
	}
	return "", ""
}

// localizedBody appends the start time in the attendee's own timezone when it
// differs from UTC.
func localizedBody(body string, evt BookingEvent, tz string) string {
	if tz == "" || tz == "UTC" {
		return body
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return body
	}
	return body + fmt.Sprintf(" (%s local time)", evt.StartTime.In(loc).Format("Mon, 02 Jan 2006 15:04 MST"))
}
