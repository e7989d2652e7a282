// Package ics renders calendar invites for booking emails.
package ics

import (
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-ical"
)

const (
	MethodRequest = "REQUEST"
	MethodCancel  = "CANCEL"
)

type Invite struct {
	UID         string
	Title       string
	Description string
	Location    string
	Organizer   string
	Attendees   []string
	Start       time.Time
	End         time.Time
	Method      string
	Cancelled   bool
}

// Encode renders the invite as a single-event iCalendar document.
func Encode(inv Invite) ([]byte, error) {
	method := inv.Method
	if method == "" {
		method = MethodRequest
	}

	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, inv.UID)
	ve.Props.SetText(ical.PropSummary, inv.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, inv.Start.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, inv.End.UTC())
	if inv.Description != "" {
		ve.Props.SetText(ical.PropDescription, inv.Description)
	}
	if inv.Location != "" {
		ve.Props.SetText(ical.PropLocation, inv.Location)
	}
	if inv.Cancelled {
		ve.Props.SetText(ical.PropStatus, "CANCELLED")
	}
	if inv.Organizer != "" {
		p := ical.NewProp(ical.PropOrganizer)
		p.SetText(fmt.Sprintf("mailto:%s", inv.Organizer))
		ve.Props.Add(p)
	}
	for _, attendee := range inv.Attendees {
		p := ical.NewProp(ical.PropAttendee)
		p.SetText(fmt.Sprintf("mailto:%s", attendee))
		ve.Props.Add(p)
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//qclickin//EN")
	cal.Props.SetText(ical.PropMethod, method)
	cal.Children = append(cal.Children, ve)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
