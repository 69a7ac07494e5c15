package api

import (
	"fmt"
	"log"
	"net/http"

	ical "github.com/arran4/golang-ical"
)

// CalendarExportHandler serves all events as an iCalendar feed so the
// agenda can be subscribed to from external calendar apps. Events are
// single-day, all-day entries.
// GET /calendar.ics
func CalendarExportHandler(w http.ResponseWriter, r *http.Request) {
	subject, err := currentSubject(r)
	if err != nil {
		log.Printf("CalendarExport: resolving subject: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if subject == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	eventRows, err := Store.EventRows(r.Context())
	if err != nil {
		log.Printf("CalendarExport: %v", err)
		http.Error(w, "Failed to load events", http.StatusInternalServerError)
		return
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//agenda-admin//calendar//PT")

	for _, row := range eventRows {
		ve := cal.AddEvent(fmt.Sprintf("event-%d@agenda-admin", row.ID))
		ve.SetCreatedTime(row.CreatedAt)
		ve.SetDtStampTime(row.UpdatedAt)
		ve.SetModifiedAt(row.UpdatedAt)
		ve.SetAllDayStartAt(row.Date)
		ve.SetAllDayEndAt(row.Date.AddDate(0, 0, 1))
		ve.SetSummary(row.Title)
		if row.Description != "" {
			ve.SetDescription(row.Description)
		}
		if row.Company != "" {
			ve.SetLocation(row.Company)
		}
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="agenda.ics"`)
	if _, err := w.Write([]byte(cal.Serialize())); err != nil {
		log.Printf("CalendarExport: writing response: %v", err)
	}
}
