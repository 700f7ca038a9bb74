package services

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/apex/log"

	"dispatch-dashboard/models"
)

const eventColumns = "id, ts, created_at, status, job_status, vendor, location, type, price, satisfaction, notes, review_notes, rating, total_estimate, hourly_rate, callout_fee, cost_context"

// EventService is the adapter between in-memory Event records and the
// events table. It owns the fallback policy: a failed fetch degrades
// to the local snapshot cache and then to the built-in demo dataset,
// and a failed mutation sync becomes a warning notification instead of
// an error to the caller.
type EventService struct {
	db       *sql.DB
	cache    *CacheService
	conn     *ConnectionState
	notifier *NotificationService
}

func NewEventService(db *sql.DB, cache *CacheService, conn *ConnectionState, notifier *NotificationService) *EventService {
	return &EventService{db: db, cache: cache, conn: conn, notifier: notifier}
}

// FetchAll loads every event ordered by creation time descending. The
// returned collection replaces local state entirely; there is no
// incremental merge. Never fails: connectivity problems surface
// through the connection state and the fallback dataset.
func (s *EventService) FetchAll() []models.Event {
	if s.db == nil {
		s.conn.Set(models.ConnOffline)
		return s.fallbackEvents()
	}

	events, err := s.queryAll()
	if err != nil {
		log.Errorf("events fetch failed: %v", err)
		s.conn.Set(models.ConnError)
		return s.fallbackEvents()
	}
	s.conn.Set(models.ConnOnline)

	if len(events) == 0 && !s.cache.Flag(CacheKeyDBSeeded) {
		events = s.seedDemoData()
	}

	s.writeSnapshot(events)
	return events
}

// Sync pushes one optimistic local mutation to the remote store. The
// caller has already applied the change; a failure here does not roll
// it back, it emits a warning notification naming the action and the
// record.
func (s *EventService) Sync(event models.Event, action string) {
	if !s.conn.Online() {
		return
	}

	var err error
	switch action {
	case models.SyncInsert:
		err = s.insert(event)
	case models.SyncUpdate:
		err = s.update(event)
	case models.SyncDelete:
		err = s.delete(event.ID)
	default:
		log.Errorf("unknown sync action %q for event %s", action, event.ID)
		return
	}

	if err != nil {
		log.Errorf("event %s failed for %s: %v", action, event.ID, err)
		s.notifier.Notify(
			"Sync Failed",
			fmt.Sprintf("Could not %s event %s on the remote store.", action, event.ID),
			models.NotifWarning)
	}
}

func (s *EventService) queryAll() ([]models.Event, error) {
	query := "SELECT " + eventColumns + " FROM events ORDER BY created_at DESC"
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

// scanEvent maps one remote row onto the in-memory shape. The mapping
// is explicit field by field; column names are not assumed to match
// the JSON shape (reviewNotes <-> review_notes, timestamp <-> ts).
func scanEvent(rows *sql.Rows) (models.Event, error) {
	var event models.Event
	var jobStatus, notes, reviewNotes, costContext sql.NullString
	var rating, totalEstimate, hourlyRate, calloutFee sql.NullFloat64

	err := rows.Scan(
		&event.ID,
		&event.Timestamp,
		&event.CreatedAt,
		&event.Status,
		&jobStatus,
		&event.Vendor,
		&event.Location,
		&event.Type,
		&event.Price,
		&event.Satisfaction,
		&notes,
		&reviewNotes,
		&rating,
		&totalEstimate,
		&hourlyRate,
		&calloutFee,
		&costContext,
	)
	if err != nil {
		return event, fmt.Errorf("failed to scan event: %w", err)
	}

	event.JobStatus = jobStatus.String
	event.Notes = notes.String
	event.ReviewNotes = reviewNotes.String
	event.Rating = rating.Float64
	event.TotalEstimate = totalEstimate.Float64
	event.HourlyRate = hourlyRate.Float64
	event.CalloutFee = calloutFee.Float64

	if costContext.String != "" {
		if err := json.Unmarshal([]byte(costContext.String), &event.CostContext); err != nil {
			log.Warnf("bad cost_context on event %s: %v", event.ID, err)
		}
	}
	return event, nil
}

func (s *EventService) insert(event models.Event) error {
	_, err := s.db.Exec(
		"INSERT INTO events ("+eventColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		eventArgs(event)...)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (s *EventService) update(event models.Event) error {
	_, err := s.db.Exec(
		`UPDATE events SET ts = ?, created_at = ?, status = ?, job_status = ?, vendor = ?, location = ?, type = ?, price = ?, satisfaction = ?, notes = ?, review_notes = ?, rating = ?, total_estimate = ?, hourly_rate = ?, callout_fee = ?, cost_context = ? WHERE id = ?`,
		event.Timestamp,
		event.CreatedAt,
		event.Status,
		event.JobStatus,
		event.Vendor,
		event.Location,
		event.Type,
		event.Price,
		event.Satisfaction,
		event.Notes,
		event.ReviewNotes,
		event.Rating,
		event.TotalEstimate,
		event.HourlyRate,
		event.CalloutFee,
		marshalCostContext(event.CostContext),
		event.ID)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return nil
}

func (s *EventService) delete(id string) error {
	if _, err := s.db.Exec("DELETE FROM events WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// eventArgs flattens an Event into insert arguments, in eventColumns
// order.
func eventArgs(event models.Event) []interface{} {
	return []interface{}{
		event.ID,
		event.Timestamp,
		event.CreatedAt,
		event.Status,
		event.JobStatus,
		event.Vendor,
		event.Location,
		event.Type,
		event.Price,
		event.Satisfaction,
		event.Notes,
		event.ReviewNotes,
		event.Rating,
		event.TotalEstimate,
		event.HourlyRate,
		event.CalloutFee,
		marshalCostContext(event.CostContext),
	}
}

func marshalCostContext(flags []string) string {
	if len(flags) == 0 {
		return ""
	}
	data, err := json.Marshal(flags)
	if err != nil {
		return ""
	}
	return string(data)
}

// seedDemoData populates an empty remote table once with the demo
// dataset, guarded by the one-time seed flag.
func (s *EventService) seedDemoData() []models.Event {
	events := models.DemoEvents()
	for _, event := range events {
		if err := s.insert(event); err != nil {
			log.Warnf("demo seed insert failed for %s: %v", event.ID, err)
		}
	}
	s.cache.SetFlag(CacheKeyDBSeeded)
	log.Infof("Seeded %d demo events into empty events table", len(events))
	return events
}

func (s *EventService) fallbackEvents() []models.Event {
	if snapshot, ok := s.cache.Get(CacheKeyEvents); ok {
		var events []models.Event
		if err := json.Unmarshal([]byte(snapshot), &events); err == nil {
			log.Infof("Serving %d events from local snapshot", len(events))
			return events
		}
		log.Warnf("corrupt events snapshot, falling back to demo data")
	}
	return models.DemoEvents()
}

func (s *EventService) writeSnapshot(events []models.Event) {
	data, err := json.Marshal(events)
	if err != nil {
		log.Warnf("events snapshot marshal failed: %v", err)
		return
	}
	s.cache.Set(CacheKeyEvents, string(data))
}
