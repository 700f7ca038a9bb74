package services

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"

	"dispatch-dashboard/models"
)

var validViews = map[string]bool{
	models.ViewDashboard:  true,
	models.ViewServiceLog: true,
	models.ViewVendors:    true,
	models.ViewAnalytics:  true,
}

// StateService is the view controller: it owns the canonical
// application state and is the only writer to it. Mutations are
// optimistic — local state changes first, the store sync runs on its
// own goroutine and reports failures through the notification center.
type StateService struct {
	store    *EventService
	notifier *NotificationService
	vendors  *VendorService
	conn     *ConnectionState
	hub      *WebSocketHub

	mutex        sync.RWMutex
	events       []models.Event
	currentView  string
	vendorFilter string
}

func NewStateService(store *EventService, notifier *NotificationService, vendors *VendorService, conn *ConnectionState, hub *WebSocketHub) *StateService {
	s := &StateService{
		store:       store,
		notifier:    notifier,
		vendors:     vendors,
		conn:        conn,
		hub:         hub,
		currentView: models.ViewDashboard,
	}
	conn.OnChange(func(status string) {
		s.publish(models.KindConnectionStatus, status)
	})
	return s
}

// Hydrate pulls the full remote state: events, notifications and the
// vendor watchlist. Called once at startup; each loader applies its
// own fallback policy.
func (s *StateService) Hydrate() {
	events := s.store.FetchAll()

	s.mutex.Lock()
	s.events = events
	s.mutex.Unlock()

	s.notifier.Hydrate()
	s.vendors.Hydrate()

	pending := 0
	for _, event := range events {
		if event.Status == models.StatusReview {
			pending++
		}
	}
	s.notifier.SeedIfEmpty(pending)
}

// Events returns the canonical collection, most-recent-first.
func (s *StateService) Events() []models.Event {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	out := make([]models.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Snapshot assembles the full presentation-boundary payload.
func (s *StateService) Snapshot() models.StateSnapshot {
	s.mutex.RLock()
	events := make([]models.Event, len(s.events))
	copy(events, s.events)
	view := s.currentView
	filter := s.vendorFilter
	s.mutex.RUnlock()

	return models.StateSnapshot{
		Events:           events,
		Notifications:    s.notifier.List(),
		Vendors:          s.vendors.List(""),
		CurrentView:      view,
		VendorFilter:     filter,
		ConnectionStatus: s.conn.Get(),
		KPIs:             ComputeKPIs(events, time.Now()),
	}
}

// CurrentView returns the active navigation state.
func (s *StateService) CurrentView() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.currentView
}

// VendorFilter returns the active vendor restriction, "" when unset.
func (s *StateService) VendorFilter() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.vendorFilter
}

// Navigate switches the active view unconditionally. The vendor filter
// survives navigation; only a fresh vendor selection resets the view.
func (s *StateService) Navigate(view string) error {
	if !validViews[view] {
		return fmt.Errorf("unknown view %q", view)
	}

	s.mutex.Lock()
	s.currentView = view
	s.mutex.Unlock()

	s.publish(models.KindViewChanged, view)
	return nil
}

// FilterByVendor restricts the dashboard to one vendor and jumps to
// the dashboard view regardless of where the user was. An empty vendor
// clears the restriction.
func (s *StateService) FilterByVendor(vendor string) {
	s.mutex.Lock()
	s.vendorFilter = vendor
	s.currentView = models.ViewDashboard
	s.mutex.Unlock()

	s.publish(models.KindViewChanged, models.ViewDashboard)
}

// LogEvent constructs an Event from the form submission, prepends it
// to the collection and kicks off the store sync. The id is assigned
// client-side so offline logging still produces stable identities.
func (s *StateService) LogEvent(req models.LogEventRequest) models.Event {
	now := time.Now()
	event := models.Event{
		ID:            "EV-" + strings.ToUpper(uuid.NewString()[:8]),
		Timestamp:     now.Format("2006-01-02 15:04"),
		CreatedAt:     now.UTC().Format(time.RFC3339),
		Status:        deriveStatus(req.Outcome, ""),
		JobStatus:     req.Outcome,
		Vendor:        req.Vendor,
		Location:      req.Location,
		Type:          req.Type,
		Price:         parsePrice(req.Price),
		Satisfaction:  req.Satisfaction,
		Notes:         req.Notes,
		TotalEstimate: req.TotalEstimate,
		HourlyRate:    req.HourlyRate,
		CalloutFee:    req.CalloutFee,
		CostContext:   req.Flags,
	}
	if event.Vendor == "" {
		event.Vendor = "Unknown Vendor"
	}
	if event.Location == "" {
		event.Location = "Unknown Loc"
	}
	if event.Satisfaction == "" {
		event.Satisfaction = "good"
	}

	s.mutex.Lock()
	s.events = append([]models.Event{event}, s.events...)
	s.mutex.Unlock()

	go s.store.Sync(event, models.SyncInsert)
	s.notifier.Notify("New Event Logged", fmt.Sprintf("Case %s added by System.", event.ID), models.NotifInfo)
	s.publish(models.KindEventLogged, event)
	return event
}

// EditEvent replaces the matching record and returns the stored form,
// which may differ from the submission (review status preserved,
// created_at/timestamp backfilled, price coerced). No-op when the id
// is unknown. A record edited into resolved status posts the
// resolution notification.
func (s *StateService) EditEvent(updated models.Event) (models.Event, bool) {
	s.mutex.Lock()
	var existing *models.Event
	for i := range s.events {
		if s.events[i].ID == updated.ID {
			existing = &s.events[i]
			break
		}
	}
	if existing == nil {
		s.mutex.Unlock()
		return models.Event{}, false
	}

	if updated.Status == "" {
		updated.Status = deriveStatus(updated.JobStatus, existing.Status)
	}
	if updated.CreatedAt == "" {
		updated.CreatedAt = existing.CreatedAt
	}
	if updated.Timestamp == "" {
		updated.Timestamp = existing.Timestamp
	}
	updated.Price = safePrice(updated.Price)
	*existing = updated
	s.mutex.Unlock()

	go s.store.Sync(updated, models.SyncUpdate)
	if updated.Status == models.StatusResolved {
		s.notifier.Notify("Case Resolved", fmt.Sprintf("Case %s marked as resolved.", updated.ID), models.NotifSuccess)
	}
	s.publish(models.KindEventUpdated, updated)
	return updated, true
}

// DeleteEvent removes the matching record. No-op when the id is
// unknown.
func (s *StateService) DeleteEvent(id string) bool {
	s.mutex.Lock()
	var removed *models.Event
	kept := s.events[:0]
	for i := range s.events {
		if s.events[i].ID == id {
			event := s.events[i]
			removed = &event
			continue
		}
		kept = append(kept, s.events[i])
	}
	s.events = kept
	s.mutex.Unlock()

	if removed == nil {
		return false
	}

	go s.store.Sync(*removed, models.SyncDelete)
	s.publish(models.KindEventDeleted, id)
	return true
}

// ApproveToPending moves a reviewed case to pending dispatch. Only
// legal from review.
func (s *StateService) ApproveToPending(id string) (models.Event, error) {
	return s.transition(id, models.StatusPending)
}

// ResolveCase closes out a reviewed case. Only legal from review.
func (s *StateService) ResolveCase(id string) (models.Event, error) {
	event, err := s.transition(id, models.StatusResolved)
	if err == nil {
		s.notifier.Notify("Case Resolved", fmt.Sprintf("Case %s marked as resolved.", event.ID), models.NotifSuccess)
	}
	return event, err
}

// transition is the direct status shortcut bypassing the form-derived
// status logic.
func (s *StateService) transition(id, status string) (models.Event, error) {
	s.mutex.Lock()
	var updated models.Event
	found := false
	for i := range s.events {
		if s.events[i].ID != id {
			continue
		}
		if s.events[i].Status != models.StatusReview {
			current := s.events[i].Status
			s.mutex.Unlock()
			return models.Event{}, fmt.Errorf("event %s is %s, only review cases can transition", id, current)
		}
		s.events[i].Status = status
		updated = s.events[i]
		found = true
		break
	}
	s.mutex.Unlock()

	if !found {
		return models.Event{}, fmt.Errorf("event %s not found", id)
	}

	go s.store.Sync(updated, models.SyncUpdate)
	s.publish(models.KindEventUpdated, updated)
	return updated, nil
}

// ClearNotifications empties the notification log locally and
// remotely.
func (s *StateService) ClearNotifications() {
	s.notifier.ClearAll()
	s.publish(models.KindNotification, nil)
}

// PublishVendorsChanged tells clients to refetch the watchlist.
func (s *StateService) PublishVendorsChanged() {
	s.publish(models.KindVendorsChanged, nil)
}

func (s *StateService) publish(kind string, payload interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(models.BroadcastMessage{Kind: kind, Payload: payload})
}

// deriveStatus maps the form outcome onto the coarse lifecycle state.
// An existing review flag is preserved until explicitly transitioned.
func deriveStatus(jobStatus, existing string) string {
	if existing == models.StatusReview {
		return models.StatusReview
	}
	switch jobStatus {
	case models.JobCancelled:
		return models.StatusVoid
	case models.JobOnCall:
		return models.StatusPending
	default:
		return models.StatusResolved
	}
}

// parsePrice coerces the form's price string to a non-negative number;
// garbage never blocks submission.
func parsePrice(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Warnf("unparseable price %q, defaulting to 0", raw)
		return 0
	}
	return safePrice(price)
}
