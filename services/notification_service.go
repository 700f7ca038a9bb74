package services

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"

	"dispatch-dashboard/models"
)

// NotificationService owns the append-only, most-recent-first log of
// system messages and mirrors it to the notifications table when the
// remote store is online. Persistence failures are swallowed: a
// notification must never fail the action that produced it.
type NotificationService struct {
	db   *sql.DB
	conn *ConnectionState

	mutex   sync.RWMutex
	items   []models.Notification
	persist sync.WaitGroup
}

func NewNotificationService(db *sql.DB, conn *ConnectionState) *NotificationService {
	return &NotificationService{db: db, conn: conn}
}

// Notify constructs a notification, prepends it to the in-memory list
// and best-effort persists it.
func (s *NotificationService) Notify(title, message, ntype string) models.Notification {
	notif := models.Notification{
		ID:        "N-" + strings.ToUpper(uuid.NewString()[:8]),
		Title:     title,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Read:      false,
		Type:      ntype,
	}

	s.mutex.Lock()
	s.items = append([]models.Notification{notif}, s.items...)
	s.mutex.Unlock()

	// Persistence runs on its own goroutine: a slow store must not
	// stall the action that produced the notification.
	if s.conn.Online() {
		s.persist.Add(1)
		go func() {
			defer s.persist.Done()
			if err := s.insert(notif); err != nil {
				log.Warnf("notification persist failed for %s: %v", notif.ID, err)
			}
		}()
	}
	return notif
}

// List returns the notifications most-recent-first.
func (s *NotificationService) List() []models.Notification {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	out := make([]models.Notification, len(s.items))
	copy(out, s.items)
	return out
}

// ClearAll empties the list. When online it issues a single bulk
// delete against the remote store; offline it touches nothing remote.
func (s *NotificationService) ClearAll() {
	s.mutex.Lock()
	s.items = nil
	s.mutex.Unlock()

	if !s.conn.Online() {
		return
	}
	if _, err := s.db.Exec("DELETE FROM notifications WHERE id != '0'"); err != nil {
		log.Warnf("notification bulk delete failed: %v", err)
	}
}

// Hydrate replaces the in-memory list with the remote rows. Failures
// leave the current list untouched.
func (s *NotificationService) Hydrate() {
	if s.db == nil {
		return
	}
	rows, err := s.db.Query("SELECT id, title, message, ts, is_read, type FROM notifications ORDER BY ts DESC")
	if err != nil {
		log.Warnf("notifications fetch failed: %v", err)
		return
	}
	defer rows.Close()

	var items []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.Title, &n.Message, &n.Timestamp, &n.Read, &n.Type); err != nil {
			log.Warnf("notification scan failed: %v", err)
			return
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		log.Warnf("error iterating notifications: %v", err)
		return
	}

	s.mutex.Lock()
	s.items = items
	s.mutex.Unlock()
}

// SeedIfEmpty posts the startup messages when nothing has been logged
// yet: the connectivity banner plus a pending-review reminder.
func (s *NotificationService) SeedIfEmpty(pendingReviews int) {
	s.mutex.RLock()
	empty := len(s.items) == 0
	s.mutex.RUnlock()
	if !empty {
		return
	}

	s.Notify("System Online", "Connection established with central dispatch.", models.NotifSuccess)
	if pendingReviews > 0 {
		s.Notify("Pending Reviews", fmt.Sprintf("%d cases require manager approval.", pendingReviews), models.NotifWarning)
	}
}

func (s *NotificationService) insert(n models.Notification) error {
	_, err := s.db.Exec(
		"INSERT INTO notifications (id, title, message, ts, is_read, type) VALUES (?, ?, ?, ?, ?, ?)",
		n.ID, n.Title, n.Message, n.Timestamp, n.Read, n.Type)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}
