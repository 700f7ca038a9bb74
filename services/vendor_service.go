package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"dispatch-dashboard/models"
	"dispatch-dashboard/utils"
)

// VendorService owns the preferred-partner watchlist: hydration from
// the vendors table, one-time seeding of an empty table, creation with
// rollback, and profile updates.
type VendorService struct {
	db    *sql.DB
	cache *CacheService
	conn  *ConnectionState

	mutex   sync.RWMutex
	vendors []models.Vendor
}

func NewVendorService(db *sql.DB, cache *CacheService, conn *ConnectionState) *VendorService {
	return &VendorService{db: db, cache: cache, conn: conn}
}

// Hydrate loads the watchlist from the remote store. An empty table is
// seeded once with the built-in watchlist; a failed fetch falls back
// to the local snapshot and then the built-in list.
func (s *VendorService) Hydrate() {
	if s.db == nil {
		s.setVendors(s.fallbackVendors())
		return
	}

	vendors, err := s.queryAll()
	if err != nil {
		log.Errorf("vendors fetch failed: %v", err)
		s.setVendors(s.fallbackVendors())
		return
	}

	if len(vendors) == 0 && !s.cache.Flag(CacheKeyVendorsSeeded) {
		vendors = s.seedWatchlist()
	}

	s.setVendors(vendors)
	s.writeSnapshot(vendors)
}

// List returns the watchlist, optionally narrowed by a search filter
// over name and location.
func (s *VendorService) List(filter string) []models.Vendor {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	filter = strings.ToLower(strings.TrimSpace(filter))
	out := []models.Vendor{}
	for _, vendor := range s.vendors {
		if filter != "" &&
			!strings.Contains(strings.ToLower(vendor.Name), filter) &&
			!strings.Contains(strings.ToLower(vendor.Location), filter) {
			continue
		}
		out = append(out, vendor)
	}
	return out
}

// Get returns one vendor by id.
func (s *VendorService) Get(id string) (models.Vendor, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	for _, vendor := range s.vendors {
		if vendor.ID == id {
			return vendor, true
		}
	}
	return models.Vendor{}, false
}

// Create adds a vendor optimistically and rolls the insert back if the
// remote store rejects it. This is the one mutation path with
// rollback: a watchlist card that exists locally but not remotely
// would silently vanish on the next hydration.
func (s *VendorService) Create(vendor models.Vendor) (models.Vendor, error) {
	if vendor.Name == "" {
		return vendor, fmt.Errorf("vendor name is required")
	}
	if vendor.ID == "" {
		vendor.ID = "V-" + strings.ToUpper(uuid.NewString()[:8])
	}
	if vendor.Status == "" {
		vendor.Status = "ok"
	}

	s.mutex.Lock()
	s.vendors = append(s.vendors, vendor)
	s.mutex.Unlock()

	if s.conn.Online() {
		if err := s.insert(vendor); err != nil {
			s.mutex.Lock()
			kept := s.vendors[:0]
			for _, v := range s.vendors {
				if v.ID != vendor.ID {
					kept = append(kept, v)
				}
			}
			s.vendors = kept
			s.mutex.Unlock()
			return vendor, fmt.Errorf("vendor create rejected by remote store: %w", err)
		}
	}

	s.writeSnapshot(s.List(""))
	return vendor, nil
}

// Update replaces the matching vendor profile. A failed remote update
// keeps the optimistic local change and refreshes the local snapshot
// so the edit survives a restart in degraded mode.
func (s *VendorService) Update(updated models.Vendor) bool {
	s.mutex.Lock()
	found := false
	for i, vendor := range s.vendors {
		if vendor.ID == updated.ID {
			s.vendors[i] = updated
			found = true
			break
		}
	}
	s.mutex.Unlock()

	if !found {
		return false
	}

	if s.conn.Online() {
		if err := s.updateRow(updated); err != nil {
			log.Errorf("vendor update failed for %s: %v", updated.ID, err)
		}
	}
	s.writeSnapshot(s.List(""))
	return true
}

// HistoryFor joins a vendor against the event collection by normalized
// name and rolls up spend. Events carry vendor names, not ids.
func (s *VendorService) HistoryFor(id string, events []models.Event) (models.VendorHistory, bool) {
	vendor, ok := s.Get(id)
	if !ok {
		return models.VendorHistory{}, false
	}

	key := utils.NormalizeVendorName(vendor.Name)
	history := models.VendorHistory{Vendor: vendor, Events: []models.Event{}}
	spend := decimal.Zero
	for _, event := range events {
		if utils.NormalizeVendorName(event.Vendor) != key {
			continue
		}
		history.Events = append(history.Events, event)
		spend = spend.Add(decimal.NewFromFloat(safePrice(event.Price)))
	}
	history.TotalSpend = spend.InexactFloat64()
	history.EventCount = len(history.Events)
	return history, true
}

func (s *VendorService) setVendors(vendors []models.Vendor) {
	s.mutex.Lock()
	s.vendors = vendors
	s.mutex.Unlock()
}

func (s *VendorService) queryAll() ([]models.Vendor, error) {
	rows, err := s.db.Query("SELECT id, name, location, address, phone, services, rating, status, reliability, joined FROM vendors ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query vendors: %w", err)
	}
	defer rows.Close()

	vendors := []models.Vendor{}
	for rows.Next() {
		var vendor models.Vendor
		var services sql.NullString
		err := rows.Scan(
			&vendor.ID,
			&vendor.Name,
			&vendor.Location,
			&vendor.Address,
			&vendor.Phone,
			&services,
			&vendor.Rating,
			&vendor.Status,
			&vendor.Reliability,
			&vendor.Joined,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vendor: %w", err)
		}
		if services.String != "" {
			if err := json.Unmarshal([]byte(services.String), &vendor.Services); err != nil {
				log.Warnf("bad services list on vendor %s: %v", vendor.ID, err)
			}
		}
		vendors = append(vendors, vendor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vendors: %w", err)
	}
	return vendors, nil
}

func (s *VendorService) insert(vendor models.Vendor) error {
	_, err := s.db.Exec(
		"INSERT INTO vendors (id, name, location, address, phone, services, rating, status, reliability, joined) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		vendor.ID,
		vendor.Name,
		vendor.Location,
		vendor.Address,
		vendor.Phone,
		marshalServices(vendor.Services),
		vendor.Rating,
		vendor.Status,
		vendor.Reliability,
		vendor.Joined)
	if err != nil {
		return fmt.Errorf("failed to insert vendor: %w", err)
	}
	return nil
}

func (s *VendorService) updateRow(vendor models.Vendor) error {
	_, err := s.db.Exec(
		"UPDATE vendors SET name = ?, location = ?, address = ?, phone = ?, services = ?, rating = ?, status = ?, reliability = ?, joined = ? WHERE id = ?",
		vendor.Name,
		vendor.Location,
		vendor.Address,
		vendor.Phone,
		marshalServices(vendor.Services),
		vendor.Rating,
		vendor.Status,
		vendor.Reliability,
		vendor.Joined,
		vendor.ID)
	if err != nil {
		return fmt.Errorf("failed to update vendor: %w", err)
	}
	return nil
}

func marshalServices(services []string) string {
	if len(services) == 0 {
		return ""
	}
	data, err := json.Marshal(services)
	if err != nil {
		return ""
	}
	return string(data)
}

// seedWatchlist inserts the built-in vendors into the empty table,
// guarded by the one-time seed flag.
func (s *VendorService) seedWatchlist() []models.Vendor {
	for _, vendor := range models.InitialVendors {
		if err := s.insert(vendor); err != nil {
			log.Warnf("watchlist seed insert failed for %s: %v", vendor.ID, err)
		}
	}
	s.cache.SetFlag(CacheKeyVendorsSeeded)
	log.Infof("Seeded %d vendors into empty vendors table", len(models.InitialVendors))
	return models.InitialVendors
}

func (s *VendorService) fallbackVendors() []models.Vendor {
	if snapshot, ok := s.cache.Get(CacheKeyVendors); ok {
		var vendors []models.Vendor
		if err := json.Unmarshal([]byte(snapshot), &vendors); err == nil {
			return vendors
		}
		log.Warnf("corrupt vendors snapshot, falling back to built-in watchlist")
	}
	return models.InitialVendors
}

func (s *VendorService) writeSnapshot(vendors []models.Vendor) {
	data, err := json.Marshal(vendors)
	if err != nil {
		log.Warnf("vendors snapshot marshal failed: %v", err)
		return
	}
	s.cache.Set(CacheKeyVendors, string(data))
}
