package handlers

import (
	"strconv"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"dispatch-dashboard/models"
	"dispatch-dashboard/services"
)

// DashboardHandler exposes the view-controller operations and the
// derived dashboard data over HTTP.
type DashboardHandler struct {
	state   *services.StateService
	vendors *services.VendorService
	hub     *services.WebSocketHub
}

func NewDashboardHandler(state *services.StateService, vendors *services.VendorService, hub *services.WebSocketHub) *DashboardHandler {
	return &DashboardHandler{
		state:   state,
		vendors: vendors,
		hub:     hub,
	}
}

// HealthHandler handles health check requests
func (h *DashboardHandler) HealthHandler(c *gin.Context) {
	response := models.HealthResponse{
		Status:           "healthy",
		Message:          "Dispatch dashboard service is running",
		Service:          "dispatch-dashboard",
		ConnectedClients: h.hub.ClientCount(),
	}
	c.JSON(200, response)
}

// StateHandler returns the full presentation-boundary snapshot.
func (h *DashboardHandler) StateHandler(c *gin.Context) {
	c.JSON(200, h.state.Snapshot())
}

// MetaHandler returns the form catalogs.
func (h *DashboardHandler) MetaHandler(c *gin.Context) {
	c.JSON(200, models.MetaResponse{
		ServiceTypes:     models.ServiceTypes,
		CostContextFlags: models.CostContextFlags,
		Outcomes:         models.Outcomes,
	})
}

// EventsHandler lists events through the filter predicates. An absent
// vendor parameter falls back to the active dashboard filter.
func (h *DashboardHandler) EventsHandler(c *gin.Context) {
	events := h.filteredEvents(c)
	c.JSON(200, gin.H{"events": events, "count": len(events)})
}

// LogEventHandler handles the logging-form submission.
func (h *DashboardHandler) LogEventHandler(c *gin.Context) {
	var req models.LogEventRequest
	if err := c.BindJSON(&req); err != nil {
		log.Errorf("JSON binding, %v", err)
		c.JSON(400, gin.H{"error": "invalid request body"})
		return
	}

	event := h.state.LogEvent(req)
	c.JSON(201, event)
}

// EditEventHandler replaces an event record.
func (h *DashboardHandler) EditEventHandler(c *gin.Context) {
	var event models.Event
	if err := c.BindJSON(&event); err != nil {
		log.Errorf("JSON binding, %v", err)
		c.JSON(400, gin.H{"error": "invalid request body"})
		return
	}
	event.ID = c.Param("id")

	// Respond with the stored form, not the submission: the controller
	// may preserve review status, backfill timestamps or coerce the
	// price.
	stored, ok := h.state.EditEvent(event)
	if !ok {
		c.JSON(404, gin.H{"error": "event not found"})
		return
	}
	c.JSON(200, stored)
}

// DeleteEventHandler removes an event record.
func (h *DashboardHandler) DeleteEventHandler(c *gin.Context) {
	if !h.state.DeleteEvent(c.Param("id")) {
		c.JSON(404, gin.H{"error": "event not found"})
		return
	}
	c.JSON(200, gin.H{"status": "deleted"})
}

// ApproveEventHandler moves a reviewed case to pending.
func (h *DashboardHandler) ApproveEventHandler(c *gin.Context) {
	event, err := h.state.ApproveToPending(c.Param("id"))
	if err != nil {
		c.JSON(409, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, event)
}

// ResolveEventHandler closes out a reviewed case.
func (h *DashboardHandler) ResolveEventHandler(c *gin.Context) {
	event, err := h.state.ResolveCase(c.Param("id"))
	if err != nil {
		c.JSON(409, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, event)
}

// KPIsHandler computes the ticker over the filtered collection.
func (h *DashboardHandler) KPIsHandler(c *gin.Context) {
	c.JSON(200, services.ComputeKPIs(h.filteredEvents(c), time.Now()))
}

// WeeklyVolumeHandler returns the 7-day volume/spend buckets.
func (h *DashboardHandler) WeeklyVolumeHandler(c *gin.Context) {
	c.JSON(200, gin.H{"days": services.WeeklyVolume(h.state.Events(), time.Now())})
}

// TopTypesHandler returns the incident-type distribution.
func (h *DashboardHandler) TopTypesHandler(c *gin.Context) {
	limit := 5
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(400, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	c.JSON(200, gin.H{"types": services.TopIncidentTypes(h.state.Events(), limit)})
}

// UrgentItemsHandler returns the attention-needed panel, independent
// of the active filter set.
func (h *DashboardHandler) UrgentItemsHandler(c *gin.Context) {
	urgent := services.UrgentItems(h.state.Events(), 5)
	c.JSON(200, gin.H{"events": urgent, "count": len(urgent)})
}

// NotificationsHandler lists the notification log.
func (h *DashboardHandler) NotificationsHandler(c *gin.Context) {
	snapshot := h.state.Snapshot()
	c.JSON(200, gin.H{"notifications": snapshot.Notifications, "count": len(snapshot.Notifications)})
}

// ClearNotificationsHandler empties the notification log.
func (h *DashboardHandler) ClearNotificationsHandler(c *gin.Context) {
	h.state.ClearNotifications()
	c.JSON(200, gin.H{"status": "cleared"})
}

// VendorsHandler lists the watchlist, optionally filtered by q.
func (h *DashboardHandler) VendorsHandler(c *gin.Context) {
	vendors := h.vendors.List(c.Query("q"))
	c.JSON(200, gin.H{"vendors": vendors, "count": len(vendors)})
}

// CreateVendorHandler adds a watchlist entry. A remote rejection rolls
// the optimistic insert back and surfaces as an error.
func (h *DashboardHandler) CreateVendorHandler(c *gin.Context) {
	var vendor models.Vendor
	if err := c.BindJSON(&vendor); err != nil {
		log.Errorf("JSON binding, %v", err)
		c.JSON(400, gin.H{"error": "invalid request body"})
		return
	}

	created, err := h.vendors.Create(vendor)
	if err != nil {
		log.Errorf("vendor create failed: %v", err)
		c.JSON(502, gin.H{"error": err.Error()})
		return
	}
	h.state.PublishVendorsChanged()
	c.JSON(201, created)
}

// UpdateVendorHandler edits a vendor profile.
func (h *DashboardHandler) UpdateVendorHandler(c *gin.Context) {
	var vendor models.Vendor
	if err := c.BindJSON(&vendor); err != nil {
		log.Errorf("JSON binding, %v", err)
		c.JSON(400, gin.H{"error": "invalid request body"})
		return
	}
	vendor.ID = c.Param("id")

	if !h.vendors.Update(vendor) {
		c.JSON(404, gin.H{"error": "vendor not found"})
		return
	}
	h.state.PublishVendorsChanged()
	c.JSON(200, vendor)
}

// VendorHistoryHandler returns the per-vendor event rollup.
func (h *DashboardHandler) VendorHistoryHandler(c *gin.Context) {
	history, ok := h.vendors.HistoryFor(c.Param("id"), h.state.Events())
	if !ok {
		c.JSON(404, gin.H{"error": "vendor not found"})
		return
	}
	c.JSON(200, history)
}

// NavigateHandler switches the active view.
func (h *DashboardHandler) NavigateHandler(c *gin.Context) {
	var req struct {
		View string `json:"view"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.state.Navigate(req.View); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"current_view": req.View})
}

// FilterVendorHandler restricts the dashboard to one vendor; an empty
// vendor clears the restriction.
func (h *DashboardHandler) FilterVendorHandler(c *gin.Context) {
	var req struct {
		Vendor string `json:"vendor"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "invalid request body"})
		return
	}
	h.state.FilterByVendor(req.Vendor)
	c.JSON(200, gin.H{"vendor_filter": req.Vendor, "current_view": models.ViewDashboard})
}

func (h *DashboardHandler) filteredEvents(c *gin.Context) []models.Event {
	vendor := c.Query("vendor")
	if _, present := c.GetQuery("vendor"); !present {
		vendor = h.state.VendorFilter()
	}
	status := c.DefaultQuery("status", services.StatusFilterAll)
	query := c.Query("q")
	return services.FilterEvents(h.state.Events(), vendor, status, query)
}
