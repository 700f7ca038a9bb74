package services

import (
	"sync"

	"dispatch-dashboard/models"
)

// ConnectionState is the process-wide remote-store connectivity
// indicator. Writes attempt remote synchronization only while online.
type ConnectionState struct {
	mutex    sync.RWMutex
	value    string
	onChange func(status string)
}

func NewConnectionState() *ConnectionState {
	return &ConnectionState{value: models.ConnConnecting}
}

// OnChange registers a single observer notified on every transition.
func (c *ConnectionState) OnChange(fn func(status string)) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.onChange = fn
}

func (c *ConnectionState) Get() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.value
}

func (c *ConnectionState) Set(status string) {
	c.mutex.Lock()
	changed := c.value != status
	c.value = status
	fn := c.onChange
	c.mutex.Unlock()

	if changed && fn != nil {
		fn(status)
	}
}

// Online reports whether remote writes should be attempted.
func (c *ConnectionState) Online() bool {
	return c.Get() == models.ConnOnline
}
