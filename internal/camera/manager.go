package camera

import (
	"log"
	"sort"
	"sync"

	"sentrycam/internal/config"
	"sentrycam/internal/eventhub"
	"sentrycam/internal/eventlog"
)

// Manager owns the full fleet of cameras described by a loaded config
// (spec.md §2: "one pipeline instance per configured camera").
type Manager struct {
	mu      sync.RWMutex
	cameras map[string]*Camera
	log     *log.Logger
}

// NewManager builds a Manager with no cameras yet.
func NewManager(logger *log.Logger) *Manager {
	return &Manager{
		cameras: make(map[string]*Camera),
		log:     logger,
	}
}

// Load builds (but does not start) one Camera per entry in cfg.Cameras,
// wiring in the shared recordings policy, per-camera motion policy (if
// any), event hub, and event log.
func (m *Manager) Load(cfg *config.Config, hub *eventhub.Hub, elog *eventlog.Log, logger func(component string) *log.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deps := Deps{
		Recordings: cfg.Recordings,
		EventHub:   hub,
		EventLog:   elog,
	}

	for id, camCfg := range cfg.Cameras {
		var motionCfg *config.MotionConfig
		if mc, ok := cfg.Motion[id]; ok {
			motionCfg = &mc
		}
		m.cameras[id] = New(id, camCfg, motionCfg, deps, logger(camCfg.NormName))
	}
}

// StartAll starts every loaded camera, collecting (not aborting on) any
// per-camera start failure, since one dead device must not prevent the
// rest of the fleet from running (spec.md §4.1 Failures philosophy
// applied at manager scope).
func (m *Manager) StartAll() map[string]error {
	m.mu.RLock()
	cameras := make(map[string]*Camera, len(m.cameras))
	for id, c := range m.cameras {
		cameras[id] = c
	}
	m.mu.RUnlock()

	errs := make(map[string]error)
	for id, c := range cameras {
		if err := c.Start(); err != nil {
			m.log.Printf("camera %s: failed to start: %v", id, err)
			errs[id] = err
		}
	}
	return errs
}

// StopAll stops every camera and blocks until all have finished
// shutting down.
func (m *Manager) StopAll() {
	m.mu.RLock()
	cameras := make([]*Camera, 0, len(m.cameras))
	for _, c := range m.cameras {
		cameras = append(cameras, c)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, c := range cameras {
		wg.Add(1)
		go func(c *Camera) {
			defer wg.Done()
			c.Stop()
		}(c)
	}
	wg.Wait()
}

// IDs returns every loaded camera ID in sorted order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.cameras))
	for id := range m.cameras {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
