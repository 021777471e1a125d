package session

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SimDriver is the simulation substitute used wherever the real automation
// layer is unavailable. Every operation is pure bookkeeping: it fabricates
// windows, logs the intended action, and reports success. The Controller's
// public contract is unchanged; only the side effects differ.
type SimDriver struct {
	logger *zap.SugaredLogger

	mu   sync.Mutex
	live map[string]bool // fabricated window id -> alive
}

type simWindow struct {
	id string
}

// NewSimDriver creates a simulation driver
func NewSimDriver(logger *zap.SugaredLogger) *SimDriver {
	return &SimDriver{
		logger: logger,
		live:   make(map[string]bool),
	}
}

// Name implements Driver
func (d *SimDriver) Name() string { return "simulation" }

// Preflight implements Driver; simulation has no executable to validate
func (d *SimDriver) Preflight(exePath string, allowMultiple bool) error {
	d.logger.Debugw("SIMULATION: preflight",
		"exe_path", exePath, "allow_multiple", allowMultiple)
	return nil
}

// Launch implements Driver
func (d *SimDriver) Launch(exePath, artifactPath string) error {
	d.logger.Infow("SIMULATION: would launch EZCAD2",
		"exe_path", exePath, "artifact", artifactPath)
	return nil
}

// Connect implements Driver; fabricates a window on the first attempt
func (d *SimDriver) Connect(artifactPath string) (Window, error) {
	win := simWindow{id: uuid.NewString()}

	d.mu.Lock()
	d.live[win.id] = true
	d.mu.Unlock()

	d.logger.Infow("SIMULATION: would connect to main window",
		"artifact", artifactPath, "sim_window", win.id)
	return win, nil
}

// EnsureVisible implements Driver
func (d *SimDriver) EnsureVisible(win Window) error {
	d.logger.Debugw("SIMULATION: would restore and focus window",
		"sim_window", win.(simWindow).id)
	return nil
}

// SendKeys implements Driver
func (d *SimDriver) SendKeys(win Window, sequence string) error {
	d.logger.Infow("SIMULATION: would send keystrokes",
		"sim_window", win.(simWindow).id, "keys", sequence)
	return nil
}

// Alive implements Driver
func (d *SimDriver) Alive(win Window) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live[win.(simWindow).id]
}

// RequestClose implements Driver
func (d *SimDriver) RequestClose(win Window) error {
	sw := win.(simWindow)

	d.mu.Lock()
	delete(d.live, sw.id)
	d.mu.Unlock()

	d.logger.Infow("SIMULATION: would close window and cancel save prompt",
		"sim_window", sw.id)
	return nil
}
