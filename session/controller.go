package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Yunusemreunal45/ezcad2-wscad/config"
	"github.com/Yunusemreunal45/ezcad2-wscad/errors"
)

// Controller owns the session collection and serializes every session
// mutation and command delivery under one lock. The lock covers the whole
// read-modify sequence so a command can never be sent against a handle that
// is concurrently being closed.
type Controller struct {
	driver Driver
	cfg    *config.Config
	logger *zap.SugaredLogger

	mu       sync.Mutex
	sessions map[string]*Handle
}

// NewController creates a controller over the given driver
func NewController(driver Driver, cfg *config.Config, logger *zap.SugaredLogger) *Controller {
	return &Controller{
		driver:   driver,
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*Handle),
	}
}

// StartSession launches the external application, optionally opening
// artifactPath, and polls for its main window within the configured retry
// budget. On success the new session's window id is returned. When the
// window never appears the spawned process is left running, since it may
// still be initializing.
func (c *Controller) StartSession(ctx context.Context, artifactPath string) (string, error) {
	settings := c.cfg.Settings

	if err := c.driver.Preflight(c.cfg.Paths.ExecutablePath, settings.MultipleInstances); err != nil {
		return "", err
	}

	if err := c.driver.Launch(c.cfg.Paths.ExecutablePath, artifactPath); err != nil {
		return "", errors.Wrap(err, "failed to launch process")
	}

	interval := time.Duration(settings.ConnectIntervalMS) * time.Millisecond
	var win Window
	var lastErr error
	for attempt := 0; attempt < settings.ConnectAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(interval):
		}

		win, lastErr = c.driver.Connect(artifactPath)
		if lastErr == nil {
			break
		}
		c.logger.Debugw("Waiting for application window",
			"attempt", attempt+1,
			"max_attempts", settings.ConnectAttempts,
			"error", lastErr)
	}

	if win == nil {
		err := errors.Wrapf(errors.ErrConnectFailed,
			"window not found after %d attempts", settings.ConnectAttempts)
		if lastErr != nil {
			err = errors.WithDetail(err, lastErr.Error())
		}
		return "", err
	}

	handle := &Handle{
		WindowID:     "ezcad_" + uuid.NewString(),
		ArtifactPath: artifactPath,
		StartedAt:    time.Now(),
		win:          win,
	}

	c.mu.Lock()
	c.sessions[handle.WindowID] = handle
	c.mu.Unlock()

	c.logger.Infow("Session started",
		"window_id", handle.WindowID,
		"artifact", artifactPath,
		"driver", c.driver.Name())
	return handle.WindowID, nil
}

// SendCommand delivers a recognized command ("red", "mark") to a session.
// Unrecognized commands fail without side effects. The target window is
// restored and focused before any keystroke is sent.
func (c *Controller) SendCommand(windowID, command string) error {
	keys, ok := commandKeys[strings.ToLower(command)]
	if !ok {
		return errors.Wrapf(errors.ErrUnknownCommand, "command %q", command)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	handle, ok := c.sessions[windowID]
	if !ok {
		return errors.Wrapf(errors.ErrSessionNotFound, "window id %q", windowID)
	}

	if !c.driver.Alive(handle.win) {
		return errors.Wrapf(errors.ErrProcessGone, "window id %q", windowID)
	}

	if err := c.driver.EnsureVisible(handle.win); err != nil {
		return errors.Wrapf(err, "failed to focus window %q", windowID)
	}

	if err := c.driver.SendKeys(handle.win, keys); err != nil {
		return errors.Wrapf(err, "failed to send %q to window %q", command, windowID)
	}

	c.logger.Infow("Command sent", "window_id", windowID, "command", command, "keys", keys)
	return nil
}

// CloseSession requests a graceful close and removes the session from the
// tracked set regardless of whether the close round-trip could be confirmed.
func (c *Controller) CloseSession(windowID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closeLocked(windowID)
}

// closeLocked closes one session. Caller must hold c.mu.
func (c *Controller) closeLocked(windowID string) error {
	handle, ok := c.sessions[windowID]
	if !ok {
		return errors.Wrapf(errors.ErrSessionNotFound, "window id %q", windowID)
	}

	// Best-effort: the application offers no reliable close confirmation,
	// so the session is untracked even when RequestClose reports failure.
	err := c.driver.RequestClose(handle.win)
	delete(c.sessions, windowID)

	if err != nil {
		c.logger.Warnw("Graceful close unconfirmed, session untracked anyway",
			"window_id", windowID, "error", err)
		return errors.Wrapf(err, "failed to close window %q", windowID)
	}

	c.logger.Infow("Session closed", "window_id", windowID)
	return nil
}

// CloseAll closes every tracked session, continuing past individual
// failures, and returns the count of sessions that closed cleanly.
func (c *Controller) CloseAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	closed := 0
	for windowID := range c.sessions {
		if err := c.closeLocked(windowID); err != nil {
			c.logger.Warnw("Failed to close session", "window_id", windowID, "error", err)
			continue
		}
		closed++
	}

	c.logger.Infow("Closed all sessions", "closed", closed)
	return closed
}

// ActiveSessions returns a snapshot of the tracked sessions, keyed by
// window id. The returned handles are copies; the originals stay owned by
// the controller.
func (c *Controller) ActiveSessions() map[string]Handle {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]Handle, len(c.sessions))
	for id, handle := range c.sessions {
		out[id] = *handle
	}
	return out
}
