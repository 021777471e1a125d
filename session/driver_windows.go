//go:build windows

package session

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/windows"

	"github.com/Yunusemreunal45/ezcad2-wscad/config"
	"github.com/Yunusemreunal45/ezcad2-wscad/errors"
)

var (
	user32                 = windows.NewLazySystemDLL("user32.dll")
	procEnumWindows        = user32.NewProc("EnumWindows")
	procGetWindowTextW     = user32.NewProc("GetWindowTextW")
	procIsWindow           = user32.NewProc("IsWindow")
	procIsWindowVisible    = user32.NewProc("IsWindowVisible")
	procShowWindow         = user32.NewProc("ShowWindow")
	procSetForegroundWnd   = user32.NewProc("SetForegroundWindow")
	procPostMessageW       = user32.NewProc("PostMessageW")
	procGetWindowThreadPID = user32.NewProc("GetWindowThreadProcessId")
)

const (
	wmKeyDown = 0x0100
	wmKeyUp   = 0x0101
	wmClose   = 0x0010

	swRestore = 9

	vkReturn = 0x0D
	vkEscape = 0x1B
	vkF1     = 0x70
	vkF2     = 0x71
)

// keyCodes maps the key-sequence fragments used by commandKeys to virtual
// key codes.
var keyCodes = map[string]uintptr{
	"{F1}":    vkF1,
	"{F2}":    vkF2,
	"{ENTER}": vkReturn,
	"{ESC}":   vkEscape,
}

type winWindow struct {
	hwnd windows.HWND
	pid  int32
}

// windowsDriver drives EZCAD2 through OS-level window enumeration and
// synthetic input. There is no documented protocol for the application;
// everything here is best-effort by construction.
type windowsDriver struct {
	cfg    *config.Config
	logger *zap.SugaredLogger
}

func newPlatformDriver(cfg *config.Config, logger *zap.SugaredLogger) Driver {
	return &windowsDriver{cfg: cfg, logger: logger}
}

func (d *windowsDriver) Name() string { return "win32" }

func (d *windowsDriver) settle() {
	time.Sleep(time.Duration(d.cfg.Settings.SettleDelayMS) * time.Millisecond)
}

func (d *windowsDriver) Preflight(exePath string, allowMultiple bool) error {
	if exePath == "" {
		return errors.Wrap(errors.ErrNoArtifactConfigured, "executable path not set")
	}
	if _, err := os.Stat(exePath); err != nil {
		return errors.Wrapf(errors.ErrNoArtifactConfigured, "executable %q not found", exePath)
	}

	if !allowMultiple {
		running, err := processRunning(filepath.Base(exePath))
		if err != nil {
			return err
		}
		if running {
			return errors.Wrapf(errors.ErrAlreadyRunning, "%s already running on host", filepath.Base(exePath))
		}
	}
	return nil
}

func (d *windowsDriver) Launch(exePath, artifactPath string) error {
	args := []string{}
	if artifactPath != "" {
		if _, err := os.Stat(artifactPath); err != nil {
			return errors.Wrapf(errors.ErrLoadFailed, "artifact %q not found", artifactPath)
		}
		args = append(args, artifactPath)
	}

	cmd := exec.Command(exePath, args...)
	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "failed to start %s", exePath)
	}
	// The process outlives us on purpose; never wait on it
	go func() { _ = cmd.Wait() }()

	d.logger.Infow("Launched EZCAD2", "exe", exePath, "artifact", artifactPath, "pid", cmd.Process.Pid)
	return nil
}

// Connect dismisses any startup license/agreement dialog and locates the
// main window. The main window title carries the artifact base name when a
// file was opened, or "EZCAD" otherwise.
func (d *windowsDriver) Connect(artifactPath string) (Window, error) {
	d.dismissStartupDialogs()

	needle := "EZCAD"
	if artifactPath != "" {
		needle = filepath.Base(artifactPath)
	}

	hwnd := findWindowByTitle(needle)
	if hwnd == 0 {
		return nil, errors.Newf("no visible window matching %q", needle)
	}

	var pid uint32
	procGetWindowThreadPID.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&pid)))

	return winWindow{hwnd: hwnd, pid: int32(pid)}, nil
}

// dismissStartupDialogs hunts for license/agreement dialogs and accepts
// them with an Enter keystroke.
func (d *windowsDriver) dismissStartupDialogs() {
	for _, title := range []string{"License", "Agreement", "Terms"} {
		hwnd := findWindowByTitle(title)
		if hwnd == 0 {
			continue
		}
		d.logger.Infow("Dismissing startup dialog", "title_match", title)
		procSetForegroundWnd.Call(uintptr(hwnd))
		postKey(hwnd, vkReturn)
		time.Sleep(200 * time.Millisecond)
	}
}

func (d *windowsDriver) EnsureVisible(win Window) error {
	w := win.(winWindow)

	visible, _, _ := procIsWindowVisible.Call(uintptr(w.hwnd))
	if visible == 0 {
		procShowWindow.Call(uintptr(w.hwnd), swRestore)
		d.settle()
	}

	ok, _, _ := procSetForegroundWnd.Call(uintptr(w.hwnd))
	if ok == 0 {
		// One restore+retry before giving up; focus theft protection can
		// reject the first attempt
		procShowWindow.Call(uintptr(w.hwnd), swRestore)
		d.settle()
		if ok, _, _ = procSetForegroundWnd.Call(uintptr(w.hwnd)); ok == 0 {
			return errors.New("failed to bring window to foreground")
		}
	}
	d.settle()
	return nil
}

func (d *windowsDriver) SendKeys(win Window, sequence string) error {
	w := win.(winWindow)

	vk, ok := keyCodes[strings.ToUpper(sequence)]
	if !ok {
		return errors.Newf("no key code for sequence %q", sequence)
	}
	postKey(w.hwnd, vk)
	return nil
}

func (d *windowsDriver) Alive(win Window) bool {
	w := win.(winWindow)
	isWin, _, _ := procIsWindow.Call(uintptr(w.hwnd))
	return isWin != 0 && pidAlive(w.pid)
}

func (d *windowsDriver) RequestClose(win Window) error {
	w := win.(winWindow)

	procPostMessageW.Call(uintptr(w.hwnd), wmClose, 0, 0)
	d.settle()

	// A save prompt may pop up; cancel it so the artifact on disk is never
	// overwritten by an automation run
	if prompt := findWindowByTitle("EZCAD"); prompt != 0 && prompt != w.hwnd {
		postKey(prompt, vkEscape)
	}
	return nil
}

func postKey(hwnd windows.HWND, vk uintptr) {
	procPostMessageW.Call(uintptr(hwnd), wmKeyDown, vk, 0)
	procPostMessageW.Call(uintptr(hwnd), wmKeyUp, vk, 0)
}

type windowSearch struct {
	needle string // lowercased
	found  windows.HWND
}

// enumCallback is created once: Go callbacks registered with the OS are
// never released, so per-call NewCallback would exhaust the callback table.
var enumCallback = syscall.NewCallback(func(hwnd windows.HWND, lparam uintptr) uintptr {
	search := (*windowSearch)(unsafe.Pointer(lparam))

	visible, _, _ := procIsWindowVisible.Call(uintptr(hwnd))
	if visible == 0 {
		return 1 // continue enumeration
	}

	buf := make([]uint16, 256)
	n, _, _ := procGetWindowTextW.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		return 1
	}

	title := windows.UTF16ToString(buf[:n])
	if strings.Contains(strings.ToLower(title), search.needle) {
		search.found = hwnd
		return 0 // stop enumeration
	}
	return 1
})

// findWindowByTitle returns the first visible top-level window whose title
// contains needle (case-insensitive), or 0.
func findWindowByTitle(needle string) windows.HWND {
	search := windowSearch{needle: strings.ToLower(needle)}
	procEnumWindows.Call(enumCallback, uintptr(unsafe.Pointer(&search)))
	return search.found
}
