package processor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Yunusemreunal45/ezcad2-wscad/config"
	"github.com/Yunusemreunal45/ezcad2-wscad/errors"
	"github.com/Yunusemreunal45/ezcad2-wscad/queue"
	"github.com/Yunusemreunal45/ezcad2-wscad/session"
	"github.com/Yunusemreunal45/ezcad2-wscad/tabular"
)

type fixture struct {
	proc    *Processor
	ctrl    *session.Controller
	driver  session.Driver
	manager *config.Manager
}

func newFixture(t *testing.T, driver session.Driver) *fixture {
	t.Helper()
	dir := t.TempDir()
	manager, err := config.NewManager(filepath.Join(dir, "config.toml"), filepath.Join(dir, "profiles"))
	require.NoError(t, err)

	cfg := manager.Active()
	cfg.Settings.ConnectAttempts = 2
	cfg.Settings.ConnectIntervalMS = 5
	cfg.Settings.SettleDelayMS = 1

	nop := zap.NewNop().Sugar()
	ctrl := session.NewController(driver, cfg, nop)
	return &fixture{
		proc:    New(ctrl, tabular.NewSource(nop), manager, nop),
		ctrl:    ctrl,
		driver:  driver,
		manager: manager,
	}
}

func TestExecute_SpreadsheetJob(t *testing.T) {
	fx := newFixture(t, session.NewSimDriver(zap.NewNop().Sugar()))

	path := filepath.Join(t.TempDir(), "parts.csv")
	require.NoError(t, os.WriteFile(path, []byte("Part,Qty\nbracket,2\nplate,1\n"), 0o644))

	job := queue.NewJob(path, queue.TypeSpreadsheet, 0)
	require.NoError(t, fx.proc.Execute(context.Background(), job))

	assert.Equal(t, 2, job.Result["rows_processed"])
	assert.Equal(t, []string{"Part", "Qty"}, job.Result["columns"])
}

func TestExecute_SpreadsheetBatchModeStampsWorkbook(t *testing.T) {
	fx := newFixture(t, session.NewSimDriver(zap.NewNop().Sugar()))
	fx.manager.Active().Settings.BatchProcess = true

	f := excelize.NewFile()
	sheet := f.GetSheetList()[0]
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Part", "Qty"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"bracket", 2}))
	path := filepath.Join(t.TempDir(), "parts.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	job := queue.NewJob(path, queue.TypeSpreadsheet, 0)
	require.NoError(t, fx.proc.Execute(context.Background(), job))
	assert.Equal(t, 1, job.Result["rows_processed"])

	nop := zap.NewNop().Sugar()
	table, err := tabular.NewSource(nop).Load(path)
	require.NoError(t, err)
	assert.Contains(t, table.Columns, "Processed")
	assert.Equal(t, "Processed", table.Rows[0][2])
}

func TestExecute_SpreadsheetJobLoadFailure(t *testing.T) {
	fx := newFixture(t, session.NewSimDriver(zap.NewNop().Sugar()))

	job := queue.NewJob("/missing/parts.xlsx", queue.TypeSpreadsheet, 0)
	err := fx.proc.Execute(context.Background(), job)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrLoadFailed))
	assert.Nil(t, job.Result)
}

func TestExecute_ArtifactJobFullCycle(t *testing.T) {
	fx := newFixture(t, session.NewSimDriver(zap.NewNop().Sugar()))

	job := queue.NewJob("/designs/bracket.ezd", queue.TypeArtifact, 0)
	require.NoError(t, fx.proc.Execute(context.Background(), job))

	assert.Equal(t, "completed", job.Result["status"])
	assert.Contains(t, job.Result["window_id"], "ezcad_")
	assert.Empty(t, fx.ctrl.ActiveSessions(), "session must be closed after the cycle")
}

// keyRecordingDriver fails keystroke delivery after a set number of commands
type keyRecordingDriver struct {
	*session.SimDriver
	sent    int
	failAt  int
	failErr error
}

func (d *keyRecordingDriver) SendKeys(win session.Window, sequence string) error {
	d.sent++
	if d.failAt > 0 && d.sent >= d.failAt {
		return d.failErr
	}
	return d.SimDriver.SendKeys(win, sequence)
}

func TestExecute_ArtifactJobClosesSessionOnCommandFailure(t *testing.T) {
	driver := &keyRecordingDriver{
		SimDriver: session.NewSimDriver(zap.NewNop().Sugar()),
		failAt:    2, // loading the design works, triggering the mark fails
		failErr:   errors.New("window stopped responding"),
	}
	fx := newFixture(t, driver)

	job := queue.NewJob("/designs/bracket.ezd", queue.TypeArtifact, 0)
	err := fx.proc.Execute(context.Background(), job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "triggering mark")
	assert.Nil(t, job.Result)

	assert.Empty(t, fx.ctrl.ActiveSessions(), "session must be closed even when a command fails")
}

func TestExecute_ArtifactJobHonorsCancellation(t *testing.T) {
	fx := newFixture(t, session.NewSimDriver(zap.NewNop().Sugar()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := queue.NewJob("/designs/bracket.ezd", queue.TypeArtifact, 0)
	err := fx.proc.Execute(ctx, job)
	require.Error(t, err)
	assert.Empty(t, fx.ctrl.ActiveSessions())
}

func TestExecute_UnknownJobType(t *testing.T) {
	fx := newFixture(t, session.NewSimDriver(zap.NewNop().Sugar()))

	job := queue.NewJob("/data/x", queue.Type("mystery"), 0)
	err := fx.proc.Execute(context.Background(), job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown job type")
}
