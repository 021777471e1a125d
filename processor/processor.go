// Package processor executes queued work: loading spreadsheets and driving
// marking sessions against queued design files.
package processor

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Yunusemreunal45/ezcad2-wscad/config"
	"github.com/Yunusemreunal45/ezcad2-wscad/errors"
	"github.com/Yunusemreunal45/ezcad2-wscad/queue"
	"github.com/Yunusemreunal45/ezcad2-wscad/session"
	"github.com/Yunusemreunal45/ezcad2-wscad/tabular"
)

// Processor implements queue job execution on top of the session controller
// and the tabular loader.
type Processor struct {
	controller *session.Controller
	source     *tabular.Source
	cfgman     *config.Manager
	logger     *zap.SugaredLogger
}

func New(controller *session.Controller, source *tabular.Source, cfgman *config.Manager, logger *zap.SugaredLogger) *Processor {
	return &Processor{
		controller: controller,
		source:     source,
		cfgman:     cfgman,
		logger:     logger.Named("processor"),
	}
}

// Execute dispatches on the job type. On success the job's Result is filled
// in place for the caller to persist.
func (p *Processor) Execute(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.TypeSpreadsheet:
		return p.executeSpreadsheet(job)
	case queue.TypeArtifact:
		return p.executeArtifact(ctx, job)
	default:
		return errors.Newf("unknown job type %q", job.Type)
	}
}

// executeSpreadsheet loads and summarizes a tabular file. In batch mode the
// processed rows are stamped back into the workbook afterwards.
func (p *Processor) executeSpreadsheet(job *queue.Job) error {
	table, err := p.source.Load(job.FilePath)
	if err != nil {
		return err
	}

	if p.cfgman.Active().Settings.BatchProcess && strings.EqualFold(filepath.Ext(job.FilePath), ".xlsx") {
		rows := make([]int, len(table.Rows))
		for i := range rows {
			rows[i] = i
		}
		if err := p.source.MarkProcessed(job.FilePath, rows); err != nil {
			return errors.Wrap(err, "writing processing status")
		}
	}

	job.Result = table.Summary()
	p.logger.Infow("Spreadsheet processed",
		"file", job.FilePath,
		"rows", len(table.Rows),
		"columns", len(table.Columns))
	return nil
}

// executeArtifact runs one full marking cycle: open a session on the design
// file, load it into the marking area, trigger the mark, then close. The
// session is always closed, even when a command fails partway.
func (p *Processor) executeArtifact(ctx context.Context, job *queue.Job) error {
	windowID, err := p.controller.StartSession(ctx, job.FilePath)
	if err != nil {
		return errors.Wrapf(err, "starting session for %s", job.FilePath)
	}
	defer func() {
		if closeErr := p.controller.CloseSession(windowID); closeErr != nil {
			p.logger.Warnw("Session close failed", "window_id", windowID, "error", closeErr)
		}
	}()

	settle := time.Duration(p.cfgman.Active().Settings.SettleDelayMS) * time.Millisecond

	if err := p.controller.SendCommand(windowID, "red"); err != nil {
		return errors.Wrap(err, "loading design")
	}
	if err := p.pause(ctx, settle); err != nil {
		return err
	}

	if err := p.controller.SendCommand(windowID, "mark"); err != nil {
		return errors.Wrap(err, "triggering mark")
	}
	if err := p.pause(ctx, settle); err != nil {
		return err
	}

	job.Result = map[string]interface{}{
		"window_id": windowID,
		"status":    "completed",
	}
	p.logger.Infow("Marking cycle completed", "file", job.FilePath, "window_id", windowID)
	return nil
}

// pause waits for the UI to settle, honoring cancellation
func (p *Processor) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
