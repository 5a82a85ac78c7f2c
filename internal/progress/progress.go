// Package progress reports batch completion to humans and to other
// processes. Every observer here implements pipeline.Observer.
package progress

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/dunamismax/logocrunch/internal/pipeline"
)

// LogObserver logs every job outcome and a line every n completions.
type LogObserver struct {
	logger *log.Logger
	every  int64
}

func NewLogObserver(logger *log.Logger, every int) *LogObserver {
	if every < 1 {
		every = 1
	}
	return &LogObserver{logger: logger, every: int64(every)}
}

func (o *LogObserver) JobFinished(_ pipeline.Outcome, _ error, completed int64, total int) {
	if completed%o.every == 0 || completed == int64(total) {
		o.logger.Printf("progress completed=%d/%d", completed, total)
	}
}

func (o *LogObserver) BatchFinished(report pipeline.Report) {
	o.logger.Printf("batch report succeeded=%d failed=%d", report.Succeeded, report.Failed)
}

// BarObserver draws a terminal progress bar.
type BarObserver struct {
	bar *progressbar.ProgressBar
}

// NewBarObserver returns nil when w is not a terminal, so callers can skip
// registering it.
func NewBarObserver(w io.Writer, total int) *BarObserver {
	if !Interactive(w) {
		return nil
	}
	return newBar(w, total)
}

func newBar(w io.Writer, total int) *BarObserver {
	return &BarObserver{bar: progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("finishing logos"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)}
}

func (o *BarObserver) JobFinished(pipeline.Outcome, error, int64, int) {
	_ = o.bar.Add(1)
}

func (o *BarObserver) BatchFinished(pipeline.Report) {
	_ = o.bar.Finish()
}

// Interactive reports whether w is a terminal.
func Interactive(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
