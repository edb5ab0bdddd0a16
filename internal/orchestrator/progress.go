package orchestrator

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// MultiEvents fans notifications out to several receivers in order.
type MultiEvents []Events

func (m MultiEvents) BatchStarted(indices []int) {
	for _, e := range m {
		e.BatchStarted(indices)
	}
}

func (m MultiEvents) PageCompleted(res Result) {
	for _, e := range m {
		e.PageCompleted(res)
	}
}

// LogEvents records run notifications with slog.
type LogEvents struct {
	Logger *slog.Logger
}

func (l LogEvents) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func (l LogEvents) BatchStarted(indices []int) {
	l.logger().Info("batch started", "pages", indices)
}

func (l LogEvents) PageCompleted(res Result) {
	l.logger().Info("page completed",
		"page", res.Index, "bytes", len(res.Image.Data), "media_type", res.Image.MediaType)
}

// ConsoleProgress draws a single-line progress bar from run events.
// Attempted pages advance on the next batch start; completions advance
// as they stream in.
type ConsoleProgress struct {
	writer    io.Writer
	prefix    string
	width     int
	total     int
	inFlight  int
	attempted int
	completed int
	startTime time.Time
}

// NewConsoleProgress creates a console progress reporter for a run over
// total pages.
func NewConsoleProgress(writer io.Writer, prefix string, total int) *ConsoleProgress {
	if writer == nil {
		writer = os.Stderr
	}
	return &ConsoleProgress{
		writer:    writer,
		prefix:    prefix,
		width:     40,
		total:     total,
		startTime: time.Now(),
	}
}

func (c *ConsoleProgress) BatchStarted(indices []int) {
	c.attempted += c.inFlight
	c.inFlight = len(indices)
	c.draw()
}

func (c *ConsoleProgress) PageCompleted(Result) {
	c.completed++
	c.draw()
}

// Finish settles the final batch and terminates the progress line.
func (c *ConsoleProgress) Finish() {
	c.attempted += c.inFlight
	c.inFlight = 0
	c.draw()
	_, _ = fmt.Fprintf(c.writer, "\n%sdone in %v\n",
		c.prefix, time.Since(c.startTime).Round(time.Millisecond))
}

func (c *ConsoleProgress) draw() {
	if c.total == 0 {
		return
	}
	current := c.attempted + c.inFlight
	filled := c.width * c.completed / c.total
	bar := strings.Repeat("█", filled) + strings.Repeat("░", c.width-filled)
	_, _ = fmt.Fprintf(c.writer, "\r%s[%s] %d/%d dispatched, %d done",
		c.prefix, bar, current, c.total, c.completed)
}
