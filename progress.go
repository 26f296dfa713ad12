package deepForest

import (
	"io"
	"sync"

	"github.com/cheggaaa/pb/v3"
	"github.com/sirupsen/logrus"
)

// Progress receives coarse training notifications. Implementations must be
// safe for use by one forest at a time.
type Progress interface {
	Start(name string, total int)
	Increment()
	Finish()
}

// NopProgress discards every notification.
type NopProgress struct{}

func (NopProgress) Start(string, int) {}
func (NopProgress) Increment()        {}
func (NopProgress) Finish()           {}

// LogProgress logs every finished tree at debug level and the completion at
// info level.
type LogProgress struct {
	mu    sync.Mutex
	name  string
	total int
	done  int
}

func (p *LogProgress) Start(name string, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.name, p.total, p.done = name, total, 0
	log.WithFields(logrus.Fields{"forest": name, "trees": total}).Info("training started")
}

func (p *LogProgress) Increment() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	log.WithField("forest", p.name).Debugf("training progress %.0f%%", float64(p.done)/float64(p.total)*100)
}

func (p *LogProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	log.WithFields(logrus.Fields{"forest": p.name, "trees": p.done}).Info("training finished")
}

// BarProgress draws a terminal progress bar.
type BarProgress struct {
	writer io.Writer
	bar    *pb.ProgressBar
}

// NewBarProgress draws on w, or stderr when w is nil.
func NewBarProgress(w io.Writer) *BarProgress {
	return &BarProgress{writer: w}
}

func (p *BarProgress) Start(name string, total int) {
	bar := pb.New(total)
	bar.SetTemplateString(`{{ string . "prefix" | green }} {{counters . }} {{bar . }} {{percent . }} {{etime . }}`)
	bar.Set("prefix", name)
	if p.writer != nil {
		bar.SetWriter(p.writer)
	}
	p.bar = bar.Start()
}

func (p *BarProgress) Increment() {
	if p.bar != nil {
		p.bar.Increment()
	}
}

func (p *BarProgress) Finish() {
	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
}
