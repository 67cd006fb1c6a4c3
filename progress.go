package main

import (
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// шаг экспорта в барах: прогресс 0..1 → 0..exportSteps
const exportSteps = 1000

type Bars struct {
	Fetch  *progressbar.ProgressBar
	Export *progressbar.ProgressBar
	out    io.Writer
}

func NewBars(quiet bool) *Bars {
	var out io.Writer = os.Stderr
	if quiet {
		out = io.Discard
	}
	return &Bars{out: out}
}

var theme = progressbar.Theme{
	Saucer:        "=",
	SaucerHead:    ">",
	SaucerPadding: " ",
	BarStart:      "[",
	BarEnd:        "]",
}

func (b *Bars) bar(max int, desc string, count bool) *progressbar.ProgressBar {
	opts := []progressbar.Option{
		progressbar.OptionSetWriter(b.out),
		progressbar.OptionSetTheme(theme),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(100 * time.Millisecond),
	}
	if count {
		opts = append(opts, progressbar.OptionShowCount())
	}
	return progressbar.NewOptions(max, opts...)
}

// StartFetch: max < 0 — спиннер, число страниц заранее неизвестно.
func (b *Bars) StartFetch(max int, desc string) { b.Fetch = b.bar(max, desc, true) }
func (b *Bars) SetFetch(n int)                  { _ = b.Fetch.Set(n) }
func (b *Bars) AddFetch(n int)                  { _ = b.Fetch.Add(n) }
func (b *Bars) FinishFetch()                    { _ = b.Fetch.Finish() }

func (b *Bars) StartExport(desc string) { b.Export = b.bar(exportSteps, desc, false) }

// SetExport принимает долю 0..1.
func (b *Bars) SetExport(p float64) { _ = b.Export.Set(int(p * exportSteps)) }

func (b *Bars) Done() {
	if b.Fetch != nil {
		_ = b.Fetch.Finish()
	}
	if b.Export != nil {
		_ = b.Export.Finish()
	}
}
