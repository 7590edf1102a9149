package commands

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
)

const (
	progressTrackerLength   = 40
	progressUpdateFrequency = 100 * time.Millisecond
)

// trackProgress renders a progress bar on w fed by poll until the returned
// stop function is called. stop blocks until the final state is drawn.
func trackProgress(w io.Writer, message string, poll func() (done, total int64)) (stop func()) {
	pw := progress.NewWriter()
	pw.SetOutputWriter(w)
	pw.SetAutoStop(true)
	pw.SetTrackerLength(progressTrackerLength)
	pw.SetUpdateFrequency(progressUpdateFrequency)
	pw.SetStyle(progress.StyleDefault)
	pw.Style().Visibility.ETA = true
	pw.Style().Visibility.Percentage = true
	pw.Style().Visibility.Value = true

	tracker := &progress.Tracker{Message: message, Units: progress.UnitsDefault}
	pw.AppendTracker(tracker)

	update := func() {
		done, total := poll()
		if total > 0 {
			tracker.UpdateTotal(total)
		}

		tracker.SetValue(done)
	}

	rendered := make(chan struct{})
	quit := make(chan struct{})
	polled := make(chan struct{})

	go func() {
		defer close(rendered)

		pw.Render()
	}()

	go func() {
		defer close(polled)

		ticker := time.NewTicker(progressUpdateFrequency)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				update()
			case <-quit:
				return
			}
		}
	}()

	return func() {
		close(quit)
		<-polled

		update()
		tracker.MarkAsDone()
		<-rendered
	}
}
