package downloader

import (
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Tracker is the shared segment counter used for progress display only
type Tracker struct {
	mu       sync.Mutex
	count    int
	observer func(current int)
}

// IncrementAndGet advances the counter by one and returns the new value.
// The observer sees every value in order.
func (t *Tracker) IncrementAndGet() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.count++
	if t.observer != nil {
		t.observer(t.count)
	}
	return t.count
}

// Reset sets the counter back to zero
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count = 0
}

// Count returns the current value
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Observe installs fn to be called with each new value; nil removes it
func (t *Tracker) Observe(fn func(current int)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observer = fn
}

// newProgressBar renders "Progress: [###---] n/total"
func newProgressBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Progress:"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "#",
			SaucerHead:    "#",
			SaucerPadding: "-",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
