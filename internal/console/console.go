package console

import (
	"fmt"
	"io"
	"sync"

	"coinfeed/internal/refresh"
)

// Printer writes refresh transitions as plain text. Prices are printed as
// they arrive in the format:
//   - Success: "NAME: PRICE"
//   - Failure: "ERROR - error message"
type Printer struct {
	w io.Writer

	mu     sync.Mutex
	loaded bool
}

// New creates a Printer writing to w
func New(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Loaded reports whether a snapshot has been printed at least once
func (p *Printer) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

// Observe is a refresh.Listener
func (p *Printer) Observe(ev refresh.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ev.State {
	case refresh.Loading:
		// The trigger has no separate initial state; the first load is
		// told apart here.
		if p.loaded {
			fmt.Fprintln(p.w, "Refreshing prices...")
		} else {
			fmt.Fprintln(p.w, "Loading prices...")
		}
	case refresh.Idle:
		p.loaded = true
		fmt.Fprintf(p.w, "%d prices as of %s\n", ev.Snapshot.Len(), ev.Snapshot.TakenAt().Format("15:04:05"))
		for _, rec := range ev.Snapshot.All() {
			fmt.Fprintf(p.w, "%s: %s\n", rec.Name, rec.PriceRaw)
		}
		if ev.Skipped > 0 {
			fmt.Fprintf(p.w, "(%d entries skipped)\n", ev.Skipped)
		}
	case refresh.Failed:
		fmt.Fprintf(p.w, "ERROR - %v\n", ev.Err)
		if p.loaded {
			fmt.Fprintf(p.w, "Showing %d prices from %s\n", ev.Snapshot.Len(), ev.Snapshot.TakenAt().Format("15:04:05"))
		}
	}
}
