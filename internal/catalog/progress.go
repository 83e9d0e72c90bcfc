package catalog

// Phase identifies which part of a scan an Update describes.
type Phase int

const (
	PhaseStarted Phase = iota
	PhaseEnumerating
	PhaseThumbnails
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseStarted:
		return "started"
	case PhaseEnumerating:
		return "enumerating"
	case PhaseThumbnails:
		return "thumbnails"
	case PhaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Update is one progress notification. Total is 0 while indeterminate.
type Update struct {
	Root    string
	Phase   Phase
	Current int
	Total   int
	Label   string
}

// Progress receives scan progress. Report is called from the scanning
// goroutines and must not block.
type Progress interface {
	Report(Update)
}

// NopProgress discards updates.
type NopProgress struct{}

func (NopProgress) Report(Update) {}

// ChanProgress forwards updates to a channel, dropping them when it is full.
type ChanProgress chan<- Update

func (c ChanProgress) Report(u Update) {
	select {
	case c <- u:
	default:
		// Channel full, skip this update
	}
}
