package models

// ScanState enumerates the orchestrator's state machine. Transitions happen
// via atomic compare-and-set so re-entrancy checks are race-free.
type ScanState int32

const (
	ScanStateIdle ScanState = iota
	ScanStateScanning
	ScanStateBackgroundContinuing
	ScanStateIncrementalScanning
)

// String returns a human-readable state name
func (s ScanState) String() string {
	switch s {
	case ScanStateIdle:
		return "idle"
	case ScanStateScanning:
		return "scanning"
	case ScanStateBackgroundContinuing:
		return "background_continuing"
	case ScanStateIncrementalScanning:
		return "incremental_scanning"
	default:
		return "unknown"
	}
}

// ScanProgress is a progress event emitted at each batch boundary.
// Percent is monotonically non-decreasing over the life of one scan.
type ScanProgress struct {
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

// ScanStatus is the orchestrator's externally visible status
type ScanStatus struct {
	State        string        `json:"state"`
	LastProgress *ScanProgress `json:"lastProgress,omitempty"`
	LastError    string        `json:"lastError,omitempty"`
	LastScanTime int64         `json:"lastScanTime"` // ms; zero when never scanned
}
