package refresh

// LoadState is the refresh lifecycle as seen by readers
type LoadState int

const (
	// Idle means no refresh is running and the last one (if any) succeeded
	Idle LoadState = iota
	// Loading means a refresh is in flight
	Loading
	// Failed means the last refresh failed; the previous snapshot is still served
	Failed
)

// String implements fmt.Stringer
func (s LoadState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText lets the state render as its name in JSON and logs
func (s LoadState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
