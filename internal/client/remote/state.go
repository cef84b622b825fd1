package remote

// State is the connection state of a Link.
type State int

const (
	Offline State = iota
	Connecting
	Online
	// Error means the server answered a handshake with success=false. It is
	// not retried automatically; GoOnline is the explicit retry.
	Error
)

func (s State) String() string {
	switch s {
	case Offline:
		return "offline"
	case Connecting:
		return "connecting"
	case Online:
		return "online"
	case Error:
		return "error"
	}
	return "unknown"
}
