package stream

// State is the connection state of a wallet subscription, and also the
// aggregated state of the whole manager.
type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
	StateError        State = "error"
)

// StatusUpdate reports a state transition for one wallet's subscription.
type StatusUpdate struct {
	Wallet string
	State  State
}
