package domain

// HandleID identifies one live connection. It is opaque to clients;
// the transport assigns one per accepted socket.
type HandleID string

// PresenceEntry is one row of the public online-user list.
type PresenceEntry struct {
	Identity string
	Handle   HandleID
}
