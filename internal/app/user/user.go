/*
Package user contains core data structures related to user identity.

It defines the basic representation of a chat participant (the User struct),
used for passing user information both internally and to clients.
*/
package user

// User represents the identity of a chat participant as seen by one connection.
// Fields use JSON tags for serialization in WebSocket messages.
type User struct {
	// ID is the connection id assigned at WebSocket upgrade. A user opening
	// two connections is two distinct Users.
	ID string `json:"id"`

	// DisplayName is the name shown in the chat room, taken from the login username.
	DisplayName string `json:"displayName"`
}
