// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used within the room and game handlers.
// These provide more specific reasons for closure than standard codes.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Auth token missing, invalid or expired.
	InvalidUserIDError    = 3002 // Player id in the token is malformed.
	RoomOverCapacityError = 3003 // Room already holds its capacity or has started.
	UnknownRoomError      = 3004 // The player is not a member of any room.
	GameStartError        = 3005 // The room filled up but the game could not be dealt.
)
