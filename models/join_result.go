package models

// Join error codes. The HTTP layer maps these onto status codes:
// ROOM_NOT_FOUND -> 404, the conflict family -> 409, MISSING_FIELDS -> 400,
// INTERNAL_ERROR -> 500.
const (
	JoinErrRoomNotFound     = "ROOM_NOT_FOUND"
	JoinErrRoomFull         = "ROOM_FULL"
	JoinErrRoomInProgress   = "ROOM_IN_PROGRESS"
	JoinErrRoomFinished     = "ROOM_FINISHED"
	JoinErrRoomNotAvailable = "ROOM_NOT_AVAILABLE"
	JoinErrMissingFields    = "MISSING_FIELDS"
	JoinErrInternal         = "INTERNAL_ERROR"
)

// RoomJoinResult is the outcome of a join attempt.
type RoomJoinResult struct {
	Success      bool   `json:"success"`
	Room         *Room  `json:"room,omitempty"`
	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// JoinSuccess wraps a joined room.
func JoinSuccess(room *Room) RoomJoinResult {
	return RoomJoinResult{Success: true, Room: room}
}

// JoinError builds a failed join result with the given code.
func JoinError(code, message string) RoomJoinResult {
	return RoomJoinResult{Success: false, ErrorCode: code, ErrorMessage: message}
}
