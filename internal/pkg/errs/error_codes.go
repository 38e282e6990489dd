/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrFormParseFailed indicates failure to parse multipart or URL-encoded form data.
	ErrFormParseFailed = 1005

	// ErrRequestEntityTooLarge indicates that the request body size exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Room, Message, and Content Business Logic Errors
const (
	// ErrRoomNotFound indicates that the named room does not exist.
	ErrRoomNotFound = 2101

	// ErrDisplayNameInvalid indicates an empty or overlong display name.
	ErrDisplayNameInvalid = 2102

	// ErrMessageBodyEmpty indicates that a message was sent with an empty body.
	ErrMessageBodyEmpty = 2201

	// ErrMessageContentTooLong indicates that the message content exceeded the maximum length limit.
	ErrMessageContentTooLong = 2202

	// ErrMessageNotFound indicates that the referenced message id is not in the retained log.
	ErrMessageNotFound = 2203

	// ErrFileSizeTooLarge indicates that an uploaded file exceeded the size limit.
	ErrFileSizeTooLarge = 2301

	// ErrFileTypeInvalid indicates that the uploaded file extension or MIME type is not allowed.
	ErrFileTypeInvalid = 2302

	// ErrFileMissing indicates that the multipart request carried no file part.
	ErrFileMissing = 2303
)

// 3xxx: Authentication and Session Errors
const (
	// ErrUnauthorized indicates a missing, malformed, or expired bearer token.
	ErrUnauthorized = 3001

	// ErrNotJoined indicates a messaging operation issued before joining a room.
	ErrNotJoined = 3002
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrPersistenceFailed indicates that a store write or read could not complete.
	ErrPersistenceFailed = 5001

	// ErrFileStorageFailed indicates that the upload blob backend rejected the file.
	ErrFileStorageFailed = 5002
)
