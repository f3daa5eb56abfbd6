/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both internally
and in events sent to clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON is malformed.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrFormParseFailed indicates failure to parse multipart or URL-encoded form data.
	ErrFormParseFailed = 1005

	// ErrRequestEntityTooLarge indicates that the request body exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that the request rate exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Room and Message Business Logic Errors
const (
	// ErrRoomNotFound indicates that the referenced room does not exist.
	ErrRoomNotFound = 2101

	// ErrRoomTitleInvalid indicates an empty or oversized room title.
	ErrRoomTitleInvalid = 2102

	// ErrMessageNotFound indicates that the referenced message does not exist.
	ErrMessageNotFound = 2201

	// ErrMessageContentTooLong indicates that the message content exceeded the length limit.
	ErrMessageContentTooLong = 2202
)

// 3xxx: Identity and Session Errors
const (
	// ErrCredentialMismatch indicates a wrong secret for an existing nickname.
	ErrCredentialMismatch = 3001

	// ErrUnauthenticated indicates an operation attempted without a bound identity.
	ErrUnauthenticated = 3002

	// ErrAlreadyAuthenticated indicates a second login attempt on a bound connection.
	ErrAlreadyAuthenticated = 3003

	// ErrNicknameInvalid indicates an empty or oversized nickname.
	ErrNicknameInvalid = 3004
)

// 4xxx: Avatar and File Errors
const (
	// ErrFileSizeTooLarge indicates that an uploaded image exceeded the size limit.
	ErrFileSizeTooLarge = 4001

	// ErrFileTypeInvalid indicates an unsupported image type.
	ErrFileTypeInvalid = 4002

	// ErrFileStorageFailed indicates that the image host rejected the upload.
	ErrFileStorageFailed = 4003

	// ErrStorageDisabled indicates that no image host is configured.
	ErrStorageDisabled = 4004
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified server internal error.
	ErrUnknown = 5000

	// ErrBackingStore indicates a failure from the external storage collaborator.
	ErrBackingStore = 5001

	// ErrDeliveryFailure indicates a per-recipient push delivery failure (logged only).
	ErrDeliveryFailure = 5002
)
