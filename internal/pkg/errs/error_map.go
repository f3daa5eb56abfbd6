/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to
standardize HTTP responses and socket error events.
*/
package errs

import "net/http"

// errorMap stores the CustomError template for every application error code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format."},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data."},
	ErrFormParseFailed:       {Code: ErrFormParseFailed, Message: "Failed to process uploaded data."},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large."},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Room and Message Business Logic Errors
	ErrRoomNotFound:          {Code: ErrRoomNotFound, Message: "Chat room not found."},
	ErrRoomTitleInvalid:      {Code: ErrRoomTitleInvalid, Message: "Invalid room title."},
	ErrMessageNotFound:       {Code: ErrMessageNotFound, Message: "Message not found."},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long."},

	// 3xxx: Identity and Session Errors
	ErrCredentialMismatch:   {Code: ErrCredentialMismatch, Message: "Incorrect password for this nickname."},
	ErrUnauthenticated:      {Code: ErrUnauthenticated, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrAlreadyAuthenticated: {Code: ErrAlreadyAuthenticated, Message: "You are already signed in."},
	ErrNicknameInvalid:      {Code: ErrNicknameInvalid, Message: "Invalid nickname."},

	// 4xxx: Avatar and File Errors
	ErrFileSizeTooLarge:  {Code: ErrFileSizeTooLarge, Message: "Image is too large."},
	ErrFileTypeInvalid:   {Code: ErrFileTypeInvalid, Message: "Unsupported image type."},
	ErrFileStorageFailed: {Code: ErrFileStorageFailed, Message: "Image upload failed. Please try again."},
	ErrStorageDisabled:   {Code: ErrStorageDisabled, Message: "Image uploads are not available.", Status: http.StatusServiceUnavailable},

	// 5xxx: Internal System Errors
	ErrUnknown:         {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrBackingStore:    {Code: ErrBackingStore, Message: "Service is temporarily unavailable.", Status: http.StatusInternalServerError},
	ErrDeliveryFailure: {Code: ErrDeliveryFailure, Message: "Notification delivery failed."},
}
