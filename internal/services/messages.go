package services

import (
	"errors"
	"net"
)

// User-facing toast texts.
const (
	msgSaved          = "Saved"
	msgDeleted        = "Deleted"
	msgSaveFailed     = "Save failed"
	msgDeleteFailed   = "Delete failed"
	msgActionFailed   = "Action failed"
	msgLoadFailed     = "Failed to load"
	msgBadResponse    = "Unexpected response"
	msgNetworkError   = "Network error"
	msgEmptyPreset    = "Preset is empty"
	msgEmptyTitle     = "Enter a title"
	msgTypesLoadError = "Failed to load event types"
)

// failureText picks the toast for a failed call: transport failures read
// as a network error, everything else gets the operation's own message.
func failureText(err error, fallback string) string {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return msgNetworkError
	}
	return fallback
}
