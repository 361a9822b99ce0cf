package domain

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// TempIDPrefix marks ids assigned locally before the server confirms a create.
const TempIDPrefix = "temp-"

// NewTempID creates a placeholder identifier for an optimistic create.
func NewTempID() string {
	return TempIDPrefix + uuid.New().String()
}

// IsTempID reports whether id was assigned locally and not yet confirmed.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// compareIDs orders numeric server ids numerically, then anything else
// (temporary ids included) lexicographically after them.
func compareIDs(a, b string) int {
	an, aErr := strconv.ParseInt(a, 10, 64)
	bn, bErr := strconv.ParseInt(b, 10, 64)
	switch {
	case aErr == nil && bErr == nil:
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	}
	return strings.Compare(a, b)
}
