package domain

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewID returns a fresh canonical identifier.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// IsValidID reports whether candidate is a canonical identifier: it parses as
// an ObjectID and serializes back to exactly the same string.
func IsValidID(candidate string) bool {
	oid, err := primitive.ObjectIDFromHex(candidate)
	if err != nil {
		return false
	}
	return oid.Hex() == candidate
}

// ValidateProject checks a project name before it is used as a storage namespace.
func ValidateProject(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	if strings.ContainsAny(name, "$\x00") || strings.HasPrefix(name, "system.") {
		return false
	}
	return !strings.HasPrefix(name, ".") && !strings.HasSuffix(name, ".")
}
