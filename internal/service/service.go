// Package service holds the business rules behind the REST controllers and
// named functions. Every method takes the caller's user id and treats rows
// owned by someone else as missing.
package service

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/wech4801-eng/mirror-frame-forge/internal/csvdetect"
	appErrors "github.com/wech4801-eng/mirror-frame-forge/internal/errors"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func checkOwner(owner, user uuid.UUID, kind string, id uuid.UUID) error {
	if owner != user {
		return appErrors.NotFound(kind, id)
	}
	return nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func validEmail(s string) bool {
	return csvdetect.IsEmail(s)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
