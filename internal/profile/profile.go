// Package profile holds per-user identity records and the completeness gate
// that keeps students with missing personal data out of the campus.
package profile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/p-n-ai/campus/internal/platform/apperr"
	"github.com/p-n-ai/campus/internal/platform/validate"
)

// Role is a campus role.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// ErrProfileIncomplete is returned by Gate for students missing personal data.
var ErrProfileIncomplete = errors.New("profile incomplete")

// Profile is a user's identity and contact record. The personal fields
// tagged notblank decide completeness.
type Profile struct {
	ID        string `json:"id"`
	Role      Role   `json:"role" validate:"omitempty,oneof=student teacher"`
	FullName  string `json:"full_name"`
	FirstName string `json:"first_name" validate:"notblank"`
	LastName  string `json:"last_name" validate:"notblank"`
	DNI       string `json:"dni" validate:"notblank"`
	BirthDate string `json:"birth_date" validate:"notblank"`
	Address   string `json:"address" validate:"notblank"`
	City      string `json:"city" validate:"notblank"`
	Phone     string `json:"phone"`
	CourseID  string `json:"course_id"`
}

// DisplayName prefers the full name, then first and last name.
func (p Profile) DisplayName() string {
	if s := strings.TrimSpace(p.FullName); s != "" {
		return s
	}
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

var checker = validate.New()

// Check validates p and returns a *apperr.ValidationError naming every
// missing personal field.
func Check(p Profile) error {
	return checker.Struct(p)
}

// Missing lists the JSON names of the blank personal fields.
func Missing(p Profile) []string {
	var ve *apperr.ValidationError
	if !errors.As(Check(p), &ve) {
		return nil
	}
	var out []string
	for _, f := range ve.Fields {
		if f.Field != "role" {
			out = append(out, f.Field)
		}
	}
	return out
}

// Complete reports whether all personal fields are filled in.
func Complete(p Profile) bool {
	return len(Missing(p)) == 0
}

// Gate blocks students whose profile is incomplete. Teachers always pass.
func Gate(p Profile) error {
	if p.Role == RoleTeacher {
		return nil
	}
	if missing := Missing(p); len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrProfileIncomplete, strings.Join(missing, ", "))
	}
	return nil
}
