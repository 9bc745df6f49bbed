// Package access holds caller identity, per-model authorization rules and the
// record store error taxonomy.
package access

import (
	"errors"
	"fmt"
)

// AuthMode is how a caller was authenticated.
type AuthMode string

// Auth modes
const (
	ModeNone     AuthMode = ""
	ModeIdentity AuthMode = "identity"
	ModeAPIKey   AuthMode = "api_key"
)

// Roles carried in a verified caller claim.
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// Error taxonomy
var (
	ErrNotFound        = errors.New("record not found")
	ErrForbidden       = errors.New("not authorized")
	ErrUnauthenticated = errors.New("authentication required")
)

// ValidationError reports a missing or malformed field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a *ValidationError.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Caller is the verified identity behind a record store request.
// Role is loaded server-side at login and never taken from the client.
type Caller struct {
	AccountID string
	Role      string
	Mode      AuthMode
}

// Anonymous is the zero caller.
var Anonymous = Caller{}

// IsAuthenticated reports whether the caller carries any verified identity.
func (c Caller) IsAuthenticated() bool {
	return c.Mode != ModeNone && c.AccountID != ""
}

// IsAdmin reports whether the caller holds the admin claim through an identity session.
func (c Caller) IsAdmin() bool {
	return c.Mode == ModeIdentity && c.Role == RoleAdmin
}

// Rule is the authorization policy of one record model.
type Rule struct {
	Model string
	// WriteRole is the claim required to create, update or delete.
	WriteRole string
	// AuthenticatedRead lets any authenticated caller read every record, not just their own.
	AuthenticatedRead bool
	// Public allows API-key callers.
	Public bool
}

// Model rules
var (
	CompletionRule = Rule{Model: "workout_completion", WriteRole: RoleAdmin}
	CheerRule      = Rule{Model: "cheer", WriteRole: RoleAdmin, AuthenticatedRead: true}
)

func (r Rule) admit(c Caller) error {
	if !c.IsAuthenticated() {
		return ErrUnauthenticated
	}
	if c.Mode == ModeAPIKey && !r.Public {
		return fmt.Errorf("%w: %s does not accept api keys", ErrForbidden, r.Model)
	}
	return nil
}

// CanList checks read access and reports whether the caller may see records of other owners.
// PRE: none
// POST: returns ErrUnauthenticated or ErrForbidden when the caller may not list at all
func (r Rule) CanList(c Caller) (allOwners bool, err error) {
	if err := r.admit(c); err != nil {
		return false, err
	}
	return r.AuthenticatedRead, nil
}

// CanWrite checks that the caller may create records of this model.
// PRE: none
// POST: returns nil only for authenticated callers holding WriteRole
func (r Rule) CanWrite(c Caller) error {
	if err := r.admit(c); err != nil {
		return err
	}
	if c.Role != r.WriteRole || c.Mode != ModeIdentity {
		return fmt.Errorf("%w: %s requires %s", ErrForbidden, r.Model, r.WriteRole)
	}
	return nil
}

// CanModify checks that the caller may update or delete a record owned by owner.
// A record owned by someone else is reported as ErrNotFound so its existence is not leaked.
func (r Rule) CanModify(c Caller, owner string) error {
	if err := r.CanWrite(c); err != nil {
		return err
	}
	if owner != c.AccountID {
		return ErrNotFound
	}
	return nil
}
