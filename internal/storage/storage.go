// Package storage defines the contracts a database backend must satisfy.
//
// The service layer never talks to SQLite directly; it depends on the
// narrower interfaces it declares itself, all of which Storage covers.
// Lookups that find nothing return ErrNotFound so callers can tell "absent"
// apart from a real failure with errors.Is.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/aanand-mishra/school-students/internal/types"
)

var ErrNotFound = errors.New("not found")

// Storage is the full database contract.
type Storage interface {
	// FindAllStudents returns the students matching filter. An empty result
	// is an empty slice, not an error.
	FindAllStudents(ctx context.Context, filter types.StudentFilter) ([]types.Student, error)

	// FindStudentDetail returns one student or ErrNotFound.
	FindStudentDetail(ctx context.Context, id int64) (types.Student, error)

	// SetStudentStatus enables or disables the student's account and reports
	// the number of affected rows.
	SetStudentStatus(ctx context.Context, change types.StatusChange) (int64, error)

	// AddOrUpdateStudent creates the student when in.UserID is nil and
	// updates it otherwise. Domain rejections come back as Status=false,
	// not as an error.
	AddOrUpdateStudent(ctx context.Context, in types.StudentInput) (types.MutationResult, error)

	FindClassByName(ctx context.Context, name string) (types.Class, error)
	FindSectionByName(ctx context.Context, name string) (types.Section, error)

	FindUserByID(ctx context.Context, id int64) (types.User, error)

	// SaveVerificationToken stores the hash of an account verification
	// token, replacing any earlier one for the same user.
	SaveVerificationToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error
}
