// Package students orchestrates the student use cases: it normalizes raw
// payloads, checks class and section references, delegates persistence to the
// repository and sends the account verification email for new students.
//
// Every operation is a single sequential pass. Failures come back as
// *apperr.Error values; the HTTP layer picks the status code.
package students

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/school-students/internal/storage"
	"github.com/aanand-mishra/school-students/internal/types"
	"github.com/aanand-mishra/school-students/internal/utils/apperr"
	"github.com/aanand-mishra/school-students/internal/utils/logging"
)

type Repository interface {
	FindAllStudents(ctx context.Context, filter types.StudentFilter) ([]types.Student, error)
	FindStudentDetail(ctx context.Context, id int64) (types.Student, error)
	SetStudentStatus(ctx context.Context, change types.StatusChange) (int64, error)
	AddOrUpdateStudent(ctx context.Context, in types.StudentInput) (types.MutationResult, error)
}

type UserFinder interface {
	FindUserByID(ctx context.Context, id int64) (types.User, error)
}

type Notifier interface {
	SendAccountVerificationEmail(ctx context.Context, userID int64, email string) error
}

// Result is the confirmation returned by the mutating operations.
type Result struct {
	Message string `json:"message"`
}

type Service struct {
	repo     Repository
	refs     ReferenceFinder
	users    UserFinder
	notifier Notifier
	validate *validator.Validate
	logger   *slog.Logger
}

type Args struct {
	Repo     Repository
	Refs     ReferenceFinder
	Users    UserFinder
	Notifier Notifier
	Logger   *slog.Logger
}

func New(args Args) *Service {
	if args.Logger == nil {
		args.Logger = slog.Default()
	}

	return &Service{
		repo:     args.Repo,
		refs:     args.Refs,
		users:    args.Users,
		notifier: args.Notifier,
		validate: validator.New(),
		logger:   args.Logger.With(slog.String("component", "students")),
	}
}

// newStudentRules holds the fields a create cannot do without.
type newStudentRules struct {
	Name  *string `validate:"required"`
	Email *string `validate:"required"`
}

func (s *Service) List(ctx context.Context, filter types.StudentFilter) ([]types.Student, error) {
	students, err := s.repo.FindAllStudents(ctx, filter)
	if err != nil {
		return nil, unexpected(err, msgUnexpectedList)
	}
	if err := listError(students); err != nil {
		return nil, err
	}
	return students, nil
}

func (s *Service) Detail(ctx context.Context, id int64) (types.Student, error) {
	if err := s.checkStudentID(ctx, id); err != nil {
		return types.Student{}, unexpected(err, msgUnexpectedDetail)
	}

	// The user may have been removed between the two lookups.
	student, err := s.repo.FindStudentDetail(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return types.Student{}, apperr.NotFound(msgStudentNotFound)
	}
	if err != nil {
		return types.Student{}, unexpected(err, msgUnexpectedDetail)
	}
	return student, nil
}

// Create adds a student and then tries to send the verification email. A
// failed email does not fail the call; the returned message says so.
func (s *Service) Create(ctx context.Context, raw map[string]any) (Result, error) {
	in := Normalize(raw)
	// A create never targets an existing account.
	in.UserID = nil

	if err := s.validateInput(in, true); err != nil {
		return Result{}, err
	}

	in, err := canonicalizeReferences(ctx, s.refs, in)
	if err != nil {
		return Result{}, unexpected(err, msgUnexpectedAdd)
	}

	result, err := s.repo.AddOrUpdateStudent(ctx, in)
	if err != nil {
		return Result{}, unexpected(err, msgUnexpectedAdd)
	}
	if err := mutationError(result); err != nil {
		return Result{}, err
	}

	s.logger.InfoContext(ctx, "student added", slog.Int64("user_id", result.UserID))

	if err := s.notifier.SendAccountVerificationEmail(ctx, result.UserID, *in.Email); err != nil {
		s.logger.WarnContext(ctx, "verification email not sent",
			slog.Int64("user_id", result.UserID),
			slog.String("email", logging.RedactEmail(*in.Email)),
			slog.String("error", err.Error()))
		return Result{Message: msgAddedButEmailFail}, nil
	}

	return Result{Message: msgAddedAndEmailSent}, nil
}

// Update changes an existing student. raw must identify the student through
// one of the user id aliases.
func (s *Service) Update(ctx context.Context, raw map[string]any) (Result, error) {
	in := Normalize(raw)

	if err := s.validateInput(in, false); err != nil {
		return Result{}, err
	}

	in, err := canonicalizeReferences(ctx, s.refs, in)
	if err != nil {
		return Result{}, unexpected(err, msgUnexpectedUpdate)
	}

	if in.UserID == nil {
		return Result{}, apperr.NotFound(msgStudentNotFound)
	}
	if err := s.checkStudentID(ctx, *in.UserID); err != nil {
		return Result{}, unexpected(err, msgUnexpectedUpdate)
	}

	result, err := s.repo.AddOrUpdateStudent(ctx, in)
	if err != nil {
		return Result{}, unexpected(err, msgUnexpectedUpdate)
	}
	if err := mutationError(result); err != nil {
		return Result{}, err
	}

	return Result{Message: result.Message}, nil
}

func (s *Service) SetStatus(ctx context.Context, change types.StatusChange) (Result, error) {
	if err := s.checkStudentID(ctx, change.UserID); err != nil {
		return Result{}, unexpected(err, msgUnexpectedSetState)
	}

	affected, err := s.repo.SetStudentStatus(ctx, change)
	if err != nil {
		return Result{}, unexpected(err, msgUnexpectedSetState)
	}
	if err := statusChangeError(affected); err != nil {
		return Result{}, err
	}

	s.logger.InfoContext(ctx, "student status changed",
		slog.Int64("user_id", change.UserID),
		slog.Int64("reviewer_id", change.ReviewerID),
		slog.Bool("status", change.Status))

	return Result{Message: msgStatusChanged}, nil
}

func (s *Service) checkStudentID(ctx context.Context, id int64) error {
	_, err := s.users.FindUserByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound(msgStudentNotFound)
	}
	return err
}

// validateInput runs the struct rules on the normalized payload. The
// validator errors stay attached as the cause so the HTTP layer can list
// the offending fields.
func (s *Service) validateInput(in types.StudentInput, creating bool) error {
	if creating {
		if err := s.validate.Struct(newStudentRules{Name: in.Name, Email: in.Email}); err != nil {
			return apperr.Invalid("Invalid student payload").WithCause(err)
		}
	}
	if err := s.validate.Struct(in); err != nil {
		return apperr.Invalid("Invalid student payload").WithCause(err)
	}
	return nil
}
