package students

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/school-students/internal/types"
	"github.com/aanand-mishra/school-students/internal/utils/apperr"
)

type serviceSuite struct {
	Service  *Service
	Store    *fakeStore
	Notifier *fakeNotifier
}

func newServiceSuite(t *testing.T) *serviceSuite {
	t.Helper()

	store := newFakeStore()
	notifier := &fakeNotifier{}

	return &serviceSuite{
		Service: New(Args{
			Repo:     store,
			Refs:     store,
			Users:    store,
			Notifier: notifier,
		}),
		Store:    store,
		Notifier: notifier,
	}
}

func requireAppErr(t *testing.T, err error, kind apperr.Kind, message string) *apperr.Error {
	t.Helper()

	appErr, ok := apperr.As(err)
	require.True(t, ok, "expected *apperr.Error, got %v", err)
	assert.Equal(t, kind, appErr.Kind)
	assert.Equal(t, message, appErr.Message)
	return appErr
}

func validCreatePayload() map[string]any {
	return map[string]any{
		"name":      "Asha Rao",
		"email":     "asha@school.test",
		"className": " grade 5 ",
		"section":   "a",
	}
}

func TestMutationKind(t *testing.T) {
	assert.Equal(t, apperr.KindConflict, mutationKind("Email already exists"))
	assert.Equal(t, apperr.KindInvalid, mutationKind("Email already exists."))
	assert.Equal(t, apperr.KindInvalid, mutationKind("email already exists"))
	assert.Equal(t, apperr.KindInvalid, mutationKind("X"))
	assert.Equal(t, apperr.KindInvalid, mutationKind(""))
}

func TestCanonicalizeReferences(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces names with stored spelling", func(t *testing.T) {
		store := newFakeStore()
		in := types.StudentInput{Class: strPtr("grade 5"), Section: strPtr("b")}

		out, err := canonicalizeReferences(ctx, store, in)
		require.NoError(t, err)
		assert.Equal(t, strPtr("Grade 5"), out.Class)
		assert.Equal(t, strPtr("B"), out.Section)
		assert.Equal(t, strPtr("grade 5"), in.Class, "input must not be mutated")
	})

	t.Run("unknown class", func(t *testing.T) {
		store := newFakeStore()

		_, err := canonicalizeReferences(ctx, store, types.StudentInput{Class: strPtr("Nope")})
		requireAppErr(t, err, apperr.KindInvalid, "Invalid class 'Nope'. Class does not exist.")
		assert.Empty(t, store.sectionLookups)
	})

	t.Run("unknown section", func(t *testing.T) {
		store := newFakeStore()

		_, err := canonicalizeReferences(ctx, store, types.StudentInput{Section: strPtr("Z")})
		requireAppErr(t, err, apperr.KindInvalid, "Invalid section 'Z'. Section does not exist.")
	})

	t.Run("absent fields are not looked up", func(t *testing.T) {
		store := newFakeStore()

		out, err := canonicalizeReferences(ctx, store, types.StudentInput{Name: strPtr("Asha")})
		require.NoError(t, err)
		assert.Nil(t, out.Class)
		assert.Nil(t, out.Section)
		assert.Empty(t, store.classLookups)
		assert.Empty(t, store.sectionLookups)
	})
}

func TestService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("empty result is not found", func(t *testing.T) {
		s := newServiceSuite(t)
		s.Store.listResult = []types.Student{}

		_, err := s.Service.List(ctx, types.StudentFilter{})
		requireAppErr(t, err, apperr.KindNotFound, "Students not found")
	})

	t.Run("non-empty result is returned unchanged", func(t *testing.T) {
		s := newServiceSuite(t)
		want := []types.Student{{ID: 1, Name: "Asha"}, {ID: 2, Name: "Bilal"}}
		s.Store.listResult = want

		got, err := s.Service.List(ctx, types.StudentFilter{Class: "Grade 5"})
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("repository failure is internal", func(t *testing.T) {
		s := newServiceSuite(t)
		cause := errors.New("database is locked")
		s.Store.listErr = cause

		_, err := s.Service.List(ctx, types.StudentFilter{})
		requireAppErr(t, err, apperr.KindInternal, msgUnexpectedList)
		assert.ErrorIs(t, err, cause)
	})
}

func TestService_Detail(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		s := newServiceSuite(t)
		s.Store.seedStudent(7, "Asha")

		st, err := s.Service.Detail(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(7), st.ID)
	})

	t.Run("unknown user", func(t *testing.T) {
		s := newServiceSuite(t)

		_, err := s.Service.Detail(ctx, 7)
		requireAppErr(t, err, apperr.KindNotFound, "Student not found")
	})

	t.Run("user exists but detail record vanished", func(t *testing.T) {
		s := newServiceSuite(t)
		s.Store.seedStudent(7, "Asha")
		delete(s.Store.students, 7)

		_, err := s.Service.Detail(ctx, 7)
		requireAppErr(t, err, apperr.KindNotFound, "Student not found")
	})
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		s := newServiceSuite(t)

		res, err := s.Service.Create(ctx, validCreatePayload())
		require.NoError(t, err)
		assert.Equal(t, "Student added and verification email sent successfully.", res.Message)

		require.Len(t, s.Store.upserts, 1)
		stored := s.Store.upserts[0]
		assert.Nil(t, stored.UserID)
		assert.Equal(t, strPtr("Grade 5"), stored.Class)
		assert.Equal(t, strPtr("A"), stored.Section)

		require.Len(t, s.Notifier.sent, 1)
		assert.Equal(t, sentEmail{UserID: 42, Email: "asha@school.test"}, s.Notifier.sent[0])
	})

	t.Run("ignores a client supplied id", func(t *testing.T) {
		s := newServiceSuite(t)
		payload := validCreatePayload()
		payload["id"] = float64(3)

		_, err := s.Service.Create(ctx, payload)
		require.NoError(t, err)
		require.Len(t, s.Store.upserts, 1)
		assert.Nil(t, s.Store.upserts[0].UserID)
	})

	t.Run("unknown class", func(t *testing.T) {
		s := newServiceSuite(t)
		payload := validCreatePayload()
		payload["className"] = "Nope"

		_, err := s.Service.Create(ctx, payload)
		appErr := requireAppErr(t, err, apperr.KindInvalid, "Invalid class 'Nope'. Class does not exist.")
		assert.Contains(t, appErr.Message, "Invalid class 'Nope'")
		assert.Empty(t, s.Store.upserts)
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		s := newServiceSuite(t)
		s.Store.upsertResult = &types.MutationResult{Status: false, Message: "Email already exists"}

		_, err := s.Service.Create(ctx, validCreatePayload())
		requireAppErr(t, err, apperr.KindConflict, "Email already exists")
		assert.Empty(t, s.Notifier.sent)
	})

	t.Run("rejection with description", func(t *testing.T) {
		s := newServiceSuite(t)
		s.Store.upsertResult = &types.MutationResult{Status: false, Message: "X", Description: "Y"}

		_, err := s.Service.Create(ctx, validCreatePayload())
		requireAppErr(t, err, apperr.KindInvalid, "X. Y")
	})

	t.Run("email failure still succeeds", func(t *testing.T) {
		s := newServiceSuite(t)
		s.Notifier.err = errors.New("smtp: connection refused")

		res, err := s.Service.Create(ctx, validCreatePayload())
		require.NoError(t, err)
		assert.Equal(t, "Student added, but failed to send verification email.", res.Message)
		assert.Len(t, s.Store.upserts, 1)
	})

	t.Run("unexpected repository failure is internal", func(t *testing.T) {
		s := newServiceSuite(t)
		cause := errors.New("disk I/O error")
		s.Store.upsertErr = cause

		_, err := s.Service.Create(ctx, validCreatePayload())
		requireAppErr(t, err, apperr.KindInternal, "Unable to add student due to unexpected server error")
		assert.ErrorIs(t, err, cause)
	})

	t.Run("missing name and email", func(t *testing.T) {
		s := newServiceSuite(t)

		_, err := s.Service.Create(ctx, map[string]any{"name": "  ", "class": "Grade 5"})
		requireAppErr(t, err, apperr.KindInvalid, "Invalid student payload")

		var verrs validator.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Len(t, verrs, 2)
		assert.Empty(t, s.Store.classLookups)
	})

	t.Run("malformed email", func(t *testing.T) {
		s := newServiceSuite(t)
		payload := validCreatePayload()
		payload["email"] = "not-an-email"

		_, err := s.Service.Create(ctx, payload)
		requireAppErr(t, err, apperr.KindInvalid, "Invalid student payload")
		assert.Empty(t, s.Store.upserts)
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		s := newServiceSuite(t)
		s.Store.seedStudent(7, "Asha")

		res, err := s.Service.Update(ctx, map[string]any{
			"id":           float64(7),
			"section_name": "b",
			"fatherName":   "  Ravi Rao ",
		})
		require.NoError(t, err)
		assert.Equal(t, "Student updated successfully", res.Message)

		require.Len(t, s.Store.upserts, 1)
		stored := s.Store.upserts[0]
		require.NotNil(t, stored.UserID)
		assert.Equal(t, int64(7), *stored.UserID)
		assert.Equal(t, strPtr("B"), stored.Section)
		assert.Equal(t, strPtr("Ravi Rao"), stored.FatherName)
		assert.Nil(t, stored.Class)
		assert.Empty(t, s.Notifier.sent, "update never sends email")
	})

	t.Run("unknown student", func(t *testing.T) {
		s := newServiceSuite(t)

		_, err := s.Service.Update(ctx, map[string]any{"userId": float64(7), "name": "Asha"})
		requireAppErr(t, err, apperr.KindNotFound, "Student not found")
		assert.Empty(t, s.Store.upserts)
	})

	t.Run("missing id", func(t *testing.T) {
		s := newServiceSuite(t)

		_, err := s.Service.Update(ctx, map[string]any{"name": "Asha"})
		requireAppErr(t, err, apperr.KindNotFound, "Student not found")
	})

	t.Run("references are checked before existence", func(t *testing.T) {
		s := newServiceSuite(t)

		_, err := s.Service.Update(ctx, map[string]any{"userId": float64(7), "class": "Nope"})
		requireAppErr(t, err, apperr.KindInvalid, "Invalid class 'Nope'. Class does not exist.")
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		s := newServiceSuite(t)
		s.Store.seedStudent(7, "Asha")
		s.Store.upsertResult = &types.MutationResult{
			Status:      false,
			Message:     "Email already exists",
			Description: "Another account was registered with this email",
		}

		_, err := s.Service.Update(ctx, map[string]any{"userId": float64(7), "email": "taken@school.test"})
		requireAppErr(t, err, apperr.KindConflict,
			"Email already exists. Another account was registered with this email")
	})

	t.Run("unexpected failure is wrapped", func(t *testing.T) {
		s := newServiceSuite(t)
		cause := errors.New("connection reset")
		s.Store.userErr = cause

		_, err := s.Service.Update(ctx, map[string]any{"userId": float64(7)})
		requireAppErr(t, err, apperr.KindInternal, msgUnexpectedUpdate)
		assert.ErrorIs(t, err, cause)
	})
}

func TestService_SetStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		s := newServiceSuite(t)
		s.Store.seedStudent(7, "Asha")
		change := types.StatusChange{UserID: 7, ReviewerID: 1, Status: false}

		res, err := s.Service.SetStatus(ctx, change)
		require.NoError(t, err)
		assert.Equal(t, "Student status changed successfully", res.Message)
		assert.Equal(t, []types.StatusChange{change}, s.Store.statusChanges)
	})

	t.Run("unknown student", func(t *testing.T) {
		s := newServiceSuite(t)

		_, err := s.Service.SetStatus(ctx, types.StatusChange{UserID: 7, ReviewerID: 1})
		requireAppErr(t, err, apperr.KindNotFound, "Student not found")
		assert.Empty(t, s.Store.statusChanges)
	})

	t.Run("zero affected rows is internal", func(t *testing.T) {
		s := newServiceSuite(t)
		s.Store.seedStudent(7, "Asha")
		s.Store.affected = 0

		_, err := s.Service.SetStatus(ctx, types.StatusChange{UserID: 7, ReviewerID: 1, Status: true})
		requireAppErr(t, err, apperr.KindInternal, "Unable to disable student")
	})
}
