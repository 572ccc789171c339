package students

import (
	"context"
	"strings"
	"sync"

	"github.com/aanand-mishra/school-students/internal/storage"
	"github.com/aanand-mishra/school-students/internal/types"
)

// fakeStore is an in-memory stand-in for every collaborator the service
// needs. Each hook, when set, overrides the default behavior.
type fakeStore struct {
	mu sync.Mutex

	classes  []string
	sections []string
	users    map[int64]types.User
	students map[int64]types.Student

	listResult   []types.Student
	listErr      error
	detailErr    error
	userErr      error
	upsertResult *types.MutationResult
	upsertErr    error
	affected     int64
	statusErr    error

	classLookups   []string
	sectionLookups []string
	upserts        []types.StudentInput
	statusChanges  []types.StatusChange
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		classes:  []string{"Grade 5", "Grade 6"},
		sections: []string{"A", "B"},
		users:    make(map[int64]types.User),
		students: make(map[int64]types.Student),
		affected: 1,
	}
}

func (f *fakeStore) seedStudent(id int64, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.users[id] = types.User{ID: id, Name: name, IsActive: true}
	f.students[id] = types.Student{ID: id, Name: name, SystemAccess: true}
}

func (f *fakeStore) FindAllStudents(_ context.Context, _ types.StudentFilter) ([]types.Student, error) {
	return f.listResult, f.listErr
}

func (f *fakeStore) FindStudentDetail(_ context.Context, id int64) (types.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.detailErr != nil {
		return types.Student{}, f.detailErr
	}
	st, ok := f.students[id]
	if !ok {
		return types.Student{}, storage.ErrNotFound
	}
	return st, nil
}

func (f *fakeStore) SetStudentStatus(_ context.Context, change types.StatusChange) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.statusChanges = append(f.statusChanges, change)
	return f.affected, f.statusErr
}

func (f *fakeStore) AddOrUpdateStudent(_ context.Context, in types.StudentInput) (types.MutationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.upserts = append(f.upserts, in)
	if f.upsertErr != nil {
		return types.MutationResult{}, f.upsertErr
	}
	if f.upsertResult != nil {
		return *f.upsertResult, nil
	}
	if in.UserID == nil {
		return types.MutationResult{Status: true, Message: "Student added successfully", UserID: 42}, nil
	}
	return types.MutationResult{Status: true, Message: "Student updated successfully", UserID: *in.UserID}, nil
}

func (f *fakeStore) FindClassByName(_ context.Context, name string) (types.Class, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.classLookups = append(f.classLookups, name)
	for i, class := range f.classes {
		if strings.EqualFold(class, name) {
			return types.Class{ID: int64(i + 1), Name: class}, nil
		}
	}
	return types.Class{}, storage.ErrNotFound
}

func (f *fakeStore) FindSectionByName(_ context.Context, name string) (types.Section, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sectionLookups = append(f.sectionLookups, name)
	for i, section := range f.sections {
		if strings.EqualFold(section, name) {
			return types.Section{ID: int64(i + 1), Name: section}, nil
		}
	}
	return types.Section{}, storage.ErrNotFound
}

func (f *fakeStore) FindUserByID(_ context.Context, id int64) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.userErr != nil {
		return types.User{}, f.userErr
	}
	user, ok := f.users[id]
	if !ok {
		return types.User{}, storage.ErrNotFound
	}
	return user, nil
}

type sentEmail struct {
	UserID int64
	Email  string
}

type fakeNotifier struct {
	mu   sync.Mutex
	err  error
	sent []sentEmail
}

func (n *fakeNotifier) SendAccountVerificationEmail(_ context.Context, userID int64, email string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentEmail{UserID: userID, Email: email})
	return nil
}
