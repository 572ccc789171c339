// Package sqlite provides a SQLite-backed implementation of storage.Storage
// using Go's database/sql package.
//
// Importing github.com/mattn/go-sqlite3 registers the "sqlite3" driver with
// database/sql from the driver's init(). The import is named, not blank,
// because constraint failures are recognised through sqlite3.Error codes.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/aanand-mishra/school-students/internal/storage"
	"github.com/aanand-mishra/school-students/internal/types"
)

const (
	msgEmailExists     = "Email already exists"
	msgStudentAdded    = "Student added successfully"
	msgStudentUpdated  = "Student updated successfully"
	msgStudentNotFound = "Student not found"
	msgMissingIdentity = "Name and email are required"
)

// SQLite is the concrete implementation of storage.Storage.
// A single *sql.DB is a connection pool and is safe for concurrent use.
type SQLite struct {
	Db *sql.DB
}

var _ storage.Storage = (*SQLite)(nil)

// schema is idempotent, so it is safe to run on every startup.
//
// users holds the account (login identity, access flag); user_profiles holds
// the student-specific columns keyed by the same id.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS classes (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE COLLATE NOCASE
	)`,
	`CREATE TABLE IF NOT EXISTS sections (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE COLLATE NOCASE
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id                      INTEGER PRIMARY KEY AUTOINCREMENT,
		name                    TEXT    NOT NULL,
		email                   TEXT    NOT NULL UNIQUE COLLATE NOCASE,
		role                    TEXT    NOT NULL DEFAULT 'student',
		is_active               INTEGER NOT NULL DEFAULT 1,
		is_email_verified       INTEGER NOT NULL DEFAULT 0,
		status_last_reviewer_id INTEGER,
		status_last_reviewed_dt TIMESTAMP,
		created_dt              TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_dt              TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS user_profiles (
		user_id              INTEGER PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		gender               TEXT,
		phone                TEXT,
		dob                  TEXT,
		class_name           TEXT,
		section_name         TEXT,
		roll                 INTEGER,
		admission_dt         TEXT,
		current_address      TEXT,
		permanent_address    TEXT,
		father_name          TEXT,
		father_phone         TEXT,
		mother_name          TEXT,
		mother_phone         TEXT,
		guardian_name        TEXT,
		guardian_phone       TEXT,
		relation_of_guardian TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS user_verification_tokens (
		user_id    INTEGER PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		token_hash TEXT      NOT NULL,
		expires_at TIMESTAMP NOT NULL
	)`,
}

// ─────────────────────────────────────────────────────────────────────────────
// New opens the SQLite database at path and creates the tables if they do
// not already exist.
//
// _foreign_keys=on is a DSN option of the mattn driver. SQLite ships with
// foreign key enforcement off, and the profile and token tables depend on
// ON DELETE CASCADE.
// ─────────────────────────────────────────────────────────────────────────────
func New(path string) (*SQLite, error) {
	// sql.Open only validates the driver name and DSN; the first real
	// connection happens on the first query.
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite.New: create table: %w", err)
		}
	}

	return &SQLite{Db: db}, nil
}

func (s *SQLite) Close() error {
	return s.Db.Close()
}

// SeedReferences makes sure the given class and section names exist.
// Names already present (in any letter case) are left untouched.
func (s *SQLite) SeedReferences(ctx context.Context, classes, sections []string) error {
	for _, name := range classes {
		if _, err := s.Db.ExecContext(ctx,
			"INSERT OR IGNORE INTO classes (name) VALUES (?)", name); err != nil {
			return fmt.Errorf("SeedReferences: class %q: %w", name, err)
		}
	}
	for _, name := range sections {
		if _, err := s.Db.ExecContext(ctx,
			"INSERT OR IGNORE INTO sections (name) VALUES (?)", name); err != nil {
			return fmt.Errorf("SeedReferences: section %q: %w", name, err)
		}
	}
	return nil
}

// studentColumns must stay in the same order as the Scan in scanStudent.
const studentColumns = `
	u.id, u.name, u.email, u.is_active,
	p.gender, p.phone, p.dob, p.class_name, p.section_name, p.roll,
	p.admission_dt, p.current_address, p.permanent_address,
	p.father_name, p.father_phone, p.mother_name, p.mother_phone,
	p.guardian_name, p.guardian_phone, p.relation_of_guardian`

const studentFrom = `
	FROM users u
	LEFT JOIN user_profiles p ON p.user_id = u.id
	WHERE u.role = 'student'`

type scanner interface {
	Scan(dest ...any) error
}

func scanStudent(row scanner) (types.Student, error) {
	var st types.Student
	// Nullable columns scan into **string / **int64; NULL leaves them nil.
	err := row.Scan(
		&st.ID, &st.Name, &st.Email, &st.SystemAccess,
		&st.Gender, &st.Phone, &st.DOB, &st.Class, &st.Section, &st.Roll,
		&st.AdmissionDate, &st.CurrentAddress, &st.PermanentAddress,
		&st.FatherName, &st.FatherPhone, &st.MotherName, &st.MotherPhone,
		&st.GuardianName, &st.GuardianPhone, &st.RelationOfGuardian,
	)
	return st, err
}

func (s *SQLite) FindAllStudents(ctx context.Context, filter types.StudentFilter) ([]types.Student, error) {
	var (
		query strings.Builder
		args  []any
	)
	query.WriteString("SELECT " + studentColumns + studentFrom)

	if filter.Name != "" {
		query.WriteString(" AND u.name LIKE '%' || ? || '%'")
		args = append(args, filter.Name)
	}
	if filter.Class != "" {
		query.WriteString(" AND p.class_name = ? COLLATE NOCASE")
		args = append(args, filter.Class)
	}
	if filter.Section != "" {
		query.WriteString(" AND p.section_name = ? COLLATE NOCASE")
		args = append(args, filter.Section)
	}
	if filter.Roll != nil {
		query.WriteString(" AND p.roll = ?")
		args = append(args, *filter.Roll)
	}
	query.WriteString(" ORDER BY u.id")

	rows, err := s.Db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("FindAllStudents: query: %w", err)
	}
	defer rows.Close()

	students := make([]types.Student, 0)
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("FindAllStudents: scan row: %w", err)
		}
		students = append(students, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("FindAllStudents: rows iteration: %w", err)
	}

	return students, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// FindStudentDetail fetches one student by user id.
//
// QueryRowContext never returns an error itself; a missing row surfaces as
// sql.ErrNoRows from Scan, which is translated to storage.ErrNotFound so
// callers never import database/sql.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) FindStudentDetail(ctx context.Context, id int64) (types.Student, error) {
	stmt, err := s.Db.PrepareContext(ctx,
		"SELECT "+studentColumns+studentFrom+" AND u.id = ? LIMIT 1")
	if err != nil {
		return types.Student{}, fmt.Errorf("FindStudentDetail: prepare: %w", err)
	}
	defer stmt.Close()

	st, err := scanStudent(stmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Student{}, storage.ErrNotFound
	}
	if err != nil {
		return types.Student{}, fmt.Errorf("FindStudentDetail: scan: %w", err)
	}

	return st, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// SetStudentStatus enables or disables a student account and records who
// reviewed it. It returns the number of rows changed; 0 means no student
// row matched, and deciding what that means is left to the caller.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) SetStudentStatus(ctx context.Context, change types.StatusChange) (int64, error) {
	stmt, err := s.Db.PrepareContext(ctx, `
		UPDATE users
		SET is_active = ?, status_last_reviewer_id = ?, status_last_reviewed_dt = CURRENT_TIMESTAMP
		WHERE id = ? AND role = 'student'`)
	if err != nil {
		return 0, fmt.Errorf("SetStudentStatus: prepare: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, change.Status, change.ReviewerID, change.UserID)
	if err != nil {
		return 0, fmt.Errorf("SetStudentStatus: exec: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("SetStudentStatus: rows affected: %w", err)
	}
	return affected, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// AddOrUpdateStudent runs the whole create or update in one transaction.
// Absent fields keep their stored value on update.
//
// Business failures (duplicate email, unknown id, missing name or email) are
// returned as a MutationResult with Status false and a nil error. Only
// database failures come back as errors.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) AddOrUpdateStudent(ctx context.Context, in types.StudentInput) (types.MutationResult, error) {
	tx, err := s.Db.BeginTx(ctx, nil)
	if err != nil {
		return types.MutationResult{}, fmt.Errorf("AddOrUpdateStudent: begin: %w", err)
	}
	// Rollback after a successful Commit is a no-op.
	defer tx.Rollback()

	var result types.MutationResult
	if in.UserID == nil {
		result, err = insertStudent(ctx, tx, in)
	} else {
		result, err = updateStudent(ctx, tx, in)
	}
	if err != nil || !result.Status {
		return result, err
	}

	if err := tx.Commit(); err != nil {
		return types.MutationResult{}, fmt.Errorf("AddOrUpdateStudent: commit: %w", err)
	}
	return result, nil
}

func insertStudent(ctx context.Context, tx *sql.Tx, in types.StudentInput) (types.MutationResult, error) {
	if in.Name == nil || in.Email == nil {
		return types.MutationResult{Message: msgMissingIdentity}, nil
	}

	taken, err := emailTaken(ctx, tx, *in.Email, 0)
	if err != nil {
		return types.MutationResult{}, err
	}
	if taken {
		return types.MutationResult{Message: msgEmailExists}, nil
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (name, email, is_active) VALUES (?, ?, COALESCE(?, 1))",
		*in.Name, *in.Email, in.SystemAccess)
	if isUniqueViolation(err) {
		// Lost a race with a concurrent insert of the same email.
		return types.MutationResult{
			Message:     msgEmailExists,
			Description: "Another account was registered with this email",
		}, nil
	}
	if err != nil {
		return types.MutationResult{}, fmt.Errorf("insertStudent: insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return types.MutationResult{}, fmt.Errorf("insertStudent: last insert id: %w", err)
	}

	if err := upsertProfile(ctx, tx, id, in); err != nil {
		return types.MutationResult{}, err
	}

	return types.MutationResult{Status: true, Message: msgStudentAdded, UserID: id}, nil
}

func updateStudent(ctx context.Context, tx *sql.Tx, in types.StudentInput) (types.MutationResult, error) {
	id := *in.UserID

	if in.Email != nil {
		taken, err := emailTaken(ctx, tx, *in.Email, id)
		if err != nil {
			return types.MutationResult{}, err
		}
		if taken {
			return types.MutationResult{Message: msgEmailExists}, nil
		}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE users
		SET name       = COALESCE(?, name),
		    email      = COALESCE(?, email),
		    is_active  = COALESCE(?, is_active),
		    updated_dt = CURRENT_TIMESTAMP
		WHERE id = ? AND role = 'student'`,
		in.Name, in.Email, in.SystemAccess, id)
	if isUniqueViolation(err) {
		return types.MutationResult{
			Message:     msgEmailExists,
			Description: "Another account was registered with this email",
		}, nil
	}
	if err != nil {
		return types.MutationResult{}, fmt.Errorf("updateStudent: update user: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return types.MutationResult{}, fmt.Errorf("updateStudent: rows affected: %w", err)
	}
	if affected == 0 {
		return types.MutationResult{
			Message:     msgStudentNotFound,
			Description: fmt.Sprintf("No student account with id %d", id),
		}, nil
	}

	if err := upsertProfile(ctx, tx, id, in); err != nil {
		return types.MutationResult{}, err
	}

	return types.MutationResult{Status: true, Message: msgStudentUpdated, UserID: id}, nil
}

func upsertProfile(ctx context.Context, tx *sql.Tx, userID int64, in types.StudentInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO user_profiles (
			user_id, gender, phone, dob, class_name, section_name, roll,
			admission_dt, current_address, permanent_address,
			father_name, father_phone, mother_name, mother_phone,
			guardian_name, guardian_phone, relation_of_guardian
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			gender               = COALESCE(excluded.gender, gender),
			phone                = COALESCE(excluded.phone, phone),
			dob                  = COALESCE(excluded.dob, dob),
			class_name           = COALESCE(excluded.class_name, class_name),
			section_name         = COALESCE(excluded.section_name, section_name),
			roll                 = COALESCE(excluded.roll, roll),
			admission_dt         = COALESCE(excluded.admission_dt, admission_dt),
			current_address      = COALESCE(excluded.current_address, current_address),
			permanent_address    = COALESCE(excluded.permanent_address, permanent_address),
			father_name          = COALESCE(excluded.father_name, father_name),
			father_phone         = COALESCE(excluded.father_phone, father_phone),
			mother_name          = COALESCE(excluded.mother_name, mother_name),
			mother_phone         = COALESCE(excluded.mother_phone, mother_phone),
			guardian_name        = COALESCE(excluded.guardian_name, guardian_name),
			guardian_phone       = COALESCE(excluded.guardian_phone, guardian_phone),
			relation_of_guardian = COALESCE(excluded.relation_of_guardian, relation_of_guardian)`,
		userID, in.Gender, in.Phone, in.DOB, in.Class, in.Section, in.Roll,
		in.AdmissionDate, in.CurrentAddress, in.PermanentAddress,
		in.FatherName, in.FatherPhone, in.MotherName, in.MotherPhone,
		in.GuardianName, in.GuardianPhone, in.RelationOfGuardian,
	)
	if err != nil {
		return fmt.Errorf("upsertProfile: %w", err)
	}
	return nil
}

// emailTaken reports whether another user (id != exceptID) owns email.
func emailTaken(ctx context.Context, tx *sql.Tx, email string, exceptID int64) (bool, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		"SELECT id FROM users WHERE email = ? COLLATE NOCASE AND id <> ? LIMIT 1",
		email, exceptID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("emailTaken: %w", err)
	}
	return true, nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// The extended code separates it from NOT NULL and FOREIGN KEY failures,
// which share the same primary code.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func (s *SQLite) FindClassByName(ctx context.Context, name string) (types.Class, error) {
	var class types.Class
	err := s.Db.QueryRowContext(ctx,
		"SELECT id, name FROM classes WHERE name = ? COLLATE NOCASE LIMIT 1", name).
		Scan(&class.ID, &class.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Class{}, storage.ErrNotFound
	}
	if err != nil {
		return types.Class{}, fmt.Errorf("FindClassByName: %w", err)
	}
	return class, nil
}

func (s *SQLite) FindSectionByName(ctx context.Context, name string) (types.Section, error) {
	var section types.Section
	err := s.Db.QueryRowContext(ctx,
		"SELECT id, name FROM sections WHERE name = ? COLLATE NOCASE LIMIT 1", name).
		Scan(&section.ID, &section.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Section{}, storage.ErrNotFound
	}
	if err != nil {
		return types.Section{}, fmt.Errorf("FindSectionByName: %w", err)
	}
	return section, nil
}

func (s *SQLite) FindUserByID(ctx context.Context, id int64) (types.User, error) {
	var user types.User
	err := s.Db.QueryRowContext(ctx,
		"SELECT id, name, email, is_active FROM users WHERE id = ?", id).
		Scan(&user.ID, &user.Name, &user.Email, &user.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return types.User{}, storage.ErrNotFound
	}
	if err != nil {
		return types.User{}, fmt.Errorf("FindUserByID: %w", err)
	}
	return user, nil
}

func (s *SQLite) SaveVerificationToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	_, err := s.Db.ExecContext(ctx, `
		INSERT INTO user_verification_tokens (user_id, token_hash, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			token_hash = excluded.token_hash,
			expires_at = excluded.expires_at`,
		userID, tokenHash, expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("SaveVerificationToken: %w", err)
	}
	return nil
}
