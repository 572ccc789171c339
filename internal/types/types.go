// Package types holds the data structures shared by the service, storage and
// HTTP layers. Keeping them in one place prevents import cycles.
package types

// StudentInput is the canonical shape of a create/update payload after alias
// resolution. A nil pointer means "absent"; string fields are never empty.
//
// The validate:"..." tags are checked by go-playground/validator once the
// payload has been normalized.
type StudentInput struct {
	UserID             *int64  `json:"userId,omitempty"`
	Name               *string `json:"name,omitempty"               validate:"omitempty,max=100"`
	Email              *string `json:"email,omitempty"              validate:"omitempty,email,max=100"`
	Gender             *string `json:"gender,omitempty"`
	Phone              *string `json:"phone,omitempty"              validate:"omitempty,max=20"`
	DOB                *string `json:"dob,omitempty"`
	Class              *string `json:"class,omitempty"`
	Section            *string `json:"section,omitempty"`
	Roll               *int64  `json:"roll,omitempty"               validate:"omitempty,gte=0"`
	AdmissionDate      *string `json:"admissionDate,omitempty"`
	CurrentAddress     *string `json:"currentAddress,omitempty"`
	PermanentAddress   *string `json:"permanentAddress,omitempty"`
	FatherName         *string `json:"fatherName,omitempty"`
	FatherPhone        *string `json:"fatherPhone,omitempty"        validate:"omitempty,max=20"`
	MotherName         *string `json:"motherName,omitempty"`
	MotherPhone        *string `json:"motherPhone,omitempty"        validate:"omitempty,max=20"`
	GuardianName       *string `json:"guardianName,omitempty"`
	GuardianPhone      *string `json:"guardianPhone,omitempty"      validate:"omitempty,max=20"`
	RelationOfGuardian *string `json:"relationOfGuardian,omitempty"`
	SystemAccess       *bool   `json:"systemAccess,omitempty"`
}

// Map renders the input under its canonical keys, with absent fields as nil.
func (in StudentInput) Map() map[string]any {
	m := map[string]any{
		"userId":             nil,
		"name":               nil,
		"email":              nil,
		"gender":             nil,
		"phone":              nil,
		"dob":                nil,
		"class":              nil,
		"section":            nil,
		"roll":               nil,
		"admissionDate":      nil,
		"currentAddress":     nil,
		"permanentAddress":   nil,
		"fatherName":         nil,
		"fatherPhone":        nil,
		"motherName":         nil,
		"motherPhone":        nil,
		"guardianName":       nil,
		"guardianPhone":      nil,
		"relationOfGuardian": nil,
		"systemAccess":       nil,
	}
	if in.UserID != nil {
		m["userId"] = *in.UserID
	}
	if in.Roll != nil {
		m["roll"] = *in.Roll
	}
	if in.SystemAccess != nil {
		m["systemAccess"] = *in.SystemAccess
	}
	for key, value := range map[string]*string{
		"name":               in.Name,
		"email":              in.Email,
		"gender":             in.Gender,
		"phone":              in.Phone,
		"dob":                in.DOB,
		"class":              in.Class,
		"section":            in.Section,
		"admissionDate":      in.AdmissionDate,
		"currentAddress":     in.CurrentAddress,
		"permanentAddress":   in.PermanentAddress,
		"fatherName":         in.FatherName,
		"fatherPhone":        in.FatherPhone,
		"motherName":         in.MotherName,
		"motherPhone":        in.MotherPhone,
		"guardianName":       in.GuardianName,
		"guardianPhone":      in.GuardianPhone,
		"relationOfGuardian": in.RelationOfGuardian,
	} {
		if value != nil {
			m[key] = *value
		}
	}
	return m
}

// MutationResult is what the repository reports for a create-or-update.
// Status false is a domain rejection (for example a duplicate email) and
// must never be treated as success.
type MutationResult struct {
	Status      bool
	Message     string
	Description string
	UserID      int64
}

// Student is the stored student joined with its user account.
type Student struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	Email              string  `json:"email"`
	SystemAccess       bool    `json:"systemAccess"`
	Gender             *string `json:"gender"`
	Phone              *string `json:"phone"`
	DOB                *string `json:"dob"`
	Class              *string `json:"class"`
	Section            *string `json:"section"`
	Roll               *int64  `json:"roll"`
	AdmissionDate      *string `json:"admissionDate"`
	CurrentAddress     *string `json:"currentAddress"`
	PermanentAddress   *string `json:"permanentAddress"`
	FatherName         *string `json:"fatherName"`
	FatherPhone        *string `json:"fatherPhone"`
	MotherName         *string `json:"motherName"`
	MotherPhone        *string `json:"motherPhone"`
	GuardianName       *string `json:"guardianName"`
	GuardianPhone      *string `json:"guardianPhone"`
	RelationOfGuardian *string `json:"relationOfGuardian"`
}

// StudentFilter narrows a student listing. Zero values mean "no filter".
type StudentFilter struct {
	Name    string
	Class   string
	Section string
	Roll    *int64
}

type StatusChange struct {
	UserID     int64
	ReviewerID int64
	Status     bool
}

type Class struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Section struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type User struct {
	ID       int64
	Name     string
	Email    string
	IsActive bool
}
