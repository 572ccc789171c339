package students

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/aanand-mishra/school-students/internal/types"
)

// Accepted spellings per field, in priority order.
var (
	aliasUserID             = []string{"userId", "id", "user_id"}
	aliasName               = []string{"name"}
	aliasEmail              = []string{"email"}
	aliasGender             = []string{"gender"}
	aliasPhone              = []string{"phone"}
	aliasDOB                = []string{"dob", "dateOfBirth", "date_of_birth"}
	aliasClass              = []string{"class", "className", "class_name"}
	aliasSection            = []string{"section", "sectionName", "section_name"}
	aliasRoll               = []string{"roll"}
	aliasAdmissionDate      = []string{"admissionDate", "admission_dt", "admission_date"}
	aliasCurrentAddress     = []string{"currentAddress", "current_address"}
	aliasPermanentAddress   = []string{"permanentAddress", "permanent_address"}
	aliasFatherName         = []string{"fatherName", "father_name"}
	aliasFatherPhone        = []string{"fatherPhone", "father_phone"}
	aliasMotherName         = []string{"motherName", "mother_name"}
	aliasMotherPhone        = []string{"motherPhone", "mother_phone"}
	aliasGuardianName       = []string{"guardianName", "guardian_name"}
	aliasGuardianPhone      = []string{"guardianPhone", "guardian_phone"}
	aliasRelationOfGuardian = []string{"relationOfGuardian", "relation_of_guardian"}
	aliasSystemAccess       = []string{"systemAccess", "isActive", "is_active"}
)

// Normalize resolves a loosely shaped payload into the canonical input.
// Every field takes the value of its first non-nil alias. Text is
// NFC-normalized and trimmed, and blank text becomes nil.
func Normalize(raw map[string]any) types.StudentInput {
	return types.StudentInput{
		UserID:             normalizeInt(pick(raw, aliasUserID)),
		Name:               normalizeText(pick(raw, aliasName)),
		Email:              normalizeText(pick(raw, aliasEmail)),
		Gender:             normalizeText(pick(raw, aliasGender)),
		Phone:              normalizeText(pick(raw, aliasPhone)),
		DOB:                normalizeText(pick(raw, aliasDOB)),
		Class:              normalizeText(pick(raw, aliasClass)),
		Section:            normalizeText(pick(raw, aliasSection)),
		Roll:               normalizeInt(pick(raw, aliasRoll)),
		AdmissionDate:      normalizeText(pick(raw, aliasAdmissionDate)),
		CurrentAddress:     normalizeText(pick(raw, aliasCurrentAddress)),
		PermanentAddress:   normalizeText(pick(raw, aliasPermanentAddress)),
		FatherName:         normalizeText(pick(raw, aliasFatherName)),
		FatherPhone:        normalizeText(pick(raw, aliasFatherPhone)),
		MotherName:         normalizeText(pick(raw, aliasMotherName)),
		MotherPhone:        normalizeText(pick(raw, aliasMotherPhone)),
		GuardianName:       normalizeText(pick(raw, aliasGuardianName)),
		GuardianPhone:      normalizeText(pick(raw, aliasGuardianPhone)),
		RelationOfGuardian: normalizeText(pick(raw, aliasRelationOfGuardian)),
		SystemAccess:       normalizeBool(pick(raw, aliasSystemAccess)),
	}
}

func pick(raw map[string]any, keys []string) any {
	for _, key := range keys {
		if v, ok := raw[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func normalizeText(v any) *string {
	var s string
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		s = val
	case json.Number:
		s = val.String()
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	default:
		s = fmt.Sprint(val)
	}

	s = strings.TrimSpace(norm.NFC.String(s))
	if s == "" {
		return nil
	}
	return &s
}

func normalizeInt(v any) *int64 {
	var n int64
	switch val := v.(type) {
	case int:
		n = int64(val)
	case int64:
		n = val
	case float64:
		// float64(math.MaxInt64) rounds up to 2^63, which is already out of range.
		if val != math.Trunc(val) || val < math.MinInt64 || val >= math.MaxInt64 {
			return nil
		}
		n = int64(val)
	case json.Number:
		parsed, err := val.Int64()
		if err != nil {
			return nil
		}
		n = parsed
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return nil
		}
		n = parsed
	default:
		return nil
	}
	return &n
}

func normalizeBool(v any) *bool {
	var b bool
	switch val := v.(type) {
	case bool:
		b = val
	case float64:
		if val != 0 && val != 1 {
			return nil
		}
		b = val == 1
	case int:
		if val != 0 && val != 1 {
			return nil
		}
		b = val == 1
	case int64:
		if val != 0 && val != 1 {
			return nil
		}
		b = val == 1
	case json.Number:
		// Bodies are decoded with UseNumber, so a JSON 0 or 1 arrives here.
		switch val {
		case "0":
			b = false
		case "1":
			b = true
		default:
			return nil
		}
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(val))
		if err != nil {
			return nil
		}
		b = parsed
	default:
		return nil
	}
	return &b
}
