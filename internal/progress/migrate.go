package progress

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	// StateFile is the current document name.
	StateFile = "students_v1.json"
	// LegacyFile is the single-learner document that predates students_v1.
	LegacyFile = "tutor_state_v1.json"
)

// decode parses a students_v1 document. It reports changed when the document
// had to be upgraded (older records without a surname are flagged for
// profile completion).
func decode(raw []byte) (*StudentsState, bool, error) {
	var st StudentsState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", StateFile, err)
	}

	var shape struct {
		Version  string                       `json:"$schema"`
		Students []map[string]json.RawMessage `json:"students"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", StateFile, err)
	}

	changed := shape.Version != SchemaVersion
	for i, rec := range shape.Students {
		if i >= len(st.Students) {
			break
		}
		if _, ok := rec["surname"]; !ok {
			st.Students[i].NeedsProfileCompletion = true
			changed = true
		}
	}

	before := st.ActiveStudentID
	st.repair()
	if st.ActiveStudentID != before {
		changed = true
	}
	st.Version = SchemaVersion
	return &st, changed, nil
}

// MigrateLegacy converts a tutor_state_v1 document into a students_v1
// document holding a single student, stu01. Every legacy field is carried
// over; the student is flagged for profile completion.
func MigrateLegacy(raw []byte, now time.Time) (*StudentsState, error) {
	var legacy TutorState
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil, fmt.Errorf("decode %s: %w", LegacyFile, err)
	}
	legacy.ensure()

	name := legacy.UserName
	if name == "" {
		name = "Estudiante"
	}
	st := NewState()
	st.Students = append(st.Students, StudentProfile{
		StudentID:              "stu01",
		Name:                   name,
		NeedsProfileCompletion: true,
		CreatedAt:              At(now),
		UpdatedAt:              At(now),
		TutorState:             legacy,
	})
	st.ActiveStudentID = "stu01"
	return st, nil
}
