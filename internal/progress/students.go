package progress

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrStudentNotFound is returned for unknown student ids.
	ErrStudentNotFound = errors.New("student not found")
	// ErrInvalidStudent is returned when a new student fails validation.
	ErrInvalidStudent = errors.New("invalid student")
)

var validate = validator.New()

// NewStudent describes a student to add.
type NewStudent struct {
	Name           string `validate:"required"`
	Surname        string
	Email          string `validate:"omitempty,email"`
	TutorPersonaID string
}

// NextStudentID returns the next free id in the stu01, stu02, ... sequence.
func (s *StudentsState) NextStudentID() string {
	max := 0
	for _, st := range s.Students {
		n, err := strconv.Atoi(strings.TrimPrefix(st.StudentID, "stu"))
		if err == nil && strings.HasPrefix(st.StudentID, "stu") && n > max {
			max = n
		}
	}
	return fmt.Sprintf("stu%02d", max+1)
}

// AddStudent appends a student and makes it active when none is.
func (s *StudentsState) AddStudent(in NewStudent, now time.Time) (*StudentProfile, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Surname = strings.TrimSpace(in.Surname)
	in.Email = strings.TrimSpace(in.Email)
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStudent, err)
	}

	p := StudentProfile{
		StudentID:              s.NextStudentID(),
		Name:                   in.Name,
		Surname:                in.Surname,
		Email:                  in.Email,
		TutorPersonaID:         in.TutorPersonaID,
		NeedsProfileCompletion: in.Surname == "",
		CreatedAt:              At(now),
		UpdatedAt:              At(now),
		TutorState:             TutorState{UserName: in.Name},
	}
	p.TutorState.ensure()
	s.Students = append(s.Students, p)
	if s.ActiveStudentID == "" {
		s.ActiveStudentID = p.StudentID
	}
	return &s.Students[len(s.Students)-1], nil
}

// RemoveStudent deletes a student. Removing the active student selects the
// first remaining one.
func (s *StudentsState) RemoveStudent(id string) error {
	idx := -1
	for i, st := range s.Students {
		if st.StudentID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrStudentNotFound, id)
	}
	s.Students = append(s.Students[:idx], s.Students[idx+1:]...)
	if s.ActiveStudentID == id {
		s.ActiveStudentID = ""
		if len(s.Students) > 0 {
			s.ActiveStudentID = s.Students[0].StudentID
		}
	}
	return nil
}

// SetActive selects the active student.
func (s *StudentsState) SetActive(id string) error {
	if s.Student(id) == nil {
		return fmt.Errorf("%w: %s", ErrStudentNotFound, id)
	}
	s.ActiveStudentID = id
	return nil
}

// DisplayName is the name the tutor greets the student with.
func (p *StudentProfile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.TutorState.UserName
}
