// Package progress persists learners and their per-book progress as a single
// JSON document (students_v1.json).
package progress

import "sort"

// SchemaVersion tags the current document layout.
const SchemaVersion = "students_v1"

// TutorStateSchema tags each tutor_state block and the legacy document.
const TutorStateSchema = "tutor_state_v1"

// StudentsState is the durable root document.
type StudentsState struct {
	Version         string           `json:"$schema"`
	ActiveStudentID string           `json:"active_student_id,omitempty"`
	Students        []StudentProfile `json:"students"`
}

// StudentProfile is one learner.
type StudentProfile struct {
	StudentID              string     `json:"student_id"`
	Name                   string     `json:"name"`
	Surname                string     `json:"surname"`
	Email                  string     `json:"email,omitempty"`
	TutorPersonaID         string     `json:"tutor_persona_id,omitempty"`
	NeedsProfileCompletion bool       `json:"needs_profile_completion"`
	CreatedAt              Timestamp  `json:"created_at"`
	UpdatedAt              Timestamp  `json:"updated_at"`
	TutorState             TutorState `json:"tutor_state"`
}

// TutorState is the per-student tutoring state. Its layout matches the legacy
// tutor_state_v1 document so migration is a straight copy.
type TutorState struct {
	Schema           string                   `json:"$schema"`
	ActiveBookID     string                   `json:"active_book_id,omitempty"`
	Progress         map[string]*BookProgress `json:"progress"`
	LibraryScanPaths []string                 `json:"library_scan_paths,omitempty"`
	UserName         string                   `json:"user_name,omitempty"`
}

// BookProgress is the record for one (student, book) pair.
type BookProgress struct {
	BookID            string `json:"book_id"`
	LastChapterNumber int    `json:"last_chapter_number"`
	LastUnitNumber    int    `json:"last_unit_number,omitempty"`
	// CurrentPointIndex is the next point to teach in LastUnitNumber.
	CurrentPointIndex int                 `json:"current_point_index"`
	CompletedChapters []int               `json:"completed_chapters"`
	CompletedUnits    []string            `json:"completed_units,omitempty"`
	ChapterAttempts   map[string][]string `json:"chapter_attempts"`
	LastSessionAt     Timestamp           `json:"last_session_at"`
}

// NewState returns an empty current-version document.
func NewState() *StudentsState {
	return &StudentsState{Version: SchemaVersion, Students: []StudentProfile{}}
}

// Student returns the student with the given id, or nil.
func (s *StudentsState) Student(id string) *StudentProfile {
	for i := range s.Students {
		if s.Students[i].StudentID == id {
			return &s.Students[i]
		}
	}
	return nil
}

// Active returns the active student, or nil.
func (s *StudentsState) Active() *StudentProfile {
	if s.ActiveStudentID == "" {
		return nil
	}
	return s.Student(s.ActiveStudentID)
}

// repair restores document invariants after decoding.
func (s *StudentsState) repair() {
	if s.Version == "" {
		s.Version = SchemaVersion
	}
	if s.Students == nil {
		s.Students = []StudentProfile{}
	}
	for i := range s.Students {
		s.Students[i].TutorState.ensure()
	}
	if s.ActiveStudentID != "" && s.Student(s.ActiveStudentID) == nil {
		s.ActiveStudentID = ""
		if len(s.Students) > 0 {
			s.ActiveStudentID = s.Students[0].StudentID
		}
	}
}

func (t *TutorState) ensure() {
	if t.Schema == "" {
		t.Schema = TutorStateSchema
	}
	if t.Progress == nil {
		t.Progress = map[string]*BookProgress{}
	}
	for id, bp := range t.Progress {
		if bp == nil {
			bp = &BookProgress{}
			t.Progress[id] = bp
		}
		bp.ensure(id)
	}
}

func (b *BookProgress) ensure(bookID string) {
	if b.BookID == "" {
		b.BookID = bookID
	}
	if b.CompletedChapters == nil {
		b.CompletedChapters = []int{}
	}
	if b.ChapterAttempts == nil {
		b.ChapterAttempts = map[string][]string{}
	}
}

// Book returns the progress record for bookID, creating it when absent.
func (p *StudentProfile) Book(bookID string) *BookProgress {
	p.TutorState.ensure()
	bp, ok := p.TutorState.Progress[bookID]
	if !ok {
		bp = &BookProgress{}
		bp.ensure(bookID)
		p.TutorState.Progress[bookID] = bp
	}
	return bp
}

// HasCompletedChapter reports whether chapter n is completed.
func (b *BookProgress) HasCompletedChapter(n int) bool {
	for _, c := range b.CompletedChapters {
		if c == n {
			return true
		}
	}
	return false
}

// CompleteChapter adds n to the completed set, keeping it sorted.
func (b *BookProgress) CompleteChapter(n int) {
	if b.HasCompletedChapter(n) {
		return
	}
	b.CompletedChapters = append(b.CompletedChapters, n)
	sort.Ints(b.CompletedChapters)
}

// HasCompletedUnit reports whether unitID is completed.
func (b *BookProgress) HasCompletedUnit(unitID string) bool {
	for _, u := range b.CompletedUnits {
		if u == unitID {
			return true
		}
	}
	return false
}

// CompleteUnit records unitID as completed.
func (b *BookProgress) CompleteUnit(unitID string) {
	if !b.HasCompletedUnit(unitID) {
		b.CompletedUnits = append(b.CompletedUnits, unitID)
	}
}

// RecordChapterAttempt appends an exam attempt id under its exam set.
// Recording the same id twice is a no-op.
func (b *BookProgress) RecordChapterAttempt(examSetID, attemptID string) {
	b.ensure(b.BookID)
	key := examSetID
	for _, id := range b.ChapterAttempts[key] {
		if id == attemptID {
			return
		}
	}
	b.ChapterAttempts[key] = append(b.ChapterAttempts[key], attemptID)
}
