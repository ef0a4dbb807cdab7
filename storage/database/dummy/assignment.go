package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/shuleapp/shule/core/assignment"
)

type assignmentRepository struct {
	db *assignmentTable
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *DB) *assignmentRepository {
	return &assignmentRepository{db: db.assignment}
}

func (repo *assignmentRepository) CreateAssignment(_ context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	a.ID = uuid.New().String()
	repo.db.assignments[a.ID] = &a
	return a, nil
}

func (repo *assignmentRepository) GetAssignmentByID(_ context.Context, id string) (assignment.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.assignments[id]; ok {
		return *a, nil
	}
	return assignment.Assignment{}, assignment.ErrNotFound
}

func (repo *assignmentRepository) FilterAssignments(_ context.Context, filter assignment.Filter) ([]assignment.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var out []assignment.Assignment
	for _, a := range repo.db.assignments {
		if filter.TeacherID != "" && a.TeacherID != filter.TeacherID {
			continue
		}
		if filter.Subject != "" && !strings.EqualFold(a.Subject, filter.Subject) {
			continue
		}
		if filter.IsActive != nil && a.IsActive != *filter.IsActive {
			continue
		}
		if !filter.DueAfter.IsZero() && a.DueDate.Before(filter.DueAfter) {
			continue
		}
		if !filter.DueBefore.IsZero() && a.DueDate.After(filter.DueBefore) {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (repo *assignmentRepository) UpdateAssignment(_ context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.assignments[a.ID]; !ok {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	repo.db.assignments[a.ID] = &a
	return a, nil
}

func (repo *assignmentRepository) DeleteAssignment(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.assignments, id)
	for sid, s := range repo.db.submissions {
		if s.AssignmentID == id {
			delete(repo.db.submissions, sid)
		}
	}
	return nil
}

func (repo *assignmentRepository) GetSubmission(_ context.Context, assignmentID, studentID string) (assignment.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, s := range repo.db.submissions {
		if s.AssignmentID == assignmentID && s.StudentID == studentID {
			return *s, nil
		}
	}
	return assignment.Submission{}, assignment.ErrSubmissionNotFound
}

func (repo *assignmentRepository) GetSubmissionByID(_ context.Context, id string) (assignment.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.submissions[id]; ok {
		return *s, nil
	}
	return assignment.Submission{}, assignment.ErrSubmissionNotFound
}

func (repo *assignmentRepository) UpsertSubmission(_ context.Context, s assignment.Submission) (assignment.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if s.ID == "" {
		// one submission per (assignment, student), like the real store's
		// unique index
		for _, existing := range repo.db.submissions {
			if existing.AssignmentID == s.AssignmentID && existing.StudentID == s.StudentID {
				s.ID = existing.ID
				break
			}
		}
		if s.ID == "" {
			s.ID = uuid.New().String()
		}
	} else if _, ok := repo.db.submissions[s.ID]; !ok {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}
	repo.db.submissions[s.ID] = &s
	return s, nil
}

func (repo *assignmentRepository) FilterSubmissions(_ context.Context, assignmentID string) ([]assignment.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var out []assignment.Submission
	for _, s := range repo.db.submissions {
		if s.AssignmentID == assignmentID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out, nil
}

func (repo *assignmentRepository) SubmittedStudentIDs(_ context.Context, assignmentID string) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var ids []string
	for _, s := range repo.db.submissions {
		if s.AssignmentID == assignmentID {
			ids = append(ids, s.StudentID)
		}
	}
	return ids, nil
}
