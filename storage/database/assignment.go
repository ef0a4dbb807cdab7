package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/shuleapp/shule/core/assignment"
)

type assignmentRepository struct {
	db *gorm.DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *gorm.DB) *assignmentRepository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	a.ID = uuid.New().String()
	row := rowFromAssignment(a)
	if err := repo.db.WithContext(ctx).Create(&row).Error; err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return row.domain(), nil
}

func (repo *assignmentRepository) GetAssignmentByID(ctx context.Context, id string) (assignment.Assignment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	var row assignmentRow
	if err := repo.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return assignment.Assignment{}, assignment.ErrNotFound
		}
		return assignment.Assignment{}, errors.Wrap(err, "finding assignment")
	}
	return row.domain(), nil
}

func (repo *assignmentRepository) FilterAssignments(ctx context.Context, filter assignment.Filter) ([]assignment.Assignment, error) {
	q := repo.db.WithContext(ctx).Model(&assignmentRow{})

	if filter.TeacherID != "" {
		q = q.Where("teacher_id = ?", filter.TeacherID)
	}
	if filter.Subject != "" {
		q = q.Where("lower(subject) = lower(?)", filter.Subject)
	}
	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}
	if !filter.DueAfter.IsZero() {
		q = q.Where("due_date >= ?", filter.DueAfter)
	}
	if !filter.DueBefore.IsZero() {
		q = q.Where("due_date <= ?", filter.DueBefore)
	}

	var rows []assignmentRow
	if err := q.Order("due_date").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	out := make([]assignment.Assignment, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.domain())
	}
	return out, nil
}

func (repo *assignmentRepository) UpdateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	row := rowFromAssignment(a)
	res := repo.db.WithContext(ctx).Model(&assignmentRow{}).
		Where("id = ?", a.ID).
		Select("*").Omit("id", "created_at").
		Updates(&row)
	if res.Error != nil {
		return assignment.Assignment{}, errors.Wrap(res.Error, "updating assignment")
	}
	if res.RowsAffected == 0 {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	return row.domain(), nil
}

func (repo *assignmentRepository) DeleteAssignment(ctx context.Context, id string) error {
	// submissions cascade in the same transaction
	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&submissionRow{}, "assignment_id = ?", id).Error; err != nil {
			return errors.Wrap(err, "deleting submissions")
		}
		if err := tx.Delete(&assignmentRow{}, "id = ?", id).Error; err != nil {
			return errors.Wrap(err, "deleting assignment")
		}
		return nil
	})
}

func (repo *assignmentRepository) GetSubmission(ctx context.Context, assignmentID, studentID string) (assignment.Submission, error) {
	var row submissionRow
	err := repo.db.WithContext(ctx).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return assignment.Submission{}, assignment.ErrSubmissionNotFound
		}
		return assignment.Submission{}, errors.Wrap(err, "finding submission")
	}
	return row.domain(), nil
}

func (repo *assignmentRepository) GetSubmissionByID(ctx context.Context, id string) (assignment.Submission, error) {
	if _, err := uuid.Parse(id); err != nil {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}
	var row submissionRow
	if err := repo.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return assignment.Submission{}, assignment.ErrSubmissionNotFound
		}
		return assignment.Submission{}, errors.Wrap(err, "finding submission by ID")
	}
	return row.domain(), nil
}

func (repo *assignmentRepository) UpsertSubmission(ctx context.Context, s assignment.Submission) (assignment.Submission, error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
		row := rowFromSubmission(s)
		if err := repo.db.WithContext(ctx).Create(&row).Error; err != nil {
			return assignment.Submission{}, errors.Wrap(err, "inserting submission")
		}
		return row.domain(), nil
	}

	row := rowFromSubmission(s)
	res := repo.db.WithContext(ctx).Model(&submissionRow{}).
		Where("id = ?", s.ID).
		Select("*").Omit("id", "assignment_id", "student_id", "created_at").
		Updates(&row)
	if res.Error != nil {
		return assignment.Submission{}, errors.Wrap(res.Error, "updating submission")
	}
	if res.RowsAffected == 0 {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}
	return row.domain(), nil
}

func (repo *assignmentRepository) FilterSubmissions(ctx context.Context, assignmentID string) ([]assignment.Submission, error) {
	var rows []submissionRow
	err := repo.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("submitted_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	out := make([]assignment.Submission, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.domain())
	}
	return out, nil
}

func (repo *assignmentRepository) SubmittedStudentIDs(ctx context.Context, assignmentID string) ([]string, error) {
	var ids []string
	err := repo.db.WithContext(ctx).Model(&submissionRow{}).
		Where("assignment_id = ?", assignmentID).
		Pluck("student_id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "querying submitted students")
	}
	return ids, nil
}
