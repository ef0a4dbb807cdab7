package user

import (
	"context"

	"github.com/shuleapp/shule/core/assignment"
	"github.com/shuleapp/shule/core/notification"
)

// Directory adapts a user Repository to the lookup interfaces consumed by the
// notification and assignment services.
type Directory struct {
	repo Repository
}

var (
	_ notification.Directory      = (*Directory)(nil)
	_ assignment.TeacherDirectory = (*Directory)(nil)
)

func NewDirectory(repo Repository) *Directory {
	return &Directory{repo: repo}
}

func (d *Directory) GetRecipient(ctx context.Context, userID string) (notification.Recipient, error) {
	usr, err := d.repo.GetUserByID(ctx, userID)
	if err != nil {
		return notification.Recipient{}, err
	}
	return notification.Recipient{Name: usr.Name, Email: usr.Email}, nil
}

func (d *Directory) TeacherCourse(ctx context.Context, teacherID string) (string, error) {
	usr, err := d.repo.GetUserByID(ctx, teacherID)
	if err != nil {
		if err == ErrNotFound {
			return "", assignment.ErrTeacherNotFound
		}
		return "", err
	}
	if !usr.IsTeacher() {
		return "", assignment.ErrTeacherNotFound
	}
	return usr.Course, nil
}
