package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/shuleapp/shule/core"
)

var (
	// errors
	ErrNotFound             = errors.New("user not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrEmailExists          = errors.New("a user with this email already exists")
	ErrUsernameExists       = errors.New("a user with this username already exists")
	// ErrSubjectTaken signals the single-active-teacher-per-subject rule.
	ErrSubjectTaken = errors.New("an active teacher already exists for this subject")
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		// CreateTeacherExclusive inserts a teacher and fails with ErrSubjectTaken
		// if an active teacher already holds the subject (case-insensitive).
		// The check and the insert run as one transaction; a store-level unique
		// constraint backs the guarantee under concurrent approvals.
		CreateTeacherExclusive(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByUsernameOrEmail(ctx context.Context, username string) (User, error)
		FilterUsers(ctx context.Context, filter QueryFilter) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...string) error

		CreateRegistration(ctx context.Context, reg PendingRegistration) (PendingRegistration, error)
		GetRegistration(ctx context.Context, id string) (PendingRegistration, error)
		DeleteRegistration(ctx context.Context, id string) error
	}

	Service struct {
		repo  Repository
		audit core.AuditLogger
		clock core.Clock
	}
)

func NewService(repo Repository, audit core.AuditLogger, clock core.Clock) *Service {
	return &Service{repo: repo, audit: audit, clock: clock}
}

func (svc *Service) checkUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, email, exclUsers...); err != nil {
		var field string
		switch err {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

// Register stages a registration for later admission.
func (svc *Service) Register(ctx context.Context, nr NewRegistration) (PendingRegistration, error) {
	if err := svc.checkUniqueness(ctx, nr.Username, nr.Email); err != nil {
		return PendingRegistration{}, err
	}
	reg := PendingRegistration{
		Name:      nr.Name,
		Username:  nr.Username,
		Email:     nr.Email,
		Role:      nr.Role,
		Subject:   nr.Subject,
		Course:    nr.Course,
		CreatedAt: svc.clock.Now(),
	}
	var usr User
	if err := usr.SetPassword(nr.Password); err != nil {
		return PendingRegistration{}, err
	}
	reg.PasswordHash = usr.PasswordHash
	return svc.repo.CreateRegistration(ctx, reg)
}

// ApproveRegistration admits a pending registration as an active User.
// Teacher admissions enforce the single-active-teacher-per-subject invariant.
func (svc *Service) ApproveRegistration(ctx context.Context, regID string) (User, error) {
	reg, err := svc.repo.GetRegistration(ctx, regID)
	if err != nil {
		return User{}, err
	}
	if err = svc.checkUniqueness(ctx, reg.Username, reg.Email); err != nil {
		return User{}, err
	}

	now := svc.clock.Now()
	usr := User{
		Name:         reg.Name,
		Username:     reg.Username,
		Email:        reg.Email,
		Role:         reg.Role,
		Subject:      reg.Subject,
		Course:       reg.Course,
		IsActive:     true,
		PasswordHash: reg.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if usr.IsTeacher() && usr.Subject != "" {
		usr, err = svc.repo.CreateTeacherExclusive(ctx, usr)
	} else {
		usr, err = svc.repo.CreateUser(ctx, usr)
	}
	if err != nil {
		return User{}, err
	}
	if err = svc.repo.DeleteRegistration(ctx, reg.ID); err != nil {
		return User{}, err
	}

	svc.audit.Log(ctx, usr.ID, "registration.approved",
		fmt.Sprintf("registration %s approved as %s %q", reg.ID, usr.Role, usr.Username), nil)
	return usr, nil
}

// RejectRegistration discards a pending registration.
func (svc *Service) RejectRegistration(ctx context.Context, regID string) error {
	reg, err := svc.repo.GetRegistration(ctx, regID)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteRegistration(ctx, reg.ID); err != nil {
		return err
	}
	svc.audit.Log(ctx, "", "registration.rejected",
		fmt.Sprintf("registration %s (%s %q) rejected", reg.ID, reg.Role, reg.Username), nil)
	return nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]User, error) {
	filter.Clean()
	return svc.repo.FilterUsers(ctx, filter)
}

// SetActive toggles a user's status.
func (svc *Service) SetActive(ctx context.Context, id string, active bool) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	usr.IsActive = active
	usr.UpdatedAt = svc.clock.Now()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = svc.clock.Now()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteUsersByID(ctx, ids...)
}
