package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/shuleapp/shule/core"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

var AllRoles = []string{RoleAdmin, RoleTeacher, RoleStudent}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	Subject      string    `json:"subject,omitempty"` // teacher specialization
	Course       string    `json:"course,omitempty"`  // student cohort tag
	IsActive     bool      `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u *User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u *User) IsStudent() bool { return u.Role == RoleStudent }

// PendingRegistration is a staged User awaiting admission.
// It is consumed (deleted) on approval or rejection.
type PendingRegistration struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	Subject      string    `json:"subject,omitempty"`
	Course       string    `json:"course,omitempty"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
}

// NewRegistration contains information needed to stage a registration.
type NewRegistration struct {
	Name            string `json:"name" validate:"required"`
	Username        string `json:"username" validate:"required,min=6,alphanum_"`
	Email           string `json:"email" validate:"required,email"`
	Role            string `json:"role" validate:"required,oneof=admin teacher student"`
	Subject         string `json:"subject" validate:"omitempty"`
	Course          string `json:"course" validate:"omitempty"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nr *NewRegistration) Validate(validate *validator.Validate) error {
	nr.Name = core.CleanString(nr.Name)
	nr.Username = core.CleanString(nr.Username, true /* lower */)
	nr.Email = core.CleanString(nr.Email, true /* lower */)
	nr.Role = core.CleanString(nr.Role, true /* lower */)
	nr.Subject = core.CleanString(nr.Subject)
	nr.Course = core.CleanString(nr.Course)
	return validate.Struct(nr)
}

// QueryFilter applies AND on its non-zero fields.
// Course and Subject match case-insensitively.
type QueryFilter struct {
	Search   string `query:"search"`
	Role     string `query:"role"`
	IsActive *bool  `query:"is_active"`
	Course   string `query:"course"`
	Subject  string `query:"subject"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && qf.IsActive == nil && qf.Course == "" && qf.Subject == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
	qf.Course = core.CleanString(qf.Course)
	qf.Subject = core.CleanString(qf.Subject)
}
