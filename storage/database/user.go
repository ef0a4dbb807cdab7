package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shuleapp/shule/core/user"
)

type userRepository struct {
	db *gorm.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *gorm.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	q := repo.db.WithContext(ctx).Model(&userRow{}).
		Where("username = ? OR email = ?", username, email)
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		q = q.Where("id NOT IN ?", ids)
	}

	var rows []userRow
	if err := q.Find(&rows).Error; err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, r := range rows {
		if r.Username == username {
			return user.ErrUsernameExists
		}
	}
	if len(rows) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	row := rowFromUser(usr)
	if err := repo.db.WithContext(ctx).Create(&row).Error; err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return row.domain(), nil
}

func (repo *userRepository) CreateTeacherExclusive(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	row := rowFromUser(usr)

	// Check and insert run as one transaction; existing teacher rows for the
	// subject are locked so concurrent approvals serialize. The partial unique
	// index on (lower(subject)) backs this as a hard guarantee.
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []userRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("role = ? AND is_active AND lower(subject) = lower(?)", user.RoleTeacher, usr.Subject).
			Find(&existing).Error
		if err != nil {
			return errors.Wrap(err, "checking teacher subject exclusivity")
		}
		if len(existing) > 0 {
			return user.ErrSubjectTaken
		}
		if err = tx.Create(&row).Error; err != nil {
			return errors.Wrap(err, "inserting teacher")
		}
		return nil
	})
	if err != nil {
		return user.User{}, err
	}
	return row.domain(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}
	var row userRow
	err := repo.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		return user.User{}, repo.trapNotFound(err, "finding user by ID", user.ErrNotFound)
	}
	return row.domain(), nil
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	var row userRow
	err := repo.db.WithContext(ctx).
		Where("username = ? OR email = ?", username, username).
		First(&row).Error
	if err != nil {
		return user.User{}, repo.trapNotFound(err, "finding user", user.ErrNotFound)
	}
	return row.domain(), nil
}

func (repo *userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	q := repo.db.WithContext(ctx).Model(&userRow{})

	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		q = q.Where("name ILIKE ? OR username ILIKE ? OR email ILIKE ?", val, val, val)
	}
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}
	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Course != "" {
		q = q.Where("lower(course) = lower(?)", filter.Course)
	}
	if filter.Subject != "" {
		q = q.Where("lower(subject) = lower(?)", filter.Subject)
	}

	var rows []userRow
	if err := q.Order("created_at").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.domain())
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	row := rowFromUser(usr)
	res := repo.db.WithContext(ctx).Model(&userRow{}).
		Where("id = ?", usr.ID).
		Select("*").Omit("id", "created_at").
		Updates(&row)
	if res.Error != nil {
		return user.User{}, errors.Wrap(res.Error, "updating user")
	}
	if res.RowsAffected == 0 {
		return user.User{}, user.ErrNotFound
	}
	return row.domain(), nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if err := repo.db.WithContext(ctx).Delete(&userRow{}, "id IN ?", ids).Error; err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}

func (repo *userRepository) CreateRegistration(ctx context.Context, reg user.PendingRegistration) (user.PendingRegistration, error) {
	reg.ID = uuid.New().String()
	row := rowFromRegistration(reg)
	if err := repo.db.WithContext(ctx).Create(&row).Error; err != nil {
		return user.PendingRegistration{}, errors.Wrap(err, "inserting registration")
	}
	return row.domain(), nil
}

func (repo *userRepository) GetRegistration(ctx context.Context, id string) (user.PendingRegistration, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.PendingRegistration{}, user.ErrRegistrationNotFound
	}
	var row registrationRow
	err := repo.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		return user.PendingRegistration{}, repo.trapNotFound(err, "finding registration", user.ErrRegistrationNotFound)
	}
	return row.domain(), nil
}

func (repo *userRepository) DeleteRegistration(ctx context.Context, id string) error {
	if err := repo.db.WithContext(ctx).Delete(&registrationRow{}, "id = ?", id).Error; err != nil {
		return errors.Wrap(err, "deleting registration")
	}
	return nil
}

// trapNotFound maps gorm's "record not found" err to the domain sentinel.
func (repo *userRepository) trapNotFound(err error, msg string, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return errors.Wrap(err, msg)
}
