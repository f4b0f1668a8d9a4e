package users

import (
	"context"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/haulerhq/freightdesk/model"
	"gorm.io/gorm"
)

type CreateUserOptions struct {
	Username         string
	FullName         string
	Email            string
	Password         string
	Role             string
	ClientID         uint
	IsPrimaryContact bool
	Permissions      []string
}

type UserService struct {
	userRepo UserRepository
}

func NewUserService(userRepo UserRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
	}
}

func (s *UserService) GetUserByID(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.userRepo.First(ctx, "id = ?", userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := s.userRepo.First(ctx, "username = ?", username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]*model.User, error) {
	return s.userRepo.Find(ctx, limit, offset)
}

func (s *UserService) CreateUser(ctx context.Context, opts CreateUserOptions) (*model.User, error) {
	if opts.Role != model.RoleAdmin && opts.Role != model.RoleClient {
		return nil, ErrInvalidRole
	}

	passwordHash, err := HashPassword(opts.Password)
	if err != nil {
		return nil, err
	}

	user := model.User{
		Username:         opts.Username,
		FullName:         opts.FullName,
		Email:            opts.Email,
		Password:         passwordHash,
		Role:             opts.Role,
		Active:           true,
		ClientID:         opts.ClientID,
		IsPrimaryContact: opts.IsPrimaryContact,
		Permissions:      strings.Join(opts.Permissions, ","),
	}

	var mysqlErr *mysql.MySQLError
	if err := s.userRepo.Create(ctx, &user); errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		if strings.Contains(mysqlErr.Message, "username") {
			return nil, ErrUsernameTaken
		}
		return nil, ErrEmailRegistered
	} else if err != nil {
		return nil, err
	}
	return &user, nil
}

// SetActive flips the activation flag. Role never changes after creation, so
// deactivation is the only way to retire a principal.
func (s *UserService) SetActive(ctx context.Context, userID uint, active bool) error {
	affected, err := s.userRepo.Updates(ctx, userID, map[string]interface{}{"active": active})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *UserService) UpdatePassword(ctx context.Context, userID uint, newPassword string) error {
	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	affected, err := s.userRepo.Updates(ctx, userID, map[string]interface{}{"password": passwordHash})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetPermissions replaces a client user's explicit permission set. Primary
// contacts keep implicit access regardless of this set.
func (s *UserService) SetPermissions(ctx context.Context, userID uint, perms []string) error {
	affected, err := s.userRepo.Updates(ctx, userID, map[string]interface{}{"permissions": strings.Join(perms, ",")})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}
