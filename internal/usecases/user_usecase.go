package usecases

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/your-org/todostack/internal/clock"
	"github.com/your-org/todostack/internal/domain"
)

// NewUser is the input of UserUsecase.Create
type NewUser struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// UserConfig holds the password policy
type UserConfig struct {
	MinPasswordLength int
	BcryptCost        int
}

// UserUsecase manages accounts and verifies credentials
type UserUsecase struct {
	repo   domain.UserRepository
	clock  clock.Clock
	config UserConfig
	logger *zap.Logger
}

// NewUserUsecase creates a new user usecase
func NewUserUsecase(repo domain.UserRepository, clk clock.Clock, config UserConfig, logger *zap.Logger) *UserUsecase {
	if clk == nil {
		clk = clock.Real{}
	}
	if config.MinPasswordLength <= 0 {
		config.MinPasswordLength = 8
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &UserUsecase{
		repo:   repo,
		clock:  clk,
		config: config,
		logger: logger,
	}
}

func userNotFound() error { return domain.NewError(domain.ErrNotFound, "User not found") }

func duplicateEmail() error {
	return domain.NewError(domain.ErrConflict, "A user with this email already exists")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *UserUsecase) hash(password string) (string, error) {
	if utf8.RuneCountInString(password) < u.config.MinPasswordLength {
		return "", domain.NewError(domain.ErrValidation, "Password must be at least %d characters", u.config.MinPasswordLength)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), u.config.BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", domain.NewError(domain.ErrValidation, "Password is too long")
		}
		return "", err
	}
	return string(h), nil
}

// List returns every account without password hashes
func (u *UserUsecase) List(ctx context.Context) ([]*domain.PublicUser, error) {
	doc, err := u.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.PublicUser, 0, len(doc.Users))
	for _, user := range doc.Users {
		out = append(out, user.Public())
	}
	return out, nil
}

// Get returns one account
func (u *UserUsecase) Get(ctx context.Context, id string) (*domain.PublicUser, error) {
	doc, err := u.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	user, _ := doc.FindByID(id)
	if user == nil {
		return nil, userNotFound()
	}
	return user.Public(), nil
}

// HasUsers reports whether at least one account exists
func (u *UserUsecase) HasUsers(ctx context.Context) (bool, error) {
	doc, err := u.repo.Load(ctx)
	if err != nil {
		return false, err
	}
	return len(doc.Users) > 0, nil
}

// Create adds a regular account
func (u *UserUsecase) Create(ctx context.Context, in NewUser) (*domain.PublicUser, error) {
	return u.create(ctx, in, false)
}

// Setup creates the first account as super admin. It fails with
// ErrForbidden once any account exists.
func (u *UserUsecase) Setup(ctx context.Context, in NewUser) (*domain.PublicUser, error) {
	in.Role = domain.RoleAdmin
	return u.create(ctx, in, true)
}

func (u *UserUsecase) create(ctx context.Context, in NewUser, setup bool) (*domain.PublicUser, error) {
	email := normalizeEmail(in.Email)
	if !domain.ValidEmail(email) {
		return nil, domain.NewError(domain.ErrValidation, "Invalid email format")
	}
	if !in.Role.Valid() {
		return nil, domain.NewError(domain.ErrValidation, "Invalid role")
	}
	hash, err := u.hash(in.Password)
	if err != nil {
		return nil, err
	}

	var created *domain.User
	err = u.repo.Update(ctx, func(doc *domain.UserDocument) error {
		if setup && len(doc.Users) > 0 {
			return domain.NewError(domain.ErrForbidden, "Setup has already been completed")
		}
		if doc.FindByEmail(email) != nil {
			return duplicateEmail()
		}
		now := u.clock.Now()
		created = &domain.User{
			ID:           uuid.NewString(),
			Name:         strings.TrimSpace(in.Name),
			Email:        email,
			PasswordHash: hash,
			Role:         in.Role,
			IsSuperAdmin: setup,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		doc.Users = append(doc.Users, created)
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.logger.Info("user created",
		zap.String("id", created.ID),
		zap.String("role", string(created.Role)),
		zap.Bool("super_admin", created.IsSuperAdmin),
	)
	return created.Public(), nil
}

// Update changes name, email or role. The super admin keeps its role.
func (u *UserUsecase) Update(ctx context.Context, id string, patch domain.UserPatch) (*domain.PublicUser, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var updated *domain.User
	err := u.repo.Update(ctx, func(doc *domain.UserDocument) error {
		user, _ := doc.FindByID(id)
		if user == nil {
			return userNotFound()
		}
		if patch.Email != nil {
			email := normalizeEmail(*patch.Email)
			if existing := doc.FindByEmail(email); existing != nil && existing.ID != id {
				return duplicateEmail()
			}
			user.Email = email
		}
		if patch.Name != nil {
			user.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Role != nil && !user.IsSuperAdmin {
			user.Role = *patch.Role
		}
		user.UpdatedAt = u.clock.Now()
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated.Public(), nil
}

// Delete removes an account. The super admin cannot be deleted.
func (u *UserUsecase) Delete(ctx context.Context, id string) error {
	err := u.repo.Update(ctx, func(doc *domain.UserDocument) error {
		user, idx := doc.FindByID(id)
		if user == nil {
			return userNotFound()
		}
		if user.IsSuperAdmin {
			return domain.NewError(domain.ErrForbidden, "Cannot delete super admin")
		}
		doc.Users = removeAt(doc.Users, idx)
		return nil
	})
	if err != nil {
		return err
	}
	u.logger.Info("user deleted", zap.String("id", id))
	return nil
}

// ChangePassword replaces the password hash of an account
func (u *UserUsecase) ChangePassword(ctx context.Context, id, password string) error {
	hash, err := u.hash(password)
	if err != nil {
		return err
	}
	return u.repo.Update(ctx, func(doc *domain.UserDocument) error {
		user, _ := doc.FindByID(id)
		if user == nil {
			return userNotFound()
		}
		user.PasswordHash = hash
		user.UpdatedAt = u.clock.Now()
		return nil
	})
}

// Authenticate checks credentials and stamps last_login_at on success.
// Unknown email and wrong password yield the same ErrUnauthorized.
func (u *UserUsecase) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	invalid := domain.NewError(domain.ErrUnauthorized, "Invalid email or password")

	doc, err := u.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	user := doc.FindByEmail(email)
	if user == nil {
		return nil, invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, invalid
	}

	var authenticated *domain.User
	err = u.repo.Update(ctx, func(doc *domain.UserDocument) error {
		current, _ := doc.FindByID(user.ID)
		if current == nil {
			return invalid
		}
		now := u.clock.Now()
		current.LastLoginAt = &now
		authenticated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return authenticated, nil
}

// EnsureSuperAdmin creates the configured super admin, or brings its email
// and password hash in line with configuration. Empty email or hash is a no-op.
func (u *UserUsecase) EnsureSuperAdmin(ctx context.Context, email, name, hash string) error {
	email = normalizeEmail(email)
	if email == "" || hash == "" {
		return nil
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return domain.NewError(domain.ErrValidation, "super admin password hash is not a bcrypt hash")
	}

	err := u.repo.Update(ctx, func(doc *domain.UserDocument) error {
		now := u.clock.Now()
		if admin := doc.SuperAdmin(); admin != nil {
			if admin.Email == email && admin.PasswordHash == hash {
				return errNoChange
			}
			if existing := doc.FindByEmail(email); existing != nil && existing.ID != admin.ID {
				return duplicateEmail()
			}
			admin.Email = email
			admin.PasswordHash = hash
			admin.UpdatedAt = now
			u.logger.Info("super admin updated from configuration", zap.String("id", admin.ID))
			return nil
		}
		if doc.FindByEmail(email) != nil {
			return duplicateEmail()
		}
		doc.Users = append(doc.Users, &domain.User{
			ID:           uuid.NewString(),
			Name:         strings.TrimSpace(name),
			Email:        email,
			PasswordHash: hash,
			Role:         domain.RoleAdmin,
			IsSuperAdmin: true,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		u.logger.Info("super admin created from configuration", zap.String("email", email))
		return nil
	})
	if errors.Is(err, errNoChange) {
		return nil
	}
	return err
}
