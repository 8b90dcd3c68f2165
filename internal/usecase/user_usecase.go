package usecase

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/iho/walletledger/internal/domain"
)

// UserUseCase registers users and signs them in. Email and password format are
// checked by the transport layer before these calls.
type UserUseCase struct {
	users    UserStore
	tokens   TokenIssuer
	idGen    IDGenerator
	hashCost int
}

// NewUserUseCase creates a new UserUseCase.
func NewUserUseCase(users UserStore, tokens TokenIssuer, idGen IDGenerator) *UserUseCase {
	return &UserUseCase{
		users:    users,
		tokens:   tokens,
		idGen:    idGen,
		hashCost: bcrypt.DefaultCost,
	}
}

// WithHashCost overrides the bcrypt cost.
func (uc *UserUseCase) WithHashCost(cost int) *UserUseCase {
	if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
		uc.hashCost = cost
	}
	return uc
}

// RegisterInput is the data needed to create a user.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates a user with a bcrypt-hashed password. The returned user has no hash.
func (uc *UserUseCase) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	email := domain.NormalizeEmail(input.Email)

	_, err := uc.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, domain.ErrUserAlreadyExists
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, domain.StorageFailure("register", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), uc.hashCost)
	if err != nil {
		return nil, err
	}

	user := domain.NewUser(uc.idGen.Generate(), email, input.FirstName, input.LastName, string(hash), time.Now())
	if err := uc.users.Create(ctx, user); err != nil {
		return nil, domain.StorageFailure("register", err)
	}
	return user.Public(), nil
}

// Login checks the password and issues a token whose subject is the user id.
func (uc *UserUseCase) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := uc.users.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, domain.StorageFailure("login", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := uc.tokens.Generate(user.ID)
	if err != nil {
		return "", nil, err
	}
	return token, user.Public(), nil
}
