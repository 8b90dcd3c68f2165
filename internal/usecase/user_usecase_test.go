package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"github.com/iho/walletledger/internal/domain"
	"github.com/iho/walletledger/internal/usecase"
	"github.com/iho/walletledger/internal/usecase/mocks"
)

type userMocks struct {
	users  *mocks.MockUserStore
	tokens *mocks.MockTokenIssuer
	idGen  *mocks.MockIDGenerator
}

func newUserUseCase(t *testing.T) (*usecase.UserUseCase, *userMocks) {
	ctrl := gomock.NewController(t)
	m := &userMocks{
		users:  mocks.NewMockUserStore(ctrl),
		tokens: mocks.NewMockTokenIssuer(ctrl),
		idGen:  mocks.NewMockIDGenerator(ctrl),
	}
	m.idGen.EXPECT().Generate().Return("01HZX0000000000000000000US").AnyTimes()
	return usecase.NewUserUseCase(m.users, m.tokens, m.idGen).WithHashCost(bcrypt.MinCost), m
}

func storedUser(t *testing.T, password string) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return domain.NewUser("01HZX0000000000000000000US", "jadendoe@example.com", "Jaden", "Doe", string(hash), time.Now())
}

func TestUserUseCase_Register(t *testing.T) {
	input := usecase.RegisterInput{Email: " JadenDoe@Example.com", Password: "password123", FirstName: "Jaden", LastName: "Doe"}

	t.Run("hashes the password", func(t *testing.T) {
		uc, m := newUserUseCase(t)
		var stored *domain.User
		m.users.EXPECT().GetByEmail(gomock.Any(), "jadendoe@example.com").Return(nil, domain.ErrUserNotFound)
		m.users.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *domain.User) error {
			stored = u
			return nil
		})

		user, err := uc.Register(context.Background(), input)
		require.NoError(t, err)
		assert.Equal(t, "01HZX0000000000000000000US", user.ID)
		assert.Equal(t, "jadendoe@example.com", user.Email)
		assert.Empty(t, user.PasswordHash)

		require.NotNil(t, stored)
		assert.NotEqual(t, "password123", stored.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("password123")))
	})

	t.Run("email already registered", func(t *testing.T) {
		uc, m := newUserUseCase(t)
		m.users.EXPECT().GetByEmail(gomock.Any(), "jadendoe@example.com").Return(storedUser(t, "password123"), nil)

		_, err := uc.Register(context.Background(), input)
		assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
	})

	t.Run("lost race on the unique email", func(t *testing.T) {
		uc, m := newUserUseCase(t)
		m.users.EXPECT().GetByEmail(gomock.Any(), gomock.Any()).Return(nil, domain.ErrUserNotFound)
		m.users.EXPECT().Create(gomock.Any(), gomock.Any()).Return(domain.ErrUserAlreadyExists)

		_, err := uc.Register(context.Background(), input)
		assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
	})

	t.Run("storage error", func(t *testing.T) {
		uc, m := newUserUseCase(t)
		m.users.EXPECT().GetByEmail(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused"))

		_, err := uc.Register(context.Background(), input)
		assert.Equal(t, domain.KindStorageFailure, domain.KindOf(err))
	})
}

func TestUserUseCase_Login(t *testing.T) {
	t.Run("issues a token for the user id", func(t *testing.T) {
		uc, m := newUserUseCase(t)
		m.users.EXPECT().GetByEmail(gomock.Any(), "jadendoe@example.com").Return(storedUser(t, "password123"), nil)
		m.tokens.EXPECT().Generate("01HZX0000000000000000000US").Return("signed-token", nil)

		token, user, err := uc.Login(context.Background(), "JadenDoe@example.com ", "password123")
		require.NoError(t, err)
		assert.Equal(t, "signed-token", token)
		assert.Equal(t, "01HZX0000000000000000000US", user.ID)
		assert.Empty(t, user.PasswordHash)
	})

	t.Run("wrong password", func(t *testing.T) {
		uc, m := newUserUseCase(t)
		m.users.EXPECT().GetByEmail(gomock.Any(), gomock.Any()).Return(storedUser(t, "password123"), nil)

		_, _, err := uc.Login(context.Background(), "jadendoe@example.com", "password124")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		uc, m := newUserUseCase(t)
		m.users.EXPECT().GetByEmail(gomock.Any(), gomock.Any()).Return(nil, domain.ErrUserNotFound)

		_, _, err := uc.Login(context.Background(), "nobody@example.com", "password123")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("token failure", func(t *testing.T) {
		uc, m := newUserUseCase(t)
		m.users.EXPECT().GetByEmail(gomock.Any(), gomock.Any()).Return(storedUser(t, "password123"), nil)
		m.tokens.EXPECT().Generate(gomock.Any()).Return("", errors.New("signing failed"))

		_, _, err := uc.Login(context.Background(), "jadendoe@example.com", "password123")
		assert.Error(t, err)
	})
}
