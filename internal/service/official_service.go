package service

import (
	"context"
	"database/sql"

	"github.com/anshumansaged/kyokushin--sub000/internal/store"
	users "github.com/anshumansaged/kyokushin--sub000/internal/user"
	"github.com/anshumansaged/kyokushin--sub000/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/markbates/goth"
)

type OfficialService struct {
	db    *sqlx.DB
	store *store.UserStore
}

func NewOfficialService(db *sqlx.DB, store *store.UserStore) *OfficialService {
	return &OfficialService{db: db, store: store}
}

// FindOrCreateOfficialByProvider resolves an OAuth login to an official's
// account. New accounts come in as referees; promotion to admin is a
// manual operation on the users table.
func (s *OfficialService) FindOrCreateOfficialByProvider(ctx context.Context, gothUser goth.User) (*users.User, error) {
	user, err := s.store.GetUserByProvider(ctx, gothUser.Provider, gothUser.UserID)

	if err == nil {
		if utils.OrZero(user.AvatarURL) != gothUser.AvatarURL || user.Username != gothUser.NickName {
			user.AvatarURL = &gothUser.AvatarURL
			s.store.UpdateUserNameAndAvatar(ctx, user)
		}
		return user, nil
	}

	if err == sql.ErrNoRows {
		newUser := &users.User{
			ID:         uuid.New(),
			Email:      gothUser.Email,
			Username:   gothUser.Name,
			Role:       users.RoleReferee,
			Provider:   &gothUser.Provider,
			ProviderID: &gothUser.UserID,
			AvatarURL:  &gothUser.AvatarURL,
		}
		err := s.store.CreateUser(ctx, newUser)
		return newUser, err
	}

	return nil, err
}

// EnsureAdminUser seeds the built-in tournament admin so a fresh install
// has an account that can create brackets.
func (s *OfficialService) EnsureAdminUser(ctx context.Context) (*users.User, error) {
	adminID := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	user, err := s.store.GetUser(ctx, adminID)
	if err == nil {
		return user, nil
	}

	if err == sql.ErrNoRows {
		adminUser := &users.User{
			ID:       adminID,
			Email:    "admin@kyokushin.local",
			Username: "Tournament Admin",
			Role:     users.RoleAdmin,
		}
		err := s.store.CreateUser(ctx, adminUser)
		return adminUser, err
	}
	return nil, err
}
