package service

import (
	"context"

	"github.com/marmos91/vaultfs/internal/logger"
	"github.com/marmos91/vaultfs/pkg/resource"
	"golang.org/x/crypto/bcrypt"
)

// Accounts provisions user accounts. Registration creates the account plus
// the two folders every other operation depends on: the root folder (named
// by the user's ID) and the fixed Shared folder.
type Accounts struct {
	store resource.Store
}

// NewAccounts creates an account service over the given store.
func NewAccounts(store resource.Store) *Accounts {
	return &Accounts{store: store}
}

// Register creates a new account with a bcrypt-hashed password and
// provisions its namespace. Username and email must be unique.
func (a *Accounts) Register(ctx context.Context, username, email, password string) (*resource.User, error) {
	if username == "" {
		return nil, resource.ErrInvalidPath(username)
	}

	existing, err := a.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, resource.ErrAlreadyExists(username)
	}

	if email != "" {
		existing, err = a.store.GetUserByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, resource.ErrAlreadyExists(email)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user, err := a.store.SaveUser(ctx, &resource.User{
		Username: username,
		Email:    email,
		Password: string(hash),
	})
	if err != nil {
		return nil, err
	}

	root, err := a.store.SaveFolder(ctx, &resource.Folder{
		Name:    user.ID,
		OwnerID: user.ID,
		Privacy: resource.PrivacyPrivate,
		Type:    resource.FolderNormal,
	})
	if err != nil {
		return nil, err
	}

	_, err = a.store.SaveFolder(ctx, &resource.Folder{
		Name:     SharedFolderName,
		ParentID: root.ID,
		OwnerID:  user.ID,
		Privacy:  resource.PrivacyPrivate,
		Type:     resource.FolderShared,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Registered user %s", username)
	return user, nil
}

// Authenticate checks a username/password pair against the stored hash and
// returns the account on success.
func (a *Accounts) Authenticate(ctx context.Context, username, password string) (*resource.User, error) {
	user, err := a.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, resource.ErrForbidden("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, resource.ErrForbidden("invalid credentials")
	}
	return user, nil
}
