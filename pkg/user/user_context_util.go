package user

import (
	"context"

	"github.com/orcaust/orcaust/internal/apperror"
	log "github.com/sirupsen/logrus"
)

type contextKey string

const UserKey contextKey = "user"

var ErrNoUser = apperror.New(apperror.Unauthenticated, "user not found")
var ErrAdminRequired = apperror.New(apperror.PermissionDenied, "only administrators can perform this action")

func CurrentUser(ctx context.Context) (User, error) {
	user, ok := ctx.Value(UserKey).(User)
	if !ok {
		log.Trace("user not found in context")
		return User{}, ErrNoUser
	}
	return user, nil
}

// CurrentAdmin returns the current user when it has the admin role.
func CurrentAdmin(ctx context.Context) (User, error) {
	user, err := CurrentUser(ctx)
	if err != nil {
		return User{}, err
	}
	if !user.Admin {
		log.Debugf("user %d is not an administrator", user.Id)
		return User{}, ErrAdminRequired
	}
	return user, nil
}

func WithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}
