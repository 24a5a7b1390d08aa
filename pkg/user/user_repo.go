package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orcaust/orcaust/internal/apperror"
	"github.com/orcaust/orcaust/internal/database"
	log "github.com/sirupsen/logrus"
)

var ErrUserNotFound = apperror.New(apperror.NotFound, "user not found")
var ErrUsernameTaken = apperror.New(apperror.Conflict, "username already exists")

type Repo interface {
	CreateUser(ctx context.Context, user User) (int, error)
	GetUser(ctx context.Context, id int) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	SetAdmin(ctx context.Context, id int, admin bool) error
	HasAdmin(ctx context.Context) (bool, error)
}

type UserRepoImpl struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) *UserRepoImpl {
	return &UserRepoImpl{db: db}
}

func (u *UserRepoImpl) CreateUser(ctx context.Context, user User) (int, error) {
	query := `INSERT INTO users (username, password_hash, email, admin) VALUES ($1, $2, $3, $4) RETURNING id`
	var id int
	err := database.Conn(ctx, u.db).QueryRow(ctx, query,
		user.Username,
		user.PasswordHash,
		sql.NullString{String: user.Email, Valid: user.Email != ""},
		user.Admin,
	).Scan(&id)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return 0, ErrUsernameTaken
		}
		log.Errorf("failed to create user: %v", err)
		return 0, err
	}
	return id, nil
}

func (u *UserRepoImpl) GetUser(ctx context.Context, id int) (User, error) {
	query := `SELECT id, username, password_hash, email, admin FROM users WHERE id = $1`
	return u.scanOne(database.Conn(ctx, u.db).QueryRow(ctx, query, id))
}

func (u *UserRepoImpl) GetUserByUsername(ctx context.Context, username string) (User, error) {
	query := `SELECT id, username, password_hash, email, admin FROM users WHERE username = $1`
	return u.scanOne(database.Conn(ctx, u.db).QueryRow(ctx, query, username))
}

func (u *UserRepoImpl) SetAdmin(ctx context.Context, id int, admin bool) error {
	result, err := database.Conn(ctx, u.db).Exec(ctx, `UPDATE users SET admin = $1 WHERE id = $2`, admin, id)
	if err != nil {
		log.Errorf("failed to update user role: %v", err)
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (u *UserRepoImpl) HasAdmin(ctx context.Context) (bool, error) {
	var exists bool
	err := database.Conn(ctx, u.db).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE admin)`).Scan(&exists)
	if err != nil {
		log.Errorf("failed to look up administrators: %v", err)
		return false, err
	}
	return exists, nil
}

func (u *UserRepoImpl) scanOne(row pgx.Row) (User, error) {
	var user User
	var email sql.NullString
	err := row.Scan(&user.Id, &user.Username, &user.PasswordHash, &email, &user.Admin)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	} else if err != nil {
		err := fmt.Errorf("failed to get user: %w", err)
		log.Error(err)
		return User{}, err
	}
	user.Email = email.String
	return user, nil
}
