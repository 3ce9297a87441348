package repository

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloudcoder/internal/common"
	"cloudcoder/internal/common/security"
	"cloudcoder/internal/domain/model"
	"cloudcoder/internal/platform/database"
)

type UserRepository interface {
	// AuthenticateUser returns the user when password matches, nil otherwise.
	// An unknown username and a wrong password are indistinguishable.
	AuthenticateUser(ctx context.Context, username, password string) (*model.User, error)
	GetUserWithoutAuthentication(ctx context.Context, username string) (*model.User, error)
	GetUsersInCourse(ctx context.Context, courseID int) ([]model.User, error)
	// ImportUsers reads tab-separated registrations (first name, last name,
	// username, password, email) and registers each user in courseID as a
	// student. A malformed line aborts the whole import.
	ImportUsers(ctx context.Context, courseID int, r io.Reader) (int, error)
}

type pgUserRepository struct {
	runner *database.Runner
}

func NewPgUserRepository(runner *database.Runner) UserRepository {
	return &pgUserRepository{runner: runner}
}

func findUserByUsername(ctx context.Context, tx *database.Tx, username string) (*model.User, error) {
	query := "SELECT " + userTable.Select("") + " FROM " + usersTable + " WHERE username = $1"
	user, err := userTable.Load(tx.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (r *pgUserRepository) AuthenticateUser(ctx context.Context, username, password string) (*model.User, error) {
	return database.Run(ctx, r.runner, database.NewWork("authenticating user", func(ctx context.Context, tx *database.Tx) (*model.User, error) {
		user, err := findUserByUsername(ctx, tx, username)
		if err != nil {
			return nil, fmt.Errorf("pgUserRepository.AuthenticateUser: %w", err)
		}
		if user == nil {
			security.BurnPasswordCheck(password)
			return nil, nil
		}
		if !security.CheckPasswordHash(password, user.PasswordHash) {
			return nil, nil
		}
		return user, nil
	}))
}

func (r *pgUserRepository) GetUserWithoutAuthentication(ctx context.Context, username string) (*model.User, error) {
	return database.Run(ctx, r.runner, database.NewWork("getting user", func(ctx context.Context, tx *database.Tx) (*model.User, error) {
		user, err := findUserByUsername(ctx, tx, username)
		if err != nil {
			return nil, fmt.Errorf("pgUserRepository.GetUserWithoutAuthentication: %w", err)
		}
		return user, nil
	}))
}

func (r *pgUserRepository) GetUsersInCourse(ctx context.Context, courseID int) ([]model.User, error) {
	return database.Run(ctx, r.runner, database.NewWork("getting users in course", func(ctx context.Context, tx *database.Tx) ([]model.User, error) {
		query := "SELECT " + userTable.Select("u") + " FROM " + usersTable + " u, " + courseRegistrationsTable + " cr" +
			" WHERE u.id = cr.user_id AND cr.course_id = $1 ORDER BY u.username"
		rows, err := tx.Query(ctx, query, courseID)
		if err != nil {
			return nil, fmt.Errorf("pgUserRepository.GetUsersInCourse: %w", err)
		}
		defer rows.Close()

		var users []model.User
		for rows.Next() {
			u, err := userTable.Load(rows)
			if err != nil {
				return nil, fmt.Errorf("pgUserRepository.GetUsersInCourse scan: %w", err)
			}
			users = append(users, *u)
		}
		return users, rows.Err()
	}))
}

type importedUser struct {
	username string
	password string
}

func parseImportLine(lineNo int, line string) (*importedUser, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 5 {
		return nil, fmt.Errorf("line %d: expected 5 tab-separated fields, found %d: %w", lineNo, len(fields), common.ErrValidation)
	}
	u := &importedUser{username: strings.TrimSpace(fields[2]), password: fields[3]}
	if u.username == "" || u.password == "" {
		return nil, fmt.Errorf("line %d: username and password are required: %w", lineNo, common.ErrValidation)
	}
	return u, nil
}

func (r *pgUserRepository) ImportUsers(ctx context.Context, courseID int, in io.Reader) (int, error) {
	var users []*importedUser
	scanner := bufio.NewScanner(in)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		u, err := parseImportLine(lineNo, line)
		if err != nil {
			return 0, err
		}
		users = append(users, u)
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("reading user import: %w", err)
	}

	return database.Run(ctx, r.runner, database.NewWork("importing users", func(ctx context.Context, tx *database.Tx) (int, error) {
		insertUser := "INSERT INTO " + usersTable + " (username, password_hash) VALUES ($1, $2) RETURNING id"
		register := registrationTable.InsertSQL()
		for _, u := range users {
			existing, err := findUserByUsername(ctx, tx, u.username)
			if err != nil {
				return 0, fmt.Errorf("pgUserRepository.ImportUsers lookup: %w", err)
			}
			if existing != nil {
				return 0, fmt.Errorf("user %s already exists: %w", u.username, common.ErrConflict)
			}
			hash, err := security.HashPassword(u.password)
			if err != nil {
				return 0, fmt.Errorf("hashing password for %s: %w", u.username, err)
			}
			var id int
			if err := tx.QueryRow(ctx, insertUser, u.username, hash).Scan(&id); err != nil {
				if common.IsUniqueViolation(err) {
					return 0, fmt.Errorf("user %s already exists: %w", u.username, common.ErrConflict)
				}
				return 0, fmt.Errorf("pgUserRepository.ImportUsers: %w", err)
			}
			reg := &model.CourseRegistration{CourseID: courseID, UserID: id, RegistrationType: model.RegistrationStudent}
			if _, err := tx.Exec(ctx, register, registrationTable.Values(reg)...); err != nil {
				return 0, fmt.Errorf("pgUserRepository.ImportUsers register: %w", err)
			}
		}
		return len(users), nil
	}))
}
