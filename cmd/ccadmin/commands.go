package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cloudcoder/internal/app/service"
	"cloudcoder/internal/common"
	"cloudcoder/internal/common/security"
	"cloudcoder/internal/domain/repository"
	"cloudcoder/internal/platform/config"
	"cloudcoder/internal/platform/database"
	"cloudcoder/internal/platform/logger"
)

// env holds what every command needs once the database is reachable.
type env struct {
	log    *zap.Logger
	db     *sql.DB
	runner *database.Runner
}

func (e *env) close() {
	e.db.Close()
	e.log.Sync()
}

func setup(ctx context.Context) (*env, error) {
	config.Load()
	cfg := config.AppConfig

	log, err := logger.New(cfg.LogLevel, "console")
	if err != nil {
		return nil, err
	}
	security.SetBcryptCost(cfg.BcryptCost)

	db, err := database.Connect(ctx, cfg.DBConnStr, 2)
	if err != nil {
		return nil, err
	}
	runner := database.NewRunner(database.NewRegistry(db), log.Named("db"), nil)
	return &env{log: log, db: db, runner: runner}, nil
}

func (e *env) courseService() *service.CourseService {
	return service.NewCourseService(repository.NewPgCourseRepository(e.runner), repository.NewPgUserRepository(e.runner), e.log)
}

func (e *env) problemService() *service.ProblemService {
	return service.NewProblemService(repository.NewPgProblemRepository(e.runner), e.courseService(), e.log)
}

func newInitDBCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the CloudCoder tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			if err := database.ApplySchema(cmd.Context(), e.db, database.Schema); err != nil {
				return err
			}
			e.log.Info("schema applied")
			return nil
		},
	}
}

func newImportUsersCommand() *cobra.Command {
	var courseID int
	m := &cobra.Command{
		Use:   "import-users FILE",
		Short: "Register the users in a tab-separated file as students of a course",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			e, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			n, err := e.courseService().ImportUsers(cmd.Context(), 0, courseID, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d users into course %d\n", n, courseID)
			return nil
		},
	}
	m.Flags().IntVar(&courseID, "course-id", 0, "Course to register the users in")
	m.MarkFlagRequired("course-id")
	return m
}

func newExportProblemCommand() *cobra.Command {
	var (
		problemID int
		outDir    string
	)
	m := &cobra.Command{
		Use:   "export-problem",
		Short: "Write a problem and its test cases as XML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			file, err := e.problemService().ExportByID(cmd.Context(), problemID)
			if err != nil {
				return err
			}
			path := filepath.Join(outDir, file.Filename)
			if err := os.WriteFile(path, file.Content, 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	m.Flags().IntVar(&problemID, "problem-id", 0, "Problem to export")
	m.Flags().StringVar(&outDir, "out", ".", "Directory to write the XML file to")
	m.MarkFlagRequired("problem-id")
	return m
}

func newImportProblemCommand() *cobra.Command {
	var (
		courseID int
		username string
	)
	m := &cobra.Command{
		Use:   "import-problem FILE",
		Short: "Store an XML problem as a new problem of a course",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			e, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			user, err := repository.NewPgUserRepository(e.runner).GetUserWithoutAuthentication(cmd.Context(), username)
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("user %q: %w", username, common.ErrNotFound)
			}

			stored, err := e.problemService().Import(cmd.Context(), user.ID, courseID, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored problem %d with %d test cases\n", stored.Problem.ProblemID, len(stored.TestCases))
			return nil
		},
	}
	m.Flags().IntVar(&courseID, "course-id", 0, "Course to add the problem to")
	m.Flags().StringVar(&username, "username", "", "Instructor the problem is stored on behalf of")
	m.MarkFlagRequired("course-id")
	m.MarkFlagRequired("username")
	return m
}
