package registry

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/LerianStudio/confdogma/internal/domain/apperr"
	"github.com/LerianStudio/confdogma/internal/domain/project"
	"github.com/LerianStudio/confdogma/internal/domain/repository"
)

// Store is the Postgres-backed Project/Repository registry. It never
// holds file content — that lives entirely in the object store (see
// internal/adapters/objectstore) — only the lifecycle metadata needed to
// list and filter projects/repos efficiently.
type Store struct {
	Conn *Connection
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// CreateProject inserts a new active project row.
func (s *Store) CreateProject(ctx context.Context, p *project.Project) error {
	db, err := s.Conn.DB(ctx)
	if err != nil {
		return err
	}

	query, args, err := psql.Insert("projects").
		Columns("name", "creator", "created_at", "state").
		Values(p.Name, p.Creator, p.CreatedAt, string(p.State)).
		ToSql()
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "build create_project query")
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return translatePGError(err, "project", p.Name)
	}

	return nil
}

// GetProject returns the project row named name.
func (s *Store) GetProject(ctx context.Context, name string) (*project.Project, error) {
	db, err := s.Conn.DB(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := psql.Select("name", "creator", "created_at", "state", "removed_at").
		From("projects").Where(sq.Eq{"name": name}).ToSql()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "build get_project query")
	}

	var p project.Project
	var state string

	row := db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&p.Name, &p.Creator, &p.CreatedAt, &state, &p.RemovedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "project %s not found", name)
		}

		return nil, apperr.Wrap(apperr.KindInternal, err, "scan project %s", name)
	}

	p.State = project.State(state)

	return &p, nil
}

// ListProjects returns every project row, optionally restricted to a
// single state ("" means all).
func (s *Store) ListProjects(ctx context.Context, state project.State) ([]*project.Project, error) {
	db, err := s.Conn.DB(ctx)
	if err != nil {
		return nil, err
	}

	b := psql.Select("name", "creator", "created_at", "state", "removed_at").From("projects").OrderBy("name")
	if state != "" {
		b = b.Where(sq.Eq{"state": string(state)})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "build list_projects query")
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "query list_projects")
	}
	defer rows.Close()

	var out []*project.Project

	for rows.Next() {
		var p project.Project
		var st string

		if err := rows.Scan(&p.Name, &p.Creator, &p.CreatedAt, &st, &p.RemovedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "scan project row")
		}

		p.State = project.State(st)
		out = append(out, &p)
	}

	return out, rows.Err()
}

// SetProjectState updates a project's lifecycle state and removed_at
// marker.
func (s *Store) SetProjectState(ctx context.Context, name string, state project.State, removedAt *time.Time) error {
	db, err := s.Conn.DB(ctx)
	if err != nil {
		return err
	}

	query, args, err := psql.Update("projects").
		Set("state", string(state)).
		Set("removed_at", removedAt).
		Where(sq.Eq{"name": name}).
		ToSql()
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "build set_project_state query")
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "exec set_project_state")
	}

	return checkRowsAffected(res, "project", name)
}

// DeleteProject physically removes a project row (purge).
func (s *Store) DeleteProject(ctx context.Context, name string) error {
	db, err := s.Conn.DB(ctx)
	if err != nil {
		return err
	}

	query, args, err := psql.Delete("projects").Where(sq.Eq{"name": name}).ToSql()
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "build delete_project query")
	}

	_, err = db.ExecContext(ctx, query, args...)

	return err
}

// CreateRepository inserts a new active repository row under its project.
func (s *Store) CreateRepository(ctx context.Context, r *repository.Repository) error {
	db, err := s.Conn.DB(ctx)
	if err != nil {
		return err
	}

	query, args, err := psql.Insert("repositories").
		Columns("project", "name", "creator", "created_at", "state", "head").
		Values(r.Project, r.Name, r.Creator, r.CreatedAt, string(r.State), r.Head).
		ToSql()
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "build create_repository query")
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return translatePGError(err, "repository", r.Project+"/"+r.Name)
	}

	return nil
}

// GetRepository returns the repository row (project, name).
func (s *Store) GetRepository(ctx context.Context, projectName, name string) (*repository.Repository, error) {
	db, err := s.Conn.DB(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := psql.Select("project", "name", "creator", "created_at", "state", "removed_at", "head").
		From("repositories").
		Where(sq.Eq{"project": projectName, "name": name}).
		ToSql()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "build get_repository query")
	}

	var r repository.Repository
	var state string

	row := db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&r.Project, &r.Name, &r.Creator, &r.CreatedAt, &state, &r.RemovedAt, &r.Head); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "repository %s/%s not found", projectName, name)
		}

		return nil, apperr.Wrap(apperr.KindInternal, err, "scan repository %s/%s", projectName, name)
	}

	r.State = repository.State(state)

	return &r, nil
}

// ListRepositories returns every repository row under projectName,
// optionally restricted to a single state ("" means all).
func (s *Store) ListRepositories(ctx context.Context, projectName string, state repository.State) ([]*repository.Repository, error) {
	db, err := s.Conn.DB(ctx)
	if err != nil {
		return nil, err
	}

	b := psql.Select("project", "name", "creator", "created_at", "state", "removed_at", "head").
		From("repositories").Where(sq.Eq{"project": projectName}).OrderBy("name")
	if state != "" {
		b = b.Where(sq.Eq{"state": string(state)})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "build list_repositories query")
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "query list_repositories")
	}
	defer rows.Close()

	var out []*repository.Repository

	for rows.Next() {
		var r repository.Repository
		var st string

		if err := rows.Scan(&r.Project, &r.Name, &r.Creator, &r.CreatedAt, &st, &r.RemovedAt, &r.Head); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "scan repository row")
		}

		r.State = repository.State(st)
		out = append(out, &r)
	}

	return out, rows.Err()
}

// SetRepositoryState updates a repository's lifecycle state and
// removed_at marker.
func (s *Store) SetRepositoryState(ctx context.Context, projectName, name string, state repository.State, removedAt *time.Time) error {
	db, err := s.Conn.DB(ctx)
	if err != nil {
		return err
	}

	query, args, err := psql.Update("repositories").
		Set("state", string(state)).
		Set("removed_at", removedAt).
		Where(sq.Eq{"project": projectName, "name": name}).
		ToSql()
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "build set_repository_state query")
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "exec set_repository_state")
	}

	return checkRowsAffected(res, "repository", projectName+"/"+name)
}

// AdvanceHead bumps the cached head revision after a successful commit,
// used purely to speed up listing; the object store ref remains
// authoritative.
func (s *Store) AdvanceHead(ctx context.Context, projectName, name string, revision int64) error {
	db, err := s.Conn.DB(ctx)
	if err != nil {
		return err
	}

	query, args, err := psql.Update("repositories").
		Set("head", revision).
		Where(sq.Eq{"project": projectName, "name": name}).
		ToSql()
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "build advance_head query")
	}

	_, err = db.ExecContext(ctx, query, args...)

	return err
}

// DeleteRepository physically removes a repository row (purge).
func (s *Store) DeleteRepository(ctx context.Context, projectName, name string) error {
	db, err := s.Conn.DB(ctx)
	if err != nil {
		return err
	}

	query, args, err := psql.Delete("repositories").Where(sq.Eq{"project": projectName, "name": name}).ToSql()
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "build delete_repository query")
	}

	_, err = db.ExecContext(ctx, query, args...)

	return err
}

func checkRowsAffected(res sql.Result, kind, name string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "rows affected for %s %s", kind, name)
	}

	if n == 0 {
		return apperr.New(apperr.KindNotFound, "%s %s not found", kind, name)
	}

	return nil
}

func translatePGError(err error, kind, name string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		return apperr.New(apperr.KindAlreadyExists, "%s %s already exists", kind, name)
	}

	return apperr.Wrap(apperr.KindInternal, err, "%s %s", kind, name)
}
