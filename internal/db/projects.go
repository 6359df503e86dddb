package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

const projectColumns = "id, user_id, name, description, created_at, updated_at, is_deleted"

func scanProject(s rowScanner) (*Project, error) {
	var p Project
	if err := s.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt, &p.IsDeleted); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (dbc *DatabaseConnection) CreateProject(ctx context.Context, name string, userID, description *string) (*Project, error) {
	id := uuid.NewString()
	_, err := dbc.execWrite(ctx,
		"INSERT INTO projects (id, user_id, name, description) VALUES (?, ?, ?, ?)",
		id, userID, name, description,
	)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return dbc.GetProjectByID(ctx, id)
}

func (dbc *DatabaseConnection) GetProjectByID(ctx context.Context, id string) (*Project, error) {
	row := dbc.queryRow(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE id = ? AND is_deleted = 0", id)
	return scanProject(row)
}

// ListProjects returns projects newest-first, optionally scoped to a
// user. With includeDeleted set, soft-deleted projects are listed too
// so they can be restored.
func (dbc *DatabaseConnection) ListProjects(ctx context.Context, userID string, includeDeleted bool) ([]*Project, error) {
	q := "SELECT " + projectColumns + " FROM projects"
	where := []string{}
	args := []any{}
	if !includeDeleted {
		where = append(where, "is_deleted = 0")
	}
	if userID != "" {
		where = append(where, "user_id = ?")
		args = append(args, userID)
	}
	for i, w := range where {
		if i == 0 {
			q += " WHERE " + w
		} else {
			q += " AND " + w
		}
	}
	q += " ORDER BY created_at DESC"

	rows, err := dbc.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// UpdateProject patches name and/or description. Nil fields are left alone.
func (dbc *DatabaseConnection) UpdateProject(ctx context.Context, id string, name, description *string) (*Project, error) {
	set := ""
	args := []any{}
	if name != nil {
		set += "name = ?"
		args = append(args, *name)
	}
	if description != nil {
		if set != "" {
			set += ", "
		}
		set += "description = ?"
		args = append(args, *description)
	}
	if set == "" {
		return dbc.GetProjectByID(ctx, id)
	}

	args = append(args, id)
	if _, err := dbc.execWrite(ctx, "UPDATE projects SET "+set+" WHERE id = ?", args...); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return dbc.GetProjectByID(ctx, id)
}

// DeleteProject soft-deletes by default; hard removes the row (and
// cascades to videos and jobs) when hard is true.
func (dbc *DatabaseConnection) DeleteProject(ctx context.Context, id string, hard bool) error {
	var err error
	if hard {
		_, err = dbc.execWrite(ctx, "DELETE FROM projects WHERE id = ?", id)
	} else {
		_, err = dbc.execWrite(ctx, "UPDATE projects SET is_deleted = 1 WHERE id = ?", id)
	}
	return err
}

func (dbc *DatabaseConnection) RestoreProject(ctx context.Context, id string) (*Project, error) {
	if _, err := dbc.execWrite(ctx, "UPDATE projects SET is_deleted = 0 WHERE id = ?", id); err != nil {
		return nil, err
	}
	return dbc.GetProjectByID(ctx, id)
}
