package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/davicafu/userlab/internal/role/domain"
	sharedDomain "github.com/davicafu/userlab/internal/shared/domain"
)

type RoleRepoSQLite struct {
	db *sql.DB
}

func NewRoleRepoSQLite(db *sql.DB) *RoleRepoSQLite {
	return &RoleRepoSQLite{db: db}
}

var _ domain.RoleRepository = (*RoleRepoSQLite)(nil)

// Create inserta rol y evento en transacción; nombre duplicado es Conflict.
func (r *RoleRepoSQLite) Create(ctx context.Context, role *domain.Role, evt sharedDomain.OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO roles (id, role_name, created_at, updated_at) VALUES (?,?,?,?)`,
		role.ID.String(), role.Name, role.CreatedAt, role.UpdatedAt,
	); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: roles.role_name") {
			err = sharedDomain.NewConflict(fmt.Sprintf("A role named '%s' already exists.", role.Name))
		}
		return err
	}

	payloadBytes, merr := json.Marshal(evt.Payload)
	if merr != nil {
		err = fmt.Errorf("failed to marshal outbox payload: %w", merr)
		return err
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO outbox (id,aggregate_type,aggregate_id,event_type,payload,created_at,processed)
		 VALUES (?,?,?,?,?,?,0)`,
		evt.ID.String(), evt.AggregateType, evt.AggregateID, evt.EventType, string(payloadBytes), evt.CreatedAt,
	); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *RoleRepoSQLite) GetByID(ctx context.Context, id uuid.UUID) (*domain.Role, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, role_name, created_at, updated_at FROM roles WHERE id = ?`, id.String())

	var role domain.Role
	var idStr string
	if err := row.Scan(&idStr, &role.Name, &role.CreatedAt, &role.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, sharedDomain.NewNotFound("Role", id)
		}
		return nil, err
	}

	parsedID, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID in DB: %w", err)
	}
	role.ID = parsedID

	return &role, nil
}

func (r *RoleRepoSQLite) ListAll(ctx context.Context) ([]*domain.Role, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, role_name, created_at, updated_at FROM roles ORDER BY role_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := []*domain.Role{}
	for rows.Next() {
		var role domain.Role
		var idStr string
		if err := rows.Scan(&idStr, &role.Name, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		parsedID, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("invalid UUID in DB: %w", err)
		}
		role.ID = parsedID
		roles = append(roles, &role)
	}
	return roles, rows.Err()
}
