package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/davicafu/userlab/internal/role/domain"
	sharedDomain "github.com/davicafu/userlab/internal/shared/domain"
)

type RoleRepoPostgres struct {
	db *sql.DB
}

func NewRoleRepoPostgres(db *sql.DB) *RoleRepoPostgres {
	return &RoleRepoPostgres{db: db}
}

var _ domain.RoleRepository = (*RoleRepoPostgres)(nil)

// Create inserta rol y evento en transacción; nombre duplicado es Conflict.
func (r *RoleRepoPostgres) Create(ctx context.Context, role *domain.Role, evt sharedDomain.OutboxEvent) error {
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
		`INSERT INTO roles (id, role_name, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		role.ID, role.Name, role.CreatedAt, role.UpdatedAt,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
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
		`INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at, processed)
		 VALUES ($1, $2, $3, $4, $5, $6, false)`,
		evt.ID, evt.AggregateType, evt.AggregateID, evt.EventType, payloadBytes, evt.CreatedAt,
	); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *RoleRepoPostgres) GetByID(ctx context.Context, id uuid.UUID) (*domain.Role, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, role_name, created_at, updated_at FROM roles WHERE id = $1`, id)

	var role domain.Role
	if err := row.Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, sharedDomain.NewNotFound("Role", id)
		}
		return nil, err
	}
	return &role, nil
}

func (r *RoleRepoPostgres) ListAll(ctx context.Context) ([]*domain.Role, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, role_name, created_at, updated_at FROM roles ORDER BY role_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := []*domain.Role{}
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, &role)
	}
	return roles, rows.Err()
}
