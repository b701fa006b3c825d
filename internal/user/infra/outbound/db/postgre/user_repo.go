package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	sharedDomain "github.com/davicafu/userlab/internal/shared/domain"
	"github.com/davicafu/userlab/internal/user/domain"
)

type UserRepoPostgres struct {
	db *sql.DB
}

func NewUserRepoPostgres(db *sql.DB) *UserRepoPostgres {
	return &UserRepoPostgres{db: db}
}

var _ domain.UserRepository = (*UserRepoPostgres)(nil)

const userColumns = `u.id, u.first_name, u.middle_name, u.last_name, u.date_of_birth, u.gender,
	u.email, u.password_hash, u.phone_number, ur.role_id, COALESCE(r.role_name, ''), u.created_at, u.updated_at`

const userJoins = ` FROM users u
	LEFT JOIN user_roles ur ON ur.user_id = u.id
	LEFT JOIN roles r ON r.id = ur.role_id`

// ------------------ Helpers ------------------

func insertOutboxTx(ctx context.Context, tx *sql.Tx, evt sharedDomain.OutboxEvent) error {
	payloadBytes, err := json.Marshal(evt.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at, processed)
		 VALUES ($1, $2, $3, $4, $5, $6, false)`,
		evt.ID, evt.AggregateType, evt.AggregateID, evt.EventType, payloadBytes, evt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

// 23505 = unique_violation. La unicidad del email la resuelve la
// constraint, nunca un pre-check en el código.
func mapUniqueViolation(err error, email string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && strings.Contains(pgErr.ConstraintName, "email") {
		return sharedDomain.NewConflict(fmt.Sprintf("A user with email '%s' already exists.", email))
	}
	return err
}

func scanUser(scan func(dest ...interface{}) error) (*domain.User, error) {
	var u domain.User
	var roleID uuid.NullUUID
	if err := scan(&u.ID, &u.FirstName, &u.MiddleName, &u.LastName, &u.DateOfBirth, &u.Gender,
		&u.Email, &u.PasswordHash, &u.PhoneNumber, &roleID, &u.RoleName, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if roleID.Valid {
		rid := roleID.UUID
		u.RoleID = &rid
	}
	return &u, nil
}

// ------------------ CRUD + Outbox ------------------

func (r *UserRepoPostgres) Create(ctx context.Context, u *domain.User, evt sharedDomain.OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, first_name, middle_name, last_name, date_of_birth, gender, email, password_hash, phone_number, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		u.ID, u.FirstName, u.MiddleName, u.LastName, u.DateOfBirth, u.Gender,
		u.Email, u.PasswordHash, u.PhoneNumber, u.CreatedAt, u.UpdatedAt,
	); err != nil {
		err = mapUniqueViolation(err, u.Email)
		return err
	}

	if u.RoleID != nil {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO user_roles (user_id, role_id, assigned_at) VALUES ($1, $2, $3)`,
			u.ID, *u.RoleID, u.CreatedAt,
		); err != nil {
			return err
		}
	}

	if err = insertOutboxTx(ctx, tx, evt); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *UserRepoPostgres) Update(ctx context.Context, u *domain.User, evt sharedDomain.OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET first_name=$1, middle_name=$2, last_name=$3, date_of_birth=$4, gender=$5, email=$6, phone_number=$7, updated_at=$8
		 WHERE id=$9`,
		u.FirstName, u.MiddleName, u.LastName, u.DateOfBirth, u.Gender, u.Email, u.PhoneNumber, u.UpdatedAt, u.ID,
	)
	if err != nil {
		err = mapUniqueViolation(err, u.Email)
		return err
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		err = sharedDomain.NewNotFound("User", u.ID)
		return err
	}

	if err = insertOutboxTx(ctx, tx, evt); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *UserRepoPostgres) DeleteByID(ctx context.Context, id uuid.UUID, evt sharedDomain.OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id=$1`, id); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		err = sharedDomain.NewNotFound("User", id)
		return err
	}

	if err = insertOutboxTx(ctx, tx, evt); err != nil {
		return err
	}

	return tx.Commit()
}

// ------------------ Lectura ------------------

func (r *UserRepoPostgres) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+userJoins+` WHERE u.id = $1`, id)

	u, err := scanUser(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sharedDomain.NewNotFound("User", id)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *UserRepoPostgres) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+userJoins+` WHERE u.email = $1`, email)

	u, err := scanUser(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sharedDomain.NewNotFoundMessage(fmt.Sprintf("User with email '%s' was not found.", email))
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

// ------------------ Compilación de criterios ------------------

var pgColumns = map[string]string{
	domain.FieldFirstName:   "u.first_name",
	domain.FieldLastName:    "u.last_name",
	domain.FieldEmail:       "u.email",
	domain.FieldPhoneNumber: "u.phone_number",
	domain.FieldGender:      "u.gender",
	domain.FieldRoleName:    "COALESCE(r.role_name, '')",
	domain.FieldDateOfBirth: "u.date_of_birth",
	domain.FieldCreatedAt:   "u.created_at",
}

var searchColumns = []string{"u.first_name", "u.last_name", "u.email", "u.phone_number", "COALESCE(r.role_name, '')"}

func compileConditions(conds []sharedDomain.Criterion) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	next := func() string { return fmt.Sprintf("$%d", len(args)) }

	for _, cond := range conds {
		if cond.Field == domain.FieldSearch {
			term := "%" + fmt.Sprintf("%v", cond.Value) + "%"
			var ors []string
			for _, col := range searchColumns {
				args = append(args, term)
				ors = append(ors, col+" ILIKE "+next())
			}
			clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
			continue
		}

		col, ok := pgColumns[cond.Field]
		if !ok {
			continue
		}

		switch cond.Op {
		case sharedDomain.OpILike:
			args = append(args, "%"+fmt.Sprintf("%v", cond.Value)+"%")
			clauses = append(clauses, col+" ILIKE "+next())
		case sharedDomain.OpLike:
			args = append(args, "%"+fmt.Sprintf("%v", cond.Value)+"%")
			clauses = append(clauses, col+" LIKE "+next())
		case sharedDomain.OpIEq:
			args = append(args, strings.ToLower(fmt.Sprintf("%v", cond.Value)))
			clauses = append(clauses, "LOWER("+col+") = "+next())
		default:
			args = append(args, cond.Value)
			clauses = append(clauses, col+" "+string(cond.Op)+" "+next())
		}
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// List cuenta el total filtrado y recupera la página solicitada.
func (r *UserRepoPostgres) List(ctx context.Context, c domain.UserCriteria) ([]*domain.User, int64, error) {
	where, args := compileConditions(c.ToConditions())

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*)`+userJoins+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	s := c.Sort()
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}

	page := c.PageRequest().Normalize()
	query := fmt.Sprintf(`SELECT %s%s%s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		userColumns, userJoins, where, pgColumns[s.Field], dir, len(args)+1, len(args)+2)
	queryArgs := append(append([]interface{}{}, args...), page.PageSize, page.Offset())

	rows, err := r.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *UserRepoPostgres) ListAll(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+userJoins+` ORDER BY u.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
