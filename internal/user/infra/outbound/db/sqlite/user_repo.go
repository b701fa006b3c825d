package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	// _ "github.com/mattn/go-sqlite3" // better performance but requires gcc
	_ "modernc.org/sqlite"

	sharedDomain "github.com/davicafu/userlab/internal/shared/domain"
	"github.com/davicafu/userlab/internal/user/domain"
)

type UserRepoSQLite struct {
	db *sql.DB
}

func NewUserRepoSQLite(db *sql.DB) *UserRepoSQLite {
	return &UserRepoSQLite{db: db}
}

var _ domain.UserRepository = (*UserRepoSQLite)(nil)

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
		`INSERT INTO outbox (id,aggregate_type,aggregate_id,event_type,payload,created_at,processed)
		 VALUES (?,?,?,?,?,?,0)`,
		evt.ID.String(), evt.AggregateType, evt.AggregateID, evt.EventType, string(payloadBytes), evt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	return nil
}

// mapUniqueViolation convierte la violación de constraint única del
// store en el Conflict de la taxonomía. La unicidad del email la decide
// el store, nunca un pre-check en el código.
func mapUniqueViolation(err error, email string) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed: users.email") {
		return sharedDomain.NewConflict(fmt.Sprintf("A user with email '%s' already exists.", email))
	}
	return err
}

func scanUser(scan func(dest ...interface{}) error) (*domain.User, error) {
	var u domain.User
	var idStr string
	var roleID sql.NullString
	if err := scan(&idStr, &u.FirstName, &u.MiddleName, &u.LastName, &u.DateOfBirth, &u.Gender,
		&u.Email, &u.PasswordHash, &u.PhoneNumber, &roleID, &u.RoleName, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}

	parsedID, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID in DB: %w", err)
	}
	u.ID = parsedID

	if roleID.Valid {
		rid, err := uuid.Parse(roleID.String)
		if err != nil {
			return nil, fmt.Errorf("invalid role UUID in DB: %w", err)
		}
		u.RoleID = &rid
	}

	return &u, nil
}

// ------------------ CRUD + Outbox ------------------

// Create inserta usuario, asignación de rol y evento en transacción
func (r *UserRepoSQLite) Create(ctx context.Context, u *domain.User, evt sharedDomain.OutboxEvent) error {
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
		`INSERT INTO users (id,first_name,middle_name,last_name,date_of_birth,gender,email,password_hash,phone_number,created_at,updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		u.ID.String(), u.FirstName, u.MiddleName, u.LastName, u.DateOfBirth, u.Gender,
		u.Email, u.PasswordHash, u.PhoneNumber, u.CreatedAt, u.UpdatedAt,
	); err != nil {
		err = mapUniqueViolation(err, u.Email)
		return err
	}

	if u.RoleID != nil {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO user_roles (user_id, role_id, assigned_at) VALUES (?,?,?)`,
			u.ID.String(), u.RoleID.String(), u.CreatedAt,
		); err != nil {
			return err
		}
	}

	if err = insertOutboxTx(ctx, tx, evt); err != nil {
		return err
	}

	return tx.Commit()
}

// Update actualiza usuario y crea evento Outbox en transacción
func (r *UserRepoSQLite) Update(ctx context.Context, u *domain.User, evt sharedDomain.OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET first_name=?, middle_name=?, last_name=?, date_of_birth=?, gender=?, email=?, phone_number=?, updated_at=?
		 WHERE id=?`,
		u.FirstName, u.MiddleName, u.LastName, u.DateOfBirth, u.Gender, u.Email, u.PhoneNumber, u.UpdatedAt,
		u.ID.String(),
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

// DeleteByID elimina usuario y su asignación de rol en transacción,
// sin dejar asignaciones huérfanas.
func (r *UserRepoSQLite) DeleteByID(ctx context.Context, id uuid.UUID, evt sharedDomain.OutboxEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id=?`, id.String()); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id=?`, id.String())
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

func (r *UserRepoSQLite) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+userJoins+` WHERE u.id = ?`, id.String())

	u, err := scanUser(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sharedDomain.NewNotFound("User", id)
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepoSQLite) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+userJoins+` WHERE u.email = ?`, email)

	u, err := scanUser(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sharedDomain.NewNotFoundMessage(fmt.Sprintf("User with email '%s' was not found.", email))
		}
		return nil, err
	}
	return u, nil
}

// ------------------ Compilación de criterios ------------------

// Columnas visibles para filtros y ordenación. role_name se resuelve
// con COALESCE para que usuarios sin rol ordenen como cadena vacía.
var sqliteColumns = map[string]string{
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

// compileConditions traduce los pasos de predicado neutrales a una
// cláusula WHERE. Si el predicado no se puede compilar, el fallo acaba
// clasificado como Internal en la frontera.
func compileConditions(conds []sharedDomain.Criterion) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	for _, cond := range conds {
		if cond.Field == domain.FieldSearch {
			term := "%" + strings.ToLower(fmt.Sprintf("%v", cond.Value)) + "%"
			var ors []string
			for _, col := range searchColumns {
				ors = append(ors, "LOWER("+col+") LIKE ?")
				args = append(args, term)
			}
			clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
			continue
		}

		col, ok := sqliteColumns[cond.Field]
		if !ok {
			continue // campo desconocido: sin restricción
		}

		switch cond.Op {
		case sharedDomain.OpILike:
			clauses = append(clauses, "LOWER("+col+") LIKE ?")
			args = append(args, "%"+strings.ToLower(fmt.Sprintf("%v", cond.Value))+"%")
		case sharedDomain.OpLike:
			clauses = append(clauses, col+" LIKE ?")
			args = append(args, "%"+fmt.Sprintf("%v", cond.Value)+"%")
		case sharedDomain.OpIEq:
			clauses = append(clauses, "LOWER("+col+") = ?")
			args = append(args, strings.ToLower(fmt.Sprintf("%v", cond.Value)))
		default:
			clauses = append(clauses, col+" "+string(cond.Op)+" ?")
			args = append(args, cond.Value)
		}
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// List compila el criterio, cuenta el total filtrado y recupera la
// página. Son dos sentencias dentro de la misma conexión: el total
// puede desviarse ante escrituras concurrentes (aceptado).
func (r *UserRepoSQLite) List(ctx context.Context, c domain.UserCriteria) ([]*domain.User, int64, error) {
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
	orderBy := fmt.Sprintf(" ORDER BY %s %s", sqliteColumns[s.Field], dir)

	page := c.PageRequest().Normalize()
	query := `SELECT ` + userColumns + userJoins + where + orderBy + ` LIMIT ? OFFSET ?`
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

func (r *UserRepoSQLite) ListAll(ctx context.Context) ([]*domain.User, error) {
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

// ------------------ Inicialización de DB ------------------

// InitSQLite crea las tablas si no existen
func InitSQLite(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			first_name TEXT NOT NULL,
			middle_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL,
			date_of_birth DATETIME NOT NULL,
			gender TEXT NOT NULL DEFAULT '',
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			phone_number TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS roles (
			id TEXT PRIMARY KEY,
			role_name TEXT UNIQUE NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_roles (
			user_id TEXT NOT NULL REFERENCES users(id),
			role_id TEXT NOT NULL REFERENCES roles(id),
			assigned_at DATETIME NOT NULL,
			PRIMARY KEY (user_id, role_id)
		)`,
		`CREATE TABLE IF NOT EXISTS outbox (
			id TEXT PRIMARY KEY,
			aggregate_type TEXT NOT NULL,
			aggregate_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			processed BOOLEAN NOT NULL DEFAULT 0
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
