package domain

import (
	"strings"
	"time"

	sharedDomain "github.com/davicafu/userlab/internal/shared/domain"
	sharedQuery "github.com/davicafu/userlab/internal/shared/platform/query"
)

// ---------------- Campos neutrales ----------------

// Nombres de campo que entienden todos los adapters de persistencia.
const (
	FieldSearch      = "search" // OR sobre nombre, apellido, email, teléfono y rol
	FieldFirstName   = "first_name"
	FieldLastName    = "last_name"
	FieldEmail       = "email"
	FieldPhoneNumber = "phone_number"
	FieldGender      = "gender"
	FieldRoleName    = "role_name"
	FieldDateOfBirth = "date_of_birth"
	FieldCreatedAt   = "created_at"
)

// allow-list de claves de ordenación: cualquier clave fuera de esta
// lista (vacía o malformada incluida) degrada a created_at.
var sortFields = map[string]string{
	"firstname":   FieldFirstName,
	"lastname":    FieldLastName,
	"email":       FieldEmail,
	"dateofbirth": FieldDateOfBirth,
	"gender":      FieldGender,
	"createdat":   FieldCreatedAt,
	"rolename":    FieldRoleName,
}

// ---------------- UserCriteria ----------------

// UserCriteria es la representación tipada de una petición de listado:
// filtros, ordenación y página. Se construye una vez por petición y no
// se muta tras Normalize.
type UserCriteria struct {
	Page     int
	PageSize int

	SearchTerm  string
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
	Gender      string
	RoleName    string

	DateOfBirthFrom *time.Time
	DateOfBirthTo   *time.Time
	CreatedFrom     *time.Time
	CreatedTo       *time.Time

	SortBy        string
	SortDirection string
}

// Normalize corrige página y tamaño a sus rangos válidos. La clave de
// ordenación inválida no falla aquí: Sort la resuelve al defecto.
func (c UserCriteria) Normalize() UserCriteria {
	p := c.PageRequest().Normalize()
	c.Page = p.Page
	c.PageSize = p.PageSize
	return c
}

func (c UserCriteria) PageRequest() sharedQuery.PageRequest {
	return sharedQuery.PageRequest{Page: c.Page, PageSize: c.PageSize}
}

// Sort resuelve la clave contra la allow-list. Nunca falla: entrada
// desconocida se corrige en silencio a created_at, y la dirección es
// descendente salvo "asc" (sin distinguir mayúsculas).
func (c UserCriteria) Sort() sharedQuery.Sort {
	field, ok := sortFields[strings.ToLower(strings.TrimSpace(c.SortBy))]
	if !ok {
		field = FieldCreatedAt
	}
	return sharedQuery.Sort{
		Field: field,
		Desc:  !strings.EqualFold(strings.TrimSpace(c.SortDirection), "asc"),
	}
}

// ---------------- Compilación de filtros ----------------

// ToConditions emite la lista ordenada de pasos de predicado. Todos
// componen con AND; un filtro omitido no añade condición.
func (c UserCriteria) ToConditions() []sharedDomain.Criterion {
	var conds []sharedDomain.Criterion

	if s := strings.TrimSpace(c.SearchTerm); s != "" {
		conds = append(conds, sharedDomain.Criterion{Field: FieldSearch, Op: sharedDomain.OpILike, Value: s})
	}
	if c.FirstName != "" {
		conds = append(conds, sharedDomain.Criterion{Field: FieldFirstName, Op: sharedDomain.OpILike, Value: c.FirstName})
	}
	if c.LastName != "" {
		conds = append(conds, sharedDomain.Criterion{Field: FieldLastName, Op: sharedDomain.OpILike, Value: c.LastName})
	}
	if c.Email != "" {
		conds = append(conds, sharedDomain.Criterion{Field: FieldEmail, Op: sharedDomain.OpILike, Value: c.Email})
	}
	if c.PhoneNumber != "" {
		conds = append(conds, sharedDomain.Criterion{Field: FieldPhoneNumber, Op: sharedDomain.OpLike, Value: c.PhoneNumber})
	}
	if c.Gender != "" {
		conds = append(conds, sharedDomain.Criterion{Field: FieldGender, Op: sharedDomain.OpIEq, Value: c.Gender})
	}
	if c.RoleName != "" {
		conds = append(conds, sharedDomain.Criterion{Field: FieldRoleName, Op: sharedDomain.OpILike, Value: c.RoleName})
	}

	// Los rangos de fecha son inclusivos y aplican de forma independiente.
	if c.DateOfBirthFrom != nil {
		conds = append(conds, sharedDomain.Criterion{Field: FieldDateOfBirth, Op: sharedDomain.OpGte, Value: *c.DateOfBirthFrom})
	}
	if c.DateOfBirthTo != nil {
		conds = append(conds, sharedDomain.Criterion{Field: FieldDateOfBirth, Op: sharedDomain.OpLte, Value: *c.DateOfBirthTo})
	}
	if c.CreatedFrom != nil {
		conds = append(conds, sharedDomain.Criterion{Field: FieldCreatedAt, Op: sharedDomain.OpGte, Value: *c.CreatedFrom})
	}
	if c.CreatedTo != nil {
		conds = append(conds, sharedDomain.Criterion{Field: FieldCreatedAt, Op: sharedDomain.OpLte, Value: *c.CreatedTo})
	}

	return conds
}

var _ sharedDomain.Criteria = UserCriteria{}

// ---------------- Predicado canónico ----------------

// Matches es el predicado de referencia sobre un único registro. Los
// stores en memoria lo usan directamente; los adapters SQL/Mongo deben
// compilar ToConditions a la misma semántica.
func (c UserCriteria) Matches(u *User) bool {
	if s := strings.TrimSpace(c.SearchTerm); s != "" {
		term := strings.ToLower(s)
		if !strings.Contains(strings.ToLower(u.FirstName), term) &&
			!strings.Contains(strings.ToLower(u.LastName), term) &&
			!strings.Contains(strings.ToLower(u.Email), term) &&
			!strings.Contains(strings.ToLower(u.PhoneNumber), term) &&
			!strings.Contains(strings.ToLower(u.RoleName), term) {
			return false
		}
	}
	if !containsFold(u.FirstName, c.FirstName) ||
		!containsFold(u.LastName, c.LastName) ||
		!containsFold(u.Email, c.Email) ||
		!containsFold(u.PhoneNumber, c.PhoneNumber) ||
		!containsFold(u.RoleName, c.RoleName) {
		return false
	}
	if c.Gender != "" && !strings.EqualFold(u.Gender, c.Gender) {
		return false
	}
	if c.DateOfBirthFrom != nil && u.DateOfBirth.Before(*c.DateOfBirthFrom) {
		return false
	}
	if c.DateOfBirthTo != nil && u.DateOfBirth.After(*c.DateOfBirthTo) {
		return false
	}
	if c.CreatedFrom != nil && u.CreatedAt.Before(*c.CreatedFrom) {
		return false
	}
	if c.CreatedTo != nil && u.CreatedAt.After(*c.CreatedTo) {
		return false
	}
	return true
}

// Less es el comparador de referencia para la ordenación en memoria.
// Usuarios sin rol ordenan como si el nombre de rol fuera cadena vacía.
func (c UserCriteria) Less(a, b *User) bool {
	s := c.Sort()
	var less bool
	switch s.Field {
	case FieldFirstName:
		less = strings.ToLower(a.FirstName) < strings.ToLower(b.FirstName)
	case FieldLastName:
		less = strings.ToLower(a.LastName) < strings.ToLower(b.LastName)
	case FieldEmail:
		less = strings.ToLower(a.Email) < strings.ToLower(b.Email)
	case FieldDateOfBirth:
		less = a.DateOfBirth.Before(b.DateOfBirth)
	case FieldGender:
		less = strings.ToLower(a.Gender) < strings.ToLower(b.Gender)
	case FieldRoleName:
		less = strings.ToLower(a.RoleName) < strings.ToLower(b.RoleName)
	default:
		less = a.CreatedAt.Before(b.CreatedAt)
	}
	if s.Desc {
		return !less && !equalForSort(a, b, s.Field)
	}
	return less
}

func equalForSort(a, b *User, field string) bool {
	switch field {
	case FieldFirstName:
		return strings.EqualFold(a.FirstName, b.FirstName)
	case FieldLastName:
		return strings.EqualFold(a.LastName, b.LastName)
	case FieldEmail:
		return strings.EqualFold(a.Email, b.Email)
	case FieldDateOfBirth:
		return a.DateOfBirth.Equal(b.DateOfBirth)
	case FieldGender:
		return strings.EqualFold(a.Gender, b.Gender)
	case FieldRoleName:
		return strings.EqualFold(a.RoleName, b.RoleName)
	default:
		return a.CreatedAt.Equal(b.CreatedAt)
	}
}

func containsFold(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
