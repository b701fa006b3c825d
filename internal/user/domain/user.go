package domain

import (
	"strings"
	"time"

	sharedBus "github.com/davicafu/userlab/internal/shared/platform/bus"
	"github.com/google/uuid"
)

// User representa un usuario del sistema con su rol asociado.
// PasswordHash nunca se serializa ni se escribe en logs.
type User struct {
	ID           uuid.UUID  `json:"id"`
	FirstName    string     `json:"firstName"`
	MiddleName   string     `json:"middleName"`
	LastName     string     `json:"lastName"`
	DateOfBirth  time.Time  `json:"dateOfBirth"`
	Gender       string     `json:"gender"`
	Email        string     `json:"emailAddress"`
	PasswordHash string     `json:"-"`
	PhoneNumber  string     `json:"phoneNumber"`
	RoleID       *uuid.UUID `json:"roleId,omitempty"`
	RoleName     string     `json:"roleName"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (u *User) PartitionKey() string {
	return u.ID.String()
}

// FullName concatena las partes del nombre omitiendo las vacías.
func (u *User) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{u.FirstName, u.MiddleName, u.LastName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Age calcula la edad del usuario a partir de su fecha de nacimiento.
func (u *User) Age() int {
	now := time.Now()
	years := now.Year() - u.DateOfBirth.Year()
	if now.YearDay() < u.DateOfBirth.YearDay() {
		years--
	}
	return years
}

// Verificación estática para asegurar que User implementa la interfaz
var _ sharedBus.Keyer = (*User)(nil)
