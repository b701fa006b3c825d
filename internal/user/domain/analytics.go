package domain

import (
	"context"
	"time"
)

// DailyUserTrend agrega altas y bajas de usuarios por día.
type DailyUserTrend struct {
	Day          time.Time `json:"day"`
	CreatedCount uint64    `json:"createdCount"`
	DeletedCount uint64    `json:"deletedCount"`
}

// UserAnalyticsRepository consulta el histórico de eventos de usuario.
type UserAnalyticsRepository interface {
	DailyTrend(ctx context.Context, start, end time.Time) ([]DailyUserTrend, error)
}
