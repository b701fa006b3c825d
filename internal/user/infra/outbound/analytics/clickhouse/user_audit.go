package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"

	sharedBus "github.com/davicafu/userlab/internal/shared/platform/bus"
	userDomain "github.com/davicafu/userlab/internal/user/domain"
)

type auditRow struct {
	eventType string
	user      *userDomain.User
	eventTime time.Time
}

// UserAuditSink registra el ciclo de vida de los usuarios en
// ClickHouse. Implementa EventBus para colgarse del fanout del
// relayer; las filas se acumulan y se insertan por lotes.
type UserAuditSink struct {
	db        *sql.DB
	log       *zap.Logger
	batchSize int

	mu      sync.Mutex
	pending []auditRow

	done     chan struct{}
	stopOnce sync.Once
}

func NewUserAuditSink(addr, dbName string, batchSize int, flushInterval time.Duration, log *zap.Logger) (*UserAuditSink, error) {
	conn := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: dbName,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
	})

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("could not ping clickhouse: %w", err)
	}

	s := &UserAuditSink{
		db:        conn,
		log:       log,
		batchSize: batchSize,
		done:      make(chan struct{}),
	}
	go s.flushLoop(flushInterval)
	return s, nil
}

var _ sharedBus.EventBus = (*UserAuditSink)(nil)
var _ userDomain.UserAnalyticsRepository = (*UserAuditSink)(nil)

// Publish acumula el evento; sólo interesan envelopes con payload de
// usuario, el resto se ignora en silencio.
func (s *UserAuditSink) Publish(ctx context.Context, event interface{}) error {
	env, ok := event.(sharedBus.Envelope)
	if !ok {
		return nil
	}
	u, ok := env.Payload.(*userDomain.User)
	if !ok {
		return nil
	}

	s.mu.Lock()
	s.pending = append(s.pending, auditRow{eventType: env.Type, user: u, eventTime: time.Now().UTC()})
	shouldFlush := len(s.pending) >= s.batchSize
	s.mu.Unlock()

	if shouldFlush {
		return s.Flush(ctx)
	}
	return nil
}

// Flush vuelca el lote acumulado en una sola inserción.
func (s *UserAuditSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	rows := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO users_log (id, email, gender, role_name, event_type, created_at, updated_at, event_time)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(
			ctx,
			row.user.ID,
			row.user.Email,
			row.user.Gender,
			row.user.RoleName,
			row.eventType,
			row.user.CreatedAt,
			row.user.UpdatedAt,
			row.eventTime,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to exec statement for user %s: %w", row.user.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.log.Debug("audit batch flushed", zap.Int("rows", len(rows)))
	return nil
}

func (s *UserAuditSink) flushLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Flush(context.Background()); err != nil {
				s.log.Warn("audit flush failed", zap.Error(err))
			}
		case <-s.done:
			return
		}
	}
}

// Stop detiene el volcado periódico y fuerza un último flush.
func (s *UserAuditSink) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		if err := s.Flush(context.Background()); err != nil {
			s.log.Warn("final audit flush failed", zap.Error(err))
		}
	})
}

// DailyTrend agrega altas y bajas por día en el rango pedido.
func (s *UserAuditSink) DailyTrend(ctx context.Context, start, end time.Time) ([]userDomain.DailyUserTrend, error) {
	query := `
		SELECT
			toStartOfDay(event_time) AS day,
			countIf(event_type = 'user.created') AS created,
			countIf(event_type = 'user.deleted') AS deleted
		FROM users_log
		WHERE event_time BETWEEN ? AND ?
		GROUP BY day
		ORDER BY day
	`
	rows, err := s.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trends []userDomain.DailyUserTrend
	for rows.Next() {
		var t userDomain.DailyUserTrend
		if err := rows.Scan(&t.Day, &t.CreatedCount, &t.DeletedCount); err != nil {
			return nil, err
		}
		trends = append(trends, t)
	}
	return trends, rows.Err()
}

// InitSchema crea la tabla de auditoría si no existe.
func (s *UserAuditSink) InitSchema() error {
	query := `
		CREATE TABLE IF NOT EXISTS users_log (
			id         UUID,
			email      String,
			gender     String,
			role_name  String,
			event_type String,
			created_at DateTime64(3),
			updated_at DateTime64(3),
			event_time DateTime64(3)
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(event_time)
		ORDER BY (event_type, event_time);
	`
	_, err := s.db.Exec(query)
	return err
}
