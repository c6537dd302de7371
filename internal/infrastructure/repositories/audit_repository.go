package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/verification-service/internal/core/domain/audit"
	"github.com/avatarctic/verification-service/internal/core/ports"
	"github.com/avatarctic/verification-service/internal/infrastructure/db"
)

type auditRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewAuditRepository creates a new instance of AuditRepository
func NewAuditRepository(database *db.Database, logger *logrus.Logger) ports.AuditRepository {
	return &auditRepository{
		db:     database,
		logger: logger,
	}
}

// Create inserts a new audit log entry into the database
func (r *auditRepository) Create(ctx context.Context, log *audit.AuditLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now()
	}

	// Details are stored as JSON text so jsonb and TEXT columns both accept them
	var details sql.NullString
	if log.Details != nil {
		b, err := json.Marshal(log.Details)
		if err != nil {
			return err
		}
		details = sql.NullString{String: string(b), Valid: true}
	}

	query := r.db.DB.Rebind(`
		INSERT INTO audit_logs (
			id, user_id, action, resource, resource_id,
			details, ip_address, user_agent, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.DB.ExecContext(ctx, query,
		log.ID,
		log.UserID,
		log.Action,
		log.Resource,
		log.ResourceID,
		details,
		log.IPAddress,
		log.UserAgent,
		log.Timestamp.UTC(),
	)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"user_id": log.UserID, "action": log.Action}).WithError(err).Error("db: failed to insert audit log")
		}
		return err
	}
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"user_id": log.UserID, "action": log.Action, "resource_id": log.ResourceID}).Debug("db: audit log inserted")
	}
	return nil
}

type auditRow struct {
	ID         uuid.UUID      `db:"id"`
	UserID     *uuid.UUID     `db:"user_id"`
	Action     string         `db:"action"`
	Resource   string         `db:"resource"`
	ResourceID *uuid.UUID     `db:"resource_id"`
	Details    sql.NullString `db:"details"`
	IPAddress  string         `db:"ip_address"`
	UserAgent  string         `db:"user_agent"`
	Timestamp  time.Time      `db:"timestamp"`
}

// List retrieves audit logs based on the provided filter
func (r *auditRepository) List(ctx context.Context, filter *audit.AuditLogFilter) ([]*audit.AuditLog, error) {
	query, args := r.buildListQuery(filter, false)
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"query": query, "args": args}).Debug("db: executing audit list query")
	}
	var rows []auditRow
	if err := r.db.DB.SelectContext(ctx, &rows, query, args...); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"query": query}).WithError(err).Error("db: failed to execute audit list query")
		}
		return nil, err
	}

	logs := make([]*audit.AuditLog, 0, len(rows))
	for _, row := range rows {
		log := &audit.AuditLog{
			ID:         row.ID,
			UserID:     row.UserID,
			Action:     row.Action,
			Resource:   row.Resource,
			ResourceID: row.ResourceID,
			IPAddress:  row.IPAddress,
			UserAgent:  row.UserAgent,
			Timestamp:  row.Timestamp,
		}
		// Parse details JSON if present
		if row.Details.Valid && row.Details.String != "" {
			var details interface{}
			if err := json.Unmarshal([]byte(row.Details.String), &details); err == nil {
				log.Details = details
			}
		}
		logs = append(logs, log)
	}
	return logs, nil
}

// Count returns the total number of audit logs matching the filter
func (r *auditRepository) Count(ctx context.Context, filter *audit.AuditLogFilter) (int, error) {
	query, args := r.buildListQuery(filter, true)

	var count int
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"query": query, "args": args}).Debug("db: executing audit count query")
	}
	err := r.db.DB.GetContext(ctx, &count, query, args...)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"query": query}).WithError(err).Error("db: failed to execute audit count query")
		}
		return 0, err
	}
	return count, nil
}

// buildListQuery constructs the SQL query and arguments for listing/counting audit logs
func (r *auditRepository) buildListQuery(filter *audit.AuditLogFilter, isCount bool) (string, []interface{}) {
	var selectClause string
	if isCount {
		selectClause = "SELECT COUNT(*)"
	} else {
		selectClause = `SELECT
			id, user_id, action, resource, resource_id,
			details, ip_address, user_agent, timestamp`
	}

	query := selectClause + " FROM audit_logs"
	var conditions []string
	var args []interface{}

	if filter != nil {
		if filter.UserID != nil {
			conditions = append(conditions, "user_id = ?")
			args = append(args, *filter.UserID)
		}
		if filter.Action != nil {
			conditions = append(conditions, "action = ?")
			args = append(args, string(*filter.Action))
		}
		if filter.Resource != nil {
			conditions = append(conditions, "resource = ?")
			args = append(args, string(*filter.Resource))
		}
		if filter.ResourceID != nil {
			conditions = append(conditions, "resource_id = ?")
			args = append(args, *filter.ResourceID)
		}
		if filter.StartTime != nil {
			conditions = append(conditions, "timestamp >= ?")
			args = append(args, filter.StartTime.UTC())
		}
		if filter.EndTime != nil {
			conditions = append(conditions, "timestamp <= ?")
			args = append(args, filter.EndTime.UTC())
		}
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	// Add ORDER BY and LIMIT/OFFSET for non-count queries
	if !isCount {
		query += " ORDER BY timestamp DESC"
		if filter != nil {
			if filter.Limit > 0 {
				query += " LIMIT ?"
				args = append(args, filter.Limit)
			}
			if filter.Offset > 0 {
				if filter.Limit <= 0 && r.db.DB.DriverName() == db.DriverSQLite {
					// SQLite requires a LIMIT before OFFSET
					query += " LIMIT -1"
				}
				query += " OFFSET ?"
				args = append(args, filter.Offset)
			}
		}
	}

	return r.db.DB.Rebind(query), args
}
