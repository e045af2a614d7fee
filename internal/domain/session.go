package domain

import "time"

// SessionOutcome classifies how a driven migration run ended from the
// client's point of view. Distinct from JobStatus: timeout and lost
// connection mean "we stopped waiting", not that the job itself errored.
type SessionOutcome string

const (
	OutcomeCompleted      SessionOutcome = "completed"
	OutcomeFailed         SessionOutcome = "failed"
	OutcomeCancelled      SessionOutcome = "cancelled"
	OutcomeTimeout        SessionOutcome = "timeout"
	OutcomeConnectionLost SessionOutcome = "connection_lost"
	OutcomeRolledBack     SessionOutcome = "rolled_back"
)

// MigrationSession is the local journal row for one driven migration run.
// It records the trail of statuses the controller observed so past runs can
// be listed and resumed without asking the server.
type MigrationSession struct {
	ID            string         `gorm:"type:text;primaryKey" json:"id"`
	JobID         string         `gorm:"type:text;not null;uniqueIndex:idx_sessions_job" json:"job_id"`
	EntityType    string         `gorm:"type:text;index" json:"entity_type"`
	SourceURI     string         `gorm:"type:text" json:"source_uri"`
	LastStatus    JobStatus      `gorm:"type:text;index" json:"last_status"`
	ProcessedRows int            `gorm:"default:0" json:"processed_rows"`
	TotalRows     int            `gorm:"default:0" json:"total_rows"`
	Outcome       SessionOutcome `gorm:"type:text" json:"outcome,omitempty"`
	ErrorMessage  string         `gorm:"type:text" json:"error_message,omitempty"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    *time.Time     `json:"finished_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// TableName returns the database table name for MigrationSession.
func (MigrationSession) TableName() string {
	return "migration_sessions"
}
