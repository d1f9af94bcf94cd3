package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/leadflow/leadflow-backend/internal/intake/domain"
	"github.com/leadflow/leadflow-backend/pkg/database"
)

// ExtractionAudit is one recorded extraction attempt
type ExtractionAudit struct {
	DraftID      string
	Slot         domain.DocumentSlot
	DocumentType domain.DocumentType
	Processor    string
	Fields       []string
	DurationMs   int64
	Err          error
}

// AuditRepository records extraction attempts
type AuditRepository struct {
	db *database.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// RecordExtraction appends an audit row. Only field names are stored, never
// recognized values.
func (r *AuditRepository) RecordExtraction(ctx context.Context, a ExtractionAudit) error {
	fields := append([]string(nil), a.Fields...)
	sort.Strings(fields)

	errText := ""
	if a.Err != nil {
		errText = a.Err.Error()
	}

	query := `INSERT INTO extraction_audit
		(id, draft_id, slot, document_type, processor, fields_extracted, processing_duration_ms, succeeded, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Ext(ctx).ExecContext(ctx, query,
		uuid.New().String(),
		a.DraftID,
		string(a.Slot),
		string(a.DocumentType),
		a.Processor,
		pq.Array(fields),
		a.DurationMs,
		a.Err == nil,
		errText,
	)
	if err != nil {
		return fmt.Errorf("insert extraction audit: %w", err)
	}
	return nil
}
