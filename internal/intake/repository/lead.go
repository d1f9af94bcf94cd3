// Package repository persists submitted leads and extraction audit records.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/leadflow/leadflow-backend/internal/intake/domain"
	"github.com/leadflow/leadflow-backend/pkg/database"
	"github.com/leadflow/leadflow-backend/pkg/errors"
)

// leadRow is the leads table row. Buckets and documents are JSONB.
type leadRow struct {
	ID            string          `db:"id"`
	Status        string          `db:"status"`
	CustomerName  string          `db:"customer_name"`
	Mobile        string          `db:"mobile"`
	BrokerName    string          `db:"broker_name"`
	GuarName      string          `db:"guar_name"`
	AadhaarData   json.RawMessage `db:"aadhaar_data"`
	RCData        json.RawMessage `db:"rc_data"`
	InsuranceData json.RawMessage `db:"insurance_data"`
	Documents     json.RawMessage `db:"documents"`
	CreatedBy     string          `db:"created_by"`
	CreatedAt     time.Time       `db:"created_at"`
}

// LeadRepository handles lead persistence
type LeadRepository struct {
	db *database.DB
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db *database.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

// Migrate creates the intake tables if they don't exist
func (r *LeadRepository) Migrate(ctx context.Context) error {
	return r.db.InTx(ctx, func(ctx context.Context) error {
		for _, stmt := range Migrations() {
			if _, err := r.db.Ext(ctx).ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
		return nil
	})
}

// Create inserts a lead. ID and status are assigned when empty; CreatedAt is
// set from the database.
func (r *LeadRepository) Create(ctx context.Context, lead *domain.Lead) error {
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	if lead.Status == "" {
		lead.Status = domain.LeadStatusNew
	}

	row, err := toRow(lead)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO leads (
			id, status, customer_name, mobile, broker_name, guar_name,
			aadhaar_data, rc_data, insurance_data, documents, created_by
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		) RETURNING created_at
	`

	err = r.db.Ext(ctx).QueryRowxContext(ctx, query,
		row.ID, row.Status, row.CustomerName, row.Mobile, row.BrokerName, row.GuarName,
		jsonArg(row.AadhaarData), jsonArg(row.RCData), jsonArg(row.InsuranceData), jsonArg(row.Documents), row.CreatedBy,
	).Scan(&lead.CreatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

// GetByID gets a lead by ID
func (r *LeadRepository) GetByID(ctx context.Context, id string) (*domain.Lead, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.NotFoundWithKey("lead")
	}

	query := `
		SELECT id, status, customer_name, mobile, broker_name, guar_name,
		       aadhaar_data, rc_data, insurance_data, documents, created_by, created_at
		FROM leads
		WHERE id = $1
	`

	var row leadRow
	err := sqlx.GetContext(ctx, r.db.Ext(ctx), &row, query, id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFoundWithKey("lead")
	}
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}

	return fromRow(&row)
}

func toRow(lead *domain.Lead) (*leadRow, error) {
	row := &leadRow{
		ID:           lead.ID,
		Status:       string(lead.Status),
		CustomerName: lead.CustomerName,
		Mobile:       lead.Mobile,
		BrokerName:   lead.BrokerName,
		GuarName:     lead.GuarName,
		CreatedBy:    lead.CreatedBy,
	}

	var err error
	if row.AadhaarData, err = marshalBucket(lead.Aadhaar); err != nil {
		return nil, err
	}
	if row.RCData, err = marshalBucket(lead.RC); err != nil {
		return nil, err
	}
	if row.InsuranceData, err = marshalBucket(lead.Insurance); err != nil {
		return nil, err
	}

	docs := lead.Documents
	if docs == nil {
		docs = map[string]string{}
	}
	if row.Documents, err = json.Marshal(docs); err != nil {
		return nil, fmt.Errorf("encode documents: %w", err)
	}
	return row, nil
}

func fromRow(row *leadRow) (*domain.Lead, error) {
	lead := &domain.Lead{
		ID:           row.ID,
		Status:       domain.LeadStatus(row.Status),
		CustomerName: row.CustomerName,
		Mobile:       row.Mobile,
		BrokerName:   row.BrokerName,
		GuarName:     row.GuarName,
		CreatedBy:    row.CreatedBy,
		CreatedAt:    row.CreatedAt,
		Documents:    map[string]string{},
	}

	if err := unmarshalBucket(row.AadhaarData, &lead.Aadhaar); err != nil {
		return nil, err
	}
	if err := unmarshalBucket(row.RCData, &lead.RC); err != nil {
		return nil, err
	}
	if err := unmarshalBucket(row.InsuranceData, &lead.Insurance); err != nil {
		return nil, err
	}
	if len(row.Documents) > 0 {
		if err := json.Unmarshal(row.Documents, &lead.Documents); err != nil {
			return nil, fmt.Errorf("decode documents: %w", err)
		}
	}
	return lead, nil
}

// marshalBucket encodes a bucket pointer; nil stays SQL NULL
func marshalBucket[T any](bucket *T) (json.RawMessage, error) {
	if bucket == nil {
		return nil, nil
	}
	b, err := json.Marshal(bucket)
	if err != nil {
		return nil, fmt.Errorf("encode bucket: %w", err)
	}
	return b, nil
}

func unmarshalBucket[T any](raw json.RawMessage, dst **T) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("decode bucket: %w", err)
	}
	*dst = &v
	return nil
}

// jsonArg passes JSONB as text; lib/pq would send []byte as bytea
func jsonArg(raw json.RawMessage) any {
	if raw == nil {
		return nil
	}
	return string(raw)
}
