package repository

// Migrations returns the DDL of the intake tables, in order
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS leads (
			id UUID PRIMARY KEY,
			status VARCHAR(20) NOT NULL DEFAULT 'New',
			customer_name VARCHAR(255) NOT NULL,
			mobile VARCHAR(10) NOT NULL,
			broker_name VARCHAR(255) NOT NULL DEFAULT '',
			guar_name VARCHAR(255) NOT NULL DEFAULT '',
			aadhaar_data JSONB,
			rc_data JSONB,
			insurance_data JSONB,
			documents JSONB NOT NULL DEFAULT '{}',
			created_by VARCHAR(100) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT leads_mobile_format CHECK (mobile ~ '^[0-9]{10}$'),
			CONSTRAINT leads_customer_name_present CHECK (btrim(customer_name) <> ''),
			CONSTRAINT leads_status_valid CHECK (status IN ('New', 'Verified', 'Approved', 'Rejected'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_mobile ON leads(mobile)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS extraction_audit (
			id UUID PRIMARY KEY,
			draft_id VARCHAR(64) NOT NULL,
			slot VARCHAR(40) NOT NULL,
			document_type VARCHAR(20) NOT NULL,
			processor VARCHAR(40) NOT NULL DEFAULT '',
			fields_extracted TEXT[] NOT NULL DEFAULT '{}',
			processing_duration_ms BIGINT NOT NULL DEFAULT 0,
			succeeded BOOLEAN NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_extraction_audit_draft ON extraction_audit(draft_id)`,
	}
}
