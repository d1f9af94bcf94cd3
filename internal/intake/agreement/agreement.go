// Package agreement renders a stored lead as a printable agreement page.
package agreement

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/leadflow/leadflow-backend/internal/intake/domain"
	"github.com/leadflow/leadflow-backend/pkg/i18n"
)

//go:embed templates/agreement.html
var templatesFS embed.FS

// URLSigner issues download URLs for stored images
type URLSigner interface {
	PresignedURL(ctx context.Context, key string) (string, error)
}

var labelKeys = []string{
	"title", "case_id", "date", "applicant", "mobile", "broker", "guarantor",
	"status", "vehicle", "insurance", "documents", "agreement_photo",
	"hisab_photo", "signature_applicant", "signature_guarantor",
	"signature_authorized", "missing", "print", "not_available", "reg_no",
	"make", "chassis_no", "engine_no", "policy_no", "company", "expiry",
}

// Document is one thumbnail on the page
type Document struct {
	Label string
	URL   string
}

// Page is the template data
type Page struct {
	Locale    string
	L         map[string]string
	Lead      *domain.Lead
	Date      string
	Documents []Document
	Agreement string
	Hisab     string
}

// Renderer renders agreement pages
type Renderer struct {
	tmpl   *template.Template
	signer URLSigner
}

// NewRenderer parses the embedded template
func NewRenderer(signer URLSigner) (*Renderer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/agreement.html")
	if err != nil {
		return nil, fmt.Errorf("parse agreement template: %w", err)
	}
	return &Renderer{tmpl: tmpl, signer: signer}, nil
}

// Build collects the page data. Labels follow the locale in ctx.
func (r *Renderer) Build(ctx context.Context, lead *domain.Lead) (*Page, error) {
	loc := i18n.LocalizerFromContext(ctx)
	page := &Page{
		Locale: loc.GetLocale(),
		L:      make(map[string]string, len(labelKeys)),
		Lead:   lead,
		Date:   lead.CreatedAt.Format("02/01/2006"),
	}
	for _, k := range labelKeys {
		page.L[k] = loc.T("agreement." + k)
	}

	for _, slot := range domain.AllSlots() {
		key, ok := lead.Documents[slot.OutputField()]
		if !ok {
			continue
		}
		url, err := r.signer.PresignedURL(ctx, key)
		if err != nil {
			return nil, err
		}
		switch slot {
		case domain.SlotAgreement:
			page.Agreement = url
		case domain.SlotHisab:
			page.Hisab = url
		default:
			page.Documents = append(page.Documents, Document{Label: slot.Label(), URL: url})
		}
	}
	return page, nil
}

// Render writes the HTML page of a lead
func (r *Renderer) Render(ctx context.Context, w io.Writer, lead *domain.Lead) error {
	page, err := r.Build(ctx, lead)
	if err != nil {
		return err
	}
	return r.tmpl.ExecuteTemplate(w, "agreement.html", page)
}
