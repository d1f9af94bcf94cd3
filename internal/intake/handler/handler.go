// Package handler exposes the intake service over HTTP.
package handler

import (
	"bytes"
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/leadflow/leadflow-backend/internal/intake/agreement"
	"github.com/leadflow/leadflow-backend/internal/intake/capture"
	"github.com/leadflow/leadflow-backend/internal/intake/domain"
	"github.com/leadflow/leadflow-backend/internal/intake/form"
	"github.com/leadflow/leadflow-backend/internal/intake/service"
	"github.com/leadflow/leadflow-backend/internal/intake/storage"
	"github.com/leadflow/leadflow-backend/pkg/errors"
	"github.com/leadflow/leadflow-backend/pkg/httputil"
	"github.com/leadflow/leadflow-backend/pkg/logger"
)

const defaultMaxUpload = 20 << 20 // 20MB

// Handler handles draft and lead endpoints
type Handler struct {
	service   *service.IntakeService
	renderer  *agreement.Renderer
	maxUpload int64
	log       *logger.Logger
}

// NewHandler creates a new intake handler
func NewHandler(svc *service.IntakeService, renderer *agreement.Renderer, maxUpload int64, log *logger.Logger) *Handler {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	return &Handler{
		service:   svc,
		renderer:  renderer,
		maxUpload: maxUpload,
		log:       log,
	}
}

// Routes mounts the draft and lead endpoints
func (h *Handler) Routes(r chi.Router) {
	r.Route("/drafts", func(r chi.Router) {
		r.Post("/", h.CreateDraft)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetDraft)
			r.Delete("/", h.CancelDraft)
			r.Patch("/fields", h.SetFields)
			r.Post("/submit", h.Submit)

			r.Put("/slots/{slot}", h.UploadSlot)
			r.Get("/slots/{slot}", h.GetSlotImage)
			r.Delete("/slots/{slot}", h.ClearSlot)

			r.Post("/camera/{slot}", h.StartCamera)
			r.Post("/camera/{slot}/capture", h.Capture)
			r.Delete("/camera", h.StopCamera)
		})
	})

	r.Route("/leads/{id}", func(r chi.Router) {
		r.Get("/", h.GetLead)
		r.Get("/agreement", h.Agreement)
	})
}

// DraftResponse is a draft id plus its current state
type DraftResponse struct {
	ID string `json:"id"`
	form.View
}

// CreateDraft handles POST /drafts
func (h *Handler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	d := h.service.CreateDraft(httputil.GetAgentID(r.Context()))
	httputil.Created(w, DraftResponse{ID: d.ID, View: d.Form.Snapshot()})
}

// GetDraft handles GET /drafts/{id}
func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	h.respond(w, r, d.ID, d.Form.Snapshot(), nil)
}

// CancelDraft handles DELETE /drafts/{id}
func (h *Handler) CancelDraft(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	if err := h.service.Cancel(d.ID); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	httputil.NoContent(w)
}

// FieldsRequest carries the scalar fields to change. Absent fields are kept.
type FieldsRequest struct {
	CustomerName *string `json:"customerName" validate:"omitempty,max=255"`
	Mobile       *string `json:"mobile" validate:"omitempty,max=32"`
	BrokerName   *string `json:"brokerName" validate:"omitempty,max=255"`
	GuarName     *string `json:"guarName" validate:"omitempty,max=255"`
}

func (req *FieldsRequest) fields() map[string]string {
	out := make(map[string]string, 4)
	set := func(name string, v *string) {
		if v != nil {
			out[name] = *v
		}
	}
	set(domain.FieldCustomerName, req.CustomerName)
	set(domain.FieldMobile, req.Mobile)
	set(domain.FieldBrokerName, req.BrokerName)
	set(domain.FieldGuarName, req.GuarName)
	return out
}

// SetFields handles PATCH /drafts/{id}/fields
func (h *Handler) SetFields(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}

	var req FieldsRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	view, err := h.service.SetFields(d.ID, req.fields())
	h.respond(w, r, d.ID, view, err)
}

// UploadSlot handles PUT /drafts/{id}/slots/{slot}
// Accepts a multipart form with the image in "file".
func (h *Handler) UploadSlot(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	slot, ok := h.slot(w, r)
	if !ok {
		return
	}

	tooLarge := errors.PayloadTooLarge(strconv.FormatInt(h.maxUpload>>10, 10) + "KB")
	if r.ContentLength > h.maxUpload {
		httputil.ErrorLocalized(w, r, tooLarge)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			httputil.ErrorLocalized(w, r, tooLarge)
			return
		}
		httputil.ErrorLocalized(w, r, errors.BadRequestWithKey("draft.file_required", nil))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		httputil.ErrorLocalized(w, r, errors.BadRequestWithKey("draft.file_required", nil))
		return
	}
	defer file.Close()

	image, err := capture.SelectFile(file)
	if err != nil {
		httputil.ErrorLocalized(w, r, errors.BadRequestWithKey("draft.file_required", nil))
		return
	}

	view, err := h.service.SetSlotImage(d.ID, slot, image)
	h.respond(w, r, d.ID, view, err)
}

// GetSlotImage handles GET /drafts/{id}/slots/{slot}
func (h *Handler) GetSlotImage(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	slot, ok := h.slot(w, r)
	if !ok {
		return
	}

	image, err := h.service.SlotImage(d.ID, slot)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	w.Header().Set("Content-Type", image.MIMEType())
	w.Header().Set("Content-Length", strconv.Itoa(image.Size()))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(image.Bytes())
}

// ClearSlot handles DELETE /drafts/{id}/slots/{slot}
func (h *Handler) ClearSlot(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	slot, ok := h.slot(w, r)
	if !ok {
		return
	}
	view, err := h.service.ClearSlot(d.ID, slot)
	h.respond(w, r, d.ID, view, err)
}

// StartCamera handles POST /drafts/{id}/camera/{slot}
func (h *Handler) StartCamera(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	slot, ok := h.slot(w, r)
	if !ok {
		return
	}
	view, err := h.service.StartCamera(r.Context(), d.ID, slot)
	h.respond(w, r, d.ID, view, err)
}

// Capture handles POST /drafts/{id}/camera/{slot}/capture
func (h *Handler) Capture(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	slot, ok := h.slot(w, r)
	if !ok {
		return
	}
	view, err := h.service.Capture(r.Context(), d.ID, slot)
	h.respond(w, r, d.ID, view, err)
}

// StopCamera handles DELETE /drafts/{id}/camera
func (h *Handler) StopCamera(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}
	view, err := h.service.StopCamera(d.ID)
	h.respond(w, r, d.ID, view, err)
}

// Submit handles POST /drafts/{id}/submit
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	d, ok := h.draft(w, r)
	if !ok {
		return
	}

	lead, err := h.service.Submit(r.Context(), d.ID)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	httputil.Created(w, lead)
}

// GetLead handles GET /leads/{id}
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	lead, err := h.service.Lead(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, lead)
}

// Agreement handles GET /leads/{id}/agreement
// Returns the printable agreement page as HTML.
func (h *Handler) Agreement(w http.ResponseWriter, r *http.Request) {
	lead, err := h.service.Lead(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := h.renderer.Render(r.Context(), &buf, lead); err != nil {
		h.log.Error().Err(err).Str("lead_id", lead.ID).Msg("failed to render agreement")
		httputil.ErrorLocalized(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// draft loads the draft named in the path. Drafts of other agents are
// reported as missing.
func (h *Handler) draft(w http.ResponseWriter, r *http.Request) (*storage.Draft, bool) {
	d, err := h.service.Draft(chi.URLParam(r, "id"))
	if err == nil && d.AgentID != httputil.GetAgentID(r.Context()) {
		err = errors.NotFoundWithKey("draft")
	}
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return nil, false
	}
	return d, true
}

func (h *Handler) slot(w http.ResponseWriter, r *http.Request) (domain.DocumentSlot, bool) {
	raw := chi.URLParam(r, "slot")
	slot, err := domain.ParseSlot(raw)
	if err != nil {
		httputil.ErrorLocalized(w, r, errors.BadRequestWithKey("draft.unknown_slot", map[string]string{"slot": raw}))
		return "", false
	}
	return slot, true
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, id string, view form.View, err error) {
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, DraftResponse{ID: id, View: view})
}
