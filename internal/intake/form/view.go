package form

import (
	"time"

	"github.com/leadflow/leadflow-backend/internal/intake/domain"
)

// SlotView summarizes one slot without its image bytes
type SlotView struct {
	Slot       domain.DocumentSlot `json:"slot"`
	Label      string              `json:"label"`
	Present    bool                `json:"present"`
	MIMEType   string              `json:"mime_type,omitempty"`
	SizeBytes  int                 `json:"size_bytes,omitempty"`
	Recognizes domain.DocumentType `json:"recognizes,omitempty"`
	Processing bool                `json:"processing"`
	Queued     bool                `json:"queued,omitempty"`
}

// CameraView is the camera state shown to the agent
type CameraView struct {
	ActiveSlot domain.DocumentSlot `json:"active_slot,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// Checklist mirrors the submission panel of the intake form. It is
// informational only; Validate decides whether a draft can be submitted.
type Checklist struct {
	MobileComplete        bool `json:"mobile_complete"`
	RCComplete            bool `json:"rc_complete"`
	VehiclePhotosComplete bool `json:"vehicle_photos_complete"`
	AgreementComplete     bool `json:"agreement_complete"`
}

// View is a consistent point-in-time copy of the form state
type View struct {
	CustomerName string `json:"customerName"`
	Mobile       string `json:"mobile"`
	BrokerName   string `json:"brokerName"`
	GuarName     string `json:"guarName"`

	Slots []SlotView `json:"slots"`

	Aadhaar   *domain.AadhaarData   `json:"aadhaarData,omitempty"`
	RC        *domain.RCData        `json:"rcData,omitempty"`
	Insurance *domain.InsuranceData `json:"insuranceData,omitempty"`

	Processing         domain.DocumentType `json:"processing,omitempty"`
	PendingExtractions int                 `json:"pending_extractions"`
	Camera             CameraView          `json:"camera"`
	Checklist          Checklist           `json:"checklist"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns the current form state
func (s *Store) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.draft.Clone()
	v := View{
		CustomerName:       d.CustomerName,
		Mobile:             d.Mobile,
		BrokerName:         d.BrokerName,
		GuarName:           d.GuarName,
		Aadhaar:            d.Aadhaar,
		RC:                 d.RC,
		Insurance:          d.Insurance,
		Processing:         s.processing,
		PendingExtractions: len(s.pending),
		Camera:             CameraView{ActiveSlot: s.activeCapture, Error: s.cameraError},
		Checklist:          checklistOf(d),
		CreatedAt:          s.createdAt,
		UpdatedAt:          s.updatedAt,
	}

	for _, slot := range domain.AllSlots() {
		sv := SlotView{Slot: slot, Label: slot.Label()}
		if p, ok := d.Slots[slot]; ok {
			sv.Present = true
			sv.MIMEType = p.MIMEType()
			sv.SizeBytes = p.Size()
		}
		if dt, ok := domain.ExtractionTypeFor(slot); ok {
			sv.Recognizes = dt
			sv.Processing = s.processing == dt
			for marker, queued := range s.pending {
				if queued == dt && marker != s.running {
					sv.Queued = true
				}
			}
		}
		v.Slots = append(v.Slots, sv)
	}
	return v
}

func checklistOf(d *domain.LeadDraft) Checklist {
	has := func(slots ...domain.DocumentSlot) bool {
		for _, s := range slots {
			if _, ok := d.Slots[s]; !ok {
				return false
			}
		}
		return true
	}
	return Checklist{
		MobileComplete:        len(d.Mobile) == MobileDigits,
		RCComplete:            has(domain.SlotRCFront, domain.SlotRCBack),
		VehiclePhotosComplete: has(domain.SlotVehFront, domain.SlotVehBack, domain.SlotVehEngine, domain.SlotVehChassis),
		AgreementComplete:     has(domain.SlotAgreement, domain.SlotHisab),
	}
}
