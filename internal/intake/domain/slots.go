package domain

import "fmt"

// DocumentSlot identifies one capture target on the intake form
type DocumentSlot string

const (
	// Applicant KYC
	SlotCustPhoto        DocumentSlot = "custPhoto"
	SlotCustPhoto2       DocumentSlot = "custPhoto2"
	SlotCustAadhaarFront DocumentSlot = "custAadhaarFront"
	SlotCustAadhaarBack  DocumentSlot = "custAadhaarBack"
	SlotCustPan          DocumentSlot = "custPan"

	// Guarantor
	SlotGuarPhoto        DocumentSlot = "guarPhoto"
	SlotGuar2Photo       DocumentSlot = "guar2Photo"
	SlotGuarAadhaarFront DocumentSlot = "guarAadhaarFront"
	SlotGuarAadhaarBack  DocumentSlot = "guarAadhaarBack"
	SlotGuarPan          DocumentSlot = "guarPan"

	// Vehicle documentation
	SlotRCFront   DocumentSlot = "rcFront"
	SlotRCBack    DocumentSlot = "rcBack"
	SlotInsurance DocumentSlot = "insurance"

	// Vehicle photos
	SlotVehFront    DocumentSlot = "vehFront"
	SlotVehBack     DocumentSlot = "vehBack"
	SlotVehLeft     DocumentSlot = "vehLeft"
	SlotVehRight    DocumentSlot = "vehRight"
	SlotVehInterior DocumentSlot = "vehInterior"
	SlotVehEngine   DocumentSlot = "vehEngine"
	SlotVehChassis  DocumentSlot = "vehChassis"
	SlotVehTyres    DocumentSlot = "vehTyres"
	SlotVehOdo      DocumentSlot = "vehOdo"

	// Agreement & accounts
	SlotAgreement DocumentSlot = "agreement"
	SlotHisab     DocumentSlot = "hisab"
)

type slotInfo struct {
	label       string
	outputField string
}

var slotTable = map[DocumentSlot]slotInfo{
	SlotCustPhoto:        {"Cust. Photo 1", "custPhoto"},
	SlotCustPhoto2:       {"Cust. Photo 2", "custPhoto2"},
	SlotCustAadhaarFront: {"Aadhaar Front", "custAadhaarFront"},
	SlotCustAadhaarBack:  {"Aadhaar Back", "custAadhaarBack"},
	SlotCustPan:          {"PAN Card", "custPan"},
	SlotGuarPhoto:        {"Guar. Photo 1", "guarPhoto"},
	SlotGuar2Photo:       {"Guar. Photo 2", "guar2Photo"},
	SlotGuarAadhaarFront: {"G. Aadhaar Front", "guarAadhaarFront"},
	SlotGuarAadhaarBack:  {"G. Aadhaar Back", "guarAadhaarBack"},
	SlotGuarPan:          {"G. PAN Card", "guarPan"},
	SlotRCFront:          {"RC Front", "rcFront"},
	SlotRCBack:           {"RC Back", "rcBack"},
	SlotInsurance:        {"Insurance", "insuranceFile"},
	SlotVehFront:         {"Front", "vehFront"},
	SlotVehBack:          {"Back", "vehBack"},
	SlotVehLeft:          {"Left", "vehLeft"},
	SlotVehRight:         {"Right", "vehRight"},
	SlotVehInterior:      {"Interior", "vehInterior"},
	SlotVehEngine:        {"Engine", "vehEngine"},
	SlotVehChassis:       {"Chassis", "vehChassis"},
	SlotVehTyres:         {"Tyres", "vehTyres"},
	SlotVehOdo:           {"Odometer", "vehOdo"},
	SlotAgreement:        {"Agreement Photo", "agreementPhoto"},
	SlotHisab:            {"Hisab Chitti Photo", "hisabChittiPhoto"},
}

// allSlots is the form order
var allSlots = []DocumentSlot{
	SlotCustPhoto, SlotCustPhoto2, SlotCustAadhaarFront, SlotCustAadhaarBack, SlotCustPan,
	SlotGuarPhoto, SlotGuar2Photo, SlotGuarAadhaarFront, SlotGuarAadhaarBack, SlotGuarPan,
	SlotRCFront, SlotRCBack, SlotInsurance,
	SlotVehFront, SlotVehBack, SlotVehLeft, SlotVehRight, SlotVehInterior,
	SlotVehEngine, SlotVehChassis, SlotVehTyres, SlotVehOdo,
	SlotAgreement, SlotHisab,
}

// AllSlots returns every slot in form order
func AllSlots() []DocumentSlot {
	out := make([]DocumentSlot, len(allSlots))
	copy(out, allSlots)
	return out
}

// ParseSlot validates a slot identifier
func ParseSlot(s string) (DocumentSlot, error) {
	slot := DocumentSlot(s)
	if !slot.Valid() {
		return "", fmt.Errorf("unknown document slot %q", s)
	}
	return slot, nil
}

// Valid reports whether the slot is part of the form
func (s DocumentSlot) Valid() bool {
	_, ok := slotTable[s]
	return ok
}

// Label returns the human-readable caption of the slot
func (s DocumentSlot) Label() string {
	return slotTable[s].label
}

// OutputField returns the name of the slot's image field in a lead record
func (s DocumentSlot) OutputField() string {
	return slotTable[s].outputField
}

// ExtractionTypeFor returns the document type recognized from images in the
// slot. Only the applicant's Aadhaar front, the RC front and the insurance
// policy are sent for recognition.
func ExtractionTypeFor(slot DocumentSlot) (DocumentType, bool) {
	switch slot {
	case SlotCustAadhaarFront:
		return DocumentTypeAadhaar, true
	case SlotRCFront:
		return DocumentTypeRC, true
	case SlotInsurance:
		return DocumentTypeInsurance, true
	default:
		return "", false
	}
}
