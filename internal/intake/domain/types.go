package domain

import (
	"fmt"
	"time"
)

// DocumentType is the kind of document recognized by the extraction service
type DocumentType string

const (
	DocumentTypeAadhaar   DocumentType = "aadhaar"
	DocumentTypeRC        DocumentType = "rc"
	DocumentTypeInsurance DocumentType = "insurance"
)

// AllDocumentTypes returns the recognized document types
func AllDocumentTypes() []DocumentType {
	return []DocumentType{DocumentTypeAadhaar, DocumentTypeRC, DocumentTypeInsurance}
}

// ParseDocumentType validates a document type name
func ParseDocumentType(s string) (DocumentType, error) {
	switch t := DocumentType(s); t {
	case DocumentTypeAadhaar, DocumentTypeRC, DocumentTypeInsurance:
		return t, nil
	default:
		return "", fmt.Errorf("unknown document type %q", s)
	}
}

// Bucket field names, as produced by the recognition service
var bucketFields = map[DocumentType][]string{
	DocumentTypeAadhaar: {
		"name", "dob", "aadhaarNo", "pincode", "state", "city", "area", "address",
	},
	DocumentTypeRC: {
		"regNo", "ownerName", "vehicleType", "mfgYear", "make", "makeClass",
		"regAuthority", "engineNo", "chassisNo", "fuelType", "color", "regDate", "expiryDate",
	},
	DocumentTypeInsurance: {
		"company", "type", "policyNo", "nameTransfer", "endorsementDate",
		"expiryDate", "idvValue", "premium",
	},
}

// FieldNames returns the recognized field names of a document type
func FieldNames(t DocumentType) []string {
	names := bucketFields[t]
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// AadhaarData holds fields recognized from an identity document
type AadhaarData struct {
	Name      string `json:"name,omitempty"`
	DOB       string `json:"dob,omitempty"`
	AadhaarNo string `json:"aadhaarNo,omitempty"`
	Pincode   string `json:"pincode,omitempty"`
	State     string `json:"state,omitempty"`
	City      string `json:"city,omitempty"`
	Area      string `json:"area,omitempty"`
	Address   string `json:"address,omitempty"`
}

// NewAadhaarData builds the identity bucket from recognized fields
func NewAadhaarData(f map[string]string) AadhaarData {
	return AadhaarData{
		Name:      f["name"],
		DOB:       f["dob"],
		AadhaarNo: f["aadhaarNo"],
		Pincode:   f["pincode"],
		State:     f["state"],
		City:      f["city"],
		Area:      f["area"],
		Address:   f["address"],
	}
}

// RCData holds fields recognized from a vehicle registration certificate
type RCData struct {
	RegNo        string `json:"regNo,omitempty"`
	OwnerName    string `json:"ownerName,omitempty"`
	VehicleType  string `json:"vehicleType,omitempty"`
	MfgYear      string `json:"mfgYear,omitempty"`
	Make         string `json:"make,omitempty"`
	MakeClass    string `json:"makeClass,omitempty"`
	RegAuthority string `json:"regAuthority,omitempty"`
	EngineNo     string `json:"engineNo,omitempty"`
	ChassisNo    string `json:"chassisNo,omitempty"`
	FuelType     string `json:"fuelType,omitempty"`
	Color        string `json:"color,omitempty"`
	RegDate      string `json:"regDate,omitempty"`
	ExpiryDate   string `json:"expiryDate,omitempty"`
}

// NewRCData builds the registration certificate bucket from recognized fields
func NewRCData(f map[string]string) RCData {
	return RCData{
		RegNo:        f["regNo"],
		OwnerName:    f["ownerName"],
		VehicleType:  f["vehicleType"],
		MfgYear:      f["mfgYear"],
		Make:         f["make"],
		MakeClass:    f["makeClass"],
		RegAuthority: f["regAuthority"],
		EngineNo:     f["engineNo"],
		ChassisNo:    f["chassisNo"],
		FuelType:     f["fuelType"],
		Color:        f["color"],
		RegDate:      f["regDate"],
		ExpiryDate:   f["expiryDate"],
	}
}

// InsuranceData holds fields recognized from a motor insurance policy
type InsuranceData struct {
	Company         string `json:"company,omitempty"`
	Type            string `json:"type,omitempty"`
	PolicyNo        string `json:"policyNo,omitempty"`
	NameTransfer    string `json:"nameTransfer,omitempty"`
	EndorsementDate string `json:"endorsementDate,omitempty"`
	ExpiryDate      string `json:"expiryDate,omitempty"`
	IDVValue        string `json:"idvValue,omitempty"`
	Premium         string `json:"premium,omitempty"`
}

// NewInsuranceData builds the insurance bucket from recognized fields
func NewInsuranceData(f map[string]string) InsuranceData {
	return InsuranceData{
		Company:         f["company"],
		Type:            f["type"],
		PolicyNo:        f["policyNo"],
		NameTransfer:    f["nameTransfer"],
		EndorsementDate: f["endorsementDate"],
		ExpiryDate:      f["expiryDate"],
		IDVValue:        f["idvValue"],
		Premium:         f["premium"],
	}
}

// ExtractionResult is the structured output of one recognition call
type ExtractionResult struct {
	DocumentType     DocumentType      `json:"document_type"`
	Fields           map[string]string `json:"fields"`
	Processor        string            `json:"processor,omitempty"`
	ProcessingTimeMs int64             `json:"processing_time_ms"`
}

// Scalar field names of the draft
const (
	FieldCustomerName = "customerName"
	FieldMobile       = "mobile"
	FieldBrokerName   = "brokerName"
	FieldGuarName     = "guarName"
)

// LeadDraft is the editable record of a lead being entered
type LeadDraft struct {
	CustomerName string `json:"customerName"`
	Mobile       string `json:"mobile"`
	BrokerName   string `json:"brokerName"`
	GuarName     string `json:"guarName"`

	Slots map[DocumentSlot]ImagePayload `json:"-"`

	Aadhaar   *AadhaarData   `json:"aadhaarData,omitempty"`
	RC        *RCData        `json:"rcData,omitempty"`
	Insurance *InsuranceData `json:"insuranceData,omitempty"`
}

// NewLeadDraft returns an empty draft
func NewLeadDraft() *LeadDraft {
	return &LeadDraft{Slots: make(map[DocumentSlot]ImagePayload)}
}

// Clone returns a deep copy of the draft
func (d *LeadDraft) Clone() *LeadDraft {
	c := *d
	c.Slots = make(map[DocumentSlot]ImagePayload, len(d.Slots))
	for k, v := range d.Slots {
		c.Slots[k] = v
	}
	if d.Aadhaar != nil {
		a := *d.Aadhaar
		c.Aadhaar = &a
	}
	if d.RC != nil {
		r := *d.RC
		c.RC = &r
	}
	if d.Insurance != nil {
		i := *d.Insurance
		c.Insurance = &i
	}
	return &c
}

// LeadRecord is the flat record handed to the create-lead collaborator
type LeadRecord struct {
	CustomerName string `json:"customerName"`
	Mobile       string `json:"mobile"`
	BrokerName   string `json:"brokerName"`
	GuarName     string `json:"guarName"`

	// Images keyed by slot output field (custAadhaarFront, insuranceFile, ...)
	Images map[string]ImagePayload `json:"images"`

	Aadhaar   *AadhaarData   `json:"aadhaarData,omitempty"`
	RC        *RCData        `json:"rcData,omitempty"`
	Insurance *InsuranceData `json:"insuranceData,omitempty"`
}

// LeadStatus is the review state of a stored lead
type LeadStatus string

const (
	LeadStatusNew      LeadStatus = "New"
	LeadStatusVerified LeadStatus = "Verified"
	LeadStatusApproved LeadStatus = "Approved"
	LeadStatusRejected LeadStatus = "Rejected"
)

// Lead is a persisted lead
type Lead struct {
	ID           string     `json:"id"`
	Status       LeadStatus `json:"status"`
	CustomerName string     `json:"customerName"`
	Mobile       string     `json:"mobile"`
	BrokerName   string     `json:"brokerName"`
	GuarName     string     `json:"guarName"`

	Aadhaar   *AadhaarData   `json:"aadhaarData,omitempty"`
	RC        *RCData        `json:"rcData,omitempty"`
	Insurance *InsuranceData `json:"insuranceData,omitempty"`

	// Object keys keyed by slot output field
	Documents map[string]string `json:"documents"`

	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
