package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/leadflow/leadflow-backend/internal/intake/domain"
)

// JPEG and PNG magic bytes for image detection
var (
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47}
)

// VisionServiceRecognizer extracts document fields by sending images to a
// self-hosted vision service.
type VisionServiceRecognizer struct {
	visionURL  string
	httpClient *http.Client
}

// NewVisionServiceRecognizer creates a recognizer that calls the given vision service URL.
func NewVisionServiceRecognizer(visionURL string, timeout time.Duration) *VisionServiceRecognizer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &VisionServiceRecognizer{
		visionURL:  visionURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (r *VisionServiceRecognizer) Name() string { return "vision-service" }

func (r *VisionServiceRecognizer) Supports(docType domain.DocumentType) bool {
	_, ok := fieldHints[docType]
	return ok
}

func (r *VisionServiceRecognizer) Recognize(ctx context.Context, req Request) ([]byte, error) {
	imageData := req.Image.Bytes()
	if !isImageData(imageData) {
		return nil, fmt.Errorf("vision: data is not a JPEG or PNG image")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "document."+req.Image.Extension())
	if err != nil {
		return nil, fmt.Errorf("vision: create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("vision: write image data: %w", err)
	}
	for k, v := range map[string]string{
		"document_type":   string(req.DocumentType),
		"instruction":     req.Instruction,
		"response_format": "json",
	} {
		if err := writer.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("vision: write %s field: %w", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("vision: close multipart writer: %w", err)
	}

	url := r.visionURL + "/api/v1/extract"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("vision: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("vision: service request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("vision: read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vision: service returned %d: %s", resp.StatusCode, string(respBody))
	}

	var visionResp visionExtractionResponse
	if err := json.Unmarshal(respBody, &visionResp); err != nil {
		return nil, fmt.Errorf("vision: parse response: %w", err)
	}

	// Fold the key/value list into the object shape the schema checks
	obj := make(map[string]string, len(visionResp.Fields))
	for _, f := range visionResp.Fields {
		obj[f.Key] = f.Value
	}
	return json.Marshal(obj)
}

// isImageData checks for JPEG or PNG magic bytes at the start of the data.
func isImageData(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	return bytes.HasPrefix(data, jpegMagic) || bytes.HasPrefix(data, pngMagic)
}

type visionExtractionResponse struct {
	DocumentType     string        `json:"document_type"`
	Fields           []visionField `json:"fields"`
	Warnings         []string      `json:"warnings"`
	ProcessingTimeMs int64         `json:"processing_time_ms"`
}

type visionField struct {
	Key        string  `json:"key"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}
