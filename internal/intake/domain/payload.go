package domain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultImageMIME is the encoding produced by camera captures
const DefaultImageMIME = "image/jpeg"

// ImagePayload is an encoded still image. It is immutable: constructors copy
// the input and accessors never expose the backing array.
type ImagePayload struct {
	data     []byte
	mimeType string
}

// NewImagePayload creates a payload from raw encoded image bytes
func NewImagePayload(data []byte, mimeType string) ImagePayload {
	if len(data) == 0 {
		return ImagePayload{}
	}
	if mimeType == "" {
		mimeType = DefaultImageMIME
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return ImagePayload{data: buf, mimeType: mimeType}
}

// ParseDataURL decodes a "data:<mime>;base64,<data>" string
func ParseDataURL(s string) (ImagePayload, error) {
	if !strings.HasPrefix(s, "data:") {
		return ImagePayload{}, fmt.Errorf("not a data URL")
	}
	header, encoded, ok := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	if !ok {
		return ImagePayload{}, fmt.Errorf("data URL has no payload")
	}
	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return ImagePayload{}, fmt.Errorf("data URL is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return ImagePayload{}, fmt.Errorf("decode data URL: %w", err)
	}
	if len(data) == 0 {
		return ImagePayload{}, fmt.Errorf("data URL is empty")
	}
	return NewImagePayload(data, mimeType), nil
}

// IsZero reports whether the payload holds no image
func (p ImagePayload) IsZero() bool { return len(p.data) == 0 }

// Size returns the encoded size in bytes
func (p ImagePayload) Size() int { return len(p.data) }

// MIMEType returns the image encoding
func (p ImagePayload) MIMEType() string { return p.mimeType }

// Bytes returns a copy of the encoded image
func (p ImagePayload) Bytes() []byte {
	if p.IsZero() {
		return nil
	}
	buf := make([]byte, len(p.data))
	copy(buf, p.data)
	return buf
}

// Base64 returns the standard base64 encoding of the image
func (p ImagePayload) Base64() string {
	return base64.StdEncoding.EncodeToString(p.data)
}

// DataURL returns the image as a data URL, or "" for an empty payload
func (p ImagePayload) DataURL() string {
	if p.IsZero() {
		return ""
	}
	return "data:" + p.mimeType + ";base64," + p.Base64()
}

// Extension returns a file extension matching the MIME type
func (p ImagePayload) Extension() string {
	switch p.mimeType {
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "jpg"
	}
}

// Equal reports whether two payloads hold the same image
func (p ImagePayload) Equal(other ImagePayload) bool {
	return p.mimeType == other.mimeType && string(p.data) == string(other.data)
}

func (p ImagePayload) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.DataURL())
}

func (p *ImagePayload) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*p = ImagePayload{}
		return nil
	}
	parsed, err := ParseDataURL(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
