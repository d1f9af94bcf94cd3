package capture

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/leadflow/leadflow-backend/internal/intake/domain"
)

// ErrEmptyFile is returned by SelectFile for a zero-length upload
var ErrEmptyFile = errors.New("selected file is empty")

// SelectFile reads a chosen file into a payload. The content is not checked
// beyond sniffing its MIME type.
func SelectFile(r io.Reader) (domain.ImagePayload, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.ImagePayload{}, fmt.Errorf("read file: %w", err)
	}
	if len(data) == 0 {
		return domain.ImagePayload{}, ErrEmptyFile
	}
	return domain.NewImagePayload(data, http.DetectContentType(data)), nil
}
