package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/time/rate"

	"github.com/leadflow/leadflow-backend/internal/intake/domain"
)

// ErrExtractionFailed wraps every extraction failure. Callers treat it as
// "nothing recognized" and keep the draft unchanged.
var ErrExtractionFailed = errors.New("document extraction failed")

// Client performs single-attempt extractions against the registered
// recognizers and validates what comes back.
type Client struct {
	registry *Registry
	limiter  *rate.Limiter
	schemas  map[domain.DocumentType]*jsonschema.Schema
}

// NewClient creates an extraction client. A nil limiter disables rate limiting.
func NewClient(registry *Registry, limiter *rate.Limiter) (*Client, error) {
	schemas, err := compileSchemas()
	if err != nil {
		return nil, err
	}
	return &Client{registry: registry, limiter: limiter, schemas: schemas}, nil
}

// Extract recognizes one document image. There is no retry and no fallback
// to another recognizer.
func (c *Client) Extract(ctx context.Context, image domain.ImagePayload, docType domain.DocumentType) (*domain.ExtractionResult, error) {
	start := time.Now()

	schema, ok := c.schemas[docType]
	if !ok {
		return nil, failed(fmt.Errorf("unsupported document type %q", docType))
	}
	if image.IsZero() {
		return nil, failed(errors.New("empty image"))
	}

	rec := c.registry.Find(docType)
	if rec == nil {
		return nil, failed(fmt.Errorf("no recognizer available for document type %s", docType))
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, failed(fmt.Errorf("rate limit: %w", err))
		}
	}

	raw, err := rec.Recognize(ctx, Request{
		Image:        image,
		DocumentType: docType,
		Instruction:  Instruction(docType),
	})
	if err != nil {
		return nil, failed(fmt.Errorf("%s: %w", rec.Name(), err))
	}

	fields, err := parseFields(schema, raw)
	if err != nil {
		return nil, failed(fmt.Errorf("%s: %w", rec.Name(), err))
	}

	return &domain.ExtractionResult{
		DocumentType:     docType,
		Fields:           fields,
		Processor:        rec.Name(),
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

func failed(err error) error {
	return fmt.Errorf("%w: %w", ErrExtractionFailed, err)
}

// parseFields decodes a response object, checks it against the schema and
// keeps only the readable values.
func parseFields(schema *jsonschema.Schema, raw []byte) (map[string]string, error) {
	text := stripCodeFence(raw)
	if len(text) == 0 {
		return nil, errors.New("empty response")
	}

	dec := json.NewDecoder(bytes.NewReader(text))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("response has trailing data")
	}

	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("response does not match schema: %w", err)
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("response is not an object")
	}

	fields := make(map[string]string, len(obj))
	for k, val := range obj {
		switch t := val.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				fields[k] = s
			}
		case json.Number:
			fields[k] = t.String()
		}
	}
	if len(fields) == 0 {
		return nil, errors.New("no readable fields")
	}
	return fields, nil
}

// stripCodeFence removes a surrounding markdown code fence, which some
// models emit even when asked for bare JSON.
func stripCodeFence(raw []byte) []byte {
	text := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(text, []byte("```")) {
		return text
	}
	text = text[3:]
	if nl := bytes.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	} else {
		return nil
	}
	text = bytes.TrimSpace(text)
	text = bytes.TrimSuffix(text, []byte("```"))
	return bytes.TrimSpace(text)
}
