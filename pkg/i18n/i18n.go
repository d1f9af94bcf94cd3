// Package i18n translates message keys for the English and Hindi
// catalogs embedded under messages/.
package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
)

//go:embed messages/*.json
var catalogFS embed.FS

const (
	LocaleEnglish = "en"
	LocaleHindi   = "hi"
	DefaultLocale = LocaleEnglish
)

var locales = []string{LocaleEnglish, LocaleHindi}

type localeKey struct{}

// catalog maps a dotted key ("validation.mobile_invalid") to its text
type catalog map[string]string

var (
	catalogs    map[string]catalog
	catalogsErr error
	loadOnce    sync.Once
)

func load() map[string]catalog {
	loadOnce.Do(func() {
		catalogs = make(map[string]catalog, len(locales))
		for _, locale := range locales {
			c, err := readCatalog(locale)
			if err != nil {
				catalogsErr = err
				continue
			}
			catalogs[locale] = c
		}
	})
	return catalogs
}

func readCatalog(locale string) (catalog, error) {
	data, err := catalogFS.ReadFile("messages/" + locale + ".json")
	if err != nil {
		return nil, err
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("messages/%s.json: %w", locale, err)
	}
	c := make(catalog)
	flatten(c, "", tree)
	return c, nil
}

func flatten(dst catalog, prefix string, tree map[string]any) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch v := v.(type) {
		case string:
			dst[key] = v
		case map[string]any:
			flatten(dst, key, v)
		}
	}
}

// LoadError reports a catalog that failed to parse, nil otherwise
func LoadError() error {
	load()
	return catalogsErr
}

// Localizer translates into a single locale
type Localizer struct {
	locale string
}

// NewLocalizer returns a localizer for locale, or for DefaultLocale when
// locale is not supported.
func NewLocalizer(locale string) *Localizer {
	if !slices.Contains(locales, locale) {
		locale = DefaultLocale
	}
	return &Localizer{locale: locale}
}

func LocalizerFromContext(ctx context.Context) *Localizer {
	return NewLocalizer(GetLocaleFromContext(ctx))
}

// T looks key up in the localizer's catalog, then the default one, and
// substitutes {name} placeholders from params. Unknown keys come back as-is.
func (l *Localizer) T(key string, params ...map[string]string) string {
	all := load()
	msg, ok := all[l.locale][key]
	if !ok {
		if msg, ok = all[DefaultLocale][key]; !ok {
			return key
		}
	}
	if len(params) == 0 || len(params[0]) == 0 {
		return msg
	}

	pairs := make([]string, 0, 2*len(params[0]))
	for k, v := range params[0] {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

func (l *Localizer) GetLocale() string {
	return l.locale
}

func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeKey{}, locale)
}

// GetLocaleFromContext returns the request locale, DefaultLocale if unset
func GetLocaleFromContext(ctx context.Context) string {
	if locale, ok := ctx.Value(localeKey{}).(string); ok && locale != "" {
		return locale
	}
	return DefaultLocale
}

// ParseAcceptLanguage returns the supported locale the client prefers most,
// honouring q-values ("hi-IN,hi;q=0.9,en;q=0.8").
func ParseAcceptLanguage(header string) string {
	type candidate struct {
		locale string
		q      float64
	}

	var candidates []candidate
	for _, part := range strings.Split(header, ",") {
		tag, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		primary, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(tag)), "-")
		if !slices.Contains(locales, primary) {
			continue
		}
		q := 1.0
		if v, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				q = parsed
			}
		}
		if q > 0 {
			candidates = append(candidates, candidate{primary, q})
		}
	}
	if len(candidates) == 0 {
		return DefaultLocale
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].q > candidates[b].q
	})
	return candidates[0].locale
}

// T translates into DefaultLocale
func T(key string, params ...map[string]string) string {
	return NewLocalizer(DefaultLocale).T(key, params...)
}

func TWithLocale(locale, key string, params ...map[string]string) string {
	return NewLocalizer(locale).T(key, params...)
}

// TFromContext translates into the locale carried by ctx
func TFromContext(ctx context.Context, key string, params ...map[string]string) string {
	return LocalizerFromContext(ctx).T(key, params...)
}
