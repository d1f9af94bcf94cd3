package config

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// databaseURL is a postgres:// URL split into libpq keywords
type databaseURL struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	Options  map[string]string
}

// parseDatabaseURL accepts postgres:// and postgresql:// URLs.
// Port defaults to 5432 and sslmode to disable.
func parseDatabaseURL(raw string) (*databaseURL, error) {
	if raw == "" {
		return nil, fmt.Errorf("database URL is empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return nil, fmt.Errorf("invalid database URL scheme %q", u.Scheme)
	}

	p := &databaseURL{
		Host:     u.Hostname(),
		Port:     defaultDBPort,
		Database: strings.TrimPrefix(u.Path, "/"),
		SSLMode:  "disable",
		Options:  make(map[string]string),
	}
	if port := u.Port(); port != "" {
		if p.Port, err = strconv.Atoi(port); err != nil {
			return nil, fmt.Errorf("invalid port in database URL: %w", err)
		}
	}
	if u.User != nil {
		p.User = u.User.Username()
		p.Password, _ = u.User.Password()
	}

	for key, values := range u.Query() {
		if len(values) == 0 {
			continue
		}
		if key == "sslmode" {
			p.SSLMode = values[0]
			continue
		}
		p.Options[key] = values[0]
	}
	return p, nil
}

// dsn renders a libpq keyword/value string. Extra options are sorted.
func (p *databaseURL) dsn() string {
	var b strings.Builder
	fmt.Fprintf(&b, "host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)

	keys := make([]string, 0, len(p.Options))
	for k := range p.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, p.Options[k])
	}
	return b.String()
}
