package testutil

import (
	"context"
	"database/sql/driver"
	"regexp"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflow/leadflow-backend/pkg/database"
	"github.com/leadflow/leadflow-backend/pkg/logger"
)

// MockDB is a sqlmock connection whose query expectations match literal SQL
//
//	mockDB := testutil.NewMockDB(t)
//	mockDB.ExpectQuery("INSERT INTO leads").WillReturnRows(...)
//	repo := repository.NewLeadRepository(mockDB.Database())
type MockDB struct {
	sqlmock.Sqlmock
	DB *sqlx.DB
}

// NewMockDB creates a mock connection that is closed when the test ends
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err, "create sqlmock")

	m := &MockDB{Sqlmock: mock, DB: sqlx.NewDb(raw, "postgres")}
	t.Cleanup(func() { _ = m.DB.Close() })
	return m
}

// Database wraps the mock connection as a *database.DB
func (m *MockDB) Database() *database.DB {
	return database.Wrap(m.DB, logger.Nop())
}

func (m *MockDB) Close() error {
	return m.DB.Close()
}

// ExpectQuery expects query verbatim rather than as a regular expression
func (m *MockDB) ExpectQuery(query string) *sqlmock.ExpectedQuery {
	return m.Sqlmock.ExpectQuery(regexp.QuoteMeta(query))
}

// ExpectExec expects query verbatim rather than as a regular expression
func (m *MockDB) ExpectExec(query string) *sqlmock.ExpectedExec {
	return m.Sqlmock.ExpectExec(regexp.QuoteMeta(query))
}

// ExpectationsWereMet fails t when an expectation was not consumed
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	assert.NoError(t, m.Sqlmock.ExpectationsWereMet(), "unfulfilled mock expectations")
}

// MockRows creates a new mock rows object
func MockRows(columns ...string) *sqlmock.Rows {
	return sqlmock.NewRows(columns)
}

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// AnyUUID matches any canonical UUID string argument
type AnyUUID struct{}

func (AnyUUID) Match(v driver.Value) bool {
	s, ok := v.(string)
	return ok && uuidPattern.MatchString(s)
}

// PublishedEvent is one call recorded by MockPublisher
type PublishedEvent struct {
	Type    string
	Payload interface{}
}

// MockPublisher records published events. It is safe for concurrent use.
type MockPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent
	err    error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// FailWith makes every later Publish call return err
func (m *MockPublisher) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *MockPublisher) Publish(_ context.Context, eventType string, payload interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, PublishedEvent{Type: eventType, Payload: payload})
	return nil
}

// Events returns a copy of the recorded events
func (m *MockPublisher) Events() []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PublishedEvent(nil), m.events...)
}

func (m *MockPublisher) AssertEventPublished(t *testing.T, eventType string) {
	t.Helper()
	for _, e := range m.Events() {
		if e.Type == eventType {
			return
		}
	}
	t.Errorf("expected event %q to be published", eventType)
}

func (m *MockPublisher) AssertNoEventsPublished(t *testing.T) {
	t.Helper()
	assert.Empty(t, m.Events(), "expected no published events")
}
