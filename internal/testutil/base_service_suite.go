package testutil

import (
	"context"
	"time"

	"github.com/heliobill/heliobill/internal/config"
	"github.com/heliobill/heliobill/internal/domain/catalog"
	"github.com/heliobill/heliobill/internal/logger"
	"github.com/heliobill/heliobill/internal/validator"
	"github.com/stretchr/testify/suite"
)

// Stores holds the in-memory collaborator implementations for testing
type Stores struct {
	UsageSource       *InMemoryUsageSource
	InvoiceSink       *InMemoryInvoiceSink
	DocumentGenerator *InMemoryDocumentGenerator
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	stores  Stores
	catalog *catalog.Catalog
	logger  *logger.Logger
	config  *config.Configuration
	now     time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	s.config = config.GetDefaultConfig()
	s.logger = logger.NewNopLogger()
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.stores = Stores{
		UsageSource:       NewInMemoryUsageSource(),
		InvoiceSink:       NewInMemoryInvoiceSink(),
		DocumentGenerator: NewInMemoryDocumentGenerator(),
	}
	s.catalog = catalog.Default()
	s.now = time.Now().UTC()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetStores returns the in-memory collaborators
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetCatalog returns the default pricing catalog
func (s *BaseServiceTestSuite) GetCatalog() *catalog.Catalog {
	return s.catalog
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetNow returns the current test time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}
