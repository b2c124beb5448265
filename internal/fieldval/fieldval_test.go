package fieldval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"memberflow/internal/catalog"
	dErrors "memberflow/pkg/domain-errors"
)

type EngineSuite struct {
	suite.Suite
	dropdowns *catalog.InMemoryDropdownStore
	engine    *Engine
	ctx       context.Context
}

func (s *EngineSuite) SetupTest() {
	s.dropdowns = catalog.NewInMemoryDropdownStore(
		catalog.DropdownEntry{Category: "industries", Code: "fintech", Label: "Fintech", Active: true},
		catalog.DropdownEntry{Category: "industries", Code: "health", Label: "Health", Active: true},
		catalog.DropdownEntry{Category: "industries", Code: "mining", Label: "Mining", Active: false},
		catalog.DropdownEntry{Category: "countries", Code: "nl", Label: "Netherlands", Active: true},
	)
	s.engine = NewEngine(s.dropdowns)
	s.ctx = context.Background()
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func required(key string, typ catalog.FieldType) catalog.FieldSchema {
	return catalog.FieldSchema{Key: key, Type: typ, Required: true}
}

func (s *EngineSuite) TestTextFields() {
	schemas := []catalog.FieldSchema{
		required("companyName", catalog.FieldText),
		{Key: "addressLine2", Type: catalog.FieldText, Required: false},
	}

	s.Run("passes when required text present", func() {
		errs, err := s.engine.Validate(s.ctx, schemas, map[string]any{"companyName": "Acme Corp"})
		s.Require().NoError(err)
		s.Empty(errs)
	})

	s.Run("whitespace does not satisfy required", func() {
		errs, err := s.engine.Validate(s.ctx, schemas, map[string]any{"companyName": "   "})
		s.Require().NoError(err)
		s.Equal(KindRequired, errs["companyName"].Kind)
	})

	s.Run("optional field may be absent", func() {
		errs, err := s.engine.Validate(s.ctx, schemas, map[string]any{"companyName": "Acme"})
		s.Require().NoError(err)
		s.NotContains(errs, "addressLine2")
	})
}

func (s *EngineSuite) TestEmailAndURLAndPhone() {
	schemas := []catalog.FieldSchema{
		required("contactEmail", catalog.FieldEmail),
		required("website", catalog.FieldURL),
		required("phone", catalog.FieldPhone),
	}

	s.Run("accepts well-formed values", func() {
		errs, err := s.engine.Validate(s.ctx, schemas, map[string]any{
			"contactEmail": "info@acme.com",
			"website":      "acme.com",
			"phone":        "+31 20 123 4567",
		})
		s.Require().NoError(err)
		s.Empty(errs)
	})

	s.Run("flags malformed values individually", func() {
		errs, err := s.engine.Validate(s.ctx, schemas, map[string]any{
			"contactEmail": "not-an-email",
			"website":      "::::",
			"phone":        "12345",
		})
		s.Require().NoError(err)
		s.Equal(KindFormat, errs["contactEmail"].Kind)
		s.Equal(KindFormat, errs["website"].Kind)
		s.Equal(KindFormat, errs["phone"].Kind)
	})
}

func (s *EngineSuite) TestDropdowns() {
	single := required("country", catalog.FieldDropdown)
	single.DropdownCategory = "countries"
	multi := required("industries", catalog.FieldMultiDropdown)
	multi.DropdownCategory = "industries"
	schemas := []catalog.FieldSchema{single, multi}

	s.Run("accepts active codes", func() {
		errs, err := s.engine.Validate(s.ctx, schemas, map[string]any{
			"country":    "nl",
			"industries": []any{"fintech", "health"},
		})
		s.Require().NoError(err)
		s.Empty(errs)
	})

	s.Run("rejects unknown and inactive codes", func() {
		errs, err := s.engine.Validate(s.ctx, schemas, map[string]any{
			"country":    "atlantis",
			"industries": []any{"fintech", "mining"},
		})
		s.Require().NoError(err)
		s.Equal(KindUnknownCode, errs["country"].Kind)
		s.Equal(KindUnknownCode, errs["industries"].Kind)
	})

	s.Run("empty category is reported as unconfigured, not invalid", func() {
		orphan := required("tier", catalog.FieldDropdown)
		orphan.DropdownCategory = "membership_tiers"

		errs, err := s.engine.Validate(s.ctx, []catalog.FieldSchema{orphan}, map[string]any{"tier": "gold"})
		s.Require().NoError(err)
		s.Equal(KindCatalogUnavailable, errs["tier"].Kind)
	})
}

func (s *EngineSuite) TestCheckboxAndFile() {
	schemas := []catalog.FieldSchema{
		required("termsAccepted", catalog.FieldCheckbox),
		required("registrationDoc", catalog.FieldFileRef),
	}

	s.Run("explicit true and a reference pass", func() {
		errs, err := s.engine.Validate(s.ctx, schemas, map[string]any{
			"termsAccepted":   true,
			"registrationDoc": "uploads/reg-123.pdf",
		})
		s.Require().NoError(err)
		s.Empty(errs)
	})

	s.Run("false, truthy strings, and missing refs fail", func() {
		errs, err := s.engine.Validate(s.ctx, schemas, map[string]any{
			"termsAccepted":   "true",
			"registrationDoc": "",
		})
		s.Require().NoError(err)
		s.Equal(KindRequired, errs["termsAccepted"].Kind)
		s.Equal(KindRequired, errs["registrationDoc"].Kind)
	})
}

func (s *EngineSuite) TestAggregatesAllFailures() {
	industries := required("industries", catalog.FieldMultiDropdown)
	industries.DropdownCategory = "industries"
	schemas := []catalog.FieldSchema{
		required("companyName", catalog.FieldText),
		required("contactEmail", catalog.FieldEmail),
		required("website", catalog.FieldURL),
		industries,
	}

	errs, err := s.engine.Validate(s.ctx, schemas, map[string]any{
		"industries": []any{"not-a-code"},
	})
	s.Require().NoError(err)
	s.Len(errs, 4)
	s.ElementsMatch([]string{"companyName", "contactEmail", "website", "industries"}, errs.Keys())
}

// failingDropdownStore simulates a catalog outage.
type failingDropdownStore struct{}

func (failingDropdownStore) ListActive(context.Context, string) ([]catalog.DropdownEntry, error) {
	return nil, errors.New("connection refused")
}

func TestCatalogOutageIsNotAFieldError(t *testing.T) {
	engine := NewEngine(failingDropdownStore{}, WithLookupAttempts(1))
	schema := catalog.FieldSchema{
		Key: "industries", Type: catalog.FieldMultiDropdown,
		Required: true, DropdownCategory: "industries",
	}

	errs, err := engine.Validate(context.Background(), []catalog.FieldSchema{schema},
		map[string]any{"industries": []any{"fintech"}})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	assert.Nil(t, errs)
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://acme.com", NormalizeURL("acme.com"))
	assert.Equal(t, "http://acme.com", NormalizeURL("http://acme.com"))
	assert.Equal(t, "", NormalizeURL(""))
}
