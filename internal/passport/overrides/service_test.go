package overrides_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"securitypassport/internal/passport/overrides"
	"securitypassport/internal/passport/overrides/store"
	id "securitypassport/pkg/domain"
	"securitypassport/pkg/platform/audit"
	auditpublisher "securitypassport/pkg/platform/audit/publisher"
	auditmemory "securitypassport/pkg/platform/audit/store/memory"
)

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	tenant  id.TenantID
	actor   id.UserID
	audits  *auditmemory.InMemoryStore
	service *overrides.Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.tenant = id.TenantID(uuid.New())
	s.actor = id.UserID(uuid.New())
	s.audits = auditmemory.NewInMemoryStore()
	s.service = overrides.NewService(store.NewInMemory(),
		overrides.WithAuditPublisher(auditpublisher.NewPublisher(s.audits)))
}

func (s *ServiceSuite) TestGetEmptyWhenNothingStored() {
	settings, err := s.service.Get(s.ctx, s.tenant)
	s.Require().NoError(err)
	s.Empty(settings)
}

func (s *ServiceSuite) TestReplaceDropsPreviousKeys() {
	_, err := s.service.Replace(s.ctx, s.tenant, s.actor, map[string]any{"ui_theme": "dark"})
	s.Require().NoError(err)

	res, err := s.service.Replace(s.ctx, s.tenant, s.actor, map[string]any{"passport_zip_include_evidence": false})
	s.Require().NoError(err)
	s.True(res.Changed)
	s.Equal(overrides.Settings{"passport_zip_include_evidence": false}, res.Settings)
}

func (s *ServiceSuite) TestMergeKeepsPreviousKeys() {
	_, err := s.service.Replace(s.ctx, s.tenant, s.actor, map[string]any{"ui_theme": "dark"})
	s.Require().NoError(err)

	res, err := s.service.Merge(s.ctx, s.tenant, s.actor, map[string]any{"passport_zip_include_evidence": false, "jwt_secret_key": "x"})
	s.Require().NoError(err)
	s.True(res.Changed)
	s.Equal(overrides.Settings{"ui_theme": "dark", "passport_zip_include_evidence": false}, res.Settings)
}

func (s *ServiceSuite) TestRepeatedWriteReportsUnchanged() {
	input := map[string]any{"evidence_retention_days": float64(30)}
	_, err := s.service.Merge(s.ctx, s.tenant, s.actor, input)
	s.Require().NoError(err)

	res, err := s.service.Merge(s.ctx, s.tenant, s.actor, input)
	s.Require().NoError(err)
	s.False(res.Changed)
}

func (s *ServiceSuite) TestReplaceWithNilClears() {
	_, err := s.service.Replace(s.ctx, s.tenant, s.actor, map[string]any{"ui_theme": "dark"})
	s.Require().NoError(err)

	res, err := s.service.Replace(s.ctx, s.tenant, s.actor, nil)
	s.Require().NoError(err)
	s.True(res.Changed)
	s.Empty(res.Settings)
}

func (s *ServiceSuite) TestWritesAreAudited() {
	_, err := s.service.Merge(s.ctx, s.tenant, s.actor, map[string]any{"ui_theme": "light"})
	s.Require().NoError(err)

	events, err := s.audits.ListByTenant(s.ctx, s.tenant)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.ActionOverridesMerge), events[0].Action)
	s.Equal(s.actor, events[0].ActorUserID)
	s.Equal([]string{"ui_theme"}, events[0].Metadata["keys"])
	s.Equal(true, events[0].Metadata["changed"])
}
