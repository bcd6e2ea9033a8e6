//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"securitypassport/internal/passport/overrides"
	"securitypassport/internal/passport/overrides/store"
	id "securitypassport/pkg/domain"
	"securitypassport/pkg/platform/sentinel"
	"securitypassport/pkg/testutil/containers"
)

type OverrideStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	redis    *containers.RedisContainer
	pg       *store.PostgresStore
	cached   *store.RedisCache
}

func TestOverrideStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(OverrideStoreSuite))
}

func (s *OverrideStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.redis = mgr.GetRedis(s.T())
	s.pg = store.NewPostgres(s.postgres.DB)
	s.cached = store.NewRedisCache(s.pg, s.redis.Client, time.Minute, nil)
}

func (s *OverrideStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "tenant_overrides"))
	s.Require().NoError(s.redis.FlushAll(ctx))
}

func (s *OverrideStoreSuite) TestUpsertKeepsOneRowPerTenant() {
	ctx := context.Background()
	tenant := id.TenantID(uuid.New())

	_, err := s.pg.Get(ctx, tenant)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	for _, theme := range []string{"dark", "light"} {
		_, err := s.pg.Update(ctx, tenant, func(overrides.Settings) overrides.Settings {
			return overrides.Settings{"ui_theme": theme}
		})
		s.Require().NoError(err)
	}

	var rows int
	s.Require().NoError(s.postgres.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM tenant_overrides WHERE tenant_id = $1`, uuid.UUID(tenant)).Scan(&rows))
	s.Equal(1, rows)

	got, err := s.pg.Get(ctx, tenant)
	s.Require().NoError(err)
	s.Equal("light", got["ui_theme"])
}

func (s *OverrideStoreSuite) TestConcurrentMergesDoNotLoseKeys() {
	ctx := context.Background()
	tenant := id.TenantID(uuid.New())
	_, err := s.pg.Update(ctx, tenant, func(overrides.Settings) overrides.Settings { return overrides.Settings{} })
	s.Require().NoError(err)

	keys := []string{"ui_theme", "passport_zip_include_evidence", "passport_docx_include_evidence", "evidence_retention_days"}
	var wg sync.WaitGroup
	for _, k := range keys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.pg.Update(ctx, tenant, func(cur overrides.Settings) overrides.Settings {
				next := cur.Clone()
				next[k] = true
				return next
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	got, err := s.pg.Get(ctx, tenant)
	s.Require().NoError(err)
	s.Len(got, len(keys))
}

func (s *OverrideStoreSuite) TestCacheIsInvalidatedOnWrite() {
	ctx := context.Background()
	tenant := id.TenantID(uuid.New())

	_, err := s.cached.Update(ctx, tenant, func(overrides.Settings) overrides.Settings {
		return overrides.Settings{"passport_zip_include_evidence": true}
	})
	s.Require().NoError(err)

	first, err := s.cached.Get(ctx, tenant)
	s.Require().NoError(err)
	s.Equal(true, first["passport_zip_include_evidence"])
	s.EqualValues(1, s.redis.Client.Exists(ctx, "passport:overrides:"+tenant.String()+":1").Val())

	_, err = s.cached.Update(ctx, tenant, func(overrides.Settings) overrides.Settings {
		return overrides.Settings{"passport_zip_include_evidence": false}
	})
	s.Require().NoError(err)
	s.Equal("2", s.redis.Client.Get(ctx, "passport:overrides:"+tenant.String()+":gen").Val())
	// The previous generation still holds the old value until it expires.
	s.EqualValues(1, s.redis.Client.Exists(ctx, "passport:overrides:"+tenant.String()+":1").Val())

	second, err := s.cached.Get(ctx, tenant)
	s.Require().NoError(err)
	s.Equal(false, second["passport_zip_include_evidence"])
}

func (s *OverrideStoreSuite) TestCacheDoesNotStoreMisses() {
	ctx := context.Background()
	tenant := id.TenantID(uuid.New())

	_, err := s.cached.Get(ctx, tenant)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
	s.EqualValues(0, s.redis.Client.Exists(ctx, "passport:overrides:"+tenant.String()+":0").Val())
}
