package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	id "securitypassport/pkg/domain"
	audit "securitypassport/pkg/platform/audit"
)

type recordingProducer struct {
	records []*kgo.Record
	err     error
}

func (p *recordingProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	p.records = append(p.records, rs...)
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		results = append(results, kgo.ProduceResult{Record: r, Err: p.err})
	}
	return results
}

func TestSink_Append(t *testing.T) {
	producer := &recordingProducer{}
	sink := NewSink(producer, "audit.events")
	tenantID := id.TenantID(uuid.New())

	err := sink.Append(context.Background(), audit.Event{
		Timestamp:  time.Date(2026, 2, 16, 20, 0, 0, 0, time.UTC),
		TenantID:   tenantID,
		Action:     string(audit.ActionPassportExportZip),
		ObjectType: audit.ObjectTemplate,
		ObjectID:   "iso27001",
		Metadata:   map[string]any{"failed_downloads": 1},
	})
	require.NoError(t, err)
	require.Len(t, producer.records, 1)

	rec := producer.records[0]
	assert.Equal(t, "audit.events", rec.Topic)
	assert.Equal(t, tenantID.String(), string(rec.Key))

	var msg map[string]any
	require.NoError(t, json.Unmarshal(rec.Value, &msg))
	assert.Equal(t, "passport.export.zip", msg["action"])
	assert.Equal(t, "2026-02-16T20:00:00Z", msg["timestamp"])
	assert.NotContains(t, msg, "actor_user_id")
}

func TestSink_ProduceError(t *testing.T) {
	sink := NewSink(&recordingProducer{err: errors.New("broker unavailable")}, "audit.events")

	err := sink.Append(context.Background(), audit.Event{TenantID: id.TenantID(uuid.New())})
	assert.ErrorContains(t, err, "broker unavailable")
}
