package audit

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "melowms/internal/core/context"
	"melowms/internal/core/store"
)

func TestRecordAndList(t *testing.T) {
	svc, err := NewService(store.NewMemory())
	require.NoError(t, err)

	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID: "u1", CompanyID: "melo", BranchID: "kigali",
	})

	svc.Record(ctx, "melo", "sale.confirm", "sale", "s-1", map[string]any{"total": 42})
	svc.Record(ctx, "melo", "transfer.accept", "transfer", "t-1", nil)

	entries, err := svc.List(ctx, "melo", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var found Entry
	for _, e := range entries {
		if e.Operation == "sale.confirm" {
			found = e
		}
	}
	assert.Equal(t, "sale", found.Entity)
	assert.Equal(t, "s-1", found.EntityID)
	assert.Equal(t, "u1", found.UserID)
	assert.Equal(t, "kigali", found.Branch)
	assert.Equal(t, CompressionNone, found.CompressionAlgo)

	payload, err := svc.Payload(found)
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":42}`, string(payload))
}

func TestRecord_CompressesLargePayloads(t *testing.T) {
	svc, err := NewService(store.NewMemory())
	require.NoError(t, err)
	ctx := context.Background()

	big := map[string]string{"blob": strings.Repeat("melo wms ", 4096)}
	svc.Record(ctx, "melo", "sale.confirm", "sale", "s-big", big)

	entries, err := svc.List(ctx, "melo", 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, CompressionZstd, e.CompressionAlgo)
	assert.Empty(t, e.Payload)
	assert.NotEmpty(t, e.PayloadCompressed)

	raw, err := json.Marshal(big)
	require.NoError(t, err)
	assert.Less(t, len(e.PayloadCompressed), len(raw), "payload should shrink")

	restored, err := svc.Payload(e)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(restored))
}
