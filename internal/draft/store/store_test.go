package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/cbam/internal/draft/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDraft() domain.FormDraft {
	return domain.FormDraft{
		CNCode:          "72031000",
		ProductionQty:   "100",
		Electricity:     "5000",
		Diesel:          "2000",
		Coal:            "1e3",
		PrecursorActive: true,
		Precursors: []domain.PrecursorDraft{
			{Type: "Coke", Qty: "2.50"},
			{Type: "", Qty: ""},
			{Type: "Iron Ore", Qty: "10"},
		},
	}
}

func backends(t *testing.T) map[string]domain.Store {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]domain.Store{
		"memory": NewMemory(),
		"file":   NewFile(filepath.Join(t.TempDir(), "drafts")),
		"redis":  NewRedis(client),
	}
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Save(ctx, domain.DefaultSlot, sampleDraft()))
			got, err := s.Load(ctx, domain.DefaultSlot)
			require.NoError(t, err)
			assert.Equal(t, sampleDraft(), got)

			require.NoError(t, s.Save(ctx, domain.DefaultSlot, domain.Empty()))
			got, err = s.Load(ctx, domain.DefaultSlot)
			require.NoError(t, err)
			assert.Equal(t, domain.Empty(), got)
		})
	}
}

func TestRoundTripKeepsEditedText(t *testing.T) {
	ctx := context.Background()
	draft, err := domain.Empty().WithField(domain.FieldCNCode, "7203 10 00 ü")
	require.NoError(t, err)
	draft = draft.WithPrecursorAdded()
	draft, err = draft.WithPrecursorUpdated(0, domain.PrecursorDraft{Type: "Ferro-Mangan", Qty: "1,5"})
	require.NoError(t, err)

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Save(ctx, domain.DefaultSlot, draft))
			got, err := s.Load(ctx, domain.DefaultSlot)
			require.NoError(t, err)
			assert.Equal(t, draft, got)
		})
	}
}

func TestLoadAbsentAndClear(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Load(ctx, "nothing-here")
			assert.ErrorIs(t, err, domain.ErrDraftAbsent)

			require.NoError(t, s.Save(ctx, "slot", sampleDraft()))
			require.NoError(t, s.Clear(ctx, "slot"))
			require.NoError(t, s.Clear(ctx, "slot"))
			_, err = s.Load(ctx, "slot")
			assert.ErrorIs(t, err, domain.ErrDraftAbsent)
		})
	}
}

func TestInvalidSlot(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, s.Save(ctx, "../escape", sampleDraft()), domain.ErrInvalidSlot)
			_, err := s.Load(ctx, "")
			assert.ErrorIs(t, err, domain.ErrInvalidSlot)
		})
	}
}

func TestCorruptIsDistinctFromAbsent(t *testing.T) {
	ctx := context.Background()

	mem := NewMemory()
	mem.SetRaw("slot", []byte("{not json"))
	_, err := mem.Load(ctx, "slot")
	assert.ErrorIs(t, err, domain.ErrDraftCorrupt)
	assert.NotErrorIs(t, err, domain.ErrDraftAbsent)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "slot.json"), []byte(`{"precursors": 3}`), 0o600))
	_, err = NewFile(dir).Load(ctx, "slot")
	assert.ErrorIs(t, err, domain.ErrDraftCorrupt)
}

func TestEncodeUsesStorageFieldNames(t *testing.T) {
	data, err := Encode(domain.Empty())
	require.NoError(t, err)
	assert.JSONEq(t, `{"cnCode":"","productionQty":"","electricity":"","diesel":"","coal":"","precursorActive":false,"precursors":[]}`, string(data))
}

func TestRedisTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	require.NoError(t, NewRedis(client).Save(context.Background(), "slot", sampleDraft()))
	assert.Equal(t, redisTTL, mr.TTL("cbam:draft:slot"))

	mr.FastForward(redisTTL + time.Second)
	_, err := NewRedis(client).Load(context.Background(), "slot")
	assert.ErrorIs(t, err, domain.ErrDraftAbsent)
}
