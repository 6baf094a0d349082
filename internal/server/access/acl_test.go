package access

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MobilityFirst/GNS-sub011/internal/common"
	"github.com/MobilityFirst/GNS-sub011/internal/logging"
	"github.com/MobilityFirst/GNS-sub011/internal/server/config"
	"github.com/MobilityFirst/GNS-sub011/internal/server/responsecode"
	"github.com/MobilityFirst/GNS-sub011/internal/server/store"
	"github.com/MobilityFirst/GNS-sub011/internal/server/updates"
)

func TestPath(t *testing.T) {
	assert.Equal(t, "_GNS_ACL.READ_WHITELIST.+ALL+.MD", Path(ReadWhitelist, common.EntireRecord))
	assert.Equal(t, "_GNS_ACL.WRITE_BLACKLIST.a.b.MD", Path(WriteBlacklist, "a.b"))
}

func TestCandidates(t *testing.T) {
	assert.Equal(t, []string{"a.b.c", "a.b", "a", common.EntireRecord}, candidates("a.b.c"))
	assert.Equal(t, []string{common.EntireRecord}, candidates(common.EntireRecord))
}

func TestParseMetaDataType(t *testing.T) {
	for _, md := range []MetaDataType{ReadWhitelist, WriteWhitelist, ReadBlacklist, WriteBlacklist} {
		got, err := ParseMetaDataType(md.String())
		require.NoError(t, err)
		assert.Equal(t, md, got)
	}
	_, err := ParseMetaDataType("EXECUTE")
	assert.Error(t, err)

	assert.Equal(t, WriteWhitelist, Whitelist(Write))
	assert.Equal(t, ReadBlacklist, Blacklist(Read))
}

func TestACL_Document(t *testing.T) {
	doc := NewACL().
		Grant(ReadWhitelist, common.EntireRecord, common.Everyone, "ACCT").
		Grant(WriteWhitelist, "profile.email", "ACCT").
		Document()

	want := map[string]any{
		"READ_WHITELIST":  map[string]any{common.EntireRecord: map[string]any{"MD": []any{common.Everyone, "ACCT"}}},
		"WRITE_WHITELIST": map[string]any{"profile": map[string]any{"email": map[string]any{"MD": []any{"ACCT"}}}},
	}
	assert.Empty(t, cmp.Diff(want, doc))
}

func TestLookup(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	c := NewChecker(mem, config.DefaultDirectory(), logging.NopLogger{})

	require.True(t, mem.CreateRecord(ctx, "G", store.Record{}).OK())

	l, code := c.Lookup(ctx, ReadWhitelist, "G", "color")
	assert.Equal(t, responsecode.NoError, code)
	assert.Empty(t, l)

	require.Equal(t, responsecode.NoError, c.AddEntry(ctx, ReadWhitelist, "G", "color", "R1"))
	require.Equal(t, responsecode.NoError, c.AddEntry(ctx, ReadWhitelist, "G", "color", "R1"))
	l, code = c.Lookup(ctx, ReadWhitelist, "G", "color")
	assert.Equal(t, responsecode.NoError, code)
	assert.Equal(t, updates.Strings("R1"), l)

	assert.Equal(t, responsecode.BadGuid, c.AddEntry(ctx, ReadWhitelist, "MISSING", "color", "R1"))
	_, code = c.Lookup(ctx, ReadWhitelist, "MISSING", "color")
	assert.Equal(t, responsecode.BadGuid, code)
}

func TestStripInternal(t *testing.T) {
	rec := store.Record{
		common.AccountInfoField: map[string]any{"name": "alice"},
		common.ACLField:         map[string]any{},
		"color":                 []any{"red"},
	}

	external := StripInternal(Header{}, rec)
	assert.Equal(t, store.Record{"color": []any{"red"}}, external)
	assert.Len(t, rec, 3)

	assert.Equal(t, rec, StripInternal(InternalHeader(), rec))
	assert.Nil(t, StripInternal(Header{}, nil))
}
