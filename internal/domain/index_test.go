package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gfsIndexSample = `1:0:d=2024062712:PRMSL:mean sea level:anl:
2:1000:d=2024062712:CLMR:1 hybrid level:anl:
3:2500:d=2024062712:TMP:2 m above ground:anl:
4:not-a-number:d=2024062712:BROKEN:surface:anl:
5:4100:d=2024062712:APCP:surface:0-3 hour acc fcst:
`

func TestResolveByteRange(t *testing.T) {
	t.Run("middle record ends before the next offset", func(t *testing.T) {
		text := "1:0:d=2024062712:A:level a:anl:\n2:1000:d=2024062712:B:level b:anl:\n3:2500:d=2024062712:C:level c:anl:\n"

		r, err := ResolveByteRange(text, "B", "level b", MatchExact)
		require.NoError(t, err)
		assert.Equal(t, ByteRange{Start: 1000, End: 2499}, r)
		assert.Equal(t, "bytes=1000-2499", r.Header())
	})

	t.Run("last record is open ended", func(t *testing.T) {
		text := "1:0:d=2024062712:A:level a:anl:\n2:1000:d=2024062712:B:level b:anl:\n3:2500:d=2024062712:C:level c:anl:\n"

		r, err := ResolveByteRange(text, "C", "level c", MatchExact)
		require.NoError(t, err)
		assert.Equal(t, ByteRange{Start: 2500, Open: true}, r)
		assert.Equal(t, "bytes=2500-", r.Header())
	})

	t.Run("unparsable offsets are skipped when finding the end", func(t *testing.T) {
		r, err := ResolveByteRange(gfsIndexSample, "TMP", "2 m above ground", MatchExact)
		require.NoError(t, err)
		assert.Equal(t, ByteRange{Start: 2500, End: 4099}, r)
	})

	t.Run("record with unparsable offset is not indexed", func(t *testing.T) {
		_, err := ResolveByteRange(gfsIndexSample, "BROKEN", "surface", MatchExact)
		assert.True(t, errors.Is(err, ErrVariableNotIndexed))
	})

	t.Run("exact match rejects qualified level", func(t *testing.T) {
		text := "1:0:d=2024062712:APCP:surface:0-3 hour acc fcst:\n2:700:d=2024062712:TMP:surface:anl:\n"
		_, err := ResolveByteRange(text, "APCP", "surf", MatchExact)
		assert.ErrorIs(t, err, ErrVariableNotIndexed)
	})

	t.Run("prefix match accepts qualified level", func(t *testing.T) {
		text := "1:0:d=2024062712:RH:2 m above ground:anl:\n2:700:d=2024062712:RH:2 m above ground and more:anl:\n3:900:d=2024062712:TMP:surface:anl:\n"
		r, err := ResolveByteRange(text, "RH", "2 m above", MatchPrefix)
		require.NoError(t, err)
		assert.Equal(t, ByteRange{Start: 0, End: 699}, r, "first matching line wins")
	})

	t.Run("missing variable", func(t *testing.T) {
		_, err := ResolveByteRange(gfsIndexSample, "REFC", "entire atmosphere", MatchExact)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrVariableNotIndexed)
		assert.Contains(t, err.Error(), "REFC @ entire atmosphere")
	})

	t.Run("blank and CRLF lines are tolerated", func(t *testing.T) {
		text := "\r\n1:0:d=2024062712:A:level a:anl:\r\n\r\n2:10:d=2024062712:B:level b:anl:\r\n"
		r, err := ResolveByteRange(text, "A", "level a", MatchExact)
		require.NoError(t, err)
		assert.Equal(t, ByteRange{Start: 0, End: 9}, r)
	})
}

func TestResolveVariable_UsesCatalogMatching(t *testing.T) {
	r, err := ResolveVariable(gfsIndexSample, totalPrecipitation())
	require.NoError(t, err)
	assert.Equal(t, ByteRange{Start: 4100, Open: true}, r)
}
