package ipheader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimalipin/netviz/internal/datagram"
)

func TestCatalogOrderAndLayout(t *testing.T) {
	fields := Fields()
	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{
		"version", "ihl", "tos", "total-length", "identification", "flags",
		"fragment-offset", "ttl", "protocol", "checksum", "source-ip", "dest-ip", "options",
	}, keys)

	// Fixed fields tile the 160-bit base header with no gaps.
	next := 0
	for _, f := range fields {
		assert.Equal(t, next, f.BitOffset, "offset of %s", f.Key)
		next += f.BitWidth
		assert.NotEmpty(t, f.Title, f.Key)
		assert.NotEmpty(t, f.Description, f.Key)
		assert.NotEmpty(t, f.Examples, f.Key)
	}
	assert.Equal(t, datagram.HeaderLen*8, next)
}

func TestLookupReturnsCopy(t *testing.T) {
	f, ok := Lookup("ttl")
	require.True(t, ok)
	assert.Equal(t, "Time to Live (TTL)", f.Title)
	assert.Equal(t, Example{"64", "Linux/Unix default", "Standard for most Linux and Unix systems"}, f.Examples[0])

	f.Examples[0].Value = "tampered"
	again, _ := Lookup("ttl")
	assert.Equal(t, "64", again.Examples[0].Value)

	_, ok = Lookup("nope")
	assert.False(t, ok)
}

func TestInspectorDefaultsToProtocol(t *testing.T) {
	in := NewInspector()
	sel := in.Selected()
	assert.Equal(t, "protocol", sel.Key)
	assert.Equal(t, "Protocol", sel.Title)
	require.Len(t, sel.Examples, 5)
	assert.Equal(t, Example{"1", "ICMP", "Used for ping, traceroute, network diagnostics"}, sel.Examples[0])
}

func TestInspectorSelect(t *testing.T) {
	in := NewInspector()

	f, err := in.Select("checksum")
	require.NoError(t, err)
	assert.Equal(t, "Header Checksum", f.Title)
	assert.Equal(t, "checksum", in.Selected().Key)

	_, err = in.Select("payload")
	assert.ErrorIs(t, err, ErrUnknownField)
	assert.Equal(t, "checksum", in.Selected().Key, "selection must not change on error")
}

func TestDescribeLiveDatagram(t *testing.T) {
	raw, err := datagram.Encode(datagram.Spec{SrcIP: "192.168.1.10", DstIP: "192.168.2.10", TTL: 64, ID: 7})
	require.NoError(t, err)

	values, err := Describe(raw)
	require.NoError(t, err)
	require.Len(t, values, len(Fields()))

	got := make(map[string]Value, len(values))
	for _, v := range values {
		got[v.Key] = v
	}
	assert.Equal(t, "4", got["version"].Value)
	assert.Equal(t, "IPv4", got["version"].Label)
	assert.Equal(t, "5", got["ihl"].Value)
	assert.Equal(t, "20 bytes", got["ihl"].Label)
	assert.Equal(t, "0x00", got["tos"].Value)
	assert.Equal(t, "Default", got["tos"].Label)
	assert.Equal(t, "28", got["total-length"].Value)
	assert.Equal(t, "0x0007", got["identification"].Value)
	assert.Equal(t, "0x2", got["flags"].Value)
	assert.Equal(t, "DF", got["flags"].Label)
	assert.Equal(t, "0", got["fragment-offset"].Value)
	assert.Equal(t, "64", got["ttl"].Value)
	assert.Equal(t, "1", got["protocol"].Value)
	assert.Equal(t, "ICMP", got["protocol"].Label)
	assert.Equal(t, "valid", got["checksum"].Label)
	assert.Equal(t, "192.168.1.10", got["source-ip"].Value)
	assert.Equal(t, "192.168.2.10", got["dest-ip"].Value)
	assert.Equal(t, "None (IHL=5)", got["options"].Value)
}

func TestDescribeTracksTTLRewrite(t *testing.T) {
	raw, err := datagram.Encode(datagram.Spec{SrcIP: "192.168.1.10", DstIP: "192.168.2.10", TTL: 64, ID: 1})
	require.NoError(t, err)
	before, err := Describe(raw)
	require.NoError(t, err)

	rewritten, err := datagram.SetTTL(raw, 63)
	require.NoError(t, err)
	after, err := Describe(rewritten)
	require.NoError(t, err)

	byKey := func(vs []Value, key string) Value {
		for _, v := range vs {
			if v.Key == key {
				return v
			}
		}
		t.Fatalf("missing %s", key)
		return Value{}
	}
	assert.Equal(t, "63", byKey(after, "ttl").Value)
	assert.Equal(t, "valid", byKey(after, "checksum").Label)
	assert.NotEqual(t, byKey(before, "checksum").Value, byKey(after, "checksum").Value)
}

func TestDescribeRejectsGarbage(t *testing.T) {
	_, err := Describe([]byte{0x45, 0x00})
	assert.ErrorIs(t, err, datagram.ErrMalformed)
}
