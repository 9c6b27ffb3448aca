package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "tapday/pkg/domain-errors"
)

const mixedCase = "0xAbCdEf0123456789aBcDeF0123456789AbCdEf01"

func TestParseAddress(t *testing.T) {
	t.Run("canonical form is lower-case", func(t *testing.T) {
		addr, err := ParseAddress(mixedCase)
		require.NoError(t, err)
		assert.Equal(t, "0xabcdef0123456789abcdef0123456789abcdef01", addr.String())
	})

	t.Run("case variants are equal", func(t *testing.T) {
		a := MustParseAddress(mixedCase)
		b := MustParseAddress("0xabcdef0123456789abcdef0123456789abcdef01")
		assert.Equal(t, a, b)
	})

	t.Run("rejects malformed shapes", func(t *testing.T) {
		for _, in := range []string{
			"",
			"0x123",
			"abcdef0123456789abcdef0123456789abcdef01",
			"0xabcdef0123456789abcdef0123456789abcdef0g",
			"0xabcdef0123456789abcdef0123456789abcdef0123",
		} {
			_, err := ParseAddress(in)
			require.Error(t, err, "input %q", in)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidFormat))
		}
	})
}

func TestParseOwner(t *testing.T) {
	t.Run("rejects zero address", func(t *testing.T) {
		_, err := ParseOwner("0x0000000000000000000000000000000000000000")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("format error wins over zero check", func(t *testing.T) {
		_, err := ParseOwner("0x00")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidFormat))
	})
}

func TestAddressJSON(t *testing.T) {
	addr := MustParseAddress(mixedCase)
	data, err := json.Marshal(addr)
	require.NoError(t, err)
	assert.JSONEq(t, `"0xabcdef0123456789abcdef0123456789abcdef01"`, string(data))

	var decoded Address
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, addr, decoded)

	assert.Error(t, json.Unmarshal([]byte(`"nope"`), &decoded))
}

func TestAddressChecksum(t *testing.T) {
	addr := MustParseAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", addr.Checksum())
}
