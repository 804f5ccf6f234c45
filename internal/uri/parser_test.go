package uri

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name         string
		raw          string
		expectErr    bool
		expectedRaw  string
		expectedAuth string
		expectedPath string
	}{
		{
			name:         "full uri",
			raw:          "wrap://ens/math.eth",
			expectedRaw:  "wrap://ens/math.eth",
			expectedAuth: "ens",
			expectedPath: "math.eth",
		},
		{
			name:         "missing scheme is added",
			raw:          "ens/math.eth",
			expectedRaw:  "wrap://ens/math.eth",
			expectedAuth: "ens",
			expectedPath: "math.eth",
		},
		{
			name:         "scheme and authority are case-insensitive",
			raw:          "WRAP://ENS/Math.eth",
			expectedRaw:  "wrap://ens/Math.eth",
			expectedAuth: "ens",
			expectedPath: "Math.eth",
		},
		{
			name:         "duplicate and trailing slashes collapse",
			raw:          "wrap://fs//build///math/",
			expectedRaw:  "wrap://fs/build/math",
			expectedAuth: "fs",
			expectedPath: "build/math",
		},
		{
			name:         "leading slash without scheme",
			raw:          "/ipfs/QmHash",
			expectedRaw:  "wrap://ipfs/QmHash",
			expectedAuth: "ipfs",
			expectedPath: "QmHash",
		},
		{
			name:         "relative filesystem path",
			raw:          "wrap://fs/../modules/math",
			expectedRaw:  "wrap://fs/../modules/math",
			expectedAuth: "fs",
			expectedPath: "../modules/math",
		},
		{name: "error - empty string", raw: "", expectErr: true},
		{name: "error - empty authority", raw: "wrap:///math", expectErr: true},
		{name: "error - missing path", raw: "wrap://ens", expectErr: true},
		{name: "error - only slashes in path", raw: "wrap://ens///", expectErr: true},
		{name: "error - whitespace", raw: "wrap://ens/math eth", expectErr: true},
		{name: "error - query string", raw: "wrap://ens/math?x=1", expectErr: true},
		{name: "error - fragment", raw: "wrap://ens/math#x", expectErr: true},
		{name: "error - unsupported scheme", raw: "https://ens/math", expectErr: true},
		{name: "error - illegal authority", raw: "wrap://en$/math", expectErr: true},
		{name: "error - wildcard outside pattern", raw: "wrap://ens/*", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			u, err := Parse(tc.raw)

			if tc.expectErr {
				require.Error(t, err)
				var invalid *InvalidUriError
				assert.True(t, errors.As(err, &invalid), "expected *InvalidUriError, got %T", err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expectedRaw, u.String())
			assert.Equal(t, tc.expectedAuth, u.Authority())
			assert.Equal(t, tc.expectedPath, u.Path())
		})
	}
}

func TestParse_RoundTrip(t *testing.T) {
	for _, raw := range []string{"wrap://ens/math.eth", "wrap://fs/a/b/c", "wrap://plugin/http"} {
		t.Run(raw, func(t *testing.T) {
			u, err := Parse(raw)
			require.NoError(t, err)

			again, err := Parse(u.String())
			require.NoError(t, err)
			assert.True(t, u.Equal(again))
			assert.Equal(t, u, again)
		})
	}
}

func TestResolve(t *testing.T) {
	base := MustParse("wrap://ens/outer.eth")

	sameAuthority, err := Resolve(base, "/inner.eth")
	require.NoError(t, err)
	assert.Equal(t, "wrap://ens/inner.eth", sameAuthority.String())

	absolute, err := Resolve(base, "wrap://plugin/env")
	require.NoError(t, err)
	assert.Equal(t, "wrap://plugin/env", absolute.String())

	_, err = Resolve(base, "")
	require.Error(t, err)
}

func TestUri_IsZero(t *testing.T) {
	assert.True(t, Uri{}.IsZero())
	assert.False(t, MustParse("ens/a").IsZero())
}
