package lifecycle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Emixee/intimacy-play-sub001/pkg/types"
)

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		require.Len(t, code, codeLength)
		assert.True(t, types.IsValidCode(code), "generated code %q is malformed", code)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(codeAlphabet, r), "symbol %q outside alphabet", r)
		}
	}
}

func TestGenerateCode_Varies(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		seen[code] = true
	}
	// 32^6 codes; fifty draws colliding down to a handful would mean the
	// generator is broken.
	assert.Greater(t, len(seen), 45)
}
