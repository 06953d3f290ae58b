package nixconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Include(t *testing.T) {
	resolver := func(path string) ([]byte, error) {
		assert.Equal(t, "nix.custom.conf", path)
		return []byte("experimental-features = flakes\n"), nil
	}

	cfg, err := Parse([]byte("!include nix.custom.conf\n"), resolver, "")
	require.NoError(t, err)
	require.Len(t, cfg.Blocks, 1)
	assert.Equal(t, "experimental-features", cfg.Blocks[0].Key)

	tokens, ok := cfg.Lookup("experimental-features")
	require.True(t, ok)
	assert.Equal(t, []string{"flakes"}, tokens)
}

func TestParse_MissingResolverErrors(t *testing.T) {
	_, err := Parse([]byte("!include nix.custom.conf\n"), nil, "")
	require.Error(t, err)
}

func TestParse_TrailingCommentBlock(t *testing.T) {
	cfg, err := Parse([]byte("experimental-features = flakes\n# dangling note\n"), nil, "")
	require.NoError(t, err)
	require.Len(t, cfg.Blocks, 2)
	assert.Equal(t, "", cfg.Blocks[1].Key)
	assert.Equal(t, []string{"# dangling note"}, cfg.Blocks[1].Comments)
}

func TestParse_BlankLineResetsPendingComments(t *testing.T) {
	cfg, err := Parse([]byte("# orphaned\n\nexperimental-features = flakes\n"), nil, "")
	require.NoError(t, err)
	require.Len(t, cfg.Blocks, 1)
	assert.Empty(t, cfg.Blocks[0].Comments)
}
