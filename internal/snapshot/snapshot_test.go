package snapshot

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sum(t *testing.T, parts ...string) string {
	t.Helper()
	h := New()
	for i := 0; i+1 < len(parts); i += 2 {
		h.Section(parts[i])
		_, err := h.CopyFrom(strings.NewReader(parts[i+1]))
		require.NoError(t, err)
	}
	return h.Sum()
}

func TestSum_StableAndHex(t *testing.T) {
	a := sum(t, "results", "resultId,raceId\n1,18\n")
	b := sum(t, "results", "resultId,raceId\n1,18\n")
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
}

func TestSum_ContentChangeChangesKey(t *testing.T) {
	a := sum(t, "results", "1,18\n", "races", "18,2008\n")
	b := sum(t, "results", "1,18\n", "races", "18,2009\n")
	assert.NotEqual(t, a, b)
}

func TestSum_SectionBoundariesMatter(t *testing.T) {
	a := sum(t, "results", "ab", "races", "c")
	b := sum(t, "results", "a", "races", "bc")
	assert.NotEqual(t, a, b)
}

func TestString_IsFramed(t *testing.T) {
	h1 := New()
	h1.String("ab")
	h1.String("c")
	h2 := New()
	h2.String("a")
	h2.String("bc")
	assert.NotEqual(t, h1.Sum(), h2.Sum())
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestCopyFrom_Error(t *testing.T) {
	h := New()
	_, err := h.CopyFrom(failingReader{})
	require.EqualError(t, err, "disk gone")
}
