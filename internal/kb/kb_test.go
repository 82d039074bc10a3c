package kb

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func loadedKB(t *testing.T) (*KnowledgeBase, string) {
	t.Helper()
	dir := t.TempDir()
	writeDoc(t, dir, "refunds.md",
		"Refunds are available within 30 days of purchase. Refund requests require the order number.")
	writeDoc(t, dir, "shipping.md",
		"Standard shipping takes 5-7 business days. Expedited shipping is available at checkout.")
	writeDoc(t, dir, "warranty.md",
		"All hardware carries a one year warranty against manufacturing defects.")
	writeDoc(t, dir, "notes.txt", "not markdown, must be ignored")

	k := New(nil)
	n, err := k.LoadDir(dir)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	return k, dir
}

func TestLoadDir_MissingDirectory(t *testing.T) {
	k := New(nil)
	_, err := k.LoadDir(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestSearch_RanksByTermOverlap(t *testing.T) {
	k, _ := loadedKB(t)

	hits, err := k.Search(context.Background(), "refund order", 3)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "refunds.md", hits[0].Source)
	assert.InDelta(t, 1.0, hits[0].RelevanceScore, 1e-9)

	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i].RelevanceScore, hits[i-1].RelevanceScore)
	}
}

func TestSearch_RespectsMaxResults(t *testing.T) {
	k, _ := loadedKB(t)

	hits, err := k.Search(context.Background(), "available", 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestSearch_NoMatches(t *testing.T) {
	k, _ := loadedKB(t)

	hits, err := k.Search(context.Background(), "quantum entanglement", 3)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = k.Search(context.Background(), "   ", 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestLoadDir_ReplacesIndex(t *testing.T) {
	k, dir := loadedKB(t)

	writeDoc(t, dir, "refunds.md", "completely different text now")
	_, err := k.LoadDir(dir)
	require.NoError(t, err)

	hits, err := k.Search(context.Background(), "purchase", 3)
	require.NoError(t, err)
	assert.Empty(t, hits, "old chunks must not survive a reload")
}

func TestSplitText(t *testing.T) {
	assert.Nil(t, splitText("   ", 500, 50))

	short := "short document"
	assert.Equal(t, []string{short}, splitText(short, 500, 50))

	long := strings.Repeat("a", 1200)
	chunks := splitText(long, 500, 50)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 500)
	assert.Len(t, chunks[1], 500)
	// Consecutive chunks overlap by 50 bytes.
	assert.Equal(t, chunks[0][450:], chunks[1][:50])
}
