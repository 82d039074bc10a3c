// Package kb implements the knowledge-base search collaborator. Markdown
// documents are loaded from a directory, split into overlapping chunks,
// and served through a keyword-overlap relevance search.
package kb

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"supportflow/internal/tools"
)

const (
	chunkSize    = 500
	chunkOverlap = 50
)

// KnowledgeBase is an in-memory chunk index implementing
// tools.KnowledgeSearcher. Safe for concurrent use; LoadDir swaps the
// index atomically so searches never observe a partial load.
type KnowledgeBase struct {
	mu     sync.RWMutex
	chunks []chunk
	logger *zap.Logger
}

type chunk struct {
	source  string
	content string
	terms   map[string]int
}

// New creates an empty knowledge base.
func New(logger *zap.Logger) *KnowledgeBase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KnowledgeBase{logger: logger}
}

// LoadDir loads every markdown file under dir, replacing the current
// index. Returns the number of chunks indexed.
func (k *KnowledgeBase) LoadDir(dir string) (int, error) {
	if _, err := os.Stat(dir); err != nil {
		return 0, fmt.Errorf("knowledge base directory %s: %w", dir, err)
	}

	var chunks []chunk
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		for _, piece := range splitText(string(data), chunkSize, chunkOverlap) {
			chunks = append(chunks, chunk{
				source:  d.Name(),
				content: piece,
				terms:   termCounts(piece),
			})
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	k.mu.Lock()
	k.chunks = chunks
	k.mu.Unlock()

	k.logger.Info("knowledge base loaded",
		zap.String("dir", dir),
		zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}

// Search scores every chunk against the query terms and returns the top
// maxResults hits ordered by relevance descending. Relevance is the
// fraction of query terms present in the chunk; zero-score chunks are
// dropped, so the result may be empty.
func (k *KnowledgeBase) Search(_ context.Context, query string, maxResults int) ([]tools.Article, error) {
	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return nil, nil
	}

	k.mu.RLock()
	defer k.mu.RUnlock()

	type scored struct {
		article tools.Article
		hits    int
	}
	var results []scored
	for _, c := range k.chunks {
		matched := 0
		occurrences := 0
		for _, t := range queryTerms {
			if n := c.terms[t]; n > 0 {
				matched++
				occurrences += n
			}
		}
		if matched == 0 {
			continue
		}
		results = append(results, scored{
			article: tools.Article{
				Content:        c.content,
				Source:         c.source,
				RelevanceScore: float64(matched) / float64(len(queryTerms)),
			},
			hits: occurrences,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].article.RelevanceScore != results[j].article.RelevanceScore {
			return results[i].article.RelevanceScore > results[j].article.RelevanceScore
		}
		return results[i].hits > results[j].hits
	})

	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}

	articles := make([]tools.Article, 0, len(results))
	for _, r := range results {
		articles = append(articles, r.article)
	}
	return articles, nil
}

// Watch reloads the index whenever a markdown file under dir changes.
// Blocks until ctx is cancelled.
func (k *KnowledgeBase) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, ".md") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if _, err := k.LoadDir(dir); err != nil {
				k.logger.Warn("knowledge base reload failed",
					zap.String("event", event.String()),
					zap.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			k.logger.Warn("knowledge base watcher error", zap.Error(err))
		}
	}
}

// splitText splits s into chunks of at most size bytes with the given
// overlap between consecutive chunks.
func splitText(s string, size, overlap int) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if len(s) <= size {
		return []string{s}
	}

	var out []string
	step := size - overlap
	for start := 0; start < len(s); start += step {
		end := start + size
		if end >= len(s) {
			out = append(out, s[start:])
			break
		}
		out = append(out, s[start:end])
	}
	return out
}

// tokenize lowercases and splits on non-alphanumeric runes.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func termCounts(s string) map[string]int {
	counts := make(map[string]int)
	for _, t := range tokenize(s) {
		counts[t]++
	}
	return counts
}
