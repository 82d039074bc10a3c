package pipeline

import (
	"context"
	"fmt"
	"strings"

	"supportflow/internal/llm"
	"supportflow/internal/tools"
)

const (
	maxSearchQueries     = 2
	maxResultsPerQuery   = 2
	maxRelevantArticles  = 3
	articleStoreLimit    = 300 // content length kept in the result
	articlePromptLimit   = 200 // content length embedded in the prompt
)

const researchPromptTemplate = `You are a research agent. Based on the ticket intent '%s' and these knowledge base articles,
provide a summary of relevant information.

Articles:
%s

Provide a concise summary and confidence score.`

// research queries the knowledge base and summarizes the findings. It
// no-ops when triage never ran; the gap propagates downstream instead of
// failing the ticket.
func (r *Runner) research(ctx context.Context, st State) (State, *TraceRecord, error) {
	if st.Triage == nil {
		return st, nil, nil
	}

	queries := []string{
		st.Ticket.Subject,
		strings.ReplaceAll(st.Triage.Intent, "_", " "),
	}
	if len(queries) > maxSearchQueries {
		queries = queries[:maxSearchQueries]
	}

	var all []tools.Article
	for _, q := range queries {
		hits, err := r.kb.Search(ctx, q, maxResultsPerQuery)
		if err != nil {
			return st, nil, &tools.ToolError{Tool: tools.ToolSearchKnowledgeBase, Err: err}
		}
		all = append(all, hits...)
	}

	// Deduplicate by source, first-seen order. Relevance ordering within a
	// query is preserved; across queries the first query wins ties.
	seen := make(map[string]bool)
	var unique []tools.Article
	for _, a := range all {
		if seen[a.Source] {
			continue
		}
		seen[a.Source] = true
		unique = append(unique, a)
	}
	if len(unique) > maxRelevantArticles {
		unique = unique[:maxRelevantArticles]
	}

	var lines []string
	for _, a := range unique {
		lines = append(lines, fmt.Sprintf("- %s: %s...", a.Source, truncate(a.Content, articlePromptLimit)))
	}

	prompt := fmt.Sprintf(researchPromptTemplate, st.Triage.Intent, strings.Join(lines, "\n"))

	out, err := llm.GenerateAs[ResearchResult](ctx, r.gen, researchSchema, prompt)
	if err != nil {
		return st, nil, err
	}

	// The generation call supplies only summary and confidence; the
	// article and query lists are authoritative from the tool results.
	out.RelevantArticles = make([]RelevantArticle, 0, len(unique))
	for _, a := range unique {
		out.RelevantArticles = append(out.RelevantArticles, RelevantArticle{
			Source:  a.Source,
			Content: truncate(a.Content, articleStoreLimit),
		})
	}
	out.SearchQueriesUsed = queries

	st.Research = out

	trace := &TraceRecord{
		Input: map[string]any{
			"intent":  st.Triage.Intent,
			"queries": queries,
		},
		Output:     out,
		Reasoning:  out.Summary,
		Confidence: out.Confidence,
		ToolsUsed:  []string{tools.ToolSearchKnowledgeBase},
	}
	return st, trace, nil
}
