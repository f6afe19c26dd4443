package contract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hupe1980/agentloop/memory"
	"github.com/hupe1980/agentloop/reasoning"
	"github.com/hupe1980/agentloop/tool"
)

// ErrUnsupportedDocument is returned by read_document for formats it cannot read.
var ErrUnsupportedDocument = errors.New("unsupported document format")

const (
	summaryChunkSize    = 500
	summaryChunkOverlap = 20
	summaryChunks       = 5
	summaryKeyPoints    = 3
	searchChunkSize     = 300
	searchChunkOverlap  = 50
	searchMaxMatches    = 5
)

// clauseRules drive classification and explanation; the first keyword found wins.
var clauseRules = []struct {
	keyword     string
	category    string
	risk        string
	summary     string
	explanation string
}{
	{"data", "Data Collection", "medium", "Mentions data usage.",
		"The company can collect and use your personal information as described."},
	{"terminate", "Termination", "high", "Unilateral termination.",
		"The company can end your service at any time for any reason."},
	{"jurisdiction", "Jurisdiction", "medium", "Specifies jurisdiction.",
		"Any legal disputes will be handled according to the laws of the specified location."},
	{"liability", "Liability Limitation", "high", "Limits liability.",
		"The company is limiting how much they can be held responsible for problems or damages."},
}

// -------------------- Arguments --------------------

type textArgs struct {
	Text string `json:"text" jsonschema_description:"Full contract or document text"`
}

type clauseArgs struct {
	Clause string `json:"clause" jsonschema_description:"Text of a single clause"`
}

type flagArgs struct {
	Clause string `json:"clause" jsonschema_description:"Text of the risky clause"`
	Reason string `json:"reason" jsonschema_description:"Why the clause needs human review"`
}

type readArgs struct {
	FilePath string `json:"file_path" jsonschema_description:"Path of a .txt, .md or .pdf document"`
}

type summarizeArgs struct {
	Text      string `json:"text" jsonschema_description:"Full document text"`
	MaxLength int    `json:"max_length,omitempty" jsonschema_description:"Upper bound on the overview length in characters"`
}

type searchArgs struct {
	Text  string `json:"text" jsonschema_description:"Document text to search"`
	Query string `json:"query" jsonschema_description:"Term or topic to look for"`
}

type saveContextArgs struct {
	Topic   string `json:"topic" jsonschema_description:"Short topic label"`
	Content string `json:"content" jsonschema_description:"Content to remember"`
}

type recallArgs struct {
	Query string `json:"query,omitempty" jsonschema_description:"Words to look for in saved topics and notes; empty lists everything"`
	Limit int    `json:"limit,omitempty" jsonschema_description:"Maximum number of notes to return"`
}

// -------------------- Results --------------------

// Clause is one extracted paragraph.
type Clause struct {
	Text     string `json:"text"`
	StartIdx int    `json:"start_idx"`
	EndIdx   int    `json:"end_idx"`
}

// ClauseList is the result of extract_clauses.
type ClauseList struct {
	Clauses []Clause `json:"clauses"`
}

// Classification is the result of classify_clause.
type Classification struct {
	Category  string `json:"category"`
	RiskLevel string `json:"risk_level"`
	Summary   string `json:"summary"`
}

// FlaggedClause is the result of flag_for_review.
type FlaggedClause struct {
	Clause string `json:"clause"`
	Reason string `json:"reason"`
}

// Risk is a risky section found while summarizing.
type Risk struct {
	Clause string `json:"clause"`
	Reason string `json:"reason"`
}

// DocumentSummary is the result of summarize_document.
type DocumentSummary struct {
	Overview  string   `json:"overview"`
	KeyPoints []string `json:"key_points"`
	Risks     []Risk   `json:"risks"`
}

// SearchMatch is one chunk that mentions the query.
type SearchMatch struct {
	Text      string `json:"text"`
	Relevance string `json:"relevance"`
}

// SearchResult is the result of search_document.
type SearchResult struct {
	Matches []SearchMatch `json:"matches"`
	Context string        `json:"context"`
}

// -------------------- Toolset --------------------

// Toolset builds the contract analysis tools. Notes saved through
// save_conversation_context go to a memory.Store and can be recalled in later
// turns.
type Toolset struct {
	root  string
	now   func() time.Time
	notes memory.Store
}

// Option customizes a Toolset.
type Option func(*Toolset)

// WithRoot confines read_document to files below dir.
func WithRoot(dir string) Option {
	return func(t *Toolset) { t.root = dir }
}

// WithNotes replaces the in-memory note store.
func WithNotes(s memory.Store) Option {
	return func(t *Toolset) {
		if s != nil {
			t.notes = s
		}
	}
}

// WithClock replaces time.Now for saved context timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Toolset) {
		if now != nil {
			t.now = now
		}
	}
}

// NewToolset creates a Toolset.
func NewToolset(opts ...Option) *Toolset {
	t := &Toolset{now: time.Now, notes: memory.NewInMemoryStore()}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Tools returns the tools in the order they are offered to the engine.
func (t *Toolset) Tools() []tool.Tool {
	return []tool.Tool{
		tool.NewTypedTool("extract_clauses", "Extract clauses from a legal text",
			func(_ context.Context, in textArgs) (any, error) { return ExtractClauses(in.Text), nil }),
		tool.NewTypedTool("classify_clause", "Classify a legal clause by type and risk",
			func(_ context.Context, in clauseArgs) (any, error) { return ClassifyClause(in.Clause), nil }),
		tool.NewTypedTool("flag_for_review", "Flag a clause as risky for human review",
			func(_ context.Context, in flagArgs) (any, error) {
				return FlaggedClause{Clause: in.Clause, Reason: in.Reason}, nil
			},
			tool.WithRole(tool.RoleFlag)),
		tool.NewTypedTool("read_document", "Read the text of a contract document (.txt, .md or .pdf)",
			func(_ context.Context, in readArgs) (any, error) { return t.ReadDocument(in.FilePath) }),
		tool.NewFunctionTool("list_documents", "List the contract documents available to read_document",
			map[string]any{"type": "object", "properties": map[string]any{}},
			func(context.Context, map[string]any) (any, error) { return t.ListDocuments() }),
		tool.NewTypedTool("summarize_document", "Generate a summary of a legal document",
			func(_ context.Context, in summarizeArgs) (any, error) {
				return SummarizeDocument(in.Text, in.MaxLength)
			}),
		tool.NewTypedTool("explain_clause", "Explain a legal clause in simple terms",
			func(_ context.Context, in clauseArgs) (any, error) { return ExplainClause(in.Clause), nil }),
		tool.NewTypedTool("search_document", "Search for specific terms or topics in the document",
			func(_ context.Context, in searchArgs) (any, error) { return SearchDocument(in.Text, in.Query) }),
		tool.NewTypedTool("save_conversation_context", "Save the context of the current conversation for later reference",
			func(_ context.Context, in saveContextArgs) (any, error) { return t.SaveContext(in.Topic, in.Content) }),
		tool.NewTypedTool("recall_conversation_context", "Look up notes saved earlier with save_conversation_context",
			func(_ context.Context, in recallArgs) (any, error) { return t.notes.Search(in.Query, in.Limit) }),
		tool.NewTypedTool("analyze_clause_risk", "Score a clause for risk signals and readability",
			func(_ context.Context, in clauseArgs) (any, error) { return reasoning.AnalyzeClause(in.Clause), nil }),
		tool.NewTypedTool("suggest_analysis_strategy", "Suggest how to review a whole contract",
			func(_ context.Context, in textArgs) (any, error) { return reasoning.SuggestStrategy(in.Text), nil }),
	}
}

// Register adds all tools to reg.
func (t *Toolset) Register(reg *tool.Registry) error {
	for _, tl := range t.Tools() {
		if err := reg.Register(tl); err != nil {
			return err
		}
	}
	return nil
}

// Tools returns a default Toolset's tools.
func Tools(opts ...Option) []tool.Tool { return NewToolset(opts...).Tools() }

// Register adds a default Toolset's tools to reg.
func Register(reg *tool.Registry, opts ...Option) error { return NewToolset(opts...).Register(reg) }

// ReadDocument returns the text of a .txt, .md or .pdf file.
func (t *Toolset) ReadDocument(path string) (string, error) {
	resolved, err := t.resolve(path)
	if err != nil {
		return "", err
	}

	switch ext := strings.ToLower(filepath.Ext(resolved)); ext {
	case ".txt", ".md":
	case ".pdf":
		return readPDF(resolved)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDocument, ext)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return string(data), nil
}

// ListDocuments returns the names of the readable documents directly under
// the document root, sorted. Without a root the working directory is listed.
func (t *Toolset) ListDocuments() ([]string, error) {
	dir := t.root
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	names := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".txt", ".md", ".pdf":
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (t *Toolset) resolve(path string) (string, error) {
	if path == "" {
		return "", errors.New("file path is empty")
	}
	if t.root == "" {
		return filepath.Clean(path), nil
	}

	full := filepath.Join(t.root, filepath.Clean("/"+path))
	rel, err := filepath.Rel(t.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the document root", path)
	}
	return full, nil
}

// SaveContext records a note and returns it.
func (t *Toolset) SaveContext(topic, content string) (memory.Note, error) {
	return t.notes.Save(memory.Note{Topic: topic, Content: content, Timestamp: t.now()})
}

// SavedContexts returns the notes saved so far in save order.
func (t *Toolset) SavedContexts() ([]memory.Note, error) {
	return t.notes.List()
}

// -------------------- Pure helpers --------------------

// ExtractClauses splits text into blank-line separated paragraphs. StartIdx is
// the paragraph index and EndIdx is StartIdx plus the paragraph length.
func ExtractClauses(text string) ClauseList {
	out := ClauseList{Clauses: []Clause{}}
	i := 0
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out.Clauses = append(out.Clauses, Clause{Text: p, StartIdx: i, EndIdx: i + len(p)})
		i++
	}
	return out
}

// ClassifyClause assigns a category and risk level by keyword.
func ClassifyClause(clause string) Classification {
	lower := strings.ToLower(clause)
	for _, r := range clauseRules {
		if strings.Contains(lower, r.keyword) {
			return Classification{Category: r.category, RiskLevel: r.risk, Summary: r.summary}
		}
	}
	return Classification{Category: "Other", RiskLevel: "low", Summary: "No critical issues detected."}
}

// ExplainClause paraphrases a clause in plain language.
func ExplainClause(clause string) string {
	lower := strings.ToLower(clause)
	for _, r := range clauseRules {
		if strings.Contains(lower, r.keyword) {
			return "This clause means: " + r.explanation
		}
	}
	return "This clause means: This establishes standard terms for the agreement between parties."
}

// SummarizeDocument reports the section count, the opening sections as key
// points and risky sections among the first few. A positive maxLength caps
// the overview.
func SummarizeDocument(text string, maxLength int) (DocumentSummary, error) {
	chunks, err := splitText(text, summaryChunkSize, summaryChunkOverlap)
	if err != nil {
		return DocumentSummary{}, fmt.Errorf("split document: %w", err)
	}

	s := DocumentSummary{KeyPoints: []string{}, Risks: []Risk{}}
	for i, chunk := range chunks {
		if i >= summaryChunks {
			break
		}
		lower := strings.ToLower(chunk)
		switch {
		case strings.Contains(lower, "data") || strings.Contains(lower, "privacy"):
			s.Risks = append(s.Risks, Risk{Clause: truncate(chunk, 100), Reason: "Privacy concerns"})
		case strings.Contains(lower, "terminate"):
			s.Risks = append(s.Risks, Risk{Clause: truncate(chunk, 100), Reason: "Termination rights"})
		case strings.Contains(lower, "liability"):
			s.Risks = append(s.Risks, Risk{Clause: truncate(chunk, 100), Reason: "Liability limitations"})
		}
		if i < summaryKeyPoints {
			s.KeyPoints = append(s.KeyPoints, fmt.Sprintf("Section %d: %s", i+1, truncate(chunk, 50)))
		}
	}

	s.Overview = fmt.Sprintf("This document contains %d sections covering various legal aspects.", len(chunks))
	if maxLength > 0 {
		s.Overview = truncate(s.Overview, maxLength)
	}
	return s, nil
}

// SearchDocument returns up to five chunks that mention query, case-insensitively.
func SearchDocument(text, query string) (SearchResult, error) {
	res := SearchResult{Matches: []SearchMatch{}}
	q := strings.ToLower(query)
	if q == "" {
		res.Context = "Empty query"
		return res, nil
	}

	chunks, err := splitText(text, searchChunkSize, searchChunkOverlap)
	if err != nil {
		return SearchResult{}, fmt.Errorf("split document: %w", err)
	}

	found := 0
	for _, chunk := range chunks {
		n := strings.Count(strings.ToLower(chunk), q)
		if n == 0 {
			continue
		}
		found++
		if len(res.Matches) >= searchMaxMatches {
			continue
		}
		relevance := "medium"
		if n > 1 {
			relevance = "high"
		}
		res.Matches = append(res.Matches, SearchMatch{Text: chunk, Relevance: relevance})
	}

	res.Context = fmt.Sprintf("Found %d sections mentioning '%s'", found, query)
	return res, nil
}
