package mcpserver

import "time"

// SearchInput is the search tool's argument schema, per §4.10.
type SearchInput struct {
	Query     string  `json:"query" jsonschema:"the search query text"`
	K         *int    `json:"k,omitempty" jsonschema:"maximum number of results, default 10; an explicit 0 returns no results"`
	Namespace string  `json:"namespace,omitempty" jsonschema:"restrict results to this namespace"`
	Agent     string  `json:"agent_filter,omitempty" jsonschema:"restrict results to this agent's documents"`
	MinScore  float64 `json:"min_score,omitempty" jsonschema:"drop fused results scoring below this normalized threshold"`
	Overfetch int     `json:"overfetch,omitempty" jsonschema:"when set, skip the min_score drop and return the raw fused list truncated to this many results"`
}

// SearchOutput is the search tool's result schema.
type SearchOutput struct {
	Results []SearchResult `json:"results"`
}

// SearchResult is one hydrated, fused hit.
type SearchResult struct {
	ChunkID         string  `json:"chunk_id"`
	DocPath         string  `json:"doc_path"`
	Namespace       string  `json:"namespace"`
	SectionHeader   string  `json:"section_header,omitempty"`
	Text            string  `json:"text"`
	Score           float64 `json:"score"`
	RetrievalMethod string  `json:"retrieval_method"`
}

// GetInput is the get tool's argument schema: fetch one document by path,
// or a subset of its sections.
type GetInput struct {
	Path          string   `json:"path" jsonschema:"corpus-relative document path"`
	ReturnFullDoc bool     `json:"return_full_doc,omitempty" jsonschema:"include the full document content; defaults to true when sections is empty"`
	Sections      []string `json:"sections,omitempty" jsonschema:"restrict the returned chunks and content to these section headers"`
}

// GetOutput is the get tool's result schema.
type GetOutput struct {
	Path       string      `json:"path"`
	Namespace  string      `json:"namespace"`
	DocType    string      `json:"doc_type"`
	AgentName  string      `json:"agent_name,omitempty"`
	Content    string      `json:"content"`
	TokenCount int         `json:"token_count"`
	Chunks     []ChunkInfo `json:"chunks"`
}

// ChunkInfo summarizes one chunk within a document.
type ChunkInfo struct {
	Index         int    `json:"index"`
	SectionHeader string `json:"section_header,omitempty"`
	TokenCount    int    `json:"token_count"`
}

// ListInput is the list tool's argument schema: enumerate one of the
// corpus's vocabularies.
type ListInput struct {
	ListType  string `json:"list_type" jsonschema:"one of: agents, system_docs, namespaces, doc_types"`
	AgentName string `json:"agent_name,omitempty" jsonschema:"when list_type is system_docs, restrict to this agent's documents instead of documents with no agent"`
}

// ListOutput is the list tool's result schema: a plain string list, the
// shape of which depends on ListInput.ListType.
type ListOutput struct {
	Items []string `json:"items"`
}

// RelatedInput is the related tool's argument schema: bounded graph walk.
type RelatedInput struct {
	Entity        string   `json:"entity" jsonschema:"entity name to start the traversal from"`
	MaxDepth      int      `json:"max_depth,omitempty" jsonschema:"maximum hops, default 2, hard ceiling 3"`
	RelationTypes []string `json:"relation_types,omitempty" jsonschema:"restrict to these relation types"`
}

// RelatedOutput is the related tool's result schema.
type RelatedOutput struct {
	Edges []RelatedEdge `json:"edges"`
}

// RelatedEdge is one traversed relation.
type RelatedEdge struct {
	Source   string `json:"source"`
	Relation string `json:"relation"`
	Target   string `json:"target"`
	Depth    int    `json:"depth"`
}

// ExplainInput is the explain tool's argument schema.
type ExplainInput struct {
	ExplainWhat string `json:"explain_what" jsonschema:"one of: index_stats, doc_info, freshness"`
	DocPath     string `json:"doc_path,omitempty" jsonschema:"document path, required when explain_what is doc_info or freshness"`
}

// ExplainOutput is the explain tool's result schema; exactly one of the
// mode-specific fields is populated depending on ExplainInput.ExplainWhat.
type ExplainOutput struct {
	IndexStats *IndexStats `json:"index_stats,omitempty"`
	DocInfo    *DocInfo    `json:"doc_info,omitempty"`
	Freshness  *Freshness  `json:"freshness,omitempty"`
}

// IndexStats summarizes corpus size.
type IndexStats struct {
	DocumentCount int      `json:"document_count"`
	Namespaces    []string `json:"namespaces"`
	DocTypes      []string `json:"doc_types"`
	Agents        []string `json:"agents"`
}

// DocInfo reports one document's stored metadata.
type DocInfo struct {
	Path       string `json:"path"`
	Namespace  string `json:"namespace"`
	DocType    string `json:"doc_type"`
	AgentName  string `json:"agent_name,omitempty"`
	TokenCount int    `json:"token_count"`
	FileHash   string `json:"file_hash"`
}

// Freshness reports when a document's source file last changed and when
// that change was last ingested.
type Freshness struct {
	Path       string    `json:"path"`
	ModifiedAt time.Time `json:"modified_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Stale      bool      `json:"stale"`
}

// CreateDocInput is the create_doc tool's argument schema.
type CreateDocInput struct {
	Path    string `json:"path" jsonschema:"corpus-relative path for the new document"`
	Content string `json:"content" jsonschema:"document content"`
	DocType string `json:"doc_type,omitempty" jsonschema:"override the extension-inferred document type"`
}

// CreateDocOutput is the create_doc tool's result schema.
type CreateDocOutput struct {
	Path       string `json:"path"`
	ChunkCount int    `json:"chunk_count"`
}

// UpdateDocInput is the update_doc tool's argument schema.
type UpdateDocInput struct {
	Path    string `json:"path" jsonschema:"corpus-relative path of the document to overwrite"`
	Content string `json:"content" jsonschema:"new document content"`
}

// UpdateDocOutput is the update_doc tool's result schema.
type UpdateDocOutput struct {
	Path       string `json:"path"`
	ChunkCount int    `json:"chunk_count"`
}

// DeleteDocInput is the delete_doc tool's argument schema. Confirm must be
// set true; it guards against an accidental deletion from a malformed or
// truncated tool call.
type DeleteDocInput struct {
	Path    string `json:"path" jsonschema:"corpus-relative path of the document to delete"`
	Confirm bool   `json:"confirm" jsonschema:"must be true to perform the deletion"`
}

// DeleteDocOutput is the delete_doc tool's result schema.
type DeleteDocOutput struct {
	Path    string `json:"path"`
	Deleted bool   `json:"deleted"`
}
