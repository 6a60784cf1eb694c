package daemon

import "encoding/json"

// JSON-RPC method names served by the daemon.
const (
	MethodGetStatus         = "get_status"
	MethodCheckInit         = "check_init"
	MethodStopServer        = "stop_server"
	MethodEmbedText         = "embed_text"
	MethodVectorSearch      = "vector_search"
	MethodSearchSimilar     = "search_similar"
	MethodSearchPostsByText = "search_posts_by_text"
	MethodGetUserStats      = "get_user_stats"
	MethodGetDatabaseStats  = "get_database_stats"
	MethodGetUserList       = "get_user_list"
	MethodSuggestUsers      = "suggest_users"
)

// vectorSearchChunkSize bounds how many (post_id, score) pairs one
// vector_search reply chunk may carry.
const vectorSearchChunkSize = 20000

// defaults and bounds for optional request fields.
const (
	defaultLimit = 50
	// maxLimit bounds search_posts_by_text/get_user_stats' limit param.
	maxLimit = 1000
	// maxSearchSimilarTopK bounds search_similar's top_k param; vector_search
	// has no such cap since an absent top_k there means "every row".
	maxSearchSimilarTopK = 100
)

// --- get_status ---

type dataStats struct {
	TotalPosts int `json:"total_posts"`
}

type getStatusResult struct {
	Status     string     `json:"status"`
	Ready      bool       `json:"ready"`
	ServerType string     `json:"server_type"`
	Model      string     `json:"model"`
	DataStats  *dataStats `json:"data_stats,omitempty"`
}

// --- check_init ---

type checkInitResult struct {
	Status string `json:"status"`
}

// --- stop_server ---

type stopServerResult struct {
	Status string `json:"status"`
}

// --- embed_text ---

type embedTextParams struct {
	Text string `json:"text"`
}

type embedTextResult struct {
	Vector string `json:"vector"` // base64 safetensors blob
}

// --- vector_search ---

type vectorSearchParams struct {
	Query   string    `json:"query"`
	TopK    int       `json:"top_k,omitempty"`
	Mode    string    `json:"mode,omitempty"`
	Weights []float64 `json:"weights,omitempty"`
}

type vectorSearchResult struct {
	Data        [][2]float64 `json:"data"` // [post_id, score] pairs; post_id carried as float64 per JSON number convention
	Chunk       int          `json:"chunk"`
	TotalChunks int          `json:"total_chunks"`
	StartRank   int          `json:"start_rank"`
}

// --- search_similar ---

type searchSimilarParams struct {
	Query    string          `json:"query"`
	Settings json.RawMessage `json:"settings,omitempty"`
	Mode     string          `json:"mode,omitempty"`
	Weights  []float64       `json:"weights,omitempty"`
}

// --- search_posts_by_text ---

type searchPostsByTextParams struct {
	SearchTerm string `json:"search_term"`
	Limit      int    `json:"limit,omitempty"`
	Source     string `json:"source,omitempty"`
}

// --- get_user_stats ---

type getUserStatsParams struct {
	Limit int `json:"limit,omitempty"`
}

type userStat struct {
	User      string `json:"user"`
	PostCount int    `json:"post_count"`
}

// --- get_database_stats ---

type dateRangeResult struct {
	Earliest string `json:"earliest"`
	Latest   string `json:"latest"`
}

type getDatabaseStatsResult struct {
	TotalPosts int             `json:"total_posts"`
	TotalUsers int             `json:"total_users"`
	DateRange  dateRangeResult `json:"date_range"`
}

// --- suggest_users ---

type suggestUsersParams struct {
	UserList []string `json:"user_list"`
}

type suggestUsersResult struct {
	Missing map[string][]string `json:"missing"`
}
