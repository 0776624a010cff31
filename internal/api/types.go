package api

import "time"

// TranslateRequest is the body of POST /api/translate.
type TranslateRequest struct {
	SourceText string   `json:"source_text"`
	SourceLang string   `json:"source_lang"`
	TargetLang string   `json:"target_lang"`
	Style      string   `json:"style,omitempty"`
	Models     []string `json:"models,omitempty"`
	Filename   string   `json:"filename,omitempty"`
}

// ErrorResponse describes a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Hint  string `json:"hint,omitempty"`
	Model string `json:"model,omitempty"`
	Chunk int    `json:"chunk,omitempty"`
}

// WarningResponse is returned when a request completes without output.
type WarningResponse struct {
	Warning   string `json:"warning"`
	EventType string `json:"event_type"`
}

// ModelsResponse lists models that can serve translations for a credential.
type ModelsResponse struct {
	Provider string   `json:"provider"`
	Models   []string `json:"models"`
}

// PairInfo describes one offered language pair.
type PairInfo struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// StyleInfo describes one translation style preset.
type StyleInfo struct {
	Style       string  `json:"style"`
	Label       string  `json:"label"`
	Temperature float64 `json:"temperature"`
}

// RunSummary describes the most recent translation run.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Status     string    `json:"status"`
	Pair       string    `json:"pair"`
	Style      string    `json:"style"`
	Chunks     int       `json:"chunks"`
	Models     []string  `json:"models,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Running      bool        `json:"running"`
	PID          int         `json:"pid"`
	Provider     string      `json:"provider"`
	Busy         bool        `json:"busy"`
	LockFilePath string      `json:"lock_file_path"`
	ChunkSize    int         `json:"chunk_size"`
	Pairs        []PairInfo  `json:"pairs"`
	Styles       []StyleInfo `json:"styles"`
	LastRun      *RunSummary `json:"last_run,omitempty"`
}

// LogEvent is one structured log line exposed over HTTP.
type LogEvent struct {
	Sequence  uint64            `json:"seq"`
	Timestamp time.Time         `json:"ts"`
	Level     string            `json:"level"`
	Message   string            `json:"msg"`
	Component string            `json:"component,omitempty"`
	RunID     string            `json:"run_id,omitempty"`
	Chunk     int               `json:"chunk,omitempty"`
	Model     string            `json:"model,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// LogStreamResponse is the body of GET /api/logs.
type LogStreamResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}
