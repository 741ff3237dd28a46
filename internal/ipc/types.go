package ipc

import "time"

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusEntry is the wire form of one status table entry.
type StatusEntry struct {
	Path      string    `json:"path"`
	State     string    `json:"state"`
	Message   string    `json:"message"`
	Percent   int       `json:"percent"`
	ETA       string    `json:"eta"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DependencyStatus describes availability of an external tool.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail"`
}

// StatusResponse represents combined daemon and conversion status.
type StatusResponse struct {
	Running       bool               `json:"running"`
	PID           int                `json:"pid"`
	LibraryDir    string             `json:"library_dir"`
	CacheState    string             `json:"cache_state"`
	QueueCapacity int                `json:"queue_capacity"`
	QueueLength   int                `json:"queue_length"`
	Entries       []StatusEntry      `json:"entries"`
	Dependencies  []DependencyStatus `json:"dependencies"`
}

// StopRequest asks the daemon to shut down.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// QueueListRequest lists pending queue items.
type QueueListRequest struct{}

// QueueEntry is one in-flight item with its current status. The processing
// item (if any) comes first at position zero; queued items follow in FIFO
// order starting at one.
type QueueEntry struct {
	Position int    `json:"position"`
	Path     string `json:"path"`
	State    string `json:"state"`
	Message  string `json:"message"`
	Percent  int    `json:"percent"`
	ETA      string `json:"eta"`
}

// QueueListResponse contains queue entries in FIFO order.
type QueueListResponse struct {
	Capacity int          `json:"capacity"`
	Items    []QueueEntry `json:"items"`
}

// QueueAddRequest submits one file for conversion.
type QueueAddRequest struct {
	Path string `json:"path"`
}

// QueueAddResponse reports enqueue outcome.
type QueueAddResponse struct {
	Added   bool   `json:"added"`
	Message string `json:"message"`
}

// QueueResizeRequest changes the queue capacity.
type QueueResizeRequest struct {
	Capacity int `json:"capacity"`
}

// QueueResizeResponse reports the applied capacity and any items that no
// longer fit.
type QueueResizeResponse struct {
	Capacity int      `json:"capacity"`
	Dropped  []string `json:"dropped"`
}

// CandidatesRequest fetches the most recent catalog snapshot.
type CandidatesRequest struct{}

// Candidate is the wire form of one classified media file.
type Candidate struct {
	Course          string  `json:"course"`
	Section         string  `json:"section"`
	Filename        string  `json:"filename"`
	Path            string  `json:"path"`
	Codec           string  `json:"codec"`
	SizeMB          float64 `json:"size_mb"`
	DurationSeconds float64 `json:"duration_seconds"`
	NeedsConversion bool    `json:"needs_conversion"`
	Status          string  `json:"status"`
	Processed       bool    `json:"processed"`
}

// CandidatesResponse contains the snapshot and its cache state.
type CandidatesResponse struct {
	CacheState string      `json:"cache_state"`
	ScannedAt  time.Time   `json:"scanned_at"`
	Candidates []Candidate `json:"candidates"`
}

// LedgerListRequest lists conversion records.
type LedgerListRequest struct{}

// LedgerRecord is the wire form of one conversion record.
type LedgerRecord struct {
	ID            int64     `json:"id"`
	Fingerprint   string    `json:"fingerprint"`
	OriginalPath  string    `json:"original_path"`
	ConvertedPath string    `json:"converted_path"`
	Status        string    `json:"status"`
	HasSubtitles  bool      `json:"has_subtitles"`
	CreatedAt     time.Time `json:"created_at"`
}

// LedgerListResponse contains all conversion records.
type LedgerListResponse struct {
	Records []LedgerRecord `json:"records"`
}

// LedgerDeleteRequest removes one conversion record by id.
type LedgerDeleteRequest struct {
	ID int64 `json:"id"`
}

// LedgerDeleteResponse reports the removed record, if any.
type LedgerDeleteResponse struct {
	Removed bool          `json:"removed"`
	Record  *LedgerRecord `json:"record"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// StatusPruneRequest drops finished status entries.
type StatusPruneRequest struct{}

// StatusPruneResponse reports number of pruned entries.
type StatusPruneResponse struct {
	Removed int `json:"removed"`
}
