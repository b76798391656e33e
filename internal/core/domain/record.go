package domain

import "time"

const (
	KeyAdduct  = "adduct"
	KeyIonmode = "ionmode"
)

type RecordStatus string

const (
	StatusReceived   RecordStatus = "received"
	StatusProcessing RecordStatus = "processing"
	StatusEnriched   RecordStatus = "enriched"
	StatusFailed     RecordStatus = "failed"
)

// Record is a spectrum metadata container. Only the adduct and ionmode
// keys carry meaning for enrichment; everything else is passed through.
type Record struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata"`
}

func NewRecord(id string, metadata map[string]any) *Record {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &Record{ID: id, Metadata: metadata}
}

func (r *Record) Get(key string) (any, bool) {
	if r == nil || r.Metadata == nil {
		return nil, false
	}
	v, ok := r.Metadata[key]
	return v, ok
}

// GetString returns the value under key when it is a string.
func (r *Record) GetString(key string) (string, bool) {
	v, ok := r.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (r *Record) Set(key string, value any) {
	if r.Metadata == nil {
		r.Metadata = map[string]any{}
	}
	r.Metadata[key] = value
}

// Clone returns a copy whose nested maps and slices are independent of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := &Record{ID: r.ID, Metadata: make(map[string]any, len(r.Metadata))}
	for k, v := range r.Metadata {
		out.Metadata[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, nested := range typed {
			out[k] = cloneValue(nested)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, nested := range typed {
			out[i] = cloneValue(nested)
		}
		return out
	case []string:
		return append([]string(nil), typed...)
	case []float64:
		return append([]float64(nil), typed...)
	default:
		return v
	}
}

// StoredRecord is the persisted form of a record with processing state.
type StoredRecord struct {
	Record
	Status    RecordStatus `json:"status"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
