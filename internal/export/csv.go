package export

import "strings"

// Field is one key/value pair of an export record.
type Field struct {
	Key   string
	Value string
}

// Record is an ordered set of fields. Key order matters: the first record's
// keys become the CSV header.
type Record []Field

func (r Record) get(key string) (string, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Serializer is a pure, CPU-bound transform from records to CSV text. It
// holds no I/O and no shared state; running it off the request path is the
// caller's job (see Pool).
type Serializer struct {
	batchSize int
}

// NewSerializer builds a serializer that reports progress once per batch of
// the given size.
func NewSerializer(batchSize int) *Serializer {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &Serializer{batchSize: batchSize}
}

// Serialize renders the records as CSV: a header line taken from the first
// record's key order, then one line per record. A key the first record
// declared but a later record lacks renders as an empty string. Values
// containing the delimiter or a quote are wrapped in quotes with internal
// quotes doubled. Zero records yield empty output with no header. onProgress,
// when non-nil, receives the percentage of batches processed.
func (s *Serializer) Serialize(records []Record, onProgress func(percent int)) string {
	if len(records) == 0 {
		if onProgress != nil {
			onProgress(100)
		}
		return ""
	}

	header := make([]string, 0, len(records[0]))
	for _, f := range records[0] {
		header = append(header, f.Key)
	}

	var sb strings.Builder
	writeLine(&sb, header)

	batches := (len(records) + s.batchSize - 1) / s.batchSize
	done := 0
	for start := 0; start < len(records); start += s.batchSize {
		end := start + s.batchSize
		if end > len(records) {
			end = len(records)
		}
		line := make([]string, len(header))
		for _, record := range records[start:end] {
			sb.WriteByte('\n')
			for i, key := range header {
				line[i], _ = record.get(key)
			}
			writeLine(&sb, line)
		}
		done++
		if onProgress != nil {
			onProgress(done * 100 / batches)
		}
	}
	return sb.String()
}

func writeLine(sb *strings.Builder, values []string) {
	for i, v := range values {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(escape(v))
	}
}

func escape(v string) string {
	if !strings.ContainsAny(v, `,"`) {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}
