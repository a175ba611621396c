// Package render turns an enriched message set into its export formats.
package render

import (
	"encoding/json"
	"strings"

	"github.com/HMasataka/chatwork-log-exporter/internal/domain"
)

// CSVColumns is the fixed column order of a messages CSV export. It is part
// of the output naming/format contract and must not change.
var CSVColumns = []string{"id", "aid", "aid_name", "datetime", "type", "msg", "tm", "utm", "index", "reactions"}

// MessagesCSV renders messages as CSV. The header row is always emitted,
// even for a room with zero messages. A field absent on a message renders
// as an empty cell; quoted fields double internal quotes, and newlines
// inside the message body escape to a literal backslash-n sequence.
func MessagesCSV(messages []domain.Message) []byte {
	var sb strings.Builder
	sb.WriteString(strings.Join(CSVColumns, ","))

	for _, m := range messages {
		sb.WriteByte('\n')
		row := []string{
			plainField(m, "id"),
			plainField(m, "aid"),
			quotedField(m, "aid_name"),
			quotedField(m, "datetime"),
			plainField(m, "type"),
			messageField(m),
			plainField(m, "tm"),
			plainField(m, "utm"),
			plainField(m, "index"),
			reactionsField(m),
		}
		sb.WriteString(strings.Join(row, ","))
	}

	return []byte(sb.String())
}

// plainField renders a scalar field verbatim. These columns (ids,
// timestamps, type) never contain the delimiter.
func plainField(m domain.Message, key string) string {
	return scalarString(m[key])
}

// quotedField renders a string field wrapped in quotes with internal
// quotes doubled. An absent or empty field stays an empty cell.
func quotedField(m domain.Message, key string) string {
	s := scalarString(m[key])
	if s == "" {
		return ""
	}
	return quote(s)
}

// messageField renders the message body: quoted, with internal newlines
// escaped to the two-character sequence "\n" so a row stays one line.
func messageField(m domain.Message) string {
	s := scalarString(m["msg"])
	if s == "" {
		return ""
	}
	return quote(strings.ReplaceAll(s, "\n", `\n`))
}

// reactionsField renders the opaque reactions value as its compact JSON,
// quoted. Deleted or absent reactions stay an empty cell.
func reactionsField(m domain.Message) string {
	v, ok := m["reactions"]
	if !ok || v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return quote(string(data))
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// scalarString converts a decoded JSON scalar to its cell text. Non-scalar
// values and absent fields become the empty string.
func scalarString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	case bool:
		if s {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}
