package render

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xuri/excelize/v2"

	"github.com/HMasataka/chatwork-log-exporter/internal/domain"
)

func TestMessagesXLSX(t *testing.T) {
	messages := []domain.Message{{
		"id":       json.Number("1"),
		"aid":      json.Number("11"),
		"aid_name": "Alice",
		"msg":      "hello \"world\"\nsecond line",
	}}

	data, err := MessagesXLSX(messages)
	assert.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	assert.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Messages"}, f.GetSheetList())

	rows, err := f.GetRows("Messages")
	assert.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, CSVColumns, rows[0])

	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "Alice", rows[1][2])
	// Spreadsheet cells keep quotes and newlines verbatim.
	assert.Equal(t, "hello \"world\"\nsecond line", rows[1][5])
}

func TestMessagesXLSXEmpty(t *testing.T) {
	data, err := MessagesXLSX(nil)
	assert.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	assert.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Messages")
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
}
