package render

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/HMasataka/chatwork-log-exporter/internal/domain"
)

func TestJSONPreservesLargeNumbers(t *testing.T) {
	dec := json.NewDecoder(bytes.NewReader([]byte(`{"id":1021484714360999936,"msg":"hi"}`)))
	dec.UseNumber()
	var m domain.Message
	assert.NoError(t, dec.Decode(&m))

	out, err := JSON([]domain.Message{m})
	assert.NoError(t, err)
	assert.Contains(t, string(out), "1021484714360999936")
}

func TestRawJSONIndents(t *testing.T) {
	out, err := RawJSON(json.RawMessage(`{"a":1,"b":[2,3]}`))

	assert.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1,\n  \"b\": [\n    2,\n    3\n  ]\n}", string(out))
}

func TestRawJSONEmpty(t *testing.T) {
	out, err := RawJSON(nil)

	assert.NoError(t, err)
	assert.Equal(t, "{}", string(out))
}

func TestRawJSONMalformed(t *testing.T) {
	_, err := RawJSON(json.RawMessage(`{"a":`))
	assert.Error(t, err)
}
