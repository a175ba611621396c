package table

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	out := Render(
		[]string{"ROOM", "NAME", "STATUS"},
		[]Row{
			{Cells: []string{"3", "Alpha", "ok"}},
			{Cells: []string{"12345", "B", "failed"}},
		},
	)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, "ROOM   NAME   STATUS", lines[0])
	assert.Equal(t, "-----  -----  ------", lines[1])
	assert.Equal(t, "3      Alpha  ok", strings.TrimRight(lines[2], " "))
	assert.Equal(t, "12345  B      failed", lines[3])
}

func TestRenderWideRunes(t *testing.T) {
	out := Render(
		[]string{"NAME", "STATUS"},
		[]Row{
			{Cells: []string{"開発チーム", "ok"}},
			{Cells: []string{"ops", "ok"}},
		},
	)

	lines := strings.Split(out, "\n")
	// The CJK name is 10 display columns wide, so every STATUS cell
	// starts at terminal column 12.
	assert.Equal(t, "NAME        STATUS", lines[0])
	assert.Equal(t, "----------  ------", lines[1])
	assert.Equal(t, "開発チーム  ok", strings.TrimRight(lines[2], " "))
	assert.Equal(t, "ops         ok", strings.TrimRight(lines[3], " "))
}

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "12 msgs", FormatCount(12, "msgs"))
	assert.Equal(t, "0 files", FormatCount(0, "files"))
}
