package util

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var uuidPrefix = `^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}_`

func TestOutputName(t *testing.T) {
	assert.Regexp(t, regexp.MustCompile(uuidPrefix+`midterm_answer_output\.txt$`), OutputName("uploads/midterm.pdf", "answer_output.txt"))
	assert.Regexp(t, regexp.MustCompile(uuidPrefix+`score_output\.txt$`), OutputName("", "score_output.txt"))
}

func TestSaveOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	name, err := SaveOutput(dir, "rubric.pdf", "rubric_output.txt", "1.a) 0-5")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, "1.a) 0-5", string(data))
}
