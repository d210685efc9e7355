package structured

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Items []struct {
		Title string `json:"title"`
	} `json:"items"`
}

func TestExtractJSON_CleanObject(t *testing.T) {
	out, err := ExtractJSON[payload](`{"items":[{"title":"a"},{"title":"b"}]}`, nil)
	require.NoError(t, err)
	require.Len(t, out.Items, 2)
	assert.Equal(t, "b", out.Items[1].Title)
}

func TestExtractJSON_FencedWithProse(t *testing.T) {
	raw := "Claro! Segue o plano:\n```json\n{\"items\":[{\"title\":\"Reunir laudos\"}]}\n```\nBoa sorte."
	out, err := ExtractJSON[payload](raw, nil)
	require.NoError(t, err)
	assert.Equal(t, "Reunir laudos", out.Items[0].Title)
}

func TestExtractJSON_SkipsBrokenLeadingBlock(t *testing.T) {
	raw := `draft {not json} final {"items":[{"title":"ok"}]}`
	out, err := ExtractJSON[payload](raw, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Items[0].Title)
}

func TestExtractJSON_BracesInsideStrings(t *testing.T) {
	raw := `{"items":[{"title":"use {chaves} e \"aspas\""}]}`
	out, err := ExtractJSON[payload](raw, nil)
	require.NoError(t, err)
	assert.Equal(t, `use {chaves} e "aspas"`, out.Items[0].Title)
}

func TestExtractJSON_StripsComments(t *testing.T) {
	raw := "{\n  // passos\n  \"items\": [{\"title\": \"a\"}] /* fim */\n}"
	out, err := ExtractJSON[payload](raw, nil)
	require.NoError(t, err)
	assert.Len(t, out.Items, 1)
}

func TestExtractJSON_NoObject(t *testing.T) {
	_, err := ExtractJSON[payload]("desculpe, não consegui", nil)
	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestExtractJSON_ValidatorFailure(t *testing.T) {
	_, err := ExtractJSON[payload](`{"items":[]}`, func(p payload) error {
		if len(p.Items) == 0 {
			return errors.New("no items")
		}
		return nil
	})
	assert.ErrorIs(t, err, ErrInvalidOutput)
}
