package extraction

import (
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/require"
)

func TestPrompt(t *testing.T) {
	require.Contains(t, Prompt("commercial_invoice"), "invoiceNumber")
	require.Contains(t, Prompt("certificate_of_origin"), "certificateNumber")
	require.Equal(t, genericPrompt, Prompt("other"))
	require.Equal(t, genericPrompt, Prompt("visa"))
}

func TestNormalizeType(t *testing.T) {
	require.Equal(t, "bill_of_lading", normalizeType(" Bill-of Lading "))
	require.Equal(t, "import_declaration", normalizeType("IMPORT_DECLARATION"))
	require.Equal(t, "other", normalizeType("passport"))
	require.Equal(t, "other", normalizeType(""))
}

func TestDecodeObject(t *testing.T) {
	raw, err := decodeObject([]byte("```json\n{\"a\":1}\n```"))
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, string(raw))

	_, err = decodeObject([]byte(`"just text"`))
	require.ErrorIs(t, err, ErrBackend)
	_, err = decodeObject([]byte(`{"a":`))
	require.ErrorIs(t, err, ErrBackend)
}

func TestResponseText(t *testing.T) {
	require.Empty(t, responseText(nil))
	require.Empty(t, responseText(&genai.GenerateContentResponse{}))
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"documentType":"packing_list"}`)}},
	}}}
	require.Equal(t, `{"documentType":"packing_list"}`, responseText(resp))
}
