package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserFromClaims(t *testing.T) {
	u := UserFromClaims(map[string]interface{}{
		"sub":           "user-1",
		"email":         "ana@example.com",
		"role":          "authenticated",
		"user_metadata": map[string]interface{}{"full_name": "Ana Souza"},
	})
	require.NotNil(t, u)
	require.Equal(t, "user-1", u.Sub)
	require.Equal(t, "Ana Souza", u.Name)
	require.Equal(t, "authenticated", u.Role)

	require.Nil(t, UserFromClaims(map[string]interface{}{"email": "x@example.com"}))
}

func TestKnownDocumentTypeAndStatus(t *testing.T) {
	require.True(t, KnownDocumentType(DocBillOfLading))
	require.False(t, KnownDocumentType("selfie"))
	require.True(t, ValidProcessingStatus(StatusCompleted))
	require.False(t, ValidProcessingStatus("done"))
}
