package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statement() Dataset {
	return Dataset{
		Title:   "Statement",
		Summary: []Field{{Label: "Student", Value: "Asha"}, {Label: "Pending", Value: "500.00"}},
		Headers: []string{"Date", "Amount"},
		Rows: []map[string]string{
			{"Date": "2024-03-01", "Amount": "300.00"},
			{"Date": "2024-02-01", "Amount": "200.00"},
		},
	}
}

func TestCSVRender(t *testing.T) {
	out, err := NewCSVExporter().Render(statement())
	require.NoError(t, err)

	expected := "Student,Asha\nPending,500.00\n\nDate,Amount\n2024-03-01,300.00\n2024-02-01,200.00\n"
	assert.Equal(t, expected, string(out))
}

func TestCSVRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFRender(t *testing.T) {
	out, err := NewPDFExporter().Render(statement())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFRequiresHeaders(t *testing.T) {
	_, err := NewPDFExporter().Render(Dataset{Title: "x"})
	assert.Error(t, err)
}
