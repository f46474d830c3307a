package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Name", "Course", "Score"},
		Rows: []map[string]string{
			{"Name": "Essay", "Course": "Hist101", "Score": "95/100"},
			{"Name": "Lab, part 2", "Course": "Chem"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "Name,Course,Score\nEssay,Hist101,95/100\n\"Lab, part 2\",Chem,\n", string(out))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	exporter := NewPDFExporter(map[string]float64{"Name": 3})
	out, err := exporter.Render(sampleDataset(), "All Assignments", "generated for tests")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestPDFExporterRendersEmptyDataset(t *testing.T) {
	data := sampleDataset()
	data.Rows = nil
	out, err := NewPDFExporter(nil).Render(data, "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	_, err = NewPDFExporter(nil).Render(Dataset{}, "x", "")
	assert.Error(t, err)
}

func TestPDFExporterHandlesLongValues(t *testing.T) {
	data := sampleDataset()
	data.Rows = append(data.Rows, map[string]string{"Name": strings.Repeat("very long name ", 40)})
	_, err := NewPDFExporter(nil).Render(data, "Overflow", "")
	require.NoError(t, err)
}

func TestColumnWidthsFillPage(t *testing.T) {
	widths := NewPDFExporter(map[string]float64{"Name": 2}).columnWidths([]string{"Name", "Course"})
	require.Len(t, widths, 2)
	assert.InDelta(t, pageWidth, widths[0]+widths[1], 0.0001)
	assert.InDelta(t, widths[0], 2*widths[1], 0.0001)
}
