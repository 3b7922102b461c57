package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Timetable",
		Headers: []string{"day", "slot", "course"},
		Rows: []map[string]string{
			{"day": "Sunday", "slot": "1", "course": "CS101"},
			{"day": "Monday", "course": "CS101L"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "day,slot,course\nSunday,1,CS101\nMonday,,CS101L\n", string(out))

	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXExporterRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	rows, err := f.GetRows(defaultSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"day", "slot", "course"}, rows[1])
	assert.Equal(t, []string{"Sunday", "1", "CS101"}, rows[2])
}

func TestCalendarExporterRender(t *testing.T) {
	start := time.Date(2024, 9, 1, 9, 0, 0, 0, time.UTC)
	out, err := NewCalendarExporter("").Render("G1-S1", []Event{{
		UID:      "A0001@timetable",
		Summary:  "CS101 Intro to Computing",
		Location: "R1",
		Start:    start,
		End:      start.Add(90 * time.Minute),
		Weekly:   true,
	}})
	require.NoError(t, err)

	body := string(out)
	assert.True(t, strings.HasPrefix(body, "BEGIN:VCALENDAR"))
	assert.Contains(t, body, "SUMMARY:CS101 Intro to Computing")
	assert.Contains(t, body, "RRULE:FREQ=WEEKLY")

	_, err = NewCalendarExporter("").Render("bad", []Event{{UID: "x", Start: start, End: start}})
	assert.Error(t, err)
}
