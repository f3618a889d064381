package report_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"

	"github.com/noah-isme/backend-mithai/internal/report"
)

func TestWriteProducesReadableWorkbook(t *testing.T) {
	var buf bytes.Buffer
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	err := report.Write(&buf, report.Sheet{
		Name:    "Orders",
		Headers: []string{"Number", "Total", "Placed"},
		Rows: [][]any{
			{"ORD-2026-0001", "1238.00", at},
			{"ORD-2026-0002", "59.00", nil},
		},
	})
	require.NoError(t, err)

	file, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, file.Sheets, 1)
	sheet := file.Sheets[0]
	require.Equal(t, "Orders", sheet.Name)
	require.Len(t, sheet.Rows, 3)
	require.Equal(t, "Number", sheet.Rows[0].Cells[0].Value)
	require.Equal(t, "ORD-2026-0001", sheet.Rows[1].Cells[0].Value)
	require.Equal(t, "2026-03-14 09:30:00", sheet.Rows[1].Cells[2].Value)
}

func TestServeSetsDownloadHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	report.Serve(rec, "catalog.xlsx", report.Sheet{Name: "Catalog", Headers: []string{"Name"}})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, report.ContentType, rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), `filename="catalog.xlsx"`)
	require.NotZero(t, rec.Body.Len())
}
