// Package report renders admin exports as XLSX workbooks.
package report

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/tealeg/xlsx"

	"github.com/noah-isme/backend-mithai/internal/common"
)

// ContentType is the media type of an XLSX workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Sheet is one worksheet: a header row followed by data rows.
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]any
}

// Write renders sheets into a workbook and writes it to w.
func Write(w io.Writer, sheets ...Sheet) error {
	file := xlsx.NewFile()
	for _, s := range sheets {
		sheet, err := file.AddSheet(s.Name)
		if err != nil {
			return fmt.Errorf("add sheet %q: %w", s.Name, err)
		}
		header := sheet.AddRow()
		for _, h := range s.Headers {
			header.AddCell().SetValue(h)
		}
		for _, values := range s.Rows {
			row := sheet.AddRow()
			for _, v := range values {
				row.AddCell().SetValue(cellValue(v))
			}
		}
	}
	return file.Write(w)
}

// Serve writes sheets as a download named filename. The workbook is rendered
// before any header is sent so failures still produce a JSON error.
func Serve(w http.ResponseWriter, filename string, sheets ...Sheet) {
	var buf bytes.Buffer
	if err := Write(&buf, sheets...); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to render export", nil)
		return
	}
	w.Header().Set("Content-Type", ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func cellValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02 15:04:05")
	case *string:
		if t == nil {
			return ""
		}
		return *t
	case nil:
		return ""
	default:
		return v
	}
}
