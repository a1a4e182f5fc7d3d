package ingest

import (
	"encoding/csv"
	"errors"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// Helper: get file extension
func getFileExt(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// Helper: parse uploaded file into [][]string
func parseUploadFile(file multipart.File, ext string) ([][]string, error) {
	switch ext {
	case ".csv":
		r := csv.NewReader(file)
		r.FieldsPerRecord = -1
		return r.ReadAll()
	case ".xlsx":
		f, err := excelize.OpenReader(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		sheet := f.GetSheetName(0)
		return f.GetRows(sheet)
	case ".xls":
		wb, err := xls.OpenReader(file, "utf-8")
		if err != nil {
			return nil, err
		}
		rows := wb.ReadAllCells(1 << 16)
		if len(rows) == 0 {
			return nil, errors.New("empty .xls workbook")
		}
		return rows, nil
	}
	return nil, errors.New("unsupported file type")
}

var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"2 Jan 2006",
	"2006/01/02",
	"2006-01-02 15:04:05",
}

// Helper: normalize date string to YYYY-MM-DD; empty stays empty so the
// canonical insert writes NULL instead of a bogus current date.
func normalizeDate(dateStr string) string {
	s := strings.TrimSpace(dateStr)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s // fallback, let DB error if invalid
}

// headerIndex matches spreadsheet headers against known aliases: exact
// first, then case-insensitive, then with spaces/underscores stripped.
func headerIndex(header []string, aliases []string) int {
	for _, alias := range aliases {
		for i, h := range header {
			if h == alias {
				return i
			}
		}
	}
	canon := func(s string) string {
		s = strings.ToLower(strings.TrimSpace(s))
		s = strings.ReplaceAll(s, " ", "")
		return strings.ReplaceAll(s, "_", "")
	}
	for _, alias := range aliases {
		want := canon(alias)
		for i, h := range header {
			if canon(h) == want {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// nullable returns nil for empty strings so CopyFrom writes NULL.
func nullable(s string) interface{} {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
