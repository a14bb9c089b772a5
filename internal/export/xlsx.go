package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/phone"
)

const sheetName = "Leads"

// xlsxColumns are the Thai headers of the Excel export and their widths.
var xlsxColumns = []struct {
	header string
	width  float64
}{
	{"ลำดับ", 8},
	{"ชื่อธุรกิจ", 30},
	{"ที่อยู่", 40},
	{"เบอร์โทร", 25},
	{"เบอร์โทร (E.164)", 25},
	{"อีเมล", 30},
	{"เว็บไซต์", 40},
	{"คะแนน", 8},
	{"รีวิว", 8},
	{"ประเภท", 20},
	{"ราคา", 10},
	{"เวลาทำการ", 25},
	{"แหล่งที่มา", 15},
}

// WriteXLSX writes leads as a single-sheet workbook.
func WriteXLSX(w io.Writer, leads []lead.Lead) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}

	header := make([]any, len(xlsxColumns))
	for i, c := range xlsxColumns {
		header[i] = c.header
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("xlsx column: %w", err)
		}
		if err := f.SetColWidth(sheetName, col, col, c.width); err != nil {
			return fmt.Errorf("xlsx width: %w", err)
		}
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("xlsx header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("xlsx style: %w", err)
	}
	last, _ := excelize.ColumnNumberToName(len(xlsxColumns))
	if err := f.SetCellStyle(sheetName, "A1", last+"1", bold); err != nil {
		return fmt.Errorf("xlsx style: %w", err)
	}

	for i, l := range leads {
		phones := LeadPhones(l)
		intl := make([]string, 0, len(phones))
		for _, p := range phones {
			if e := phone.E164(p); e != "" {
				intl = append(intl, e)
			}
		}
		rating, reviews, kind, price, hours := placeFields(l)

		row := []any{
			i + 1,
			l.Title,
			l.Address,
			strings.Join(phones, ", "),
			strings.Join(intl, ", "),
			strings.Join(LeadEmails(l), ", "),
			websiteOf(l),
			rating,
			reviews,
			kind,
			price,
			hours,
			string(l.Source),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("xlsx cell: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("xlsx row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
