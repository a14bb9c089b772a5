package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/FranksOps/leadscout/internal/lead"
)

var csvHeaders = []string{
	"Title",
	"Link/Website",
	"Address",
	"Phone",
	"Email",
	"Rating",
	"Type",
	"Price",
	"Hours",
	"Source",
}

// WriteCSV writes one row per lead after a UTF-8 BOM and a header row.
// Multiple phones or emails share a cell, comma separated.
func WriteCSV(w io.Writer, leads []lead.Lead) error {
	if _, err := io.WriteString(w, bom); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeaders); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, l := range leads {
		rating, _, kind, price, hours := placeFields(l)
		record := []string{
			l.Title,
			websiteOf(l),
			l.Address,
			strings.Join(LeadPhones(l), ", "),
			strings.Join(LeadEmails(l), ", "),
			rating,
			kind,
			price,
			hours,
			string(l.Source),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
