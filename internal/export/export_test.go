package export

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/FranksOps/leadscout/internal/apperr"
	"github.com/FranksOps/leadscout/internal/lead"
)

func sampleLeads() []lead.Lead {
	return []lead.Lead{
		{
			Title:   "ร้านกาแฟ บ้านสวน",
			Website: "https://baansuan.co.th/",
			Address: "ถนนสุขุมวิท กรุงเทพฯ",
			Phone:   "+66 2 123 4567",
			Source:  lead.SourceMaps,
			Place:   &lead.Place{Rating: 4.6, Reviews: 88, Type: "Cafe", Price: "฿฿", Hours: "Open 8AM"},
			Contacts: &lead.Contacts{
				Emails: []string{"hello@baansuan.co.th", "Sales@Baansuan.co.th"},
				Phones: []string{"02-123-4567", "081-234-5678"},
			},
		},
		{
			Title:  "Spa Page",
			Link:   "https://www.facebook.com/spapage",
			Source: lead.SourceFacebook,
		},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatJSON, "CSV": FormatCSV, " xlsx ": FormatXLSX, "phones": FormatPhones} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("pdf"); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestLeadPhones(t *testing.T) {
	got := LeadPhones(sampleLeads()[0])
	want := []string{"021234567", "0812345678"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleLeads()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "\uFEFF") {
		t.Fatalf("expected UTF-8 BOM")
	}

	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, "\uFEFF"))).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(records))
	}
	if strings.Join(records[0], "|") != strings.Join(csvHeaders, "|") {
		t.Errorf("unexpected header %v", records[0])
	}
	row := records[1]
	if row[0] != "ร้านกาแฟ บ้านสวน" || row[1] != "https://baansuan.co.th/" || row[3] != "021234567, 0812345678" {
		t.Errorf("unexpected row %v", row)
	}
	if row[5] != "4.6" || row[6] != "Cafe" || row[9] != "google_maps" {
		t.Errorf("unexpected place columns %v", row)
	}
	if records[2][1] != "https://www.facebook.com/spapage" || records[2][3] != "" {
		t.Errorf("unexpected second row %v", records[2])
	}
}

func TestPhonesAndEmails(t *testing.T) {
	leads := append(sampleLeads(), lead.Lead{Phone: "0812345678", Contacts: &lead.Contacts{Emails: []string{"hello@baansuan.co.th"}}})

	var buf bytes.Buffer
	if err := Write(&buf, FormatPhones, lead.NewResult("q", leads, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := buf.String(); got != "\uFEFF021234567\n0812345678" {
		t.Errorf("unexpected phones list %q", got)
	}

	buf.Reset()
	if err := Write(&buf, FormatEmails, lead.NewResult("q", leads, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := buf.String(); got != "\uFEFFhello@baansuan.co.th\nsales@baansuan.co.th" {
		t.Errorf("unexpected emails list %q", got)
	}
}

func TestWriteNDJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteNDJSON(&buf, sampleLeads()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	scanner := bufio.NewScanner(&buf)
	var n int
	for scanner.Scan() {
		var l lead.Lead
		if err := json.Unmarshal(scanner.Bytes(), &l); err != nil {
			t.Fatalf("line %d: %v", n, err)
		}
		n++
	}
	if n != 2 {
		t.Errorf("expected 2 lines, got %d", n)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	res := lead.NewResult("cafe", sampleLeads(), 99)
	if err := Write(&buf, FormatJSON, res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded struct {
		Total      int `json:"total"`
		SearchInfo struct {
			TotalResults int64 `json:"totalResults"`
		} `json:"searchInfo"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded.Total != 2 || decoded.SearchInfo.TotalResults != 99 {
		t.Errorf("unexpected decoded result %+v", decoded)
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatXLSX, lead.NewResult("cafe", sampleLeads(), 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("unreadable workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("missing sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "ลำดับ" || rows[0][1] != "ชื่อธุรกิจ" || rows[0][3] != "เบอร์โทร" {
		t.Errorf("unexpected header %v", rows[0])
	}
	first := rows[1]
	if first[0] != "1" || first[1] != "ร้านกาแฟ บ้านสวน" || first[3] != "021234567, 0812345678" {
		t.Errorf("unexpected row %v", first)
	}
	if first[4] != "+6621234567, +66812345678" {
		t.Errorf("expected E.164 column, got %q", first[4])
	}
	if first[5] != "hello@baansuan.co.th, Sales@Baansuan.co.th" || first[7] != "4.6" || first[8] != "88" {
		t.Errorf("unexpected contact columns %v", first)
	}
}

func TestWriteReportFormats(t *testing.T) {
	res := lead.NewResult("cafe", sampleLeads(), 0)
	for _, f := range []Format{FormatText, FormatHTML} {
		var buf bytes.Buffer
		if err := Write(&buf, f, res); err != nil {
			t.Fatalf("%s: unexpected error: %v", f, err)
		}
		if !strings.Contains(buf.String(), "cafe") {
			t.Errorf("%s: expected query in report", f)
		}
	}
}
