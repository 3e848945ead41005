package inventory

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

// BOM is the UTF-8 byte-order mark written before the header so spreadsheet
// applications detect the encoding.
var BOM = []byte{0xEF, 0xBB, 0xBF}

var csvColumns = []string{"barcode", "received_at", "disposed_at", "days_in_stock", "status"}

// WriteCSV exports report rows as CSV: BOM, header, then one row per record.
func WriteCSV(w io.Writer, rows []ReportRow) error {
	if _, err := w.Write(BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return err
	}
	for _, r := range rows {
		disposed := ""
		if r.DisposedAt != nil {
			disposed = r.DisposedAt.Format(time.RFC3339)
		}
		record := []string{
			r.Barcode,
			r.ReceivedAt.Format(time.RFC3339),
			disposed,
			strconv.Itoa(r.DaysInStock),
			r.Status,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
