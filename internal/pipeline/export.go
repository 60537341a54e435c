package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"orderscan/internal"
	"orderscan/internal/util"
)

var orderColumns = []string{
	"First Name", "Last Name", "Description", "Quantity Shipped", "Unit Price",
	"Amount", "Order Total", "Order Date", "Card Account", "Order Number",
}

// OrderRows flattens rec into one row per line item. Money is written with
// two decimals, quantities as parsed.
func OrderRows(rec internal.OrderRecord) []internal.OrderRow {
	rows := make([]internal.OrderRow, 0, len(rec.LineItems))
	for _, item := range rec.LineItems {
		rows = append(rows, internal.OrderRow{
			FirstName:       rec.FirstName,
			LastName:        rec.LastName,
			Description:     item.Description,
			QuantityShipped: item.Quantity.String(),
			UnitPrice:       item.UnitPrice.StringFixed(2),
			Amount:          item.LineTotal.StringFixed(2),
			OrderTotal:      rec.OrderTotal.StringFixed(2),
			OrderDate:       rec.OrderDate,
			CardAccount:     rec.CardAccount,
			OrderNumber:     rec.OrderNumber,
		})
	}
	return rows
}

// OrderFileName is the base name shared by every export of rec.
func OrderFileName(rec internal.OrderRecord) string {
	return util.SafeFileName(rec.LastName)
}

// ExportOrderCSV writes rec to <dir>/<last name>.csv, replacing an earlier
// export of the same name, and returns the path written.
func ExportOrderCSV(rec internal.OrderRecord, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	outputPath := filepath.Join(dir, OrderFileName(rec)+".csv")

	f, err := os.Create(outputPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	rows := OrderRows(rec)
	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return "", fmt.Errorf("write %s: %w", outputPath, err)
	}
	return outputPath, f.Close()
}

func ExportOrderXLSX(rec internal.OrderRecord, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	header := make([]any, len(orderColumns))
	for i, h := range orderColumns {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, item := range rec.LineItems {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{
			rec.FirstName,
			rec.LastName,
			item.Description,
			item.Quantity.InexactFloat64(),
			item.UnitPrice.InexactFloat64(),
			item.LineTotal.InexactFloat64(),
			rec.OrderTotal.InexactFloat64(),
			rec.OrderDate,
			rec.CardAccount,
			rec.OrderNumber,
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}
