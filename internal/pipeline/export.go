package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"stockimport/internal"
)

const (
	inventorySheet  = "Inventory"
	validationSheet = "Validation"
)

// ExportXLSX writes items to an Inventory sheet and, when report is given,
// the validation checks to a Validation sheet.
func ExportXLSX(items []internal.VariantItem, report *internal.ValidationReport, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), inventorySheet); err != nil {
		return err
	}
	headers := []string{
		"sku", "style", "color", "size", "stock", "price", "ship_date",
		"discontinued", "special_order", "expanded", "expanded_from", "brand",
	}
	writeHeader(f, inventorySheet, headers)

	for i, it := range items {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(inventorySheet, cell, value)
		}

		set(1, it.SKU)
		set(2, it.Style)
		set(3, it.Color)
		set(4, it.Size)
		set(5, it.Stock)
		if it.Price != nil {
			set(6, it.Price.InexactFloat64())
		}
		if it.ShipDate != nil {
			set(7, it.ShipDate.Format("2006-01-02"))
		}
		set(8, it.Discontinued)
		set(9, it.SpecialOrder)
		set(10, it.IsExpandedSize)
		set(11, it.ExpandedFromSize)
		set(12, it.Brand)
	}

	if report != nil {
		if _, err := f.NewSheet(validationSheet); err != nil {
			return err
		}
		writeHeader(f, validationSheet, []string{"check", "category", "status", "message"})
		for i, c := range report.Checks {
			r := i + 2
			for col, value := range []string{c.Name, c.Category, string(c.Status), c.Message} {
				cell, _ := excelize.CoordinatesToCellName(col+1, r)
				_ = f.SetCellValue(validationSheet, cell, value)
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func writeHeader(f *excelize.File, sheet string, headers []string) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}
