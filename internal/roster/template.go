package roster

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// WriteTemplate writes a workbook with the Vehicles sheet headers, a
// description row, one example row and a Status dropdown.
func WriteTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}

	required, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"012638"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return err
	}
	optional, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4A6B7C"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return err
	}
	note, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Italic: true, Size: 9, Color: "666666"},
		Alignment: &excelize.Alignment{WrapText: true},
	})
	if err != nil {
		return err
	}

	for i, c := range columns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		head := fmt.Sprintf("%s1", col)
		_ = f.SetCellValue(SheetName, head, c.header)
		style := optional
		if c.header[len(c.header)-1] == '*' {
			style = required
		}
		_ = f.SetCellStyle(SheetName, head, head, style)
		desc := fmt.Sprintf("%s2", col)
		_ = f.SetCellValue(SheetName, desc, c.description)
		_ = f.SetCellStyle(SheetName, desc, desc, note)
		_ = f.SetColWidth(SheetName, col, col, c.width)
	}

	example := []any{exampleVIN, "Ford", "Transit 250", 2024, "ABC1234", 15000, "Active", "John Smith"}
	if err := f.SetSheetRow(SheetName, "A3", &example); err != nil {
		return err
	}

	dv := excelize.NewDataValidation(true)
	dv.Sqref = "G3:G1000"
	if err := dv.SetDropList(statuses); err != nil {
		return err
	}
	dv.SetError(excelize.DataValidationErrorStyleStop, "Invalid Status", "Please select a valid status")
	if err := f.AddDataValidation(SheetName, dv); err != nil {
		return err
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze: true, YSplit: 2, TopLeftCell: "A3", ActivePane: "bottomLeft",
	}); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}
