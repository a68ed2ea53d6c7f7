// Package report renders optimizer output as XLSX workbooks for sharing with
// public-works staff.
package report

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/pavemetrics/asset-cli/internal/model"
	"github.com/pavemetrics/asset-cli/internal/optimizer"
)

var scenarioHeader = []string{
	"Scenario", "Method", "Preventive", "Minor Rehab", "Major Rehab", "Reconstruction",
	"Projected PCI", "Improved", "Unaddressed",
}

var assetHeader = []string{
	"ID", "Name", "Location", "Surface", "Condition", "Length (mi)", "Last Inspected",
}

// WriteScenarioWorkbook writes a workbook with one sheet comparing the
// generated scenarios and one sheet listing the fleet they were run against.
func WriteScenarioWorkbook(path string, totalBudget float64, scenarios []optimizer.Scenario, assets []model.RoadAsset) error {
	f := xlsx.NewFile()

	if err := addScenarioSheet(f, totalBudget, scenarios); err != nil {
		return err
	}
	if err := addAssetSheet(f, assets); err != nil {
		return err
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save workbook %s", path)
	}
	return nil
}

func addScenarioSheet(f *xlsx.File, totalBudget float64, scenarios []optimizer.Scenario) error {
	sheet, err := f.AddSheet("Scenarios")
	if err != nil {
		return eris.Wrap(err, "report: add scenario sheet")
	}

	writeHeader(sheet, scenarioHeader)

	for _, sc := range scenarios {
		row := sheet.AddRow()
		row.AddCell().SetString(sc.Name)
		row.AddCell().SetString(string(sc.Method))
		for _, cat := range model.Categories() {
			row.AddCell().SetFloatWithFormat(sc.Split.ForCategory(cat), "#,##0.00")
		}
		row.AddCell().SetFloat(sc.Result.ProjectedPCI)
		row.AddCell().SetInt(sc.Result.ImprovedAssets)
		row.AddCell().SetInt(sc.Result.UnaddressedAssets)
	}

	// Total row for quick reconciliation against the adopted budget.
	total := sheet.AddRow()
	total.AddCell().SetString("Total Budget")
	total.AddCell()
	total.AddCell().SetFloatWithFormat(totalBudget, "#,##0.00")

	return nil
}

func addAssetSheet(f *xlsx.File, assets []model.RoadAsset) error {
	sheet, err := f.AddSheet("Assets")
	if err != nil {
		return eris.Wrap(err, "report: add asset sheet")
	}

	writeHeader(sheet, assetHeader)

	for _, a := range assets {
		row := sheet.AddRow()
		row.AddCell().SetInt64(a.ID)
		row.AddCell().SetString(a.Name)
		row.AddCell().SetString(a.Location)
		row.AddCell().SetString(string(a.SurfaceType))
		row.AddCell().SetInt(a.Condition)
		row.AddCell().SetFloat(a.LengthMiles)
		if a.LastInspected != nil {
			row.AddCell().SetString(a.LastInspected.Format("2006-01-02"))
		} else {
			row.AddCell()
		}
	}

	return nil
}

func writeHeader(sheet *xlsx.Sheet, columns []string) {
	style := xlsx.NewStyle()
	style.Font.Bold = true
	style.ApplyFont = true

	row := sheet.AddRow()
	for _, col := range columns {
		cell := row.AddCell()
		cell.SetString(col)
		cell.SetStyle(style)
	}
}
