package shop

import (
	"context"
	"fmt"
	"io"

	"github.com/tealeg/xlsx"
)

var exportHeaders = []string{"ID", "Name", "Description", "Price", "Category", "Image", "CreatedAt", "UpdatedAt"}

// ExportProducts writes every product as an xlsx workbook with a single "Products" sheet.
func (c *Catalog) ExportProducts(ctx context.Context, w io.Writer) error {
	products, err := c.store.AllProducts(ctx)
	if err != nil {
		return fail("export products", err)
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range exportHeaders {
		header.AddCell().SetValue(h)
	}

	for _, p := range products {
		category := ""
		if p.Category != nil {
			category = p.Category.Name
		}
		price, _ := p.Price.Float64()

		row := sheet.AddRow()
		row.AddCell().SetValue(p.ID)
		row.AddCell().SetValue(p.Name)
		row.AddCell().SetValue(p.Description)
		row.AddCell().SetFloat(price)
		row.AddCell().SetValue(category)
		row.AddCell().SetValue(p.Image)
		row.AddCell().SetValue(p.CreatedAt.Format("2006-01-02 15:04:05"))
		row.AddCell().SetValue(p.UpdatedAt.Format("2006-01-02 15:04:05"))
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
