package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"storevision-service/internal/middleware"
	"storevision-service/internal/models"
	"storevision-service/internal/services"
)

// ImportTemplateColumn defines a column in the import template
type ImportTemplateColumn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Type        string `json:"type"`
	Example     string `json:"example"`
}

// ImportTemplate defines the structure of an import template
type ImportTemplate struct {
	Entity     string                 `json:"entity"`
	Version    string                 `json:"version"`
	Columns    []ImportTemplateColumn `json:"columns"`
	SampleData []map[string]string    `json:"sampleData,omitempty"`
}

// ImportRowError represents an error for a specific row
type ImportRowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ImportResult represents the result of an import operation
type ImportResult struct {
	Success      bool             `json:"success"`
	TotalRows    int              `json:"totalRows"`
	SuccessCount int              `json:"successCount"`
	FailedCount  int              `json:"failedCount"`
	SkippedCount int              `json:"skippedCount"`
	Errors       []ImportRowError `json:"errors,omitempty"`
	CreatedIDs   []string         `json:"createdIds,omitempty"`
}

type ImportHandler struct {
	service *services.InventoryService
}

func NewImportHandler(service *services.InventoryService) *ImportHandler {
	return &ImportHandler{service: service}
}

// ProductImportTemplate returns the template for products
func ProductImportTemplate() ImportTemplate {
	return ImportTemplate{
		Entity:  "products",
		Version: "1.0",
		Columns: []ImportTemplateColumn{
			{Name: "sku", Description: "Unique product SKU", Required: true, Type: "string", Example: "SKU-001"},
			{Name: "name", Description: "Product name", Required: true, Type: "string", Example: "Mineral Water 600ml"},
			{Name: "description", Description: "Product description", Required: false, Type: "string", Example: "600ml bottle, single unit"},
			{Name: "price", Description: "Unit price", Required: true, Type: "number", Example: "1.50"},
			{Name: "stock", Description: "Initial stock level", Required: false, Type: "number", Example: "24"},
			{Name: "imageUrl", Description: "Product image URL", Required: false, Type: "string", Example: "https://images.example.com/water.jpg"},
		},
		SampleData: []map[string]string{
			{
				"sku":         "SKU-WTR-600",
				"name":        "Mineral Water 600ml",
				"description": "600ml bottle, single unit",
				"price":       "1.50",
				"stock":       "24",
				"imageUrl":    "",
			},
			{
				"sku":         "SKU-NDL-85",
				"name":        "Instant Noodles 85g",
				"description": "",
				"price":       "0.80",
				"stock":       "60",
				"imageUrl":    "",
			},
		},
	}
}

// GetProductImportTemplate returns the product import template
// GET /api/v1/products/import/template
func (h *ImportHandler) GetProductImportTemplate(c *gin.Context) {
	format := c.DefaultQuery("format", "json")
	template := ProductImportTemplate()

	switch format {
	case "csv":
		h.generateCSVTemplate(c, template, "products")
	case "xlsx":
		h.generateXLSXTemplate(c, template, "Products")
	default:
		c.JSON(http.StatusOK, gin.H{"success": true, "template": template})
	}
}

func (h *ImportHandler) generateCSVTemplate(c *gin.Context, template ImportTemplate, entity string) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s_import_template.csv", entity))

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	headers := make([]string, len(template.Columns))
	for i, col := range template.Columns {
		headers[i] = col.Name
	}
	writer.Write(headers)

	for _, sample := range template.SampleData {
		row := make([]string, len(template.Columns))
		for i, col := range template.Columns {
			row[i] = sample[col.Name]
		}
		writer.Write(row)
	}
}

func (h *ImportHandler) generateXLSXTemplate(c *gin.Context, template ImportTemplate, sheetName string) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetName)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})

	requiredStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
	})

	for i, col := range template.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		headerText := col.Name
		if col.Required {
			headerText = col.Name + " *"
		}
		f.SetCellValue(sheetName, cell, headerText)

		if col.Required {
			f.SetCellStyle(sheetName, cell, cell, requiredStyle)
		} else {
			f.SetCellStyle(sheetName, cell, cell, headerStyle)
		}

		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, 18)
	}

	for rowIdx, sample := range template.SampleData {
		for colIdx, col := range template.Columns {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, sample[col.Name])
		}
	}

	sheetIdx, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(sheetIdx)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s_import_template.xlsx", strings.ToLower(sheetName)))

	f.Write(c.Writer)
}

// ImportProducts imports products from CSV or Excel file
// POST /api/v1/products/import
func (h *ImportHandler) ImportProducts(c *gin.Context) {
	storeID := middleware.GetStoreID(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "FILE_REQUIRED", Message: "Please upload a CSV or Excel file"},
		})
		return
	}
	defer file.Close()

	skipDuplicates := c.DefaultPostForm("skipDuplicates", "false") == "true"
	validateOnly := c.DefaultPostForm("validateOnly", "false") == "true"

	rows, parseErr := h.parseFile(file, header.Filename)
	if parseErr != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "PARSE_ERROR", Message: parseErr.Error()},
		})
		return
	}

	if len(rows) == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "EMPTY_FILE", Message: "The file contains no data rows"},
		})
		return
	}

	result := h.processProductRows(c, storeID, rows, skipDuplicates, validateOnly)
	c.JSON(http.StatusOK, result)
}

func (h *ImportHandler) parseFile(file io.Reader, filename string) ([]map[string]string, error) {
	if strings.HasSuffix(strings.ToLower(filename), ".csv") {
		return h.parseCSV(file)
	} else if strings.HasSuffix(strings.ToLower(filename), ".xlsx") {
		return h.parseXLSX(file)
	}
	return nil, fmt.Errorf("only CSV and XLSX files are supported")
}

func (h *ImportHandler) parseCSV(file io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(file)

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	for i := range headers {
		headers[i] = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(headers[i]), "*"))
	}

	var rows []map[string]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}

		row := make(map[string]string)
		for i, value := range record {
			if i < len(headers) {
				row[headers[i]] = strings.TrimSpace(value)
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func (h *ImportHandler) parseXLSX(file io.Reader) ([]map[string]string, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("Excel file has no sheets")
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	headers := records[0]
	for i := range headers {
		headers[i] = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(headers[i]), "*"))
	}

	var rows []map[string]string
	for _, record := range records[1:] {
		row := make(map[string]string)
		empty := true
		for i, value := range record {
			if i < len(headers) {
				trimmed := strings.TrimSpace(value)
				row[headers[i]] = trimmed
				if trimmed != "" {
					empty = false
				}
			}
		}
		if !empty {
			rows = append(rows, row)
		}
	}

	return rows, nil
}

func (h *ImportHandler) processProductRows(c *gin.Context, storeID string, rows []map[string]string, skipDuplicates, validateOnly bool) *ImportResult {
	result := &ImportResult{
		TotalRows: len(rows),
		Errors:    []ImportRowError{},
	}

	for i, row := range rows {
		rowNum := i + 2 // 1-based plus header row

		req, rowErrs := buildProductRequest(row, rowNum)
		if len(rowErrs) > 0 {
			result.Errors = append(result.Errors, rowErrs...)
			result.FailedCount++
			continue
		}

		if validateOnly {
			result.SuccessCount++
			continue
		}

		product, err := h.service.CreateProduct(c.Request.Context(), storeID, req)
		if err != nil {
			if errors.Is(err, services.ErrSKUExists) {
				if skipDuplicates {
					result.SkippedCount++
					continue
				}
				result.Errors = append(result.Errors, ImportRowError{
					Row: rowNum, Column: "sku", Code: "DUPLICATE_SKU",
					Message: fmt.Sprintf("Product with SKU '%s' already exists", req.SKU),
				})
			} else {
				result.Errors = append(result.Errors, ImportRowError{
					Row: rowNum, Code: "CREATE_FAILED", Message: err.Error(),
				})
			}
			result.FailedCount++
			continue
		}

		result.SuccessCount++
		result.CreatedIDs = append(result.CreatedIDs, product.ID.String())
	}

	result.Success = result.FailedCount == 0
	return result
}

func buildProductRequest(row map[string]string, rowNum int) (*models.CreateProductRequest, []ImportRowError) {
	var errs []ImportRowError

	req := &models.CreateProductRequest{
		SKU:  row["sku"],
		Name: row["name"],
	}
	if req.SKU == "" {
		errs = append(errs, ImportRowError{Row: rowNum, Column: "sku", Code: "REQUIRED", Message: "sku is required"})
	}
	if req.Name == "" {
		errs = append(errs, ImportRowError{Row: rowNum, Column: "name", Code: "REQUIRED", Message: "name is required"})
	}

	if raw := row["price"]; raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil || price < 0 {
			errs = append(errs, ImportRowError{Row: rowNum, Column: "price", Code: "INVALID_NUMBER", Message: "price must be a non-negative number"})
		} else {
			req.Price = price
		}
	} else {
		errs = append(errs, ImportRowError{Row: rowNum, Column: "price", Code: "REQUIRED", Message: "price is required"})
	}

	if raw := row["stock"]; raw != "" {
		stock, err := strconv.Atoi(raw)
		if err != nil || stock < 0 {
			errs = append(errs, ImportRowError{Row: rowNum, Column: "stock", Code: "INVALID_NUMBER", Message: "stock must be a non-negative integer"})
		} else {
			req.Stock = stock
		}
	}

	if desc := row["description"]; desc != "" {
		req.Description = &desc
	}
	if imageURL := row["imageUrl"]; imageURL != "" {
		req.ImageURL = &imageURL
	}

	return req, errs
}
