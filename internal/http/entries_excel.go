package httpapi

import (
	"fmt"
	"time"

	"tether-data/internal/domain"
	"tether-data/internal/service"

	"github.com/xuri/excelize/v2"
)

// entriesFixedHeader 每张导出表固定的前置列
var entriesFixedHeader = []string{
	"Entry ID",
	"Timestamp",
	"Submitted By",
	"Location",
}

// entriesExportColumns 导出列 = 固定列 + 模板动态字段列
// 秒表模板不导出 timestamp 字段本身，改为三个合成列
func entriesExportColumns(tpl *domain.Template) []string {
	headers := append([]string{}, entriesFixedHeader...)
	if tpl.HasStopwatch() {
		headers = append(headers, service.StopwatchStartField, service.StopwatchEndField, service.StopwatchDurationField)
	}
	for _, f := range tpl.DynamicFields {
		if f.Type == domain.FieldTypeTimestamp {
			continue
		}
		headers = append(headers, f.Name)
	}
	return headers
}

// GenerateEntriesExport 生成日志流导出 Excel 文件
// entries 为空时只生成表头
func GenerateEntriesExport(tpl *domain.Template, entries []*domain.LogEntry) ([]byte, error) {
	f := excelize.NewFile()
	// Note: Don't defer Close() here, because WriteTo needs the file to be open

	sheetName := "Log Entries"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	// 删除默认的 Sheet1
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	// 表头样式
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	headers := entriesExportColumns(tpl)
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	// 固定列宽度，动态字段列统一 20
	for i := range headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		width := 20.0
		switch i {
		case 0: // Entry ID
			width = 24
		case 1: // Timestamp
			width = 22
		case 3: // Location
			width = 32
		}
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	// 写入数据
	for rowIdx, entry := range entries {
		row := rowIdx + 2 // 从第2行开始（第1行是表头）
		values := make([]any, 0, len(headers))
		values = append(values,
			entry.EntryID,
			entry.Timestamp.UTC().Format(time.RFC3339),
			entry.SubmittedBy,
			entry.Location,
		)
		for _, header := range headers[len(entriesFixedHeader):] {
			v, ok := entry.Fields[header]
			if !ok || v.IsEmpty() {
				values = append(values, "")
				continue
			}
			values = append(values, v.Display())
		}

		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	out, err := f.WriteToBuffer()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close excel file: %w", err)
	}
	return out.Bytes(), nil
}
