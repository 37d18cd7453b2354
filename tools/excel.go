package tools

import (
	"fmt"
	"reflect"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExcelTimeLayout 导出时 time.Time 字段的格式
const ExcelTimeLayout = "2006-01-02 15:04:05"

type excelColumn struct {
	index  []int
	header string
}

// excelColumns 收集结构体中需要导出的列，表头取 excel tag，缺省为字段名，"-" 跳过
func excelColumns(t reflect.Type, parent []int) []excelColumn {
	var cols []excelColumn
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" {
			continue
		}
		idx := append(append([]int(nil), parent...), i)

		tag := sf.Tag.Get("excel")
		if tag == "-" {
			continue
		}
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			cols = append(cols, excelColumns(sf.Type, idx)...)
			continue
		}
		if tag == "" {
			tag = sf.Name
		}
		cols = append(cols, excelColumn{index: idx, header: tag})
	}
	return cols
}

func excelValue(fv reflect.Value) any {
	if fv.Kind() == reflect.Ptr {
		if fv.IsNil() {
			return ""
		}
		fv = fv.Elem()
	}
	if t, ok := fv.Interface().(time.Time); ok {
		if t.IsZero() {
			return ""
		}
		return t.Format(ExcelTimeLayout)
	}
	return fv.Interface()
}

// ExportToExcel 将结构体切片写入 sheet，第一行为表头
func ExportToExcel[T any](f *excelize.File, sheet string, rows []T) error {
	elemType := reflect.TypeOf((*T)(nil)).Elem()
	if elemType.Kind() == reflect.Ptr {
		elemType = elemType.Elem()
	}
	if elemType.Kind() != reflect.Struct {
		return fmt.Errorf("%s 不是结构体", elemType)
	}

	if sheet == "" {
		sheet = "Sheet1"
	}
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
	}

	cols := excelColumns(elemType, nil)

	// 写表头
	for i, col := range cols {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, col.header); err != nil {
			return err
		}
	}

	// 写数据行
	line := 2
	for _, row := range rows {
		elem := reflect.ValueOf(row)
		if elem.Kind() == reflect.Ptr {
			if elem.IsNil() {
				continue
			}
			elem = elem.Elem()
		}
		for i, col := range cols {
			cell, err := excelize.CoordinatesToCellName(i+1, line)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, excelValue(elem.FieldByIndex(col.index))); err != nil {
				return err
			}
		}
		line++
	}
	return nil
}
