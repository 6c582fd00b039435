package utils

import (
	"fmt"
	"sort"
	"strings"
)

const reservedField = "(reserved)"

type layoutColumn struct {
	label string
	name  string
	width int
}

func bitRangeLabel(lo, width int) string {
	if width == 1 {
		return fmt.Sprint(lo)
	}
	return fmt.Sprintf("%d..%d", lo+width-1, lo)
}

func center(text string, width int) string {
	left := (width - len(text)) / 2
	return strings.Repeat(" ", left) + text + strings.Repeat(" ", width-len(text)-left)
}

// Splits a word of the given width into columns, most significant bits first.
// Bits not covered by any field become reserved columns.
func layoutColumns(fields []BitField, width int) ([]layoutColumn, error) {
	sorted := append([]BitField(nil), fields...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	var columns []layoutColumn
	add := func(name string, lo, width int) {
		label := bitRangeLabel(lo, width)
		columns = append(columns, layoutColumn{label: label, name: name, width: max(len(label), len(name)) + 2})
	}

	next := 0
	for _, field := range sorted {
		if field.Width <= 0 {
			return nil, fmt.Errorf("field '%s' has no bits", field.Name)
		}
		if field.Offset < next {
			return nil, fmt.Errorf("field '%s' at bit %d overlaps the previous field", field.Name, field.Offset)
		}
		if field.Offset+field.Width > width {
			return nil, fmt.Errorf("field '%s' does not fit in %d bits", field.Name, width)
		}
		if field.Offset > next {
			add(reservedField, next, field.Offset-next)
		}
		add(field.Name, field.Offset, field.Width)
		next = field.Offset + field.Width
	}
	if next < width {
		add(reservedField, next, width-next)
	}

	for i, j := 0, len(columns)-1; i < j; i, j = i+1, j-1 {
		columns[i], columns[j] = columns[j], columns[i]
	}
	return columns, nil
}

// DrawLayout renders a word layout as an ascii table with the most significant bits on the left:
//
//	+------------+------+------+
//	|    7..5    |  4   | 3..0 |
//	| (reserved) | flag |  a   |
//	+------------+------+------+
func DrawLayout(fields []BitField, width int) (string, error) {
	columns, err := layoutColumns(fields, width)
	if err != nil {
		return "", err
	}

	var border, labels, names strings.Builder
	for _, column := range columns {
		border.WriteString("+" + strings.Repeat("-", column.width))
		labels.WriteString("|" + center(column.label, column.width))
		names.WriteString("|" + center(column.name, column.width))
	}
	border.WriteString("+\n")
	labels.WriteString("|\n")
	names.WriteString("|\n")

	return border.String() + labels.String() + names.String() + border.String(), nil
}
