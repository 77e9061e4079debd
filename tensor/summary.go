package tensor

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// Summary writes a table listing every field with its type, shape and
// payload size.
func (f *File) Summary(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Field", "Type", "Shape", "Size"})
	for _, field := range f.fields {
		table.Append([]string{field.Name, field.DType.String(), FormatShape(field.Shape), FormatSize(int64(len(field.Data)))})
	}
	table.SetFooter([]string{"Total", strconv.Itoa(len(f.fields)) + " fields", " ", FormatSize(f.size)})
	table.Render()
}

// FormatShape renders a shape as "[a x b x c]".
func FormatShape(shape []int) string {
	parts := make([]string, len(shape))
	for i, s := range shape {
		parts[i] = strconv.Itoa(s)
	}
	return "[" + strings.Join(parts, " x ") + "]"
}

// FormatSize renders a byte count with binary prefixes, e.g. "1.5 MiB".
func FormatSize(n int64) string {
	v := float64(n)
	for _, unit := range []string{"", "Ki", "Mi", "Gi", "Ti", "Pi"} {
		if v < 1024 && v > -1024 {
			return fmt.Sprintf("%.1f %sB", v, unit)
		}
		v /= 1024
	}
	return fmt.Sprintf("%.1f EiB", v)
}
