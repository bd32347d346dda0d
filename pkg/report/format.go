package report

import "fmt"

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes formats n using binary units, dividing by 1024 per step, with
// two decimal places.
//
//	FormatBytes(0)          // "0.00 B"
//	FormatBytes(1536)       // "1.50 KB"
//	FormatBytes(1073741824) // "1.00 GB"
func FormatBytes(n uint64) string {
	v := float64(n)
	i := 0
	for v >= 1024 && i < len(byteUnits)-1 {
		v /= 1024
		i++
	}
	return fmt.Sprintf("%.2f %s", v, byteUnits[i])
}
