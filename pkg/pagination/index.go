package pagination

import "fmt"

// PageIndex returns the page holding global index i.
func PageIndex(i, pageSize int) int {
	mustValidIndex(i, pageSize)
	return i / pageSize
}

// Offset returns the position of global index i within its page.
func Offset(i, pageSize int) int {
	mustValidIndex(i, pageSize)
	return i % pageSize
}

// GlobalIndex is the inverse of PageIndex and Offset.
func GlobalIndex(pageIndex, offset, pageSize int) int {
	if pageSize <= 0 {
		panic(fmt.Sprintf("pagination: page size must be positive (got %d)", pageSize))
	}
	return pageIndex*pageSize + offset
}

func mustValidIndex(i, pageSize int) {
	if pageSize <= 0 {
		panic(fmt.Sprintf("pagination: page size must be positive (got %d)", pageSize))
	}
	if i < 0 {
		panic(fmt.Sprintf("pagination: global index must be non-negative (got %d)", i))
	}
}
