package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name          string
		limit, offset int
		want          []int
	}{
		{"no limit", 0, 0, []int{1, 2, 3, 4, 5}},
		{"first page", 2, 0, []int{1, 2}},
		{"middle", 2, 2, []int{3, 4}},
		{"last partial", 2, 4, []int{5}},
		{"past end", 2, 10, []int{}},
		{"negative offset", 3, -1, []int{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Paginate(items, tt.limit, tt.offset))
		})
	}
}
