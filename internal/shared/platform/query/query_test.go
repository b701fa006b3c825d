package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRequestNormalize(t *testing.T) {
	cases := []struct {
		name     string
		in       PageRequest
		wantPage int
		wantSize int
	}{
		{"defaults", PageRequest{}, 1, 10},
		{"negative page", PageRequest{Page: -3, PageSize: 20}, 1, 20},
		{"zero size", PageRequest{Page: 2, PageSize: 0}, 2, 10},
		{"size over max", PageRequest{Page: 1, PageSize: 500}, 1, 100},
		{"valid untouched", PageRequest{Page: 4, PageSize: 25}, 4, 25},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.in.Normalize()
			assert.Equal(t, tc.wantPage, got.Page)
			assert.Equal(t, tc.wantSize, got.PageSize)
		})
	}
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, PageRequest{Page: 1, PageSize: 10}.Offset())
	assert.Equal(t, 20, PageRequest{Page: 3, PageSize: 10}.Offset())
}

// 25 elementos con páginas de 10: la página 3 tiene 5 elementos, sin
// siguiente y con anterior.
func TestPagedResultBoundaries(t *testing.T) {
	items := make([]int, 25)
	for i := range items {
		items[i] = i
	}

	p := PageRequest{Page: 3, PageSize: 10}
	pageItems := Paginate(items, p)
	result := NewPagedResult(pageItems, 25, p)

	assert.Len(t, result.Items, 5)
	assert.Equal(t, int64(3), result.TotalPages())
	assert.False(t, result.HasNext())
	assert.True(t, result.HasPrevious())
}

func TestPaginateBeyondData(t *testing.T) {
	items := []string{"a", "b", "c"}
	got := Paginate(items, PageRequest{Page: 5, PageSize: 10})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestTotalPagesCeil(t *testing.T) {
	assert.Equal(t, int64(0), NewPagedResult([]int{}, 0, PageRequest{Page: 1, PageSize: 10}).TotalPages())
	assert.Equal(t, int64(1), NewPagedResult([]int{}, 10, PageRequest{Page: 1, PageSize: 10}).TotalPages())
	assert.Equal(t, int64(2), NewPagedResult([]int{}, 11, PageRequest{Page: 1, PageSize: 10}).TotalPages())
}

func TestNewPagedResultNilItems(t *testing.T) {
	result := NewPagedResult[int](nil, 0, PageRequest{Page: 1, PageSize: 10})
	assert.NotNil(t, result.Items)
	assert.Empty(t, result.Items)
}
