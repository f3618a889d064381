package common

import (
	"math"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePaginationKeepsOffsetInInt4(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/orders?page=99999999999&limit=100", nil)
	page, perPage := ParsePagination(r, 20, 100)
	require.Equal(t, 100, perPage)
	require.Equal(t, math.MaxInt32/100+1, page)

	off := Offset(page, perPage)
	require.LessOrEqual(t, off, math.MaxInt32)
	require.Equal(t, off, int(int32(off)))

	r = httptest.NewRequest("GET", "/api/v1/orders?page=3&limit=x", nil)
	page, perPage = ParsePagination(r, 20, 100)
	require.Equal(t, 3, page)
	require.Equal(t, 20, perPage)
	require.Equal(t, 40, Offset(page, perPage))
}

func TestOffsetSaturates(t *testing.T) {
	require.Equal(t, math.MaxInt32, Offset(math.MaxInt64, 50))
	require.Equal(t, math.MaxInt32, Offset(1<<40, 1<<10))
	require.Equal(t, 0, Offset(0, 20))
	require.Equal(t, 0, Offset(4, 0))
}
