package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPageInfo(t *testing.T) {
	a, b, c := 1, 2, 3
	rows := []*int{&a, &b, &c}

	out, info := BuildPageInfo(rows, Page{Skip: 4, Limit: 2})
	assert.Len(t, out, 2)
	assert.True(t, info.HasMore)
	assert.Equal(t, 4, info.Skip)

	out, info = BuildPageInfo(rows[:2], Page{Limit: 2})
	assert.Len(t, out, 2)
	assert.False(t, info.HasMore)
}

func TestNormalize(t *testing.T) {
	p := Page{Skip: -3}.Normalize(50, 500)
	assert.Equal(t, Page{Skip: 0, Limit: 50}, p)
	assert.Equal(t, 500, Page{Limit: 9000}.Normalize(50, 500).Limit)
}
