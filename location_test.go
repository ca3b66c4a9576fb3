package fluence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocationStringIsOneBasedWithFile(t *testing.T) {
	loc := Location{Line: 0, Column: 0, File: "a.fl"}
	assert.Equal(t, "a.fl:1:1", loc.String())
}

func TestLocationStringWithoutFile(t *testing.T) {
	loc := Location{Line: 4, Column: 2}
	assert.Equal(t, "5:3", loc.String())
}

func TestSpanStringSameLineSameColumnCollapsesToPoint(t *testing.T) {
	loc := Location{Line: 0, Column: 3, File: "a.fl"}
	sp := NewSpan(loc, loc)
	assert.Equal(t, "a.fl:1:4", sp.String())
}

func TestSpanStringSameLineDifferentColumn(t *testing.T) {
	sp := NewSpan(Location{Line: 0, Column: 0, File: "a.fl"}, Location{Line: 0, Column: 4, File: "a.fl"})
	assert.Equal(t, "a.fl:1:1-5", sp.String())
}

func TestSpanStringAcrossLines(t *testing.T) {
	sp := NewSpan(Location{Line: 0, Column: 0, File: "a.fl"}, Location{Line: 1, Column: 2, File: "a.fl"})
	assert.Equal(t, "a.fl:1:1-a.fl:2:3", sp.String())
}
