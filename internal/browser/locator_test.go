package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocatorCSSSelector(t *testing.T) {
	tests := []struct {
		name string
		loc  Locator
		want string
	}{
		{"id", ID("select2-filter-by-location-container"), `[id="select2-filter-by-location-container"]`},
		{"class", ClassName("position-list-item"), `[class~="position-list-item"]`},
		{"class with padding", ClassName(" totalResult "), `[class~="totalResult"]`},
		{"class with leading digit", ClassName("1col"), `[class~="1col"]`},
		{"class with colon", ClassName("md:flex"), `[class~="md:flex"]`},
		{"tag", TagName("h2"), "h2"},
		{"css", CSS("nav .dropdown > a"), "nav .dropdown > a"},
		{"id with quote", ID(`a"b`), `[id="a\"b"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.loc.CSSSelector()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocatorCSSSelectorRejects(t *testing.T) {
	_, err := XPath("//h1").CSSSelector()
	assert.Error(t, err)

	_, err = ClassName("btn btn-navy").CSSSelector()
	assert.Error(t, err)

	_, err = ClassName("  ").CSSSelector()
	assert.Error(t, err)

	_, err = Locator{By: "link text", Value: "Careers"}.CSSSelector()
	assert.Error(t, err)
}

func TestLocatorRelative(t *testing.T) {
	assert.True(t, XPath(`.//a[text()="View Role"]`).Relative())
	assert.False(t, XPath(`//a[text()="View Role"]`).Relative())
	assert.False(t, CSS(".btn").Relative())
}

func TestLocatorString(t *testing.T) {
	assert.Equal(t, `(class name, "totalResult")`, ClassName("totalResult").String())
	assert.Equal(t, `(xpath, "//h2")`, XPath("//h2").String())
}
