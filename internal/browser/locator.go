package browser

import (
	"fmt"
	"strings"
)

// Strategy names how a Locator's value is interpreted. The values match the
// W3C WebDriver location strategies so they can be passed through as-is.
type Strategy string

const (
	ByXPath     Strategy = "xpath"
	ByID        Strategy = "id"
	ByClassName Strategy = "class name"
	ByTagName   Strategy = "tag name"
	ByCSS       Strategy = "css selector"
)

// Locator is a (strategy, selector) pair identifying zero or more elements.
type Locator struct {
	By    Strategy
	Value string
}

// XPath returns an XPath locator.
func XPath(expr string) Locator { return Locator{By: ByXPath, Value: expr} }

// ID returns a locator matching the element with the given id attribute.
func ID(id string) Locator { return Locator{By: ByID, Value: id} }

// ClassName returns a locator matching elements carrying a single class.
func ClassName(class string) Locator { return Locator{By: ByClassName, Value: class} }

// TagName returns a locator matching elements by tag.
func TagName(tag string) Locator { return Locator{By: ByTagName, Value: tag} }

// CSS returns a CSS selector locator.
func CSS(selector string) Locator { return Locator{By: ByCSS, Value: selector} }

func (l Locator) String() string {
	return fmt.Sprintf("(%s, %q)", l.By, l.Value)
}

// IsXPath reports whether the locator must be resolved as an XPath expression.
func (l Locator) IsXPath() bool {
	return l.By == ByXPath
}

// Relative reports whether an XPath locator is anchored at the context node
// ("./..." or ".//...") rather than the document root.
func (l Locator) Relative() bool {
	return l.IsXPath() && strings.HasPrefix(l.Value, ".")
}

// CSSSelector translates non-XPath strategies into an equivalent CSS selector.
func (l Locator) CSSSelector() (string, error) {
	switch l.By {
	case ByCSS:
		return l.Value, nil
	case ByID:
		return fmt.Sprintf(`[id="%s"]`, escapeAttr(l.Value)), nil
	case ByClassName:
		class := strings.TrimSpace(l.Value)
		if class == "" || strings.ContainsAny(class, " \t\n") {
			return "", fmt.Errorf("compound class names are not supported: %q", l.Value)
		}
		// the attribute form needs no identifier escaping ("1col", "a:b")
		return fmt.Sprintf(`[class~="%s"]`, escapeAttr(class)), nil
	case ByTagName:
		return l.Value, nil
	case ByXPath:
		return "", fmt.Errorf("xpath locator %q has no css equivalent", l.Value)
	default:
		return "", fmt.Errorf("unknown locator strategy %q", l.By)
	}
}

func escapeAttr(v string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v)
}
