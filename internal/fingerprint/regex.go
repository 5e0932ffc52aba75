package fingerprint

import "regexp"

func newRegexMatcher(pattern string, caseSensitive bool) (func(string) bool, error) {
	expr := pattern
	if !caseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	return re.MatchString, nil
}
