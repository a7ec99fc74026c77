package util

import (
	"strconv"
	"strings"
)

func SafeAtoi(s string) int {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return i
}

var mentionReplacer = strings.NewReplacer("<", "", "@", "", "!", "", ">", "")

// ParseUserReference turns a raw user ID or a mention such as <@123> or
// <@!123> into the bare ID.
func ParseUserReference(s string) string {
	return strings.TrimSpace(mentionReplacer.Replace(s))
}

// ParseIDSuffix extracts the positive integer following prefix, as in
// "claim_12". ok is false if the prefix is missing or the suffix is not a
// positive integer.
func ParseIDSuffix(s, prefix string) (id int, ok bool) {
	rest, found := strings.CutPrefix(s, prefix)
	if !found {
		return 0, false
	}
	id = SafeAtoi(rest)
	return id, id > 0
}
