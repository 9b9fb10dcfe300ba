package extractors

import (
	"fmt"
	"regexp"
	"strings"
)

// Self-decoding packed blocks have the shape
//
//	eval(function(p,a,c,k,e,d){...}('payload',radix,count,'dict'.split('|'),0,{}))
//
// The payload is the original source with identifiers replaced by base-36
// tokens; the dictionary maps token indices back to the words. Reversing the
// substitution recovers the source without executing any of it.
var (
	packedBlockRe  = regexp.MustCompile(`(?s)eval\(function\(p,a,c,k,e,[dr]\).*?\.split\('\|'\).*?\)\)`)
	packedParamsRe = regexp.MustCompile(`(?s)\}\s*\(\s*'(.*)'\s*,\s*(\d+)\s*,\s*(\d+)\s*,\s*'([^']*)'\s*\.split\('\|'\)`)
	evalFBlockRe   = regexp.MustCompile(`(?s)eval\(f.*?\.split\('\|'\).*?\)\)`)
)

// findPackedBlock returns the first eval(function(p,a,c,k,e,d)...) block in
// the page, or "" when none exists.
func findPackedBlock(html string) string {
	return packedBlockRe.FindString(html)
}

// findEvalBlock is the looser capture used by sites that wrap their packed
// payload as eval(f...).
func findEvalBlock(html string) string {
	return evalFBlockRe.FindString(html)
}

// unpack reverses a base-36 tokenizing packer. Dictionary entries are
// substituted for whole-word tokens from the highest index down; empty
// entries leave the token in place (the packer does the same).
func unpack(packed string) (string, error) {
	match := packedParamsRe.FindStringSubmatch(packed)
	if len(match) < 5 {
		return "", fmt.Errorf("packed block does not match packer grammar")
	}

	payload := match[1]
	dict := strings.Split(match[4], "|")

	result := payload
	for i := len(dict) - 1; i >= 0; i-- {
		if dict[i] == "" {
			continue
		}
		word := dict[i]
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(encodeBase36(i)) + `\b`)
		// ReplaceAllString would expand $ sequences in the word.
		result = re.ReplaceAllStringFunc(result, func(string) string { return word })
	}

	return result, nil
}

// encodeBase36 mirrors JavaScript's Number.prototype.toString(36).
func encodeBase36(n int) string {
	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"
	if n < 36 {
		return string(digits[n])
	}
	return encodeBase36(n/36) + string(digits[n%36])
}
