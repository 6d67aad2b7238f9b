package media

import "strings"

// naturalLess compares two file names so that embedded digit runs sort
// numerically: "page2.png" < "page10.png". Comparison is case-insensitive
// to match how file browsers order chapters.
func naturalLess(a, b string) bool {
	a = strings.ToLower(a)
	b = strings.ToLower(b)

	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ca, cb := a[i], b[j]
		if isDigit(ca) && isDigit(cb) {
			// Compare the full digit runs as numbers, shorter run of
			// significant digits wins.
			ia := i
			for ia < len(a) && a[ia] == '0' {
				ia++
			}
			ja := j
			for ja < len(b) && b[ja] == '0' {
				ja++
			}
			ie := ia
			for ie < len(a) && isDigit(a[ie]) {
				ie++
			}
			je := ja
			for je < len(b) && isDigit(b[je]) {
				je++
			}
			if ie-ia != je-ja {
				return ie-ia < je-ja
			}
			if na, nb := a[ia:ie], b[ja:je]; na != nb {
				return na < nb
			}
			i, j = ie, je
			continue
		}
		if ca != cb {
			return ca < cb
		}
		i++
		j++
	}
	return len(a)-i < len(b)-j
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
