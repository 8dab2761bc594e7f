package dialect

import "strings"

// UnescapeInsert undoes one level of quote doubling inside the single-quoted
// literals of an INSERT statement.
//
// The generic value builder escapes string values before interpolating them
// into an already-quoted literal, so an embedded quote reaches the statement
// as four quote characters. The dialect's literal syntax wants exactly two.
// Runs of quotes inside a literal are halved; an odd run closes the literal
// after its halved prefix. Text outside literals is copied unchanged,
// double-quoted identifiers included.
func UnescapeInsert(stmt string) string {
	var sb strings.Builder
	sb.Grow(len(stmt))
	inLiteral := false
	for i := 0; i < len(stmt); {
		if !inLiteral && stmt[i] == '"' {
			end := identEnd(stmt, i)
			sb.WriteString(stmt[i:end])
			i = end
			continue
		}
		if stmt[i] != '\'' {
			sb.WriteByte(stmt[i])
			i++
			continue
		}
		run := 0
		for i < len(stmt) && stmt[i] == '\'' {
			run++
			i++
		}
		if !inLiteral {
			// Opening quote, plus any quotes that begin the value.
			sb.WriteByte('\'')
			inLiteral = true
			run--
			if run == 0 {
				continue
			}
		}
		if run%2 == 0 {
			sb.WriteString(strings.Repeat("'", run/2))
			continue
		}
		sb.WriteString(strings.Repeat("'", (run-1)/2))
		sb.WriteByte('\'')
		inLiteral = false
	}
	return sb.String()
}

// identEnd returns the index just past the double-quoted identifier that
// starts at i. A doubled quote inside it is an escape. An unterminated
// identifier runs to the end of stmt.
func identEnd(stmt string, i int) int {
	for j := i + 1; j < len(stmt); j++ {
		if stmt[j] != '"' {
			continue
		}
		if j+1 < len(stmt) && stmt[j+1] == '"' {
			j++
			continue
		}
		return j + 1
	}
	return len(stmt)
}
