package dquery

import "strings"

// Tokenize splits a compact filter expression into clause tokens.
//
// A clause starts at '@', '#' or the beginning of the query and runs up to the
// next marker. Tokenize accepts any input: unbalanced quotes, bare markers and
// stray colons resolve to degenerate tokens instead of errors.
func Tokenize(query string) []Token {
	query = strings.Join(strings.Fields(query), " ")
	if query == "" {
		return nil
	}

	var tokens []Token
	for _, clause := range splitClauses(query) {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		tokens = append(tokens, tokenizeClause(clause))
	}
	return tokens
}

// splitClauses cuts before every marker; the marker stays with its clause.
func splitClauses(query string) []string {
	var clauses []string
	start := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '@' || query[i] == '#' {
			clauses = append(clauses, query[start:i])
			start = i
		}
	}
	return append(clauses, query[start:])
}

func tokenizeClause(clause string) Token {
	cmd := None
	switch clause[0] {
	case '#':
		cmd = Hash
		clause = clause[1:]
	case '@':
		cmd = At
		clause = clause[1:]
	}

	if cmd == None {
		return Token{Command: None, Content: ptr(clause)}
	}

	if !strings.ContainsAny(clause, `":`) {
		if cmd == Hash {
			return Token{Command: Hash, Modifier: ptr(DefaultTextMode), Content: ptr(clause)}
		}
		return Token{Command: At, Modifier: ptr(clause)}
	}

	var modifier *string
	text := clause
	if before, after, ok := strings.Cut(clause, ":"); ok {
		modifier = ptr(before)
		text = after
	}

	content := text
	if open := strings.IndexByte(text, '"'); open >= 0 {
		content = ""
		if closing := strings.LastIndexByte(text, '"'); closing > open {
			content = text[open+1 : closing]
		}
		if modifier == nil && open > 0 {
			modifier = ptr(text[:open])
		}
	}

	return Token{Command: cmd, Modifier: modifier, Content: ptr(content)}
}
