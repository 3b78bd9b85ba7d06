// Package css parses stylesheets, matches their selectors against document elements and resolves the values
// that stylesheets share with SVG presentation attributes: lengths and colours.
package css

import (
	"strconv"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// TokenKind is the kind of a token.
type TokenKind int

// see TokenKind
const (
	IdentToken    TokenKind = iota // red, font-size
	NumberToken                    // 1, 1.5e3, 10px, 50%
	HashToken                      // #fff
	VarToken                       // --main-color
	StringToken                    // "a b", quotes stripped
	URLToken                       // url(x), the URL only
	FunctionToken                  // rgb, followed by a parenthesized group
	AtToken                        // @media, without the @
	SpaceToken
	DelimToken
)

func (tk TokenKind) String() string {
	switch tk {
	case IdentToken:
		return "Ident"
	case NumberToken:
		return "Number"
	case HashToken:
		return "Hash"
	case VarToken:
		return "Var"
	case StringToken:
		return "String"
	case URLToken:
		return "URL"
	case FunctionToken:
		return "Function"
	case AtToken:
		return "At"
	case SpaceToken:
		return "Space"
	case DelimToken:
		return "Delim"
	}
	return "Invalid(" + strconv.Itoa(int(tk)) + ")"
}

// Token is a lexical token.
type Token struct {
	Kind  TokenKind
	Data  string
	Quote byte // for strings
}

func (t Token) String() string {
	switch t.Kind {
	case StringToken:
		return string(t.Quote) + strings.ReplaceAll(t.Data, string(t.Quote), `\`+string(t.Quote)) + string(t.Quote)
	case URLToken:
		return "url(" + t.Data + ")"
	case AtToken:
		return "@" + t.Data
	}
	return t.Data
}

// Is returns true for a delimiter token of the given character.
func (t Token) Is(delim string) bool {
	return t.Kind == DelimToken && t.Data == delim
}

// Lex splits a stylesheet into tokens. Whitespace runs collapse to one space token, comments are dropped, and
// delimiters are single characters.
func Lex(src string) []Token {
	var tokens []Token
	add := func(t Token) {
		if t.Kind == SpaceToken && 0 < len(tokens) && tokens[len(tokens)-1].Kind == SpaceToken {
			return
		}
		tokens = append(tokens, t)
	}

	l := css.NewLexer(parse.NewInputString(src))
	for {
		tt, data := l.Next()
		switch tt {
		case css.ErrorToken:
			return tokens
		case css.CommentToken, css.CDOToken, css.CDCToken:
			continue
		case css.WhitespaceToken:
			add(Token{Kind: SpaceToken, Data: " "})
		case css.IdentToken:
			add(Token{Kind: IdentToken, Data: string(data)})
		case css.NumberToken, css.PercentageToken, css.DimensionToken:
			add(Token{Kind: NumberToken, Data: string(data)})
		case css.HashToken:
			add(Token{Kind: HashToken, Data: string(data)})
		case css.CustomPropertyNameToken:
			add(Token{Kind: VarToken, Data: string(data)})
		case css.AtKeywordToken:
			add(Token{Kind: AtToken, Data: string(data[1:])})
		case css.StringToken, css.BadStringToken:
			add(unquote(data))
		case css.URLToken, css.BadURLToken:
			u := strings.TrimSpace(string(data[4:]))
			u = strings.TrimSuffix(u, ")")
			u = strings.TrimSpace(u)
			if 2 <= len(u) && (u[0] == '"' || u[0] == '\'') {
				u = unquote([]byte(u)).Data
			}
			add(Token{Kind: URLToken, Data: u})
		case css.FunctionToken:
			add(Token{Kind: FunctionToken, Data: string(data[:len(data)-1])})
			add(Token{Kind: DelimToken, Data: "("})
		default:
			// brackets, punctuation and match operators become single-character delimiters
			for _, c := range string(data) {
				add(Token{Kind: DelimToken, Data: string(c)})
			}
		}
	}
}

// unquote strips the quotes of a string token. Double-quoted strings decode `\XX ` hexadecimal escapes, a space
// ends the escape; other escapes take the next character literally.
func unquote(b []byte) Token {
	quote := b[0]
	s := string(b[1:])
	if 0 < len(s) && s[len(s)-1] == quote {
		s = s[:len(s)-1]
	}

	sb := strings.Builder{}
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			sb.WriteByte(s[i])
			continue
		}
		i++
		if quote == '"' && isHex(s[i]) {
			j := i
			for j < len(s) && j-i < 6 && isHex(s[j]) {
				j++
			}
			r, _ := strconv.ParseUint(s[i:j], 16, 32)
			sb.WriteRune(rune(r))
			if j < len(s) && s[j] == ' ' {
				j++
			}
			i = j - 1
		} else {
			sb.WriteByte(s[i])
		}
	}
	return Token{Kind: StringToken, Data: sb.String(), Quote: quote}
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}
