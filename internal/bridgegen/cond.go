package bridgegen

import (
	"regexp"
	"strconv"
	"strings"
	"text/scanner"
)

// osMacros and archMacros are the compiler-predefined macros vendor headers
// switch on, per GOOS and GOARCH.
var (
	osMacros = map[string][]string{
		"linux":   {"__linux__", "__linux", "__unix__", "__unix"},
		"darwin":  {"__APPLE__", "__MACH__"},
		"windows": {"_WIN32"},
	}
	archMacros = map[string][]string{
		"amd64":   {"__x86_64__", "__amd64__"},
		"arm64":   {"__aarch64__"},
		"ppc64le": {"__powerpc64__", "__PPC64__"},
		"s390x":   {"__s390x__", "__s390__"},
		"386":     {"__i386__"},
	}
)

// Macros returns the platform macros the C compiler used by cgo predefines
// for t, mapped to whether they are defined. cgo compiles C with gcc or
// clang, so __cplusplus and the MSVC macros are never defined. OS and
// architecture macros are left out when GOOS or GOARCH is not in the table.
func (t Target) Macros() map[string]bool {
	m := map[string]bool{
		"__cplusplus": false,
		"_MSC_VER":    false,
		"_M_X64":      false,
		"_M_ARM64":    false,
		"_M_IX86":     false,
	}
	if defined, ok := osMacros[t.GOOS]; ok {
		for _, names := range osMacros {
			for _, name := range names {
				m[name] = false
			}
		}
		for _, name := range defined {
			m[name] = true
		}
		m["_WIN64"] = t.GOOS == "windows" && (t.GOARCH == "amd64" || t.GOARCH == "arm64")
	}
	if defined, ok := archMacros[t.GOARCH]; ok {
		for _, names := range archMacros {
			for _, name := range names {
				m[name] = false
			}
		}
		for _, name := range defined {
			m[name] = true
		}
		m["__arm64__"] = t.GOOS == "darwin" && t.GOARCH == "arm64"
	}
	return m
}

// cond is a three-valued truth value: a preprocessor condition may depend on
// macros the scanner does not know.
type cond int8

const (
	condUnknown cond = iota
	condFalse
	condTrue
)

func (c cond) not() cond {
	switch c {
	case condTrue:
		return condFalse
	case condFalse:
		return condTrue
	}
	return condUnknown
}

func (c cond) and(d cond) cond {
	switch {
	case c == condFalse || d == condFalse:
		return condFalse
	case c == condTrue && d == condTrue:
		return condTrue
	}
	return condUnknown
}

func (c cond) or(d cond) cond {
	switch {
	case c == condTrue || d == condTrue:
		return condTrue
	case c == condFalse && d == condFalse:
		return condFalse
	}
	return condUnknown
}

type condFrame struct {
	outer bool // the enclosing region is scanned
	cur   cond // the branch being read
	taken cond // whether an earlier branch of this group was taken
}

// condStack tracks #if groups. A region is skipped only when one of its
// branch conditions is known to be false.
type condStack []condFrame

func (s condStack) live() bool {
	if len(s) == 0 {
		return true
	}
	top := s[len(s)-1]
	return top.outer && top.cur != condFalse
}

var directiveRe = regexp.MustCompile(`^\s*#\s*(\w+)\s*(.*)$`)

// apply updates the stack for one directive line.
func (s *condStack) apply(text string, macros map[string]bool) {
	m := directiveRe.FindStringSubmatch(text)
	if m == nil {
		return
	}
	switch kw, rest := m[1], m[2]; kw {
	case "if":
		s.push(evalCond(rest, macros))
	case "ifdef":
		s.push(definedCond(rest, macros))
	case "ifndef":
		s.push(definedCond(rest, macros).not())
	case "elif":
		s.branch(evalCond(rest, macros))
	case "elifdef":
		s.branch(definedCond(rest, macros))
	case "elifndef":
		s.branch(definedCond(rest, macros).not())
	case "else":
		s.branch(condTrue)
	case "endif":
		if len(*s) > 0 {
			*s = (*s)[:len(*s)-1]
		}
	}
}

func (s *condStack) push(c cond) {
	*s = append(*s, condFrame{outer: s.live(), cur: c, taken: c})
}

func (s *condStack) branch(c cond) {
	if len(*s) == 0 {
		return
	}
	f := &(*s)[len(*s)-1]
	f.cur = f.taken.not().and(c)
	f.taken = f.taken.or(c)
}

func macroCond(name string, macros map[string]bool) cond {
	defined, known := macros[name]
	switch {
	case !known:
		return condUnknown
	case defined:
		return condTrue
	}
	return condFalse
}

func definedCond(expr string, macros map[string]bool) cond {
	toks := condTokens(expr)
	if len(toks) == 0 {
		return condUnknown
	}
	return macroCond(toks[0], macros)
}

// evalCond evaluates an #if expression built from defined(), !, &&, ||,
// parentheses and integer literals. Anything else makes the result unknown.
func evalCond(expr string, macros map[string]bool) cond {
	p := &condParser{toks: condTokens(expr), macros: macros}
	c := p.or()
	if p.bad || p.pos != len(p.toks) {
		return condUnknown
	}
	return c
}

func condTokens(expr string) []string {
	var sc scanner.Scanner
	sc.Init(strings.NewReader(expr))
	sc.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanComments | scanner.SkipComments
	sc.Error = func(*scanner.Scanner, string) {}

	var toks []string
	for tok := sc.Scan(); tok != scanner.EOF; tok = sc.Scan() {
		text := sc.TokenText()
		if (tok == '|' || tok == '&') && sc.Peek() == tok {
			sc.Next()
			text += text
		}
		toks = append(toks, text)
	}
	return toks
}

type condParser struct {
	toks   []string
	pos    int
	macros map[string]bool
	bad    bool
}

func (p *condParser) peek() string {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return ""
}

func (p *condParser) next() string {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *condParser) or() cond {
	c := p.and()
	for p.peek() == "||" {
		p.pos++
		c = c.or(p.and())
	}
	return c
}

func (p *condParser) and() cond {
	c := p.unary()
	for p.peek() == "&&" {
		p.pos++
		c = c.and(p.unary())
	}
	return c
}

func (p *condParser) unary() cond {
	t := p.next()
	switch {
	case t == "!":
		return p.unary().not()
	case t == "(":
		c := p.or()
		if p.next() != ")" {
			p.bad = true
		}
		return c
	case t == "defined":
		paren := p.peek() == "("
		if paren {
			p.pos++
		}
		c := macroCond(p.next(), p.macros)
		if paren && p.next() != ")" {
			p.bad = true
		}
		return c
	case t != "" && t[0] >= '0' && t[0] <= '9':
		n, err := strconv.ParseInt(t, 0, 64)
		if err != nil {
			p.bad = true
			return condUnknown
		}
		if n == 0 {
			return condFalse
		}
		return condTrue
	case t != "" && isIdentStart(t[0]):
		// an undefined macro evaluates to 0
		if macroCond(t, p.macros) == condFalse {
			return condFalse
		}
		return condUnknown
	}
	p.bad = true
	return condUnknown
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
