package bridgegen

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/scanner"

	"go.uber.org/zap"
)

// DeclKind classifies a top-level C declaration.
type DeclKind int

const (
	DeclTypedef DeclKind = iota + 1
	DeclTag              // struct, union or enum definition with a body
	DeclFunction
)

func (k DeclKind) String() string {
	switch k {
	case DeclTypedef:
		return "typedef"
	case DeclTag:
		return "tag"
	case DeclFunction:
		return "function"
	default:
		return "unknown"
	}
}

// Decl is one declaration found in a header.
type Decl struct {
	Kind  DeclKind
	Names []string // typedef names, "struct x" for tags, the function name
	Text  string   // C source of the declaration, ending in ';'
	Refs  []string // typedef names and tags the declaration's types use
	Func  *FuncSig // set for DeclFunction
	Pos   string   // file:line of the first token

	order int
}

// CType is a parsed C type as far as the generator needs it.
type CType struct {
	Base    string // "int", "unsigned long", "CPXENVptr", "struct cpxenv", "void"
	Ptr     int
	FuncPtr bool
}

// Param is one function parameter. Name may be empty.
type Param struct {
	Name string
	Type CType
}

// FuncSig is the signature of a function prototype.
type FuncSig struct {
	Name     string
	Result   CType
	Params   []Param
	Variadic bool
}

// HeaderFile records one scanned header and its content digest.
type HeaderFile struct {
	Path   string `yaml:"path"`
	SHA256 string `yaml:"sha256"`
}

// SymbolTable holds declarations from every scanned header in scan order.
// The first declaration of a name wins.
type SymbolTable struct {
	decls    []*Decl
	byName   map[string]*Decl
	shadowed map[string][]*Decl
	Files    []HeaderFile
}

// NewSymbolTable returns an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		byName:   make(map[string]*Decl),
		shadowed: make(map[string][]*Decl),
	}
}

// Lookup returns the declaration of name, or nil.
func (t *SymbolTable) Lookup(name string) *Decl {
	return t.byName[name]
}

// Shadowed returns the later declarations of name that lost to the one
// Lookup returns. Headers only redeclare a name in preprocessor branches the
// scanner could not evaluate.
func (t *SymbolTable) Shadowed(name string) []*Decl {
	return t.shadowed[name]
}

// Len returns the number of recorded declarations.
func (t *SymbolTable) Len() int {
	return len(t.decls)
}

func (t *SymbolTable) add(d *Decl) {
	d.order = len(t.decls)
	t.decls = append(t.decls, d)
	for _, name := range d.Names {
		if _, ok := t.byName[name]; ok {
			t.shadowed[name] = append(t.shadowed[name], d)
			continue
		}
		t.byName[name] = d
	}
}

// builtinStrip are compiler extensions removed from every header.
var builtinStrip = []string{
	"__attribute__", "__declspec", "__extension__",
	"__cdecl", "__stdcall", "__restrict", "__restrict__", "__inline",
}

var cKeywords = map[string]bool{
	"auto": true, "break": true, "case": true, "char": true, "const": true,
	"continue": true, "default": true, "do": true, "double": true, "else": true,
	"enum": true, "extern": true, "float": true, "for": true, "goto": true,
	"if": true, "inline": true, "int": true, "long": true, "register": true,
	"restrict": true, "return": true, "short": true, "signed": true, "sizeof": true,
	"static": true, "struct": true, "switch": true, "typedef": true, "union": true,
	"unsigned": true, "void": true, "volatile": true, "while": true, "_Bool": true,
}

var scalarWords = map[string]bool{
	"void": true, "char": true, "short": true, "int": true, "long": true,
	"float": true, "double": true, "signed": true, "unsigned": true, "_Bool": true,
}

var includeRe = regexp.MustCompile(`^\s*#\s*include\s*([<"])([^>"]+)[>"]`)

// HeaderScanner reads C headers into a SymbolTable. It understands the subset
// of C that vendor API headers are written in: typedefs, struct/union/enum
// definitions and function prototypes.
//
// Preprocessor conditionals are evaluated as far as Macros decides them
// (see Target.Macros). Branches that depend on anything else are all
// scanned, the first declaration wins, and the losers are kept in
// SymbolTable.Shadowed.
type HeaderScanner struct {
	Table       *SymbolTable
	IncludeDirs []string
	Macros      map[string]bool // known macros: true when defined

	strip   map[string]bool
	visited map[string]bool
	log     *zap.Logger
}

// NewHeaderScanner returns a scanner that strips the given macros, plus the
// common compiler extensions, from declarations.
func NewHeaderScanner(includeDirs, stripMacros []string, log *zap.Logger) *HeaderScanner {
	if log == nil {
		log = zap.NewNop()
	}
	s := &HeaderScanner{
		Table:       NewSymbolTable(),
		IncludeDirs: includeDirs,
		strip:       make(map[string]bool),
		visited:     make(map[string]bool),
		log:         log,
	}
	for _, m := range append(builtinStrip, stripMacros...) {
		s.strip[m] = true
	}
	return s
}

// ScanFile scans a header and, recursively, any header it includes that
// resolves inside the include directories.
func (s *HeaderScanner) ScanFile(path string) error {
	path = filepath.Clean(path)
	if s.visited[path] {
		return nil
	}
	s.visited[path] = true

	data, err := os.ReadFile(path)
	if err != nil {
		return newError(StageCodegen, KindUnreadable, "cannot read header").withPath(path).withCause(err)
	}
	sum := sha256.Sum256(data)
	s.Table.Files = append(s.Table.Files, HeaderFile{Path: path, SHA256: hex.EncodeToString(sum[:])})

	s.log.Debug("scanning header", zap.String("path", path))
	return s.scan(path, string(data))
}

// ScanSource scans in-memory declarations under a pseudo file name. Includes
// are ignored.
func (s *HeaderScanner) ScanSource(name, src string) error {
	return s.scan(name, src)
}

func (s *HeaderScanner) scan(name, src string) error {
	toks, err := tokenize(name, src, s.Macros)
	if err != nil {
		return err
	}
	return s.split(name, s.stripMacros(toks))
}

type ctoken struct {
	text    string
	tok     rune
	line    int
	adj     bool   // no whitespace before this token in the source
	include string // set for include markers
	quoted  bool
}

// tokenize blanks out preprocessor lines and branches excluded by macros,
// turns live #include directives into marker tokens, and lexes the rest with
// text/scanner. Lines inside block comments are never directives.
func tokenize(name, src string, macros map[string]bool) ([]ctoken, error) {
	lines := strings.Split(src, "\n")

	var (
		toks      []ctoken
		chunk     strings.Builder
		chunkAt   = 1
		errs      []string
		directive strings.Builder
		inDirect  bool
		inComment bool // open block comment the lexer sees
		hidden    bool // open block comment that started on a blanked line
		conds     condStack
	)

	flush := func(nextLine int) {
		if chunk.Len() > 0 {
			toks = append(toks, lexChunk(name, chunk.String(), chunkAt, &errs)...)
			chunk.Reset()
		}
		chunkAt = nextLine
	}

	for i, line := range lines {
		lineNo := i + 1

		if hidden {
			// the rest of the line still belongs to the directive or the
			// skipped branch the comment started in
			if end := strings.Index(line, "*/"); end >= 0 {
				hidden = commentOpen(line[end+2:], false)
			}
			chunk.WriteByte('\n')
			continue
		}
		if inComment {
			inComment = commentOpen(line, true)
			chunk.WriteString(line)
			chunk.WriteByte('\n')
			continue
		}

		trimmed := strings.TrimSpace(line)
		if inDirect || strings.HasPrefix(trimmed, "#") {
			directive.WriteString(strings.TrimSuffix(trimmed, `\`))
			directive.WriteByte(' ')
			inDirect = strings.HasSuffix(trimmed, `\`)
			if !inDirect {
				text := directive.String()
				directive.Reset()
				if m := includeRe.FindStringSubmatch(text); m != nil {
					if conds.live() {
						flush(lineNo)
						toks = append(toks, ctoken{include: m[2], quoted: m[1] == `"`, line: lineNo})
					}
				} else {
					conds.apply(text, macros)
				}
			}
			hidden = commentOpen(line, false)
			chunk.WriteByte('\n')
			continue
		}

		if !conds.live() {
			hidden = commentOpen(line, false)
			chunk.WriteByte('\n')
			continue
		}
		inComment = commentOpen(line, false)
		chunk.WriteString(line)
		chunk.WriteByte('\n')
	}
	flush(len(lines) + 1)

	if len(errs) > 0 {
		return nil, newError(StageCodegen, KindParse, "%s", strings.Join(errs, "; ")).withPath(name)
	}
	return toks, nil
}

// commentOpen reports whether line ends inside a block comment. in tells
// whether it starts inside one.
func commentOpen(line string, in bool) bool {
	for i := 0; i < len(line); i++ {
		if in {
			if strings.HasPrefix(line[i:], "*/") {
				in = false
				i++
			}
			continue
		}
		switch c := line[i]; {
		case strings.HasPrefix(line[i:], "/*"):
			in = true
			i++
		case strings.HasPrefix(line[i:], "//"):
			return false
		case c == '"' || c == '\'':
			for i++; i < len(line) && line[i] != c; i++ {
				if line[i] == '\\' {
					i++
				}
			}
		}
	}
	return in
}

func lexChunk(name, text string, firstLine int, errs *[]string) []ctoken {
	var sc scanner.Scanner
	sc.Init(strings.NewReader(text))
	sc.Filename = name
	sc.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats |
		scanner.ScanChars | scanner.ScanStrings | scanner.ScanComments | scanner.SkipComments
	sc.Error = func(s *scanner.Scanner, msg string) {
		*errs = append(*errs, fmt.Sprintf("%s:%d: %s", name, s.Pos().Line+firstLine-1, msg))
	}

	var (
		out     []ctoken
		prevEnd = -1
	)
	for tok := sc.Scan(); tok != scanner.EOF; tok = sc.Scan() {
		lit := sc.TokenText()
		out = append(out, ctoken{
			text: lit,
			tok:  tok,
			line: sc.Position.Line + firstLine - 1,
			adj:  sc.Position.Offset == prevEnd,
		})
		prevEnd = sc.Position.Offset + len(lit)
	}
	return out
}

// stripMacros drops configured macro names and, when one is followed by an
// argument list, the list as well.
func (s *HeaderScanner) stripMacros(toks []ctoken) []ctoken {
	out := toks[:0:0]
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.tok != scanner.Ident || !s.strip[t.text] {
			out = append(out, t)
			continue
		}
		if i+1 < len(toks) && toks[i+1].text == "(" {
			i += len(groupAt(toks, i+1)) + 2
		}
		if i+1 < len(toks) {
			toks[i+1].adj = false
		}
	}
	return out
}

// split cuts the token stream into top-level declarations.
func (s *HeaderScanner) split(name string, toks []ctoken) error {
	var (
		cur         []ctoken
		depth       int
		transparent int
	)

	for i := 0; i < len(toks); i++ {
		t := toks[i]

		if t.include != "" {
			if err := s.follow(name, t); err != nil {
				return err
			}
			continue
		}

		if t.text == "extern" && i+1 < len(toks) && toks[i+1].tok == scanner.String {
			if depth == 0 && len(cur) == 0 && i+2 < len(toks) && toks[i+2].text == "{" {
				transparent++
				i += 2
				continue
			}
			i++
			continue
		}
		if t.text == "}" && depth == 0 && len(cur) == 0 && transparent > 0 {
			transparent--
			continue
		}

		switch t.text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
			if depth < 0 {
				return newError(StageCodegen, KindParse, "unbalanced %q at line %d", t.text, t.line).withPath(name)
			}
		}
		cur = append(cur, t)

		switch {
		case depth == 0 && t.text == ";":
			s.addDecl(name, cur[:len(cur)-1])
			cur = nil
		case depth == 0 && t.text == "}" && isFunctionBody(cur):
			// inline definition; not part of the binary interface
			cur = nil
		}
	}

	if depth != 0 || len(cur) != 0 || transparent != 0 {
		line := 0
		if len(toks) > 0 {
			line = toks[len(toks)-1].line
		}
		return newError(StageCodegen, KindParse, "unterminated declaration at end of input (line %d)", line).withPath(name)
	}
	return nil
}

func (s *HeaderScanner) follow(from string, t ctoken) error {
	var candidates []string
	if t.quoted && !strings.HasPrefix(from, "<") {
		candidates = append(candidates, filepath.Join(filepath.Dir(from), t.include))
	}
	for _, dir := range s.IncludeDirs {
		candidates = append(candidates,
			filepath.Join(dir, t.include),
			filepath.Join(filepath.Dir(dir), t.include))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return s.ScanFile(c)
		}
	}
	s.log.Debug("include not followed", zap.String("from", from), zap.String("include", t.include))
	return nil
}

func isFunctionBody(toks []ctoken) bool {
	depth := 0
	for i, t := range toks {
		switch t.text {
		case "{":
			if depth == 0 {
				return i > 0 && toks[i-1].text == ")"
			}
			depth++
		case "(", "[":
			depth++
		case ")", "]", "}":
			depth--
		}
	}
	return false
}

func (s *HeaderScanner) addDecl(file string, toks []ctoken) {
	for len(toks) > 0 && toks[0].text == "extern" {
		toks = toks[1:]
	}
	if len(toks) == 0 {
		return
	}
	pos := fmt.Sprintf("%s:%d", file, toks[0].line)

	switch {
	case toks[0].text == "typedef":
		names := typedefNames(toks[1:])
		if len(names) == 0 {
			return
		}
		s.Table.add(&Decl{
			Kind:  DeclTypedef,
			Names: names,
			Text:  joinTokens(toks) + ";",
			Refs:  declRefs(toks, names),
			Pos:   pos,
		})

	case isTagKeyword(toks[0].text):
		if len(toks) < 3 || toks[1].tok != scanner.Ident || toks[2].text != "{" || toks[len(toks)-1].text != "}" {
			// forward declarations, anonymous tags and variables
			return
		}
		name := toks[0].text + " " + toks[1].text
		s.Table.add(&Decl{
			Kind:  DeclTag,
			Names: []string{name},
			Text:  joinTokens(toks) + ";",
			Refs:  declRefs(toks, []string{name}),
			Pos:   pos,
		})

	default:
		sig, ok := parsePrototype(toks)
		if !ok {
			return
		}
		s.Table.add(&Decl{
			Kind:  DeclFunction,
			Names: []string{sig.Name},
			Text:  joinTokens(toks) + ";",
			Refs:  declRefs(toks, []string{sig.Name}),
			Func:  sig,
			Pos:   pos,
		})
	}
}

func isTagKeyword(s string) bool {
	return s == "struct" || s == "union" || s == "enum"
}

// typedefNames returns the names declared by the declarators of a typedef
// (tokens after the typedef keyword).
func typedefNames(toks []ctoken) []string {
	var names []string
	for _, seg := range splitTop(toks, ",") {
		if name := declaratorName(seg); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// declaratorName finds the identifier a declarator introduces.
func declaratorName(toks []ctoken) string {
	if open := indexTop(toks, "("); open >= 0 {
		group := groupAt(toks, open)
		if containsText(group, "*") || containsText(group, "^") {
			return lastIdent(group)
		}
		if open > 0 && toks[open-1].tok == scanner.Ident && !cKeywords[toks[open-1].text] {
			return toks[open-1].text
		}
		// parenthesized name: typedef int (NAME)(int);
		return lastIdent(group)
	}

	depth := 0
	name := ""
	for _, t := range toks {
		switch t.text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		default:
			if depth == 0 && t.tok == scanner.Ident && !cKeywords[t.text] {
				name = t.text
			}
		}
	}
	return name
}

// parsePrototype recognizes a function prototype. Function pointer variables
// and other declarations report false.
func parsePrototype(toks []ctoken) (*FuncSig, bool) {
	open := indexTop(toks, "(")
	if open < 1 {
		return nil, false
	}
	nameTok := toks[open-1]
	if nameTok.tok != scanner.Ident || cKeywords[nameTok.text] {
		return nil, false
	}
	closeAt := open + len(groupAt(toks, open)) + 1
	if closeAt != len(toks)-1 {
		// trailing tokens after the parameter list, e.g. a pointer-returning
		// function pointer; not supported
		return nil, false
	}

	var resultToks []ctoken
	for _, t := range toks[:open-1] {
		if t.text == "static" || t.text == "inline" {
			continue
		}
		resultToks = append(resultToks, t)
	}
	result, rname, err := parseCType(resultToks)
	if err != nil || rname != "" {
		return nil, false
	}

	sig := &FuncSig{Name: nameTok.text, Result: result}
	params := groupAt(toks, open)
	if len(params) == 0 || (len(params) == 1 && params[0].text == "void") {
		return sig, true
	}
	for _, seg := range splitTop(params, ",") {
		if isEllipsis(seg) {
			sig.Variadic = true
			continue
		}
		typ, name, err := parseCType(seg)
		if err != nil {
			return nil, false
		}
		sig.Params = append(sig.Params, Param{Name: name, Type: typ})
	}
	return sig, true
}

func isEllipsis(toks []ctoken) bool {
	if len(toks) != 3 {
		return false
	}
	for _, t := range toks {
		if t.text != "." {
			return false
		}
	}
	return true
}

// parseCType parses a parameter or result type with an optional name.
func parseCType(toks []ctoken) (CType, string, error) {
	if open := indexTop(toks, "("); open >= 0 {
		group := groupAt(toks, open)
		if !containsText(group, "*") {
			return CType{}, "", fmt.Errorf("unsupported declarator %q", joinTokens(toks))
		}
		return CType{FuncPtr: true}, lastIdent(group), nil
	}

	var (
		typ   CType
		words []string
	)
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		switch {
		case t.text == "*":
			typ.Ptr++
		case t.text == "[":
			typ.Ptr++
			for i < len(toks) && toks[i].text != "]" {
				i++
			}
		case t.text == "const" || t.text == "volatile" || t.text == "register" || t.text == "restrict":
		case t.tok == scanner.Ident:
			words = append(words, t.text)
		default:
			return CType{}, "", fmt.Errorf("unexpected %q in type", t.text)
		}
	}
	if len(words) == 0 {
		return CType{}, "", fmt.Errorf("missing type")
	}

	var rest []string
	switch {
	case isTagKeyword(words[0]):
		if len(words) < 2 {
			return CType{}, "", fmt.Errorf("tag without name")
		}
		typ.Base = words[0] + " " + words[1]
		rest = words[2:]
	case scalarWords[words[0]]:
		n := 0
		for n < len(words) && scalarWords[words[n]] {
			n++
		}
		typ.Base = normalizeScalar(words[:n])
		rest = words[n:]
	default:
		typ.Base = words[0]
		rest = words[1:]
	}

	switch len(rest) {
	case 0:
		return typ, "", nil
	case 1:
		return typ, rest[0], nil
	default:
		return CType{}, "", fmt.Errorf("cannot parse type %q", strings.Join(words, " "))
	}
}

// normalizeScalar folds the spellings of builtin types onto one name each,
// e.g. "long int" -> "long", "unsigned" -> "unsigned int".
func normalizeScalar(words []string) string {
	var (
		unsigned, signed bool
		longs            int
		base             string
	)
	for _, w := range words {
		switch w {
		case "unsigned":
			unsigned = true
		case "signed":
			signed = true
		case "long":
			longs++
		case "int":
			if base == "" {
				base = "int"
			}
		default:
			base = w
		}
	}

	switch {
	case longs == 1 && base == "double":
		base = "long double"
	case longs == 1:
		base = "long"
	case longs >= 2:
		base = "long long"
	case base == "":
		base = "int"
	}

	switch {
	case unsigned:
		return "unsigned " + base
	case signed && base == "char":
		return "signed char"
	default:
		return base
	}
}

// declRefs lists the type names a declaration depends on: the typedef name
// or tag in its specifiers and, recursively, those of its parameters and
// members. Declarator names, parameter names and own are not references.
func declRefs(toks []ctoken, own []string) []string {
	r := &refCollector{skip: make(map[string]bool, len(own)), seen: make(map[string]bool)}
	for _, n := range own {
		r.skip[n] = true
	}
	r.declaration(toks)
	return r.refs
}

type refCollector struct {
	skip, seen map[string]bool
	refs       []string
}

func (r *refCollector) add(name string) {
	if !r.skip[name] && !r.seen[name] {
		r.seen[name] = true
		r.refs = append(r.refs, name)
	}
}

// declaration walks "specifiers declarator, declarator, ...".
func (r *refCollector) declaration(toks []ctoken) {
	for i, seg := range splitTop(toks, ",") {
		if i == 0 {
			seg = r.specifiers(seg)
		}
		r.declarator(seg)
	}
}

// specifiers records the type named at the front of toks and returns the
// declarator that follows it.
func (r *refCollector) specifiers(toks []ctoken) []ctoken {
	scalar := false
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		switch {
		case isTagKeyword(t.text):
			j, name := i+1, ""
			if j < len(toks) && toks[j].tok == scanner.Ident {
				name = t.text + " " + toks[j].text
				j++
			}
			if j < len(toks) && toks[j].text == "{" {
				body := groupAt(toks, j)
				if t.text != "enum" {
					for _, member := range splitTop(body, ";") {
						r.declaration(member)
					}
				}
				return toks[min(j+len(body)+2, len(toks)):]
			}
			if name != "" {
				r.add(name)
			}
			return toks[j:]
		case t.tok != scanner.Ident:
			return toks[i:]
		case scalarWords[t.text]:
			scalar = true
		case cKeywords[t.text]:
			// qualifiers and storage classes
		case scalar:
			return toks[i:]
		default:
			r.add(t.text)
			return toks[i+1:]
		}
	}
	return nil
}

// declarator descends into the parameter lists of a declarator.
func (r *refCollector) declarator(toks []ctoken) {
	for i := 0; i < len(toks); i++ {
		switch toks[i].text {
		case "(":
			group := groupAt(toks, i)
			if i > 0 && (toks[i-1].tok == scanner.Ident || toks[i-1].text == ")") {
				r.params(group)
			} else {
				r.declarator(group)
			}
			i += len(group) + 1
		case "[":
			i += len(groupAt(toks, i)) + 1
		}
	}
}

func (r *refCollector) params(toks []ctoken) {
	for _, seg := range splitTop(toks, ",") {
		if len(seg) == 0 || isEllipsis(seg) {
			continue
		}
		r.declarator(r.specifiers(seg))
	}
}

// joinTokens renders tokens back to C, keeping a single space wherever the
// source had whitespace.
func joinTokens(toks []ctoken) string {
	var b strings.Builder
	for i, t := range toks {
		if i > 0 && !t.adj {
			b.WriteByte(' ')
		}
		b.WriteString(t.text)
	}
	return b.String()
}

func splitTop(toks []ctoken, sep string) [][]ctoken {
	var (
		out   [][]ctoken
		start int
		depth int
	)
	for i, t := range toks {
		switch t.text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		case sep:
			if depth == 0 {
				out = append(out, toks[start:i])
				start = i + 1
			}
		}
	}
	return append(out, toks[start:])
}

func indexTop(toks []ctoken, text string) int {
	depth := 0
	for i, t := range toks {
		if depth == 0 && t.text == text {
			return i
		}
		switch t.text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		}
	}
	return -1
}

// groupAt returns the tokens strictly inside the bracket group opened at i.
func groupAt(toks []ctoken, i int) []ctoken {
	depth := 0
	for j := i; j < len(toks); j++ {
		switch toks[j].text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
			if depth == 0 {
				return toks[i+1 : j]
			}
		}
	}
	return toks[i+1:]
}

func containsText(toks []ctoken, text string) bool {
	for _, t := range toks {
		if t.text == text {
			return true
		}
	}
	return false
}

func lastIdent(toks []ctoken) string {
	for i := len(toks) - 1; i >= 0; i-- {
		if toks[i].tok == scanner.Ident && !cKeywords[toks[i].text] {
			return toks[i].text
		}
	}
	return ""
}
