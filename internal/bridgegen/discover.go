package bridgegen

import (
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// Target is the platform the bindings are generated for.
type Target struct {
	GOOS   string
	GOARCH string
}

// HostTarget returns the target described by GOOS/GOARCH in environ, falling
// back to the running platform. go generate sets both variables.
func HostTarget(environ []string) Target {
	t := Target{GOOS: runtime.GOOS, GOARCH: runtime.GOARCH}
	for _, kv := range environ {
		if v, ok := strings.CutPrefix(kv, "GOOS="); ok && v != "" {
			t.GOOS = v
		}
		if v, ok := strings.CutPrefix(kv, "GOARCH="); ok && v != "" {
			t.GOARCH = v
		}
	}
	return t
}

// platformDirs maps GOOS/GOARCH to the platform directory names used under
// an installation's lib directory.
var platformDirs = map[Target]string{
	{"linux", "amd64"}:   "x86-64_linux",
	{"linux", "arm64"}:   "arm64_linux",
	{"linux", "ppc64le"}: "ppc64le_linux",
	{"linux", "s390x"}:   "s390x_linux",
	{"darwin", "amd64"}:  "x86-64_osx",
	{"darwin", "arm64"}:  "arm64_osx",
	{"windows", "amd64"}: "x64_windows_msvc14",
}

// Platform returns the vendor platform directory name for t, or "" when the
// platform is unknown.
func (t Target) Platform() string {
	return platformDirs[t]
}

func (t Target) String() string {
	return t.GOOS + "/" + t.GOARCH
}

// Installation is one SDK installation found on disk. Installations are
// only ever read.
type Installation struct {
	Root           string
	VersionSegment string // path element matched by the root glob wildcard
	Version        string // canonical semver, "" when unparseable
	IncludeDir     string
	LibDir         string // "" when no directory matched for the target
	Platform       string
}

// Eligible reports whether the installation can supply both headers and a
// library directory.
func (i *Installation) Eligible() bool {
	return i.IncludeDir != "" && i.LibDir != ""
}

// Discovery is the outcome of scanning for installations.
type Discovery struct {
	Candidates []*Installation
	Selected   *Installation

	// Problems are non-fatal discovery errors, one per candidate or pattern
	// that could not be resolved.
	Problems []*Error
}

// Discover enumerates installations matching cfg.RootGlob and selects the
// highest versioned eligible one. Per-candidate failures are logged and
// recorded in Problems; only ambiguity among the highest versions is
// returned as an error.
func Discover(cfg DiscoveryConfig, target Target, log *zap.Logger) (*Discovery, error) {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Discovery{}

	roots, err := filepath.Glob(cfg.RootGlob)
	if err != nil {
		d.problem(log, newError(StageDiscovery, KindGlob, "cannot expand root glob").
			withPath(cfg.RootGlob).withCause(err))
		return d, nil
	}
	slices.Sort(roots)

	segment := wildcardSegment(cfg.RootGlob)
	for _, root := range roots {
		inst := &Installation{
			Root:     root,
			Platform: target.Platform(),
		}
		inst.VersionSegment = pathSegment(root, segment)
		inst.Version = ParseVersion(inst.VersionSegment)
		d.Candidates = append(d.Candidates, inst)

		d.resolveInclude(inst, cfg.IncludeDir, log)
		d.resolveLib(inst, cfg.LibGlob, target, log)

		log.Debug("installation candidate",
			zap.String("root", inst.Root),
			zap.String("version", inst.Version),
			zap.String("include_dir", inst.IncludeDir),
			zap.String("lib_dir", inst.LibDir))
	}

	if err := d.selectHighest(); err != nil {
		return d, err
	}
	if d.Selected == nil {
		log.Warn("no usable installation found; bindings will be generated from whitelist declarations and linking will fail",
			zap.String("root_glob", cfg.RootGlob),
			zap.Int("candidates", len(d.Candidates)))
	} else {
		log.Info("selected installation",
			zap.String("root", d.Selected.Root),
			zap.String("version", d.Selected.Version),
			zap.String("platform", d.Selected.Platform))
	}
	return d, nil
}

func (d *Discovery) problem(log *zap.Logger, err *Error) {
	log.Warn("discovery problem", zap.Error(err))
	d.Problems = append(d.Problems, err)
}

func (d *Discovery) resolveInclude(inst *Installation, includeDir string, log *zap.Logger) {
	dir := filepath.Join(inst.Root, includeDir)
	info, err := os.Stat(dir)
	switch {
	case err != nil:
		d.problem(log, newError(StageDiscovery, KindUnreadable, "include directory unavailable").
			withPath(dir).withCause(err))
	case !info.IsDir():
		d.problem(log, newError(StageDiscovery, KindInvalid, "include path is not a directory").withPath(dir))
	default:
		inst.IncludeDir = dir
	}
}

func (d *Discovery) resolveLib(inst *Installation, libGlob string, target Target, log *zap.Logger) {
	pattern := filepath.Join(inst.Root, libGlob)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		d.problem(log, newError(StageDiscovery, KindGlob, "cannot expand library glob").
			withPath(pattern).withCause(err))
		return
	}

	var dirs []string
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.IsDir() {
			dirs = append(dirs, m)
		}
	}
	slices.Sort(dirs)

	platform := target.Platform()
	if platform == "" {
		// Unknown triple: only an unambiguous single match is usable.
		switch len(dirs) {
		case 1:
			inst.LibDir = dirs[0]
		case 0:
			d.problem(log, newError(StageDiscovery, KindNotFound, "no library directory matched").withPath(pattern))
		default:
			d.problem(log, newError(StageDiscovery, KindAmbiguous,
				"%d library directories matched and %s has no known platform directory", len(dirs), target).
				withPath(pattern))
		}
		return
	}

	for _, dir := range dirs {
		if hasPathElement(dir, inst.Root, platform) {
			inst.LibDir = dir
			return
		}
	}
	d.problem(log, newError(StageDiscovery, KindNotFound,
		"no library directory for platform %s (%s)", platform, target).withPath(pattern))
}

// selectHighest picks the eligible candidate with the highest version. Two
// eligible candidates sharing the highest version key are ambiguous.
func (d *Discovery) selectHighest() error {
	var eligible []*Installation
	for _, c := range d.Candidates {
		if c.Eligible() {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	slices.SortStableFunc(eligible, func(a, b *Installation) int {
		return -compareVersions(a, b)
	})
	if len(eligible) > 1 && compareVersions(eligible[0], eligible[1]) == 0 {
		return newError(StageDiscovery, KindAmbiguous,
			"installations %s and %s have the same version %q",
			eligible[0].Root, eligible[1].Root, eligible[0].Version)
	}
	d.Selected = eligible[0]
	return nil
}

// wildcardSegment returns the index of the first path element of pattern
// that contains glob metacharacters, or -1.
func wildcardSegment(pattern string) int {
	for i, elem := range splitPath(pattern) {
		if strings.ContainsAny(elem, `*?[`) {
			return i
		}
	}
	return -1
}

// pathSegment returns the element of path at index. Without a wildcard the
// innermost element carrying a version is used instead.
func pathSegment(path string, index int) string {
	elems := splitPath(path)
	if index >= 0 && index < len(elems) {
		return elems[index]
	}
	for i := len(elems) - 1; i >= 0; i-- {
		if ParseVersion(elems[i]) != "" {
			return elems[i]
		}
	}
	return filepath.Base(path)
}

func splitPath(p string) []string {
	return strings.Split(filepath.ToSlash(filepath.Clean(p)), "/")
}

func hasPathElement(dir, root, elem string) bool {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return false
	}
	return slices.Contains(splitPath(rel), elem)
}
