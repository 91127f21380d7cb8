package benchcmp

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrNoGlob           = errors.New("both suites need a file glob")
	ErrValueCannotBeNil = errors.New("value cannot be nil")
)

const DefaultOutput = "benchcmp.png"

// Suite describes one benchmarked implementation: where its output files
// live, how its benchmark names are prefixed and how it is labelled in
// the chart legend.
type Suite struct {
	Name   string
	Glob   string
	Prefix string
}

// Measurement is a single benchmark result extracted from one line of
// `go test -bench` output. The name carries no "Benchmark" prefix and no
// GOMAXPROCS suffix.
type Measurement struct {
	Name    string
	NsPerOp float64
}

var benchLine = regexp.MustCompile(`^Benchmark(\w+)-\d+\s+\d+\s+([0-9.]+) ns/op`)

// ParseLine extracts a Measurement from one line of benchmark output.
// The boolean reports whether the line is a benchmark result line at all;
// headers, PASS markers, blank lines and other noise are not errors, they
// are simply not measurements.
func ParseLine(line string) (Measurement, bool) {
	m := benchLine.FindStringSubmatch(line)
	if m == nil {
		return Measurement{}, false
	}
	nsPerOp, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Measurement{}, false
	}
	return Measurement{Name: m[1], NsPerOp: nsPerOp}, true
}

// Collect reads every file matched by pattern and groups the ns/op values
// it finds by benchmark name. A pattern matching no files yields an empty
// mapping; a file that cannot be read is an error.
func Collect(pattern string) (map[string][]float64, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	groups := map[string][]float64{}
	for _, path := range paths {
		if err := collectFile(path, groups); err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}
	return groups, nil
}

func collectFile(path string, groups map[string][]float64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m, ok := ParseLine(scanner.Text())
		if !ok {
			continue
		}
		groups[m.Name] = append(groups[m.Name], m.NsPerOp)
	}
	return scanner.Err()
}

// Aggregate reduces every group of ns/op values to its arithmetic mean.
// Collect never produces an empty group, so no key is lost here.
func Aggregate(groups map[string][]float64) map[string]float64 {
	means := make(map[string]float64, len(groups))
	for name, values := range groups {
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		means[name] = sum / float64(len(values))
	}
	return means
}

// Match returns the sorted benchmark names present in both suites once
// each suite's prefix is stripped. Suite A is the primary side: a name
// present only in b is never surfaced. Keys of a that do not carry
// prefixA are not candidates, which keeps every returned name resolvable
// in both mappings after re-prefixing.
func Match(prefixA string, a map[string]float64, prefixB string, b map[string]float64) []string {
	seen := map[string]bool{}
	names := []string{}
	for k := range a {
		n, ok := strings.CutPrefix(k, prefixA)
		if !ok || seen[n] {
			continue
		}
		if _, ok := b[prefixB+n]; !ok {
			continue
		}
		seen[n] = true
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Comparer runs the whole comparison: collect both suites, average the
// repeated runs, match the common benchmarks and write the chart.
type Comparer struct {
	suiteA, suiteB Suite
	output         string
	title          string
	stdout, stderr io.Writer
}

type Option func(*Comparer) error

func NewComparer(opts ...Option) (*Comparer, error) {
	comparer := &Comparer{
		output: DefaultOutput,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, o := range opts {
		err := o(comparer)
		if err != nil {
			return nil, err
		}
	}
	if comparer.suiteA.Glob == "" || comparer.suiteB.Glob == "" {
		return nil, ErrNoGlob
	}
	if comparer.suiteA.Name == "" {
		comparer.suiteA.Name = suiteName(comparer.suiteA.Prefix, "suite A")
	}
	if comparer.suiteB.Name == "" {
		comparer.suiteB.Name = suiteName(comparer.suiteB.Prefix, "suite B")
	}
	if comparer.title == "" {
		comparer.title = fmt.Sprintf("Benchmark Comparison: %s vs %s (averaged over multiple runs)",
			comparer.suiteA.Name, comparer.suiteB.Name)
	}
	return comparer, nil
}

func suiteName(prefix, fallback string) string {
	name := strings.TrimSuffix(prefix, "_")
	if name == "" {
		return fallback
	}
	return name
}

func WithSuiteA(s Suite) Option {
	return func(c *Comparer) error {
		c.suiteA = s
		return nil
	}
}

func WithSuiteB(s Suite) Option {
	return func(c *Comparer) error {
		c.suiteB = s
		return nil
	}
}

func WithOutput(path string) Option {
	return func(c *Comparer) error {
		c.output = path
		return nil
	}
}

func WithTitle(title string) Option {
	return func(c *Comparer) error {
		c.title = title
		return nil
	}
}

func WithStdout(w io.Writer) Option {
	return func(c *Comparer) error {
		if w == nil {
			return ErrValueCannotBeNil
		}
		c.stdout = w
		return nil
	}
}

func WithStderr(w io.Writer) Option {
	return func(c *Comparer) error {
		if w == nil {
			return ErrValueCannotBeNil
		}
		c.stderr = w
		return nil
	}
}

func WithInputsFromArgs(args []string) Option {
	return func(c *Comparer) error {
		fset := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
		fset.SetOutput(c.stderr)
		aGlob := fset.String("suite-a-glob", "", "glob matching the first suite's benchmark output files")
		aPrefix := fset.String("suite-a-prefix", "", "benchmark name prefix identifying the first suite")
		aName := fset.String("suite-a-name", "", "legend label for the first suite (defaults to the prefix)")
		bGlob := fset.String("suite-b-glob", "", "glob matching the second suite's benchmark output files")
		bPrefix := fset.String("suite-b-prefix", "", "benchmark name prefix identifying the second suite")
		bName := fset.String("suite-b-name", "", "legend label for the second suite (defaults to the prefix)")
		output := fset.String("output", DefaultOutput, "path of the PNG chart to write")
		title := fset.String("title", "", "chart title")
		err := fset.Parse(args)
		if err != nil {
			return err
		}
		c.suiteA = Suite{Name: *aName, Glob: *aGlob, Prefix: *aPrefix}
		c.suiteB = Suite{Name: *bName, Glob: *bGlob, Prefix: *bPrefix}
		c.output = *output
		c.title = *title
		return nil
	}
}

func (c Comparer) SuiteA() Suite {
	return c.suiteA
}

func (c Comparer) SuiteB() Suite {
	return c.suiteB
}

func (c Comparer) Output() string {
	return c.output
}

func (c Comparer) Title() string {
	return c.title
}

func (c Comparer) LogFStdOut(msg string, opts ...interface{}) {
	fmt.Fprintf(c.stdout, msg, opts...)
}

// Run executes the pipeline and writes the chart to the configured
// output path.
func (c *Comparer) Run() error {
	groupsA, err := Collect(c.suiteA.Glob)
	if err != nil {
		return err
	}
	groupsB, err := Collect(c.suiteB.Glob)
	if err != nil {
		return err
	}
	meansA := Aggregate(groupsA)
	meansB := Aggregate(groupsB)
	matched := Match(c.suiteA.Prefix, meansA, c.suiteB.Prefix, meansB)
	p, err := Chart(matched, c.suiteA, meansA, c.suiteB, meansB, c.title)
	if err != nil {
		return err
	}
	err = p.Save(ChartWidth, ChartHeight, c.output)
	if err != nil {
		return err
	}
	c.LogFStdOut("compared %d benchmarks, chart written to %s\n", len(matched), c.output)
	return nil
}

// RunCLI is the entry point used by cmd/benchcmp.
func RunCLI(args []string) error {
	comparer, err := NewComparer(WithInputsFromArgs(args))
	if err != nil {
		return err
	}
	return comparer.Run()
}
