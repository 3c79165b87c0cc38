package main

import (
	"os"
	"regexp"
	"strings"

	"timetracker-web/internal/cli"
)

var dayRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

func isDay(s string) bool {
	return dayRe.MatchString(strings.TrimSpace(s))
}

// rewriteDirectDayArgs makes `timetracker 2026-03-10` behave like
// `timetracker preview --day 2026-03-10`.
//
// Cobra treats the first non-flag token as a subcommand, so argv is
// rewritten before parsing. Users often pass persistent flags first
// (e.g. `timetracker --config ... 2026-03-10`), so the first positional
// token has to be found, not assumed to be argv[1].
func rewriteDirectDayArgs(argv []string) []string {
	if len(argv) < 2 {
		return argv
	}

	// Minimal persistent-flag awareness. Unknown flags are skipped
	// without consuming a value, so a date is never swallowed as one.
	valueFlags := map[string]bool{
		"--config": true,
		"--output": true,
	}
	boolFlags := map[string]bool{
		"--verbose": true,
	}

	rewrite := func(i int) []string {
		out := make([]string, 0, len(argv)+2)
		out = append(out, argv[:i]...)
		out = append(out, "preview", "--day")
		out = append(out, argv[i:]...)
		return out
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) && isDay(argv[i+1]) {
				return rewrite(i + 1)
			}
			return argv
		}
		if strings.HasPrefix(a, "-") {
			if strings.Contains(a, "=") || boolFlags[a] {
				continue
			}
			if valueFlags[a] {
				i++
				continue
			}
			continue
		}
		if isDay(a) {
			return rewrite(i)
		}
		return argv
	}
	return argv
}

func main() {
	os.Args = rewriteDirectDayArgs(os.Args)
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
