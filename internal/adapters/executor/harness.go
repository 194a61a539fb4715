package executor

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/okian/duel/internal/domain/problems"
)

// ErrUnsupportedValue is returned for test values with no Python literal.
var ErrUnsupportedValue = errors.New("unsupported test value")

const harnessTemplate = `%s

def _duel_norm(v):
    if isinstance(v, tuple):
        return list(v)
    return v

if __name__ == "__main__":
    _duel_cases = [
%s
    ]
    for _duel_i, (_duel_args, _duel_exp) in enumerate(_duel_cases, 1):
        try:
            _duel_got = _duel_norm(%s(*_duel_args))
            _duel_ok = %s
            print(f"[%s] Test {_duel_i}: {'PASS' if _duel_ok else 'FAIL'} (got={_duel_got!r}, expected={_duel_exp!r})")
        except Exception as _duel_e:
            print(f"[%s] Test {_duel_i}: ERROR ({_duel_e})")
`

// Harness renders a Python program that runs code against every case of def
// and prints one tagged line per case.
func Harness(def problems.Definition, code, tag string) (string, error) { //nolint:gocritic // hugeParam: definitions are read-only
	rows := make([]string, 0, len(def.Cases))
	for i, c := range def.Cases {
		args := make([]string, 0, len(c.Args))
		for _, a := range c.Args {
			lit, err := pyLiteral(a)
			if err != nil {
				return "", fmt.Errorf("case %d: %w", i+1, err)
			}
			args = append(args, lit)
		}
		exp, err := pyLiteral(c.Expected)
		if err != nil {
			return "", fmt.Errorf("case %d: %w", i+1, err)
		}
		rows = append(rows, fmt.Sprintf("        ((%s,), %s),", strings.Join(args, ", "), exp))
	}

	cmp := "_duel_got == _duel_exp"
	if def.Compare == problems.CompareUnordered {
		cmp = "isinstance(_duel_got, list) and sorted(_duel_got) == sorted(_duel_exp)"
	}

	return fmt.Sprintf(harnessTemplate, code, strings.Join(rows, "\n"), def.Func, cmp, tag, tag), nil
}

// pyLiteral renders v as a Python expression.
func pyLiteral(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "None", nil
	case bool:
		if x {
			return "True", nil
		}
		return "False", nil
	case string:
		return strconv.Quote(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return "", fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
	items := make([]string, rv.Len())
	for i := range items {
		lit, err := pyLiteral(rv.Index(i).Interface())
		if err != nil {
			return "", err
		}
		items[i] = lit
	}
	return "[" + strings.Join(items, ", ") + "]", nil
}

// Report is the parsed harness output.
type Report struct {
	Total  int
	Passed int
	Failed int
	Errors int
}

// AllPass reports whether every expected case passed.
func (r Report) AllPass(expected int) bool {
	return r.Total > 0 && r.Total == expected && r.Passed == r.Total
}

var resultLine = regexp.MustCompile(`^\[([0-9a-f-]+)\] Test (\d+): (PASS|FAIL|ERROR)`)

// Parse counts the result lines carrying tag. It returns the report and the
// output with the tag stripped, as shown to the player.
func Parse(output, tag string) (Report, string) {
	var rep Report
	lines := strings.Split(output, "\n")
	for i, line := range lines {
		m := resultLine.FindStringSubmatch(line)
		if m == nil || m[1] != tag {
			continue
		}
		rep.Total++
		switch m[3] {
		case "PASS":
			rep.Passed++
		case "FAIL":
			rep.Failed++
		default:
			rep.Errors++
		}
		lines[i] = strings.TrimPrefix(line, "["+tag+"] ")
	}
	return rep, strings.Join(lines, "\n")
}
