package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"flow-orchestrator/backend/pkg/models"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Condition is a threshold test against one KPI.
type Condition struct {
	Metric    string
	Operator  string
	Threshold string
}

var labelCondition = regexp.MustCompile(`^\s*(.+?)\s*(>=|<=|==|>|<)\s*(\S.*?)\s*$`)

// ParseCondition reads metric/operator/value from node config, accepting
// the condition_* keys too, and falls back to a label such as "ROAS > 3".
// ok is false when the node carries no condition at all.
func ParseCondition(n models.Node) (Condition, bool) {
	c := Condition{
		Metric:    firstNonEmpty(n.ConfigString("metric"), n.ConfigString("condition_metric")),
		Operator:  firstNonEmpty(n.ConfigString("operator"), n.ConfigString("condition_operator")),
		Threshold: firstNonEmpty(n.ConfigString("value"), n.ConfigString("condition_value")),
	}
	if c.Metric != "" {
		if c.Operator == "" {
			c.Operator = ">"
		}
		return c, true
	}
	if m := labelCondition.FindStringSubmatch(n.Label); m != nil {
		return Condition{Metric: m[1], Operator: m[2], Threshold: m[3]}, true
	}
	return Condition{}, false
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %s", c.Metric, c.Operator, c.Threshold)
}

func validOperator(op string) bool {
	switch op {
	case ">", "<", ">=", "<=", "==":
		return true
	}
	return false
}

// comparator evaluates "actual OP threshold" with compiled expr programs,
// one per operator.
type comparator struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
}

func newComparator() *comparator {
	return &comparator{programs: make(map[string]*vm.Program)}
}

type compareEnv struct {
	Actual    float64 `expr:"actual"`
	Threshold float64 `expr:"threshold"`
}

func (c *comparator) compare(op string, actual, threshold float64) (bool, error) {
	if !validOperator(op) {
		return false, fmt.Errorf("unsupported operator %q", op)
	}
	program, err := c.program(op)
	if err != nil {
		return false, err
	}
	out, err := expr.Run(program, compareEnv{Actual: actual, Threshold: threshold})
	if err != nil {
		return false, err
	}
	held, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("condition did not evaluate to a boolean")
	}
	return held, nil
}

func (c *comparator) program(op string) (*vm.Program, error) {
	c.mu.RLock()
	if p, ok := c.programs[op]; ok {
		c.mu.RUnlock()
		return p, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.programs[op]; ok {
		return p, nil
	}
	p, err := expr.Compile("actual "+op+" threshold", expr.Env(compareEnv{}), expr.AsBool())
	if err != nil {
		return nil, err
	}
	c.programs[op] = p
	return p, nil
}

// ParseNumber reads a KPI display value such as "$1,210.40", "41.3%" or
// "8.38x".
func ParseNumber(s string) (float64, error) {
	clean := strings.TrimSpace(s)
	clean = strings.NewReplacer("$", "", ",", "", "%", "", " ", "").Replace(clean)
	clean = strings.TrimSuffix(strings.TrimSuffix(clean, "x"), "X")
	return strconv.ParseFloat(clean, 64)
}

// findKPI matches metric against KPI labels, exact (case-insensitive)
// first, then by substring in either direction.
func findKPI(kpis []models.KPI, metric string) (models.KPI, bool) {
	m := strings.ToLower(strings.TrimSpace(metric))
	for _, k := range kpis {
		if strings.ToLower(k.Label) == m {
			return k, true
		}
	}
	for _, k := range kpis {
		l := strings.ToLower(k.Label)
		if strings.Contains(l, m) || strings.Contains(m, l) {
			return k, true
		}
	}
	return models.KPI{}, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
