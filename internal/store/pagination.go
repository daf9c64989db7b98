package store

import (
	"fmt"
	"strings"

	"github.com/safar/go-logistics/internal/models"
)

// whereBuilder accumulates AND-ed predicates with positional arguments.
// Each condition must contain exactly one %d verb for its placeholder.
type whereBuilder struct {
	conds []string
	args  []any
}

func newWhere(base ...string) *whereBuilder {
	return &whereBuilder{conds: append([]string(nil), base...)}
}

func (w *whereBuilder) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *whereBuilder) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conds, " AND ")
}

// paginate appends LIMIT/OFFSET placeholders and returns the clause with the full argument list.
func (w *whereBuilder) paginate(req models.PageRequest) (string, []any) {
	args := append(append([]any(nil), w.args...), req.PageSize, req.Offset())
	return fmt.Sprintf("LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args
}

// containsPattern builds an ILIKE pattern matching s anywhere, with LIKE
// metacharacters in s taken literally.
func containsPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
