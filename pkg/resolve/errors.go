package resolve

import (
	"fmt"
	"strings"

	"github.com/matzehuels/npym/pkg/npm"
)

// UnsatisfiableError reports a dependency for which no published version
// satisfies the requirement. Constraints lists every spec that applied;
// Path is the chain of name@version from the root to the requirer.
type UnsatisfiableError struct {
	Name        npm.PackageName
	Constraints []string
	Path        []string
}

func (e *UnsatisfiableError) Error() string {
	msg := fmt.Sprintf("no version of %s satisfies %s", e.Name, strings.Join(e.Constraints, ", "))
	if len(e.Path) > 0 {
		msg += " (required by " + strings.Join(e.Path, " > ") + ")"
	}
	return msg
}

// FetchError reports a metadata lookup failure for Name.
type FetchError struct {
	Name npm.PackageName
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Name, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
