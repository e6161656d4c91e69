package loader

import (
	"fmt"

	"github.com/jward/arbor/internal/syntax"
)

// Anomaly is a construct found where the traversal did not expect it. The
// construct is skipped semantically; line accounting still covers it.
type Anomaly struct {
	Path      string
	Line      int
	Construct string
	Mode      Mode
	Message   string
}

func (a Anomaly) String() string {
	path := a.Path
	if path == "" {
		path = "<buffer>"
	}
	return fmt.Sprintf("%s:%d: %s in %s: %s", path, a.Line, a.Construct, a.Mode, a.Message)
}

func (b *build) anomaly(n syntax.Node, msg string) {
	a := Anomaly{
		Path:      b.st.path,
		Line:      n.Line(),
		Construct: n.Kind(),
		Mode:      b.st.Mode(),
		Message:   msg,
	}
	b.anomalies = append(b.anomalies, a)
	b.l.logger.Warn("loader.anomaly",
		"path", a.Path,
		"line", a.Line,
		"construct", a.Construct,
		"mode", a.Mode.String(),
		"msg", a.Message,
	)
}
