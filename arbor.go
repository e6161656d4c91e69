package arbor

// Progress receives bulk indexing progress. internal/ui provides a terminal
// implementation.
type Progress interface {
	Start(total int, description string)
	Add(n int)
	Finish()
}

// nopProgress discards progress reports.
type nopProgress struct{}

func (nopProgress) Start(int, string) {}
func (nopProgress) Add(int)           {}
func (nopProgress) Finish()           {}

// Metadata keys kept in the snapshot database.
const (
	metaIndexedAt = "indexed_at"
	metaFiles     = "files"
)
