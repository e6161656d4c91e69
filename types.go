package arbor

import (
	"github.com/jward/arbor/internal/loader"
	"github.com/jward/arbor/internal/model"
	"github.com/jward/arbor/internal/store"
)

// Public type aliases for the summary model. These are Go type aliases (=),
// identical to the internal types at compile time.

type Store = store.Store
type Summary = model.Summary
type Package = model.PackageSummary
type File = model.FileSummary
type Import = model.ImportSummary
type Type = model.TypeSummary
type Method = model.MethodSummary
type Field = model.FieldSummary
type TypeDecl = model.TypeDecl
type MessageSend = model.MessageSendSummary
type FieldAccess = model.FieldAccessSummary
type Anomaly = loader.Anomaly
