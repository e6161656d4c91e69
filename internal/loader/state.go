package loader

import (
	"fmt"

	"github.com/jward/arbor/internal/model"
)

// Mode says what kind of region the traversal is inside. It decides how the
// children of the current node are dispatched.
type Mode int

const (
	ModeInitializing Mode = iota
	ModeLoadingFile
	ModeLoadingType
	ModeLoadingClassBody
	ModeLoadingInterfaceList
	ModeLoadingExceptions
	ModeLoadingParameters
	ModeLoadingMethodBody
	// ModeLoadingFieldValue walks a field initializer for anonymous class
	// bodies only.
	ModeLoadingFieldValue
	// ModeIgnore advances line accounting only.
	ModeIgnore
)

var modeNames = [...]string{
	ModeInitializing:         "initializing",
	ModeLoadingFile:          "loading-file",
	ModeLoadingType:          "loading-type",
	ModeLoadingClassBody:     "loading-class-body",
	ModeLoadingInterfaceList: "loading-interface-list",
	ModeLoadingExceptions:    "loading-exceptions",
	ModeLoadingParameters:    "loading-parameters",
	ModeLoadingMethodBody:    "loading-method-body",
	ModeLoadingFieldValue:    "loading-field-value",
	ModeIgnore:               "ignore",
}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Packages interns package summaries by name.
type Packages interface {
	Package(name string) *model.PackageSummary
}

type frame struct {
	summary model.Summary
	// saved is the mode that was active before the frame was pushed.
	saved Mode
}

// State is the traversal context: a stack of the summaries being built
// (file, type, method, ...) and the current mode. Push and Pop save and
// restore the mode together with the summary, and SetMode returns the mode
// it replaces so callers can restore it with defer.
type State struct {
	pkgs  Packages
	path  string
	stack []frame
	mode  Mode
	// members holds the member type names of each type, known before the
	// members themselves are built.
	members map[*model.TypeSummary][]string
}

// NewState returns a state for a fresh load of the file at path. The file
// summary is created on the first package declaration, or lazily in the
// default package.
func NewState(pkgs Packages, path string) *State {
	return &State{pkgs: pkgs, path: path, mode: ModeInitializing}
}

// SeededState returns a state that rebuilds f in place: f is the current
// summary and the mode is already ModeLoadingFile.
func SeededState(pkgs Packages, f *model.FileSummary) *State {
	return &State{
		pkgs:  pkgs,
		path:  f.Path,
		stack: []frame{{summary: f, saved: ModeInitializing}},
		mode:  ModeLoadingFile,
	}
}

// Mode returns the current mode.
func (s *State) Mode() Mode { return s.mode }

// SetMode switches to m and returns the previous mode.
func (s *State) SetMode(m Mode) Mode {
	prev := s.mode
	s.mode = m
	return prev
}

// Push makes sum the current summary and switches to mode.
func (s *State) Push(sum model.Summary, mode Mode) {
	s.stack = append(s.stack, frame{summary: sum, saved: s.mode})
	s.mode = mode
}

// Pop drops the current summary and restores the mode that was active when
// it was pushed. The file frame is never popped.
func (s *State) Pop() model.Summary {
	if len(s.stack) <= 1 {
		return nil
	}
	top := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	s.mode = top.saved
	return top.summary
}

// Depth returns the number of summaries on the stack.
func (s *State) Depth() int { return len(s.stack) }

// Current returns the summary being built. While initializing it creates
// the file summary in the default package and moves to ModeLoadingFile.
func (s *State) Current() model.Summary {
	if len(s.stack) == 0 {
		s.EnterPackage("")
	}
	return s.stack[len(s.stack)-1].summary
}

// File returns the file summary being built, creating it if needed.
func (s *State) File() *model.FileSummary {
	if len(s.stack) == 0 {
		s.EnterPackage("")
	}
	return s.stack[0].summary.(*model.FileSummary)
}

// HasFile reports whether the file summary exists yet.
func (s *State) HasFile() bool { return len(s.stack) > 0 }

// EnterPackage links the file being built under the named package. A fresh
// load creates the file summary; a reload moves the seeded one.
func (s *State) EnterPackage(name string) *model.FileSummary {
	pkg := s.pkgs.Package(name)
	if len(s.stack) == 0 {
		f := model.NewFile(s.path)
		pkg.AddFile(f)
		s.stack = append(s.stack, frame{summary: f, saved: ModeInitializing})
		if s.mode == ModeInitializing {
			s.mode = ModeLoadingFile
		}
		return f
	}
	f := s.stack[0].summary.(*model.FileSummary)
	f.Relink(pkg)
	if s.mode == ModeInitializing {
		s.mode = ModeLoadingFile
	}
	return f
}

// Type returns the innermost type on the stack, or nil.
func (s *State) Type() *model.TypeSummary {
	for i := len(s.stack) - 1; i >= 0; i-- {
		if t, ok := s.stack[i].summary.(*model.TypeSummary); ok {
			return t
		}
	}
	return nil
}

// Method returns the current summary if it is a method, or nil.
func (s *State) Method() *model.MethodSummary {
	if len(s.stack) == 0 {
		return nil
	}
	m, _ := s.stack[len(s.stack)-1].summary.(*model.MethodSummary)
	return m
}

// DeclareMembers records the names of t's member types ahead of loading
// them, so references written before a member's declaration resolve.
func (s *State) DeclareMembers(t *model.TypeSummary, names []string) {
	if len(names) == 0 {
		return
	}
	if s.members == nil {
		s.members = make(map[*model.TypeSummary][]string)
	}
	s.members[t] = names
}

// Declares reports whether t has a member type named simple.
func (s *State) Declares(t *model.TypeSummary, simple string) bool {
	if t.Nested(simple) != nil {
		return true
	}
	for _, name := range s.members[t] {
		if name == simple {
			return true
		}
	}
	return false
}
