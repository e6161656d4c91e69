package tools

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jward/arbor"
)

func (s *Server) handleIndexDirectory(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	root := getStringArg(args, "path")
	if root == "" {
		return errResult("path is required"), nil
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return errResult(fmt.Sprintf("invalid path: %v", err)), nil
	}

	if err := s.engine.IndexDirectory(ctx, absRoot); err != nil {
		return errResult(fmt.Sprintf("indexing failed: %v", err)), nil
	}

	q := s.engine.Query()
	files, _ := q.Files()
	pkgs, _ := q.Packages()
	return jsonResult(map[string]any{
		"root":     absRoot,
		"files":    len(files),
		"packages": len(pkgs),
		"affected": s.engine.Affected(),
	}), nil
}

// typeDetail is a type together with its methods.
type typeDetail struct {
	arbor.TypeResult
	MethodList []arbor.MethodResult  `json:"method_list,omitempty"`
	Subtypes   []*arbor.TypeRelation `json:"subtypes,omitempty"`
}

func (s *Server) handleFileSummary(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	path := getStringArg(args, "path")
	if path == "" {
		return errResult("path is required"), nil
	}

	q := s.engine.Query()
	file, err := q.File(path)
	if err != nil {
		if errors.Is(err, arbor.ErrNotIndexed) {
			return errResult(fmt.Sprintf("file not indexed: %s (run index_directory first)", path)), nil
		}
		return errResult(err.Error()), nil
	}

	types := make([]typeDetail, 0, len(file.Types))
	for _, name := range file.Types {
		d, err := s.detail(name, true, false)
		if err != nil {
			return errResult(err.Error()), nil
		}
		types = append(types, d)
	}

	return jsonResult(map[string]any{
		"file":  file,
		"types": types,
	}), nil
}

func (s *Server) handleFindType(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	name := getStringArg(args, "name")
	if name == "" {
		return errResult("name is required"), nil
	}
	withMethods := getBoolArg(args, "include_methods")
	withSubtypes := getBoolArg(args, "include_subtypes")

	q := s.engine.Query()
	var matches []string
	if strings.Contains(name, ".") {
		if t, err := q.Type(name); err == nil {
			matches = append(matches, t.Qualified)
		}
	}
	if len(matches) == 0 {
		named, err := q.TypesNamed(name)
		if err != nil {
			return errResult(err.Error()), nil
		}
		for _, t := range named {
			matches = append(matches, t.Qualified)
		}
	}
	if len(matches) == 0 {
		return errResult(fmt.Sprintf("type not found: %s", name)), nil
	}

	out := make([]typeDetail, 0, len(matches))
	for _, qualified := range matches {
		d, err := s.detail(qualified, withMethods, withSubtypes)
		if err != nil {
			return errResult(err.Error()), nil
		}
		out = append(out, d)
	}
	return jsonResult(map[string]any{
		"query": name,
		"types": out,
	}), nil
}

func (s *Server) detail(qualified string, withMethods, withSubtypes bool) (typeDetail, error) {
	q := s.engine.Query()
	t, err := q.Type(qualified)
	if err != nil {
		return typeDetail{}, err
	}
	d := typeDetail{TypeResult: *t}
	if withMethods {
		if d.MethodList, err = q.Methods(qualified); err != nil {
			return typeDetail{}, err
		}
	}
	if withSubtypes {
		if d.Subtypes, err = q.Subtypes(qualified); err != nil {
			return typeDetail{}, err
		}
	}
	return d, nil
}

func (s *Server) handleFindSenders(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	message := getStringArg(args, "message")
	if message == "" {
		return errResult("message is required"), nil
	}
	limit := getIntArg(args, "limit", 100)

	sends, err := s.engine.Query().Senders(message)
	if err != nil {
		return errResult(err.Error()), nil
	}
	total := len(sends)
	if limit > 0 && len(sends) > limit {
		sends = sends[:limit]
	}
	if sends == nil {
		sends = []arbor.SendResult{}
	}
	return jsonResult(map[string]any{
		"message": message,
		"total":   total,
		"senders": sends,
	}), nil
}

func (s *Server) handlePackageGraph(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	q := s.engine.Query()
	graph, err := q.PackageDependencyGraph()
	if err != nil {
		return errResult(err.Error()), nil
	}
	out := map[string]any{"graph": graph}
	if getBoolArg(args, "cycles") {
		cycles, err := q.CircularDependencies()
		if err != nil {
			return errResult(err.Error()), nil
		}
		out["cycles"] = cycles
	}
	return jsonResult(out), nil
}

func (s *Server) handleIndexSummary(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	summary, err := s.engine.Query().Summary(getIntArg(args, "top", 10))
	if err != nil {
		return errResult(err.Error()), nil
	}
	return jsonResult(summary), nil
}
