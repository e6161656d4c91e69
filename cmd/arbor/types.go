package main

import "github.com/jward/arbor"

// CLIResult is the top-level JSON envelope for all query commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLIFileDetail is a file together with the types it refers to.
type CLIFileDetail struct {
	*arbor.FileResult
	Dependencies []string `json:"dependencies,omitempty"`
}

// CLITypeDetail is a type together with its methods.
type CLITypeDetail struct {
	arbor.TypeResult
	MethodList []arbor.MethodResult `json:"method_list,omitempty"`
}

// CLIGraph is the package graph with its optional cycles.
type CLIGraph struct {
	*arbor.DependencyGraph
	Cycles [][]string `json:"cycles,omitempty"`
}
