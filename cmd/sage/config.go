package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sambeau/sage/pkg/sage/ast"
	"github.com/sambeau/sage/pkg/sage/lexer"
	"github.com/sambeau/sage/pkg/sage/parser"
)

// Config represents the optional sage.yaml configuration
type Config struct {
	// Tags lists host-defined statement tags to reserve, so templates
	// written for a host application still check cleanly. Each tag's
	// arguments are parsed with the full expression grammar and kept
	// as an inert statement.
	Tags []string `yaml:"tags"`
}

// loadConfig reads a YAML config file. A missing file at the default
// path is not an error; an unreadable or invalid one is.
func loadConfig(path string, required bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}

// Extensions returns the parser extensions the config declares.
func (c *Config) Extensions() []parser.Extension {
	if len(c.Tags) == 0 {
		return nil
	}
	return []parser.Extension{stubTags{tags: c.Tags}}
}

// stubTags accepts configured host tags by consuming the tag name and
// its arguments, keeping them in the tree as expression statements.
type stubTags struct {
	tags []string
}

func (s stubTags) Tags() []string {
	return s.tags
}

func (s stubTags) Parse(p *parser.Parser) ([]ast.Statement, error) {
	stream := p.Stream()
	tok := stream.Next() // the tag name itself
	if stream.Test(lexer.BLOCK_END) {
		return nil, nil
	}
	expr := p.ParseTuple()
	return []ast.Statement{&ast.ExprStmt{Token: tok, Expr: expr}}, nil
}
