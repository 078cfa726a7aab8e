package h5schema

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"go.uber.org/zap"

	"github.com/jacoelho/h5schema/dtype"
	"github.com/jacoelho/h5schema/internal/schema"
)

// ErrSchema reports a schema document that cannot be compiled.
var ErrSchema = schema.ErrSchema

// ErrMalformedDtype reports a dtype specification that cannot be normalized.
var ErrMalformedDtype = dtype.ErrMalformed

// Schema is a compiled schema: immutable after construction, safe for
// concurrent validation runs.
type Schema struct {
	root *schema.Group
	doc  map[string]any
}

// CompileOption configures schema compilation.
type CompileOption interface{ apply(*compileOptions) }

// ValidateOption configures a validation run.
type ValidateOption interface{ apply(*validateOptions) }

type compileOptions struct {
	docValidator func(map[string]any) error
}

type validateOptions struct {
	logger      *zap.Logger
	maxRefDepth int
}

type compileOptionFunc func(*compileOptions)

func (f compileOptionFunc) apply(cfg *compileOptions) {
	if cfg == nil {
		return
	}
	f(cfg)
}

type validateOptionFunc func(*validateOptions)

func (f validateOptionFunc) apply(cfg *validateOptions) {
	if cfg == nil {
		return
	}
	f(cfg)
}

// WithDocumentValidator sets a meta-schema check invoked on the raw document
// before the node model is built. Document validation itself is a
// collaborator's job; the engine only calls it.
func WithDocumentValidator(fn func(map[string]any) error) CompileOption {
	return compileOptionFunc(func(cfg *compileOptions) {
		cfg.docValidator = fn
	})
}

// WithLogger sets a logger that records each violation at debug level.
func WithLogger(l *zap.Logger) ValidateOption {
	return validateOptionFunc(func(cfg *validateOptions) {
		cfg.logger = l
	})
}

// WithMaxRefDepth bounds reference resolution depth (default 10).
func WithMaxRefDepth(depth int) ValidateOption {
	return validateOptionFunc(func(cfg *validateOptions) {
		cfg.maxRefDepth = depth
	})
}

// New compiles an already-parsed schema document.
func New(doc map[string]any, opts ...CompileOption) (*Schema, error) {
	cfg := applyCompileOptions(opts)
	if cfg.docValidator != nil {
		if err := cfg.docValidator(doc); err != nil {
			return nil, fmt.Errorf("schema document: %w", err)
		}
	}
	root, err := schema.NewRoot(doc)
	if err != nil {
		return nil, err
	}
	return &Schema{root: root, doc: doc}, nil
}

// Parse compiles a schema from JSON or YAML text.
func Parse(data []byte, opts ...CompileOption) (*Schema, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse schema document: %w", err)
	}
	return New(doc, opts...)
}

// LoadFile compiles a schema from a JSON or YAML file.
func LoadFile(path string, opts ...CompileOption) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", path, err)
	}
	s, err := Parse(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", path, err)
	}
	return s, nil
}

func applyCompileOptions(opts []CompileOption) compileOptions {
	var cfg compileOptions
	for _, opt := range opts {
		if opt != nil {
			opt.apply(&cfg)
		}
	}
	return cfg
}

func applyValidateOptions(opts []ValidateOption) validateOptions {
	cfg := validateOptions{
		logger:      zap.NewNop(),
		maxRefDepth: schema.DefaultMaxRefDepth,
	}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.maxRefDepth <= 0 {
		cfg.maxRefDepth = schema.DefaultMaxRefDepth
	}
	return cfg
}
