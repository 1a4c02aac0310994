package dumper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/hatlonely/rdbx/log"
	"github.com/hatlonely/rdbx/log/logger"
	"github.com/hatlonely/rdbx/rdb/schema"
	"github.com/pkg/errors"
)

// SystemTable 始终不导出的系统表
const SystemTable = "schema_info"

type Options struct {
	// IgnoreTables 按名字忽略的表
	IgnoreTables []string `cfg:"ignoreTables"`

	// IgnorePatterns 按正则忽略的表
	IgnorePatterns []string `cfg:"ignorePatterns"`

	// Header 是否输出文件头和结尾
	Header bool `cfg:"header" def:"true"`

	// Version 文件头中的 schema 版本
	Version string `cfg:"version" def:"0"`
}

// Failure 一个导出失败的关系
type Failure struct {
	Relation string
	Err      error
}

// Result 一次完整导出的结果
type Result struct {
	Tables   []string
	Views    []string
	Failures []Failure
}

type Dumper struct {
	reflector      *schema.Reflector
	options        *Options
	ignorePatterns []*regexp.Regexp
	logger         logger.Logger
}

func NewDumperWithOptions(provider schema.Provider, options *Options) (*Dumper, error) {
	if provider == nil {
		return nil, errors.New("provider is nil")
	}
	if options == nil {
		options = &Options{}
	}

	d := &Dumper{
		reflector: schema.NewReflector(provider),
		options:   options,
		logger:    log.Default(),
	}
	for _, pattern := range options.IgnorePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid ignore pattern [%s]", pattern)
		}
		d.ignorePatterns = append(d.ignorePatterns, re)
	}
	return d, nil
}

func (d *Dumper) SetLogger(l logger.Logger) {
	if l != nil {
		d.logger = l
	}
}

func (d *Dumper) ignored(name string) bool {
	if name == SystemTable {
		return true
	}
	for _, t := range d.options.IgnoreTables {
		if t == name {
			return true
		}
	}
	for _, re := range d.ignorePatterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Dump 导出全部关系，先按名字导出表，再按名字导出视图
//
// 单个关系失败时输出注释块并继续，只有列出关系失败或写入 w 失败才返回错误
func (d *Dumper) Dump(ctx context.Context, w io.Writer) (*Result, error) {
	names, err := d.reflector.Relations(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	var tables, views []string
	unclassified := map[string]error{}
	for _, name := range names {
		if d.ignored(name) {
			continue
		}
		kind, err := d.reflector.Kind(ctx, name)
		switch {
		case err != nil:
			unclassified[name] = err
			tables = append(tables, name)
		case kind == schema.KindView:
			views = append(views, name)
		default:
			tables = append(tables, name)
		}
	}

	if d.options.Header {
		if err := d.header(w); err != nil {
			return nil, err
		}
	}

	res := &Result{}
	for _, name := range tables {
		var err error
		if cause, ok := unclassified[name]; ok {
			err = d.fail(ctx, w, name, cause)
		} else {
			err = d.Table(ctx, w, name)
		}
		if err := res.add(name, schema.KindTable, err); err != nil {
			return res, err
		}
	}
	for _, name := range views {
		if err := res.add(name, schema.KindView, d.View(ctx, w, name)); err != nil {
			return res, err
		}
	}

	if d.options.Header {
		if _, err := io.WriteString(w, "end\n"); err != nil {
			return res, errors.Wrap(err, "write trailer failed")
		}
	}

	d.logger.InfoContext(ctx, "schema dumped",
		"tables", len(res.Tables), "views", len(res.Views), "failures", len(res.Failures))
	return res, nil
}

// 关系级别的失败记入结果，写入失败原样返回
func (r *Result) add(name string, kind schema.Kind, err error) error {
	var relErr *RelationError
	switch {
	case err == nil && kind == schema.KindView:
		r.Views = append(r.Views, name)
	case err == nil:
		r.Tables = append(r.Tables, name)
	case errors.As(err, &relErr):
		r.Failures = append(r.Failures, Failure{Relation: name, Err: relErr.Err})
	default:
		return err
	}
	return nil
}

func (d *Dumper) header(w io.Writer) error {
	_, err := fmt.Fprintf(w, "# This file is auto-generated from the current state of the database.\n"+
		"# Regenerate it with schemadump instead of editing it by hand.\n\n"+
		"Schema.define(version: %s) do\n\n", d.options.Version)
	return errors.Wrap(err, "write header failed")
}

// RelationError 单个关系导出失败，失败信息已经以注释形式写入输出
type RelationError struct {
	Relation string
	Err      error
}

func (e *RelationError) Error() string {
	return fmt.Sprintf("dump '%s' failed: %v", e.Relation, e.Err)
}

func (e *RelationError) Unwrap() error {
	return e.Err
}

// 输出失败注释块，返回 RelationError，写入失败时返回写入错误
func (d *Dumper) fail(ctx context.Context, w io.Writer, name string, cause error) error {
	d.logger.WarnContext(ctx, "dump relation failed", "relation", name, "kind", errorKind(cause), "error", cause)

	message := strings.ReplaceAll(cause.Error(), "\n", "\n#   ")
	if _, err := fmt.Fprintf(w, "# Could not dump table %q because of following %s\n#   %s\n\n",
		name, errorKind(cause), message); err != nil {
		return errors.Wrap(err, "write failure comment failed")
	}
	return &RelationError{Relation: name, Err: cause}
}

func errorKind(err error) string {
	var unknownType *schema.UnknownTypeError
	var classify *schema.ClassifyError
	var metadata *schema.MetadataError
	switch {
	case errors.As(err, &unknownType):
		return "UnknownTypeError"
	case errors.As(err, &classify):
		return "ClassifyError"
	case errors.As(err, &metadata):
		return "MetadataError"
	}
	return "Error"
}

// 关系内容先写入缓冲区，成功后一次性写出，失败时输出注释块
func (d *Dumper) flush(ctx context.Context, w io.Writer, name string, render func(buf *bytes.Buffer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return d.fail(ctx, w, name, err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return errors.Wrapf(err, "write relation '%s' failed", name)
	}
	d.logger.DebugContext(ctx, "relation dumped", "relation", name)
	return nil
}

// Table 导出一个表，失败时返回 *RelationError
func (d *Dumper) Table(ctx context.Context, w io.Writer, name string) error {
	return d.flush(ctx, w, name, func(buf *bytes.Buffer) error {
		table, err := d.reflector.Table(ctx, name)
		if err != nil {
			return err
		}
		return renderTable(buf, table, d.reflector.Provider())
	})
}

// View 导出一个视图，失败时返回 *RelationError
func (d *Dumper) View(ctx context.Context, w io.Writer, name string) error {
	return d.flush(ctx, w, name, func(buf *bytes.Buffer) error {
		view, err := d.reflector.View(ctx, name)
		if err != nil {
			return err
		}
		renderView(buf, view)
		return nil
	})
}
