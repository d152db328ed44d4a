package ppfile

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/Pistonite/txtpp/internal/directive"
	"github.com/Pistonite/txtpp/internal/lineio"
	"github.com/Pistonite/txtpp/internal/pathkit"
	"github.com/Pistonite/txtpp/internal/tagstate"
)

// executeDirective runs one fully-accumulated directive and returns its
// output, per spec.md §4.4. A nil *string (as opposed to a pointer to an
// empty string) means the directive produces no output at all, per
// §4.4.3/§4.4.4/§4.4.6 (temp, tag, empty): such directives never interact
// with the tag registry's store step.
func (p *Preprocessor) executeDirective(
	ctx context.Context,
	d *directive.Directive,
	directiveIndex int,
	source pathkit.AbsPath,
	dir pathkit.AbsPath,
	tags tagCreator,
	ending lineio.Ending,
	resolver Resolver,
) (*string, error) {
	switch d.Kind {
	case directive.KindEmpty:
		return nil, nil

	case directive.KindInclude:
		return p.executeInclude(d, dir, resolver)

	case directive.KindRun:
		return p.executeRun(ctx, d, directiveIndex, source, dir)

	case directive.KindTemp:
		return nil, p.executeTemp(d, dir, ending)

	case directive.KindTag:
		name := ""
		if len(d.Args) > 0 {
			name = d.Args[0]
		}
		if err := tags.Create(name); err != nil {
			return nil, classifyTagCreateErr(source, d.Line, name, err)
		}
		return nil, nil

	case directive.KindWrite:
		out := joinWithTrailing(d.Args, ending)
		return &out, nil

	default:
		return nil, parseFailAt(source, d.Line, "unrecognized directive kind "+string(d.Kind))
	}
}

// tagCreator is the slice of tagstate.State's API executeDirective needs.
type tagCreator interface {
	Create(name string) error
}

func (p *Preprocessor) executeInclude(d *directive.Directive, dir pathkit.AbsPath, resolver Resolver) (*string, error) {
	arg := ""
	if len(d.Args) > 0 {
		arg = d.Args[0]
	}
	target, err := resolveTargetPath(dir, arg)
	if err != nil {
		return nil, resolutionFailAt(dir, d.Line, "include: "+err.Error(), nil)
	}

	if !pathkit.IsSource(string(target), p.Suffix) {
		if sibling, ok := pathkit.SiblingSource(string(target), p.Suffix); ok {
			if _, statErr := os.Stat(sibling); statErr == nil {
				siblingAbs := pathkit.AbsPath(sibling)
				res := resolver.Resolve(siblingAbs)
				switch res.State {
				case DepPending:
					return nil, &Blocked{On: siblingAbs}
				case DepFailed:
					return nil, dependencyFail(dir, "include: dependency failed: "+siblingAbs.String(), res.Err)
				case DepDone:
					out := string(res.Output)
					return &out, nil
				}
			}
		}
	}

	content, err := os.ReadFile(string(target))
	if err != nil {
		return nil, resolutionFailAt(dir, d.Line, "include: cannot read "+target.String(), err)
	}
	out := string(content)
	return &out, nil
}

func (p *Preprocessor) executeRun(ctx context.Context, d *directive.Directive, directiveIndex int, source, dir pathkit.AbsPath) (*string, error) {
	if p.Shell == nil {
		return nil, executionFailAt(source, d.Line, "run: no shell configured", nil)
	}
	command := d.JoinSpace()
	out, err := p.Shell.Run(ctx, command, dir, source, directiveIndex)
	if err != nil {
		return nil, executionFailAt(source, d.Line, "run: "+command, err)
	}
	return &out, nil
}

func (p *Preprocessor) executeTemp(d *directive.Directive, dir pathkit.AbsPath, ending lineio.Ending) error {
	if len(d.Args) == 0 {
		return parseFailAt(dir, d.Line, "temp: missing path argument")
	}
	pathArg := d.Args[0]
	if strings.HasSuffix(pathArg, p.Suffix) {
		return resolutionFailAt(dir, d.Line, "temp: target must not end in the source suffix: "+pathArg, nil)
	}
	target, err := resolveTargetPath(dir, pathArg)
	if err != nil {
		return resolutionFailAt(dir, d.Line, "temp: "+err.Error(), nil)
	}

	content := joinWithTrailing(d.Args[1:], ending)
	existing, readErr := os.ReadFile(target.String())
	if readErr == nil && string(existing) == content {
		return nil
	}
	if err := os.WriteFile(target.String(), []byte(content), 0o644); err != nil {
		return executionFailAt(dir, d.Line, "temp: cannot write "+target.String(), err)
	}
	return nil
}

// joinWithTrailing joins args with ending, appending one more ending iff
// the last argument is the empty string (spec.md §4.4.3/§4.4.5).
func joinWithTrailing(args []string, ending lineio.Ending) string {
	joined := strings.Join(args, string(ending))
	if len(args) > 0 && args[len(args)-1] == "" {
		joined += string(ending)
	}
	return joined
}

func classifyTagCreateErr(source pathkit.AbsPath, line int, name string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, tagstate.ErrEmptyName) {
		return parseFailAt(source, line, "tag: invalid (empty) name")
	}
	var collision *tagstate.CollisionError
	if errors.As(err, &collision) {
		return resolutionFailAt(source, line, "tag: "+collision.Error(), nil)
	}
	return resolutionFailAt(source, line, "tag: "+name, err)
}
