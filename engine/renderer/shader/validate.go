package shader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// ErrValidation is returned when WGSL source fails to parse, lower or validate.
var ErrValidation = errors.New("shader: validation failed")

// compile parses, lowers and validates source with naga and returns the validated module.
func compile(key, source string) (*ir.Module, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrValidation, key, err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrValidation, key, err)
	}
	problems, err := naga.Validate(module)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrValidation, key, err)
	}
	if len(problems) > 0 {
		msgs := make([]string, len(problems))
		for i := range problems {
			msgs[i] = problems[i].Error()
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrValidation, key, strings.Join(msgs, "; "))
	}
	return module, nil
}

func irStage(t ShaderType) ir.ShaderStage {
	switch t {
	case ShaderTypeVertex:
		return ir.StageVertex
	case ShaderTypeFragment:
		return ir.StageFragment
	default:
		return ir.StageCompute
	}
}

// findEntryPoint returns the first entry point of module declared for stage t.
func findEntryPoint(module *ir.Module, t ShaderType) (ir.EntryPoint, bool) {
	want := irStage(t)
	for _, ep := range module.EntryPoints {
		if ep.Stage == want {
			return ep, true
		}
	}
	return ir.EntryPoint{}, false
}
