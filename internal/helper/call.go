package helper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/craigdanielk/web-builder/internal/foundation/errors"
)

// bridgeScript loads lib/<module> from the helpers directory, applies the
// named export to the JSON-decoded argument list read from stdin, and prints
// the JSON-encoded result on one line.
const bridgeScript = `
let input = '';
process.stdin.setEncoding('utf8');
process.stdin.on('data', (d) => { input += d; });
process.stdin.on('end', async () => {
  const req = JSON.parse(input);
  const mod = require('./lib/' + req.module);
  const fn = mod[req.function];
  if (typeof fn !== 'function') {
    process.stderr.write('export not found: ' + req.function + '\n');
    process.exit(2);
  }
  const result = await fn(...req.args);
  process.stdout.write(JSON.stringify(result === undefined ? null : result) + '\n');
});
`

// Func names an exported function of a helper library module.
type Func struct {
	Module   string
	Function string
	Args     []any
	Timeout  time.Duration
	// Schema, when set, must accept the decoded result.
	Schema *jsonschema.Schema
}

type bridgeRequest struct {
	Module   string `json:"module"`
	Function string `json:"function"`
	Args     []any  `json:"args"`
}

// Call invokes fn through the node bridge from the helpers directory and
// decodes its single-line JSON result into out. A failed process, empty or
// unparsable stdout, or a schema violation yields an error wrapping
// ErrUnavailable.
func (r *Runner) Call(ctx context.Context, fn Func, out any) error {
	args := fn.Args
	if args == nil {
		args = []any{}
	}
	payload, err := json.Marshal(bridgeRequest{Module: fn.Module, Function: fn.Function, Args: args})
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "encode helper arguments").Build()
	}
	cmd := Command{
		Name:  r.node,
		Args:  []string{"-e", bridgeScript},
		Dir:   r.helpersDir,
		Stdin: payload,
	}
	res, err := r.Run(ctx, Invocation{Command: cmd, Timeout: fn.Timeout})
	if err != nil {
		return err
	}
	target := Command{Name: r.node, Args: []string{fn.Module + "." + fn.Function}}

	line := LastLine(res.Stdout)
	if len(line) == 0 {
		return unavailable(target, "empty output", res.Stderr)
	}
	if fn.Schema != nil {
		doc, perr := jsonschema.UnmarshalJSON(bytes.NewReader(line))
		if perr != nil {
			return unavailable(target, "unparsable output: "+perr.Error(), res.Stderr)
		}
		if verr := fn.Schema.Validate(doc); verr != nil {
			return unavailable(target, "output rejected by schema: "+verr.Error(), nil)
		}
	}
	if err := json.Unmarshal(line, out); err != nil {
		return unavailable(target, "unparsable output: "+err.Error(), res.Stderr)
	}
	return nil
}

// LastLine returns the last non-blank line of helper stdout. Helpers may log
// before printing their result.
func LastLine(stdout []byte) []byte {
	lines := bytes.Split(bytes.TrimSpace(stdout), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		if l := bytes.TrimSpace(lines[i]); len(l) > 0 {
			return l
		}
	}
	return nil
}

// CompileSchema compiles a JSON schema document held in memory.
func CompileSchema(name, doc string) (*jsonschema.Schema, error) {
	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(doc)))
	if err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", name, err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, parsed); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	return c.Compile(name)
}
