package commands

import (
	"fmt"

	"github.com/craigdanielk/web-builder/internal/foundation/errors"
	"github.com/craigdanielk/web-builder/internal/validate"
)

// ValidateCmd implements the 'validate' command: the deploy gate without deploying.
type ValidateCmd struct {
	Project string `arg:"" help:"Project name"`
	Write   bool   `help:"Also write review.json and review.md into the project directory"`
}

func (v *ValidateCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	dir, err := projectDir(cfg, v.Project)
	if err != nil {
		return err
	}
	rep, err := validate.Preflight(dir)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(g.Out, validate.RenderConsole(rep))
	if v.Write {
		if err := validate.Persist(dir, rep, ""); err != nil {
			return err
		}
	}
	if !rep.Passed {
		return errors.ValidationError(fmt.Sprintf("validation found %d error(s)", len(rep.Errors()))).
			WithContext("project", v.Project).Build()
	}
	return nil
}
