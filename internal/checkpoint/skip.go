package checkpoint

import "github.com/craigdanielk/web-builder/internal/stages"

// SkipVerdict explains whether a resume at Target is permitted.
type SkipVerdict struct {
	Target  stages.Name
	Allowed bool
	// Optimistic is set when no checkpoint exists and the decision defers to
	// filesystem evidence.
	Optimistic bool
	// Required is the stage that must already be committed.
	Required   stages.Name
	Checkpoint *Checkpoint
}

// RequiredFor returns the stage immediately preceding target (extract for the first stage).
func RequiredFor(target stages.Name) stages.Name {
	idx := stages.Index(target)
	if idx <= 0 {
		return stages.Order()[0]
	}
	return stages.Order()[idx-1]
}

// Evaluate applies the resume rule: legal only if the checkpointed stage is at
// or after the stage immediately preceding target. A nil checkpoint, or one
// naming an unknown stage, is permitted optimistically.
func Evaluate(cp *Checkpoint, target stages.Name) SkipVerdict {
	v := SkipVerdict{Target: target, Required: RequiredFor(target), Checkpoint: cp}
	if cp == nil {
		v.Allowed = true
		v.Optimistic = true
		return v
	}
	cur := stages.Index(cp.Stage)
	if cur < 0 {
		v.Allowed = true
		v.Optimistic = true
		return v
	}
	v.Allowed = cur >= stages.Index(v.Required)
	return v
}

// CanSkipTo loads the project's checkpoint and evaluates a resume at target.
func (s *Store) CanSkipTo(project string, target stages.Name) (SkipVerdict, error) {
	cp, err := s.Load(project)
	if err != nil {
		return SkipVerdict{Target: target}, err
	}
	return Evaluate(cp, target), nil
}
