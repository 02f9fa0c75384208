package domain

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrAmbiguousCue = errors.New("step has both a target and a breath phase")

type catalogFile struct {
	Exercises []exerciseFile `yaml:"exercises"`
}

type exerciseFile struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Duration    string     `yaml:"duration"`
	Icon        string     `yaml:"icon"`
	Steps       []stepFile `yaml:"steps"`
}

type stepFile struct {
	Instruction string    `yaml:"instruction"`
	Duration    int       `yaml:"duration"`
	Target      *Position `yaml:"target"`
	Breath      string    `yaml:"breath"`
}

func (s stepFile) toStep() (Step, error) {
	switch {
	case s.Target != nil && s.Breath != "":
		return Step{}, ErrAmbiguousCue
	case s.Target != nil:
		return Target(s.Instruction, s.Duration, s.Target.X, s.Target.Y, s.Target.Z), nil
	case s.Breath != "":
		return Breath(s.Instruction, s.Duration, BreathPhase(s.Breath)), nil
	default:
		return Hold(s.Instruction, s.Duration), nil
	}
}

// ParseCatalog decodes a YAML catalog document.
func ParseCatalog(r io.Reader) (*Catalog, error) {
	var doc catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	exercises := make([]Exercise, 0, len(doc.Exercises))
	for _, ef := range doc.Exercises {
		ex := Exercise{
			ID:          ExerciseID(ef.ID),
			Name:        ef.Name,
			Description: ef.Description,
			Duration:    ef.Duration,
			Icon:        ef.Icon,
			Steps:       make([]Step, 0, len(ef.Steps)),
		}
		for i, sf := range ef.Steps {
			step, err := sf.toStep()
			if err != nil {
				return nil, fmt.Errorf("%s step %d: %w", ef.ID, i, err)
			}
			ex.Steps = append(ex.Steps, step)
		}
		if err := ex.Validate(); err != nil {
			return nil, err
		}
		exercises = append(exercises, ex)
	}

	return NewCatalog(exercises...), nil
}

// LoadCatalog returns the builtin catalog, extended by the YAML file at path
// when path is non-empty.
func LoadCatalog(path string) (*Catalog, error) {
	builtin := BuiltinCatalog()
	if path == "" {
		return builtin, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	extra, err := ParseCatalog(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	return builtin.Merge(extra), nil
}
