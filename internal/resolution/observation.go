package resolution

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jamesbarge/postboxd-sub001/internal/confidence"
	"github.com/jamesbarge/postboxd-sub001/internal/film"
)

// ErrInvalidObservation reports an observation that cannot be resolved.
var ErrInvalidObservation = errors.New("invalid observation")

// Observation is one scraped listing awaiting identity resolution.
type Observation struct {
	// FilmID is the ingested film record the listing was attached to.
	FilmID     string             `json:"film_id" yaml:"film_id"`
	SourceID   string             `json:"source_id,omitempty" yaml:"source_id,omitempty"`
	RawTitle   string             `json:"raw_title" yaml:"raw_title"`
	RawYear    *int               `json:"raw_year,omitempty" yaml:"raw_year,omitempty"`
	Candidates []film.Candidate   `json:"candidates,omitempty" yaml:"candidates,omitempty"`
	Signals    confidence.Signals `json:"signals" yaml:"signals"`
}

func (o Observation) validate() error {
	if strings.TrimSpace(o.FilmID) == "" {
		return fmt.Errorf("%w: film id is required", ErrInvalidObservation)
	}
	if strings.TrimSpace(o.RawTitle) == "" {
		return fmt.Errorf("%w: raw title is required for film %s", ErrInvalidObservation, o.FilmID)
	}
	return nil
}

type observationFile struct {
	Observations []Observation `json:"observations" yaml:"observations"`
}

// LoadObservations reads observations from a JSON or YAML file. The file
// holds either a list of observations or an object with an "observations"
// list.
func LoadObservations(path string) ([]Observation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read observations: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return decodeYAML(data)
	case ".json":
		return decodeJSON(data)
	default:
		return nil, fmt.Errorf("read observations: unsupported file type %q (want .json, .yaml, or .yml)", filepath.Ext(path))
	}
}

func decodeJSON(data []byte) ([]Observation, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []Observation
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode observations: %w", err)
		}
		return list, nil
	}
	var file observationFile
	if err := json.Unmarshal(trimmed, &file); err != nil {
		return nil, fmt.Errorf("decode observations: %w", err)
	}
	return file.Observations, nil
}

func decodeYAML(data []byte) ([]Observation, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("decode observations: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	root := node.Content[0]
	if root.Kind == yaml.SequenceNode {
		var list []Observation
		if err := root.Decode(&list); err != nil {
			return nil, fmt.Errorf("decode observations: %w", err)
		}
		return list, nil
	}
	var file observationFile
	if err := root.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode observations: %w", err)
	}
	return file.Observations, nil
}
