package extract

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Ontology defines the entity and relation label sets the pipeline extracts
// against. Loaded from YAML so deployments can tune the schema without a
// rebuild.
type Ontology struct {
	EntityLabels   []string `yaml:"entity_labels"`
	RelationLabels []string `yaml:"relation_labels"`
}

// DefaultOntology returns the built-in label sets.
func DefaultOntology() *Ontology {
	return &Ontology{
		EntityLabels: []string{
			"PERSON", "ORGANIZATION", "LOCATION", "EVENT", "PRODUCT", "CONCEPT", "DATE",
		},
		RelationLabels: []string{
			"located_in", "capital_of", "part_of", "member_of", "works_for",
			"founded_by", "born_in", "related_to",
		},
	}
}

// LoadOntology reads an ontology from a YAML file. Missing sections fall back
// to the defaults.
func LoadOntology(path string) (*Ontology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ontology file: %w", err)
	}

	ontology := &Ontology{}
	if err := yaml.Unmarshal(data, ontology); err != nil {
		return nil, fmt.Errorf("failed to parse ontology file: %w", err)
	}

	defaults := DefaultOntology()
	if len(ontology.EntityLabels) == 0 {
		ontology.EntityLabels = defaults.EntityLabels
	}
	if len(ontology.RelationLabels) == 0 {
		ontology.RelationLabels = defaults.RelationLabels
	}
	return ontology, nil
}
