package modeling

import (
	"fmt"

	"github.com/goccy/go-json"

	"tourism-forecast/internal/config"
	"tourism-forecast/internal/models"
)

// ensemble averages the predictions of its member models. Each member is
// fitted on the same rows; Predict receives the union of the members'
// features and hands every member its own projection.
type ensemble struct {
	Names   []string `json:"features"`
	members []Model
	projs   []Projection
}

type ensembleMember struct {
	Kind   string          `json:"kind"`
	Params json.RawMessage `json:"params"`
}

type ensembleParams struct {
	Names   []string         `json:"features"`
	Members []ensembleMember `json:"members"`
}

func newEnsemble(cfg config.ModelingConfig) (*ensemble, error) {
	if len(cfg.Ensemble.Members) < 2 {
		return nil, &models.ValidationError{Field: "ensemble.members", Value: fmt.Sprint(cfg.Ensemble.Members), Message: "need at least two member kinds"}
	}
	e := &ensemble{}
	for _, kind := range cfg.Ensemble.Members {
		if kind == models.KindEnsemble {
			return nil, &models.ValidationError{Field: "ensemble.members", Value: kind, Message: "ensemble cannot contain itself"}
		}
		m, err := New(kind, cfg)
		if err != nil {
			return nil, err
		}
		e.members = append(e.members, m)
	}
	return e, nil
}

func (m *ensemble) Kind() string { return models.KindEnsemble }

func (m *ensemble) Features() []string { return m.Names }

func (m *ensemble) Fit(schema []string, X [][]float64, y []float64) error {
	for _, member := range m.members {
		if err := member.Fit(schema, X, y); err != nil {
			return fmt.Errorf("ensemble member %s: %w", member.Kind(), err)
		}
	}
	return m.index(schema)
}

// index sets Names to the members' features in schema order and resolves
// each member's projection from that union
func (m *ensemble) index(schema []string) error {
	used := map[string]bool{}
	for _, member := range m.members {
		for _, f := range member.Features() {
			used[f] = true
		}
	}
	names := make([]string, 0, len(used))
	for _, f := range schema {
		if used[f] {
			names = append(names, f)
		}
	}
	if len(names) != len(used) {
		return &models.SchemaMismatchError{Reason: "ensemble members use features outside the schema"}
	}
	m.Names = names

	m.projs = make([]Projection, len(m.members))
	for i, member := range m.members {
		proj, err := NewProjection(m.Names, member.Features())
		if err != nil {
			return err
		}
		m.projs[i] = proj
	}
	return nil
}

func (m *ensemble) Predict(x []float64) float64 {
	var sum float64
	for i, member := range m.members {
		sum += member.Predict(m.projs[i].Apply(x))
	}
	return sum / float64(len(m.members))
}

func (m *ensemble) Params() (json.RawMessage, error) {
	p := ensembleParams{Names: m.Names}
	for _, member := range m.members {
		raw, err := member.Params()
		if err != nil {
			return nil, err
		}
		p.Members = append(p.Members, ensembleMember{Kind: member.Kind(), Params: raw})
	}
	return json.Marshal(p)
}

func (m *ensemble) UnmarshalJSON(data []byte) error {
	var p ensembleParams
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if len(p.Members) == 0 {
		return &models.SchemaMismatchError{Reason: "ensemble parameters list no members"}
	}
	m.members = m.members[:0]
	for _, em := range p.Members {
		if em.Kind == models.KindEnsemble {
			return &models.SchemaMismatchError{Reason: "nested ensemble parameters"}
		}
		member, err := Restore(em.Kind, em.Params)
		if err != nil {
			return err
		}
		m.members = append(m.members, member)
	}
	return m.index(p.Names)
}
