package fieldtrial

import (
	"context"
	"strings"

	"github.com/regenpgc/trialbase/internal/datastore/entities"
)

// VariableSpec names the ontology terms of a new variable by label. Missing
// terms are created.
type VariableSpec struct {
	Label        string
	Abbreviation string
	Entity       string
	Attribute    string
	Trait        string
	Method       string
	Scale        string
	MinValue     *float64
	MaxValue     *float64
	Type         entities.VariableType
}

// DefineVariable creates a variable together with any of its trait, method
// and scale terms that do not exist yet.
func (s *Service) DefineVariable(ctx context.Context, spec VariableSpec) (*entities.Variable, error) {
	v := &entities.Variable{
		Label:        strings.TrimSpace(spec.Label),
		Abbreviation: strings.TrimSpace(spec.Abbreviation),
		MinValue:     spec.MinValue,
		MaxValue:     spec.MaxValue,
		Type:         spec.Type,
	}
	if err := firstError(
		ValidateVariable(v),
		required("entity", spec.Entity),
		required("attribute", spec.Attribute),
		required("trait", spec.Trait),
		required("method", spec.Method),
		required("scale", spec.Scale),
	); err != nil {
		return nil, s.finish("define_variable", err)
	}

	err := s.inTx(ctx, func(r repos) error {
		tx := r.db.WithContext(ctx)
		entity := &entities.TraitEntity{Label: spec.Entity}
		if err := tx.Where(entities.TraitEntity{Label: spec.Entity}).FirstOrCreate(entity).Error; err != nil {
			return err
		}
		attr := &entities.TraitAttribute{Label: spec.Attribute}
		if err := tx.Where(entities.TraitAttribute{Label: spec.Attribute}).FirstOrCreate(attr).Error; err != nil {
			return err
		}
		trait := &entities.VarTrait{Label: spec.Trait, EntityID: entity.ID, AttributeID: attr.ID}
		if err := tx.Where(entities.VarTrait{Label: spec.Trait}).FirstOrCreate(trait).Error; err != nil {
			return err
		}
		method := &entities.VarMethod{Label: spec.Method}
		if err := tx.Where(entities.VarMethod{Label: spec.Method}).FirstOrCreate(method).Error; err != nil {
			return err
		}
		scale := &entities.VarScale{Label: spec.Scale}
		if err := tx.Where(entities.VarScale{Label: spec.Scale}).FirstOrCreate(scale).Error; err != nil {
			return err
		}
		v.TraitID, v.MethodID, v.ScaleID = trait.ID, method.ID, scale.ID
		return r.ontology.CreateVariable(ctx, v)
	})
	if err != nil {
		return nil, s.finish("define_variable", err)
	}
	return v, s.finish("define_variable", nil)
}

// CreateVariable validates and stores a variable whose terms already exist.
func (s *Service) CreateVariable(ctx context.Context, v *entities.Variable) error {
	if err := ValidateVariable(v); err != nil {
		return s.finish("create_variable", err)
	}
	return s.finish("create_variable", s.repos().ontology.CreateVariable(ctx, v))
}

// CreateSop stores an SOP document, optionally bound to a variable.
func (s *Service) CreateSop(ctx context.Context, d *entities.SopDocument) error {
	if err := firstError(required("documentName", d.DocumentName), required("label", d.Label)); err != nil {
		return s.finish("create_sop", err)
	}
	return s.finish("create_sop", s.repos().ontology.CreateSop(ctx, d))
}

// CreateAgroProcess stores an agronomic process type.
func (s *Service) CreateAgroProcess(ctx context.Context, p *entities.AgroProcess) error {
	if err := required("label", p.Label); err != nil {
		return s.finish("create_agro_process", err)
	}
	return s.finish("create_agro_process", s.repos().ontology.CreateAgroProcess(ctx, p))
}
