package entities

// All returns one zero value of every entity, in dependency order, for
// schema migration.
func All() []any {
	return []any{
		&State{}, &Address{}, &Organization{}, &Person{}, &Location{},
		&Attribute{}, &Project{}, &AgroProcess{},
		&Trial{}, &TrialYear{}, &TrialAttribute{}, &TrialEvent{},
		&Treatment{}, &TreatmentLevel{}, &TrialTreatment{},
		&CommonName{}, &Germplasm{}, &GermplasmAlias{},
		&Plot{}, &PlotCrop{}, &PlotTreatment{},
		&TraitEntity{}, &TraitAttribute{}, &VarTrait{}, &VarMethod{}, &VarScale{},
		&Variable{}, &SopDocument{},
		&Observation{}, &AwsModel{}, &Image{}, &ImageOperation{},
	}
}

// DeleteOrder lists table names children first, so dropping or truncating in
// this order never violates a foreign key.
func DeleteOrder() []string {
	return []string{
		"image_operations", "images", "aws_models", "observations",
		"sop_documents", "variables", "var_scales", "var_methods", "var_traits",
		"trait_attributes", "trait_entities",
		"plot_treatments", "plot_crops", "plots",
		"germplasm_aliases", "germplasm", "common_names",
		"trial_treatments", "treatment_levels", "treatments",
		"trial_events", "trial_attributes", "trial_years", "trials",
		"agro_processes", "projects", "attributes", "locations",
		"people", "organizations", "addresses", "states",
	}
}
