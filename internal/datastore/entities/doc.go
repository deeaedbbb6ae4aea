// Package entities defines the GORM entity models of the field trial schema.
//
// Every table has a string primary key "<prefix>_<uuid v7>" assigned in a
// BeforeCreate hook when the ID is empty. Foreign keys are string columns and
// delete in cascade unless noted on the field.
//
// # Reference data
//
//   - State, Address, Organization, Person, Location, Attribute, Project
//
// # Trial hierarchy
//
//   - Trial, TrialYear, TrialAttribute, TrialEvent
//   - Treatment, TreatmentLevel, TrialTreatment
//   - CommonName, Germplasm, GermplasmAlias
//   - Plot (self-referencing forest), PlotCrop, PlotTreatment
//
// # Ontology and observations
//
//   - TraitEntity, TraitAttribute, VarTrait, VarMethod, VarScale, Variable
//   - SopDocument, AgroProcess
//   - Observation, AwsModel, Image, ImageOperation
package entities
