package fieldtrial

import (
	"github.com/regenpgc/trialbase/internal/datastore/entities"
	"github.com/regenpgc/trialbase/internal/errors"
)

// Transition checks a move of an image operation from one status to
// another. Operations start in progress and end in success or failure;
// nothing leaves a terminal status.
func Transition(from, to entities.OperationStatus) error {
	if !to.Valid() {
		return invalid("status", RuleEnum, "unknown operation status %q", to)
	}
	if from == entities.StatusInProgress && to.Terminal() {
		return nil
	}
	return errors.Newf("cannot move image operation from %s to %s", from.Label(), to.Label()).
		Component("fieldtrial").
		Category(errors.CategoryState).
		Context("from", string(from)).
		Context("to", string(to)).
		Build()
}
