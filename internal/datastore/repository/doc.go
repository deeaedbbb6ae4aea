// Package repository provides the persistence operations of the field trial
// schema on top of GORM.
//
// # Error Handling
//
// Repositories never leak GORM or driver errors. Missing rows surface as
// sentinels such as ErrPlotNotFound wrapped in an errors.CategoryNotFound
// EnhancedError. Unique and foreign key violations from any of the supported
// drivers surface as ErrDuplicateKey or ErrForeignKey with
// errors.CategoryConflict.
//
// # Transactions
//
// Constructors take a *gorm.DB, which may be a transaction. Multi-step writes
// compose repositories inside db.Transaction:
//
//	err := db.Transaction(func(tx *gorm.DB) error {
//	    plots := repository.NewPlotRepository(tx)
//	    ...
//	})
//
// Cascading plot deletion runs its own transaction.
package repository
