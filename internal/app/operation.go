package app

// Operation tracks a CLI command that may mutate the cache.
// Operations are created in memory with ID=0. Only mutating commands
// persist them (giving them an auto-increment ID from the database).
type Operation struct {
	ID           int64
	Name         string
	Parameters   string
	Status       string // "success" or "error"
	ProductCount int
}

// NewOperation creates a new in-memory operation.
func NewOperation(name, parameters string) *Operation {
	return &Operation{
		Name:       name,
		Parameters: parameters,
		Status:     "success",
	}
}

// Persisted returns true if this operation has been saved to the database.
func (op *Operation) Persisted() bool {
	return op.ID != 0
}

// Record notes the outcome of the command: the resulting cache size, and
// status "error" if err is non-nil. A failure is never overwritten by a
// later success.
func (op *Operation) Record(count int, err error) {
	op.ProductCount = count
	if err != nil {
		op.Status = "error"
	}
}
