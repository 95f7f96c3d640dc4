package k8s

// NotFoundError represents a "not found" case that is not an error for
// idempotent deletes.
type NotFoundError struct{}

func (e *NotFoundError) Error() string {
	return "resource not found"
}

func (e *NotFoundError) IsNotFound() {}

var errNotFound = &NotFoundError{}

// AlreadyExistsError represents an "already exists" case that is not an
// error for idempotent creates.
type AlreadyExistsError struct{}

func (e *AlreadyExistsError) Error() string {
	return "resource already exists"
}

func (e *AlreadyExistsError) IsAlreadyExists() {}

var errAlreadyExists = &AlreadyExistsError{}
