package opts

import (
	"errors"
	"fmt"
)

// EvaluationError reports a failed compile or run of an expression.
type EvaluationError struct {
	Engine string
	Expr   string
	// Subject names what was being evaluated: an option key, a filter name.
	Subject string
	Err     error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	expr := "expr=<empty>"
	if e.Expr != "" {
		expr = fmt.Sprintf("expr=%q", e.Expr)
	}
	return fmt.Sprintf("opts: %s evaluator %s subject=%s: %v", e.Engine, expr, e.Subject, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// wrapEvaluatorError attributes err to engine when no expression is known
// yet, such as an empty expression.
func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}
	if evalErr := (*EvaluationError)(nil); errors.As(err, &evalErr) {
		return err
	}
	return fmt.Errorf("opts: %s evaluator: %w", engine, err)
}

// wrapEvaluationError returns err as an EvaluationError, filling the fields
// an inner wrap left empty.
func wrapEvaluationError(engine, expr, subject string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		return &EvaluationError{Engine: engine, Expr: expr, Subject: subject, Err: err}
	}
	for field, value := range map[*string]string{
		&evalErr.Engine:  engine,
		&evalErr.Expr:    expr,
		&evalErr.Subject: subject,
	} {
		if *field == "" {
			*field = value
		}
	}
	return evalErr
}
