package commands

import (
	"errors"
	"fmt"
)

// ErrAssertion 观察到的状态与预期不符
var ErrAssertion = errors.New("assertion failed")

// AssertionError 断言失败
type AssertionError struct {
	Subject  string
	Expected string
	Actual   string
	Err      error // 可选，底层原因
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("expected %s %s, got %s", e.Subject, e.Expected, e.Actual)
}

func (e *AssertionError) Is(target error) bool { return target == ErrAssertion }

func (e *AssertionError) Unwrap() error { return e.Err }
