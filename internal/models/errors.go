package models

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrInvalidZone       = errors.New("invalid zone")
	ErrInvalidEvent      = errors.New("invalid attendance event")
)

// TerminalError помечает ошибку доставки, повтор которой не имеет смысла
type TerminalError struct {
	Err error
}

func (e *TerminalError) Error() string {
	return e.Err.Error()
}

func (e *TerminalError) Unwrap() error {
	return e.Err
}

// Terminal всегда true
func (e *TerminalError) Terminal() bool {
	return true
}

// IsTerminal сообщает, есть ли в цепочке ошибок ошибка с Terminal() == true.
// Все остальные ошибки считаются временными.
func IsTerminal(err error) bool {
	var t interface{ Terminal() bool }
	if errors.As(err, &t) {
		return t.Terminal()
	}
	return false
}
