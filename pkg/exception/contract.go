package exception

import "errors"

var (
	ErrEmptySymbol             = errors.New("contract: empty symbol")
	ErrUnsupportedSymbolFormat = errors.New("contract: unsupported symbol format")
	ErrInvalidOptionParameters = errors.New("contract: invalid option parameters")
	ErrInvalidFutureParameters = errors.New("contract: invalid future parameters")
)
