package enum

// SecurityType stock, option, future
type SecurityType uint8

const (
	_security_type_beg SecurityType = iota
	SecurityTypeStock
	SecurityTypeOption
	SecurityTypeFuture
	_security_type_end
)

func (t SecurityType) IsAvailable() bool {
	return t > _security_type_beg && t < _security_type_end
}

func (t SecurityType) String() string {
	switch t {
	case SecurityTypeStock:
		return "STK"
	case SecurityTypeOption:
		return "OPT"
	case SecurityTypeFuture:
		return "FUT"
	default:
		return "UNKNOWN"
	}
}

// OptionRight call, put
type OptionRight uint8

const (
	_option_right_beg OptionRight = iota
	OptionRightCall
	OptionRightPut
	_option_right_end
)

func (r OptionRight) IsAvailable() bool {
	return r > _option_right_beg && r < _option_right_end
}

func (r OptionRight) String() string {
	switch r {
	case OptionRightCall:
		return "C"
	case OptionRightPut:
		return "P"
	default:
		return "UNKNOWN"
	}
}
