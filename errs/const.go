package errs

const (
	ErrCode_Unknown          = 1
	ErrCode_InvalidInterval  = 100
	ErrCode_TickerNotStarted = 101
	ErrCode_TickerPanicked   = 102
	ErrCode_WheelClosed      = 200
	ErrCode_WheelBusy        = 201
	ErrCode_InvalidConfig    = 300
)

var (
	Unknown          = CreateCodeError(ErrCode_Unknown, "UNKNOWN")
	InvalidInterval  = CreateCodeError(ErrCode_InvalidInterval, "INVALID_INTERVAL")
	TickerNotStarted = CreateCodeError(ErrCode_TickerNotStarted, "TICKER_NOT_STARTED")
	TickerPanicked   = CreateCodeError(ErrCode_TickerPanicked, "TICKER_PANICKED")
	WheelClosed      = CreateCodeError(ErrCode_WheelClosed, "WHEEL_CLOSED")
	WheelBusy        = CreateCodeError(ErrCode_WheelBusy, "WHEEL_BUSY")
	InvalidConfig    = CreateCodeError(ErrCode_InvalidConfig, "INVALID_CONFIG")
)
