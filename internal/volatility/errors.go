package volatility

import "errors"

var (
	// ErrInsufficientData means the input series is too short for the estimator.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidParameter means a caller-supplied parameter or value is out of range.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrModelFit means the conditional variance model could not be estimated.
	ErrModelFit = errors.New("model fit failed")
)
