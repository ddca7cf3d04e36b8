// internal/vault/errors.go
package vault

import "errors"

// Sentinel errors for every rejected transition. Callers distinguish the
// benign, retriable and fatal classes with errors.Is:
//
//   - ErrDriftNotMet is benign ("no action needed").
//   - ErrPolicyCooldown, ErrHedgeTooSoon, ErrKeeperRateLimited are retriable
//     after waiting.
//   - Everything else indicates a caller bug, a guardrail violation or an
//     authorization failure.
var (
	ErrUnauthorized = errors.New("unauthorized signer")
	ErrPaused       = errors.New("vault is paused")

	ErrInvalidParams = errors.New("invalid parameters")
	ErrVolOutOfRange = errors.New("volatility out of range")

	ErrOracleNotReady = errors.New("oracle not ready")

	ErrHedgeTooSoon         = errors.New("hedge request too soon: min interval not met")
	ErrDriftNotMet          = errors.New("drift not met: price move within band")
	ErrNoOutstandingRequest = errors.New("no outstanding hedge request to confirm")
	ErrWrongRequestID       = errors.New("wrong hedge request id")
	ErrConfirmExpired       = errors.New("hedge confirm window expired")
	ErrExtremeDriftHalted   = errors.New("extreme drift: hedging halted pending acknowledgement")

	ErrPolicyCooldown = errors.New("policy update cooldown not met")

	ErrCapExceeded      = errors.New("cap exceeded")
	ErrLeverageExceeded = errors.New("leverage exceeded")
	ErrReserveTooLow    = errors.New("reserve below minimum ratio")

	ErrKeeperRateLimited      = errors.New("keeper rate limited for this epoch")
	ErrKeeperBondInsufficient = errors.New("keeper bond insufficient")
)
