package services

import "errors"

// Service-level sentinels. Handlers map these onto HTTP statuses; anything
// else is treated as a store failure and retried/surfaced generically.
var (
	ErrProfileNotFound   = errors.New("challenge profile not found — please register again")
	ErrInsufficientCoins = errors.New("not enough coins for this operation")
	ErrAlreadyRewarded   = errors.New("share reward already granted today")
	ErrInvalidLevel      = errors.New("unknown challenge level")
	ErrInvalidDay        = errors.New("day must be between 1 and 6")
	ErrSkipTooFar        = errors.New("day is too far ahead to unlock")
	ErrDayLocked         = errors.New("day is locked")
	ErrAttemptNotFound   = errors.New("quiz attempt not found")
	ErrAttemptFinished   = errors.New("quiz attempt already finished")
	ErrWrongQuestion     = errors.New("answer does not match the current question")
	ErrNotAnswered       = errors.New("current question has not been answered yet")
	ErrBankMissing       = errors.New("no question bank for this level and day")
	ErrUnknownPackage    = errors.New("unknown coin package")
	ErrSelfReferral      = errors.New("cannot use your own referral code")
)
